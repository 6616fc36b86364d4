package logsvc

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/summercamps/core"
	"github.com/trezcool/summercamps/core/user"
)

// RollbarLogger writes records through slog and forwards them to Rollbar when enabled.
type RollbarLogger struct {
	slog *slog.Logger
	exit func(code int)
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(w io.Writer, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.Debug && !conf.TestMode)

	handler := tint.NewHandler(w, &tint.Options{
		Level:      ParseLevel(conf.LogLevel),
		TimeFormat: time.DateTime,
		NoColor:    !conf.Debug,
	})
	return &RollbarLogger{slog: slog.New(handler), exit: os.Exit}
}

func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// Slog exposes the underlying structured logger.
func (l *RollbarLogger) Slog() *slog.Logger { return l.slog }

// Close flushes pending Rollbar items.
func (l *RollbarLogger) Close() {
	rollbar.Close()
}

// ParseLevel maps debug, info, warn or error to a slog level; defaults to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// expected args: error, map[string]interface{}, user.User
func (l *RollbarLogger) prepare(msg string, args []interface{}) (rbArgs []interface{}, attrs []slog.Attr) {
	var usrSet bool
	rbArgs = make([]interface{}, 0, len(args)+1)
	rbArgs = append(rbArgs, msg)
	for _, arg := range args {
		switch a := arg.(type) {
		case user.User:
			if !usrSet { // only set one User
				rollbar.SetPerson(a.ID, a.Username, a.Email)
				attrs = append(attrs, slog.Group("user", slog.String("id", a.ID), slog.String("username", a.Username)))
				usrSet = true
			}
			continue
		case error:
			attrs = append(attrs, tint.Err(a))
		case map[string]interface{}:
			for k, v := range a {
				attrs = append(attrs, slog.Any(k, v))
			}
		default:
			attrs = append(attrs, slog.Any("arg", a))
		}
		rbArgs = append(rbArgs, arg)
	}
	if !usrSet {
		rollbar.ClearPerson()
	}
	return rbArgs, attrs
}

func (l *RollbarLogger) log(level slog.Level, msg string, args []interface{}) []interface{} {
	rbArgs, attrs := l.prepare(msg, args)
	l.slog.LogAttrs(context.Background(), level, msg, attrs...)
	return rbArgs
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.log(slog.LevelDebug, msg, args)...)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.log(slog.LevelInfo, msg, args)...)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.log(slog.LevelWarn, msg, args)...)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.log(slog.LevelError, msg, args)...)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.log(slog.LevelError, msg, args)...)
	rollbar.Close()
	l.exit(1)
}
