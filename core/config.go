package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environments
const (
	EnvDev  = "DEV"
	EnvTest = "TEST"
	EnvQA   = "QA"
	EnvProd = "PROD"
)

type (
	Config struct {
		Env             string
		Build           string
		Debug           bool
		TestMode        bool
		AppName         string
		SecretKey       string
		LogLevel        string
		WorkDir         string
		FrontendBaseURL string
		RollbarToken    string
		SendgridApiKey  string

		PasswordResetTimeoutDelta time.Duration

		defaultFromEmail string

		Server   ServerConfig
		Database DatabaseConfig
		Blob     BlobConfig
		DevEdit  DevEditConfig
	}

	ServerConfig struct {
		Host                      string
		Addr                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		AllowedOrigins            []string
	}

	DatabaseConfig struct {
		Engine        string // postgres | pgx | sqlite
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Path          string // sqlite only
	}

	BlobConfig struct {
		Driver  string // local | s3
		Dir     string
		BaseURL string
		S3      S3Config
	}

	S3Config struct {
		Bucket    string
		Region    string
		Endpoint  string
		PathStyle bool
	}

	DevEditConfig struct {
		Enabled bool
		Root    string
	}
)

// NewConfig loads the application configuration from the environment.
// ENV selects the variables prefix: DEV (default), TEST, QA or PROD; e.g. `DEV_DATABASE_HOST`.
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = EnvDev
	}

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", env == EnvDev)
	v.SetDefault("testMode", env == EnvTest)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Summer Camps")
	v.SetDefault("secretKey", "x7#n2p0q-ka!h5_wr$4mz+e8d3l)c1g%vj9tb6y&u(sf")
	v.SetDefault("logLevel", "info")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "Summer Camps <noreply@localhost>")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("server.allowedOrigins", "http://localhost:3000")

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "summercamps")
	v.SetDefault("database.user", "summercamps")
	v.SetDefault("database.password", "summercamps")
	v.SetDefault("database.disableTLS", env == EnvDev || env == EnvTest)
	v.SetDefault("database.path", filepath.Join("data", "summercamps.db"))

	v.SetDefault("blob.driver", "local")
	v.SetDefault("blob.dir", filepath.Join("data", "media"))
	v.SetDefault("blob.baseURL", "/media")
	v.SetDefault("blob.s3.region", "us-east-1")

	v.SetDefault("devEdit.enabled", env == EnvDev)
	v.SetDefault("devEdit.root", "..")

	// load .env if it exists (ignore if it does not)
	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd(): %v", err)
	}
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Config{
		Env:                       env,
		Build:                     v.GetString("build"),
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		AppName:                   v.GetString("appName"),
		SecretKey:                 v.GetString("secretKey"),
		LogLevel:                  v.GetString("logLevel"),
		WorkDir:                   wd,
		FrontendBaseURL:           strings.TrimRight(v.GetString("frontendBaseURL"), "/"),
		RollbarToken:              v.GetString("rollbarToken"),
		SendgridApiKey:            v.GetString("sendgridApiKey"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		defaultFromEmail:          v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Addr:                      v.GetString("server.addr"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			AllowedOrigins:            splitList(v.GetString("server.allowedOrigins")),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			Path:          v.GetString("database.path"),
		},
		Blob: BlobConfig{
			Driver:  v.GetString("blob.driver"),
			Dir:     v.GetString("blob.dir"),
			BaseURL: v.GetString("blob.baseURL"),
			S3: S3Config{
				Bucket:    v.GetString("blob.s3.bucket"),
				Region:    v.GetString("blob.s3.region"),
				Endpoint:  v.GetString("blob.s3.endpoint"),
				PathStyle: v.GetBool("blob.s3.pathStyle"),
			},
		},
		DevEdit: DevEditConfig{
			Enabled: v.GetBool("devEdit.enabled") && env == EnvDev,
			Root:    v.GetString("devEdit.root"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests: no env lookups, no .env files.
func NewTestConfig() *Config {
	return &Config{
		Env:                       EnvTest,
		Build:                     "test",
		TestMode:                  true,
		AppName:                   "Summer Camps",
		SecretKey:                 "secret",
		LogLevel:                  "error",
		FrontendBaseURL:           "http://localhost:3000",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		defaultFromEmail:          "Summer Camps <noreply@localhost>",
		Server: ServerConfig{
			Host:                      "localhost",
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Database: DatabaseConfig{Engine: "sqlite"},
		Blob:     BlobConfig{Driver: "local", BaseURL: "/media"},
	}
}

// DefaultFromEmail parses the configured sender address.
func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: "noreply@" + c.Server.Host}
	}
	return *addr
}

func (c *Config) SetDefaultFromEmail(addr string) { c.defaultFromEmail = addr }

func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, dc.Port)
}

func (dc DatabaseConfig) String() string {
	if dc.Engine == "sqlite" {
		return fmt.Sprintf("sqlite(%s)", dc.Path)
	}
	return fmt.Sprintf("%s(%s/%s)", dc.Engine, dc.Address(), dc.Name)
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
