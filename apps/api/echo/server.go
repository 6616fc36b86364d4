package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/summercamps/core"
	"github.com/trezcool/summercamps/core/blog"
	"github.com/trezcool/summercamps/core/booking"
	"github.com/trezcool/summercamps/core/camp"
	"github.com/trezcool/summercamps/core/datamgmt"
	"github.com/trezcool/summercamps/core/devedit"
	"github.com/trezcool/summercamps/core/enquiry"
	"github.com/trezcool/summercamps/core/importexport"
	"github.com/trezcool/summercamps/core/seo"
	"github.com/trezcool/summercamps/core/user"
	metricsvc "github.com/trezcool/summercamps/services/metrics"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Metrics    *metricsvc.Service // optional

		UserSvc    user.ServiceInterface
		CampSvc    *camp.Service
		BookingSvc *booking.Service
		EnquirySvc *enquiry.Service
		BlogSvc    *blog.Service
		PageSvc    *seo.Service
		TableSvc   *datamgmt.Service
		ImportSvc  *importexport.Service
		DevEditSvc *devedit.Service // routes are only mounted when enabled
	}

	Server struct {
		deps     ServerDeps
		auth     *Auth
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		auth:     NewAuth(deps.Conf),
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(requestLogMiddleware(s.deps.Logger))
	}
	if s.deps.Metrics != nil {
		s.app.Use(metricsMiddleware(s.deps.Metrics))
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if len(conf.Server.AllowedOrigins) > 0 {
		s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     conf.Server.AllowedOrigins,
			AllowCredentials: true,
		}))
	}

	s.app.GET("/", s.home)
	if s.deps.Metrics != nil {
		s.app.GET("/metrics", echo.WrapHandler(s.deps.Metrics.Handler()))
	}
	if blobDir := conf.Blob.Dir; conf.Blob.Driver == "local" && blobDir != "" && conf.Blob.BaseURL != "" {
		s.app.Static(conf.Blob.BaseURL, blobDir)
	}

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.auth.jwtConfig())
	admin := s.app.Group("/v1/admin", jwt, adminMiddleware())
	organiser := s.app.Group("/v1/organiser", jwt, organiserMiddleware())

	registerUserAPI(v1, jwt, s.auth, s.deps.UserSvc, s.deps.Validate)
	registerCurrencyAPI(v1)
	registerCampAPI(v1, admin, organiser, s.deps.CampSvc)
	registerBookingAPI(v1, admin, s.deps.BookingSvc, s.deps.Validate)
	registerEnquiryAPI(v1, admin, s.deps.EnquirySvc, s.deps.Validate)
	registerBlogAPI(v1, s.deps.BlogSvc)
	registerPageAPI(v1, admin, s.deps.PageSvc)
	registerTableAPI(admin, s.deps.TableSvc, s.deps.ImportSvc)

	if s.deps.DevEditSvc != nil && s.deps.DevEditSvc.Enabled() {
		registerDevEditAPI(s.app.Group("/api"), s.deps.DevEditSvc, s.deps.Validate)
	}
}

// Start listens on conf.Server.Addr; errors are reported on Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Addr); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signalled
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) Auth() *Auth { return s.auth }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
