package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/trezcool/confsys/core"
	"github.com/trezcool/confsys/core/conference"
	"github.com/trezcool/confsys/core/paper"
	"github.com/trezcool/confsys/core/user"
)

type (
	ServerDeps struct {
		Conf        *core.Config
		Logger      core.Logger
		UserSvc     *user.Service
		ConfSvc     *conference.Service
		PaperSvc    *paper.Service
		Validate    *validator.Validate
		Translator  ut.Translator
		Registerer  prometheus.Registerer // defaults to a fresh registry
		Gatherer    prometheus.Gatherer
		MaxUploadMB int64
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		jwt      jwtAuth
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Conf, "Conf"),
		vala.IsNotNil(deps.Logger, "Logger"),
		vala.IsNotNil(deps.UserSvc, "UserSvc"),
		vala.IsNotNil(deps.ConfSvc, "ConfSvc"),
		vala.IsNotNil(deps.PaperSvc, "PaperSvc"),
		vala.IsNotNil(deps.Validate, "Validate"),
		vala.IsNotNil(deps.Translator, "Translator"),
	).CheckAndPanic()

	if deps.Registerer == nil {
		reg := prometheus.NewRegistry()
		deps.Registerer, deps.Gatherer = reg, reg
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	if deps.MaxUploadMB == 0 {
		deps.MaxUploadMB = 20
	}

	s := &Server{
		deps:     deps,
		app:      echo.New(),
		jwt:      newJWTAuth(deps.Conf),
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
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(newMetrics(s.deps.Registerer).middleware)
	s.app.Use(middleware.BodyLimit(formatMB(s.deps.MaxUploadMB)))

	s.app.GET("/", home)
	s.app.GET("/metrics", metricsHandler(s.deps.Gatherer))

	authLimiter := newRateLimiter(conf.Server.AuthRateLimit, conf.Server.AuthRateBurst)
	jwt := s.jwt.middleware(false)
	optionalJWT := s.jwt.middleware(true)

	registerUserAPI(s.app, jwt, authLimiter.middleware, s.deps)
	registerConferenceAPI(s.app, jwt, optionalJWT, s.deps)
	registerPaperAPI(s.app, jwt, s.deps)
	registerAdminAPI(s.app, jwt, s.deps)
}

// Start blocks serving requests; a listener error is sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// SignalShutdown asks main to gracefully stop the server.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Welcome to ConfSys API!"})
}
