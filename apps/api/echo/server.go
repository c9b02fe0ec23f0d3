package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/grupka/grupka/core"
	"github.com/grupka/grupka/core/child"
	"github.com/grupka/grupka/core/event"
	"github.com/grupka/grupka/core/group"
	"github.com/grupka/grupka/core/user"
	metricsvc "github.com/grupka/grupka/services/metrics"
	"github.com/grupka/grupka/storage/cache"
)

type (
	// Pinger reports whether the database is reachable.
	Pinger interface {
		PingContext(ctx context.Context) error
	}

	Deps struct {
		Conf        *core.Config
		Logger      core.Logger
		Metrics     *metricsvc.Metrics
		DB          Pinger // optional, /healthz reports ok without it
		Revocations cache.RevocationStore
		UserSvc     user.Service
		GroupSvc    group.Service
		ChildSvc    child.Service
		EventSvc    event.Service
	}

	Server struct {
		app      *echo.Echo
		deps     *Deps
		tokens   *TokenIssuer
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps *Deps) *Server {
	s := &Server{
		app:      echo.New(),
		deps:     deps,
		tokens:   NewTokenIssuer(deps.Conf),
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
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.SignalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(requestLogger(s.deps.Logger))
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: conf.Server.AllowedOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
	}))
	if s.deps.Metrics != nil {
		s.app.Use(s.deps.Metrics.Middleware())
		s.app.GET("/metrics", echo.WrapHandler(s.deps.Metrics.Handler()))
	}

	s.app.GET("/", s.home)
	s.app.GET("/healthz", s.health)

	api := s.app.Group("/api")
	auth := jwtMiddleware(s.tokens, s.deps.Revocations, s.deps.UserSvc)
	limit := rateLimiter(conf.Server.RateLimit, conf.Server.RateBurst)

	registerUserAPI(api, auth, limit, s.tokens, s.deps)
	registerGroupAPI(api, auth, limit, s.deps)
	registerChildAPI(api, auth, limit, s.deps)
	registerEventAPI(api, auth, s.deps)
}

// Start listens on the configured address. Errors are reported on Errors().
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

// SignalShutdown asks the app to shut down gracefully.
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

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}

func (s *Server) health(ctx echo.Context) error {
	if s.deps.DB != nil {
		if err := s.deps.DB.PingContext(ctx.Request().Context()); err != nil {
			s.deps.Logger.Error("health check failed", err)
			return ctx.JSON(http.StatusServiceUnavailable, errorResponse{Error: errorBody{
				Code:    core.CodeServiceUnavailable,
				Message: "database unavailable",
			}})
		}
	}
	return ctx.JSON(http.StatusOK, dataResponse{Data: echo.Map{"status": "ok", "build": s.deps.Conf.Build}})
}
