package echoapi

import (
	"context"
	"net/http"
	"os"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/peerhive/backend/core"
	"github.com/peerhive/backend/core/request"
	"github.com/peerhive/backend/core/user"
)

type (
	// ServerDeps regroups the Server's dependencies.
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		UserSvc    *user.Service
		RequestSvc *request.Service
		Graph      GraphStatus
		Validate   *validator.Validate
		Translator ut.Translator

		DisableReqLogs bool
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errs     chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errs:     make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := ConfigureAuth(conf)

	registerUserAPI(v1, jwt, s.deps.UserSvc, s.deps.Validate)
	registerRequestAPI(v1, jwt, s.deps.UserSvc, s.deps.RequestSvc, s.deps.Graph, s.deps.Validate)
}

// signalShutdown sends a SIGTERM down the shutdown channel to trigger a graceful shutdown.
func (s *Server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

// ShutdownSignal returns the shutdown channel. The main goroutine should
// relay interrupt signals to it and start a graceful shutdown on receive.
func (s *Server) ShutdownSignal() chan os.Signal {
	return s.shutdown
}

// Errors reports fatal listener errors.
func (s *Server) Errors() <-chan error {
	return s.errs
}

func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address()); err != nil && err != http.ErrServerClosed {
		s.errs <- err
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to PeerHive API!")
}
