package echoportal

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

	"github.com/darasa/portal/core"
	"github.com/darasa/portal/core/health"
	"github.com/darasa/portal/core/identity"
	"github.com/darasa/portal/core/school"
)

type (
	ServerDeps struct {
		Conf        *core.Config
		Logger      core.Logger
		IdentitySvc *identity.Service
		Guard       *identity.Guard
		SchoolSvc   *school.Service
		Monitor     *health.Monitor
		Validate    *validator.Validate
		Translator  ut.Translator
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errCh    chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errCh:    make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	// the edge filter sees canonical paths
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Pre(edgeFilter(conf))

	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(conf, s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	root := s.app.Group("")

	registerPortalAPI(root, s.deps.IdentitySvc, conf, s.deps.Validate)
	registerHealthAPI(root, s.deps.Monitor)
	registerAdminAPI(root,
		areaMiddleware(identity.RoleAdmin, s.deps.Guard, conf),
		s.deps.SchoolSvc, s.deps.IdentitySvc, s.deps.Validate)
	registerTeacherAPI(root,
		areaMiddleware(identity.RoleTeacher, s.deps.Guard, conf),
		s.deps.SchoolSvc, s.deps.Validate)
	registerStudentAPI(root,
		areaMiddleware(identity.RoleStudent, s.deps.Guard, conf),
		s.deps.SchoolSvc)
}

// Start runs the listener until Shutdown; run it in a goroutine and watch
// Errors() and ShutdownSignal().
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Addr); err != nil && err != http.ErrServerClosed {
		s.errCh <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errCh
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// Shutdown stops accepting new requests and drains in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

// Close force-stops the listener when a graceful Shutdown overruns.
func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}
