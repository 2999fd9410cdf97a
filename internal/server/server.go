package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/amestrin/crosstune/internal/session"
	"github.com/amestrin/crosstune/internal/shared"
	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const shutdownTimeout = 5 * time.Second

// Server wraps the echo instance and the session registry it serves.
type Server struct {
	echo     *echo.Echo
	registry *session.Registry
	logger   *log.Logger
	addr     string
}

// New creates a conversion server listening on host:port.
func New(host string, port int, registry *session.Registry, logger *log.Logger) *Server {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	NewHandler(registry, logger).RegisterRoutes(e)

	return &Server{
		echo:     e,
		registry: registry,
		logger:   logger,
		addr:     fmt.Sprintf("%s:%d", host, port),
	}
}

// Start runs the server until the context is cancelled, then drains
// in-flight requests and cancels every live session.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.addr)
		if err := s.echo.Start(s.addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	s.registry.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return <-errCh
}

// Echo exposes the underlying echo instance for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
