// Package ui provides the browser preview for a memristor workspace.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/memristor/internal/state"
	"github.com/leapstack-labs/memristor/internal/ui/features/common"
	"github.com/leapstack-labs/memristor/internal/ui/notifier"
	"github.com/leapstack-labs/memristor/internal/ui/router"
)

const shutdownTimeout = 5 * time.Second

// Server is the preview UI server.
type Server struct {
	deps     common.Deps
	host     string
	port     int
	onListen func(url string)
	logger   *slog.Logger
}

// Config holds configuration for the UI server.
type Config struct {
	Workspace common.Workspace
	Store     state.Store
	Notifier  *notifier.Notifier
	Host      string
	Port      int
	Dev       bool
	Logger    *slog.Logger

	// OnListen is called with the base URL once the listener is bound.
	OnListen func(url string)
}

// NewServer creates a new UI server instance.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	n := cfg.Notifier
	if n == nil {
		n = notifier.New()
	}
	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}

	return &Server{
		deps: common.Deps{
			Workspace: cfg.Workspace,
			Store:     cfg.Store,
			Notifier:  n,
			Logger:    logger,
			IsDev:     cfg.Dev,
		},
		host:     host,
		port:     cfg.Port,
		onListen: cfg.OnListen,
		logger:   logger,
	}
}

// Handler builds the routed handler without binding a listener.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewMux()
	r.Use(
		middleware.Recoverer,
		middleware.Compress(5),
	)
	if s.deps.IsDev {
		r.Use(middleware.Logger)
	}

	if err := router.SetupRoutes(r, s.deps); err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}
	return r, nil
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.deps.Notifier
}

// Serve starts the UI server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(s.host, strconv.Itoa(s.port)))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	url := "http://" + ln.Addr().String()
	s.logger.Info("starting UI server", "addr", url)

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if s.onListen != nil {
		s.onListen(url)
	}

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down UI server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
