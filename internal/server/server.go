package server

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// ShutdownTimeout bounds graceful shutdown
const ShutdownTimeout = 10 * time.Second

// DefaultWriteTimeout is used when no WithWriteTimeout option is given
const DefaultWriteTimeout = 75 * time.Second

// Option configures the underlying http.Server
type Option func(*http.Server)

// WithWriteTimeout bounds the time spent serving one request, including the
// upstream dispatch; zero disables the limit
func WithWriteTimeout(d time.Duration) Option {
	return func(s *http.Server) {
		s.WriteTimeout = d
	}
}

// Server represents the HTTP server
type Server struct {
	addr   string
	server *http.Server
	log    *zap.Logger
}

// New creates a new Server instance serving handler on addr
func New(addr string, handler http.Handler, log *zap.Logger, opts ...Option) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: DefaultWriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	for _, opt := range opts {
		opt(srv)
	}
	return &Server{
		addr:   addr,
		log:    log,
		server: srv,
	}
}

// WriteTimeout returns the effective write timeout
func (s *Server) WriteTimeout() time.Duration {
	return s.server.WriteTimeout
}

// Handler returns the HTTP handler, for tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("starting gqlrelay", zap.String("addr", s.addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}
