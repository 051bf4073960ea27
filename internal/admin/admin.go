// Package admin serves the operational HTTP endpoints: Prometheus metrics,
// liveness and readiness.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/glimte/svc-compliance/internal/health"
)

// DefaultReadinessTimeout bounds one /readyz evaluation
const DefaultReadinessTimeout = 5 * time.Second

// Server is the admin HTTP server
type Server struct {
	registry         *health.Registry
	gatherer         prometheus.Gatherer
	readinessTimeout time.Duration
	shuttingDown     atomic.Bool
	logger           *slog.Logger
	http             *http.Server
}

// Option configures the Server
type Option func(*Server)

// WithGatherer sets the registry /metrics exposes. Defaults to the
// Prometheus default gatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithReadinessTimeout bounds each /readyz evaluation. Zero or less keeps
// DefaultReadinessTimeout.
func WithReadinessTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.readinessTimeout = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates the admin server. /readyz runs every checker in registry.
func New(registry *health.Registry, options ...Option) *Server {
	s := &Server{
		registry:         registry,
		gatherer:         prometheus.DefaultGatherer,
		readinessTimeout: DefaultReadinessTimeout,
		logger:           slog.Default(),
	}

	for _, opt := range options {
		opt(s)
	}

	s.http = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router returns the admin routes
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	return r
}

// SetShuttingDown makes /healthz and /readyz answer 503
func (s *Server) SetShuttingDown() {
	s.shuttingDown.Store(true)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.shuttingDown.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.shuttingDown.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.readinessTimeout)
	defer cancel()

	report := s.registry.Check(ctx)

	code := http.StatusOK
	if !report.Ready {
		code = http.StatusServiceUnavailable
		s.logger.WarnContext(ctx, "readiness check failed", "status", report.Status)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(report); err != nil {
		s.logger.Error("failed to encode readiness report", "error", err)
	}
}

// Serve accepts on lis until ctx is done, then shuts down within timeout.
func (s *Server) Serve(ctx context.Context, lis net.Listener, timeout time.Duration) error {
	s.logger.Info("admin server listening", "addr", lis.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("admin server failed: %w", err)
	case <-ctx.Done():
	}

	s.SetShuttingDown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("admin server shutdown: %w", err)
	}
	s.logger.Info("admin server terminated")
	return nil
}
