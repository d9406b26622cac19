// Package api serves an Issuer over HTTP.
//
// Routes:
//
//	POST /ids        issue a batch ({"count":N} body or ?count=N)
//	GET  /ids/next   issue one id
//	GET  /ids/{id}   decode an id with the server's layout
//	GET  /status     issuer counters and server identity
//	GET  /health     liveness
//	GET  /metrics    Prometheus exposition
//
// Responses are JSON unless the client sends Accept: application/msgpack.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/uidgen/uidgen/pkg/issuer"
	"github.com/uidgen/uidgen/pkg/logging"
	"github.com/uidgen/uidgen/pkg/metrics"
	"github.com/uidgen/uidgen/pkg/ratelimit"
)

// Server defaults.
const (
	DefaultMaxBatch        = 10000
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
)

// Server exposes one Issuer over HTTP.
type Server struct {
	issuer      *issuer.Issuer
	log         *slog.Logger
	metrics     *metrics.Metrics
	gatherer    prometheus.Gatherer
	rateLimiter *ratelimit.Limiter
	version     string
	maxBatch    int

	readTimeout     time.Duration
	writeTimeout    time.Duration
	shutdownTimeout time.Duration

	startedAt  time.Time
	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics records request metrics into m and serves g at /metrics.
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

// WithRateLimiter limits the id routes per client. The server stops the
// limiter on Shutdown.
func WithRateLimiter(rl *ratelimit.Limiter) Option {
	return func(s *Server) {
		s.rateLimiter = rl
	}
}

// WithMaxBatch caps the count accepted by POST /ids.
func WithMaxBatch(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBatch = n
		}
	}
}

// WithVersion sets the version reported by GET /status.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithTimeouts overrides the HTTP read, write and shutdown timeouts. Zero
// values keep the defaults.
func WithTimeouts(read, write, shutdown time.Duration) Option {
	return func(s *Server) {
		if read > 0 {
			s.readTimeout = read
		}
		if write > 0 {
			s.writeTimeout = write
		}
		if shutdown > 0 {
			s.shutdownTimeout = shutdown
		}
	}
}

// New creates a Server listening on addr once started.
func New(addr string, iss *issuer.Issuer, opts ...Option) *Server {
	s := &Server{
		issuer:          iss,
		log:             logging.Nop(),
		version:         "dev",
		maxBatch:        DefaultMaxBatch,
		readTimeout:     DefaultReadTimeout,
		writeTimeout:    DefaultWriteTimeout,
		shutdownTimeout: DefaultShutdownTimeout,
		startedAt:       time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.withMiddleware(mux),
		ReadHeaderTimeout: s.readTimeout,
		ReadTimeout:       s.readTimeout,
		WriteTimeout:      s.writeTimeout,
		ErrorLog:          slog.NewLogLogger(s.log.Handler(), slog.LevelWarn),
	}

	return s
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Uptime returns the time since the server was created.
func (s *Server) Uptime() time.Duration {
	return time.Since(s.startedAt)
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully within the shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.log.Info("serving uidgen API",
		"addr", ln.Addr().String(),
		"generator_id", s.issuer.GeneratorID(),
		"layout", s.issuer.Layout().String(),
		"policy", s.issuer.Policy().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones, including
// backpressure requests still waiting for capacity, until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down uidgen API")
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
