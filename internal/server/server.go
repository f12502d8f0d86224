package server

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/postamail/posta/internal/commands"
	"github.com/postamail/posta/internal/instrumentation"
)

const (
	// DefaultPort is the loopback port the shell connects to.
	DefaultPort = 7332

	defaultReadHeaderTimeout = 10 * time.Second
	defaultIdleTimeout       = 120 * time.Second

	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 10 * time.Second
)

// Config holds the server wiring.
type Config struct {
	Port    int
	Service *commands.Service
	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// Server is the loopback HTTP server for the UI shell.
type Server struct {
	service    *commands.Service
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
	health     *HealthChecker
	httpServer *http.Server
	addr       string
}

// New builds a Server. Service is required.
func New(cfg Config) (*Server, error) {
	if cfg.Service == nil {
		return nil, fmt.Errorf("command service is required")
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		service: cfg.Service,
		logger:  logger,
		metrics: cfg.Metrics,
		health:  NewHealthChecker(),
		addr:    fmt.Sprintf("127.0.0.1:%d", cfg.Port),
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", s.health.LivenessHandler())
	mux.Handle("/readyz", s.health.ReadinessHandler())
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/events", s.handleEvents)
	s.registerAPI(mux)

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.instrument(mux),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}
	return s, nil
}

// Addr returns the loopback address the server binds to.
func (s *Server) Addr() string {
	return s.addr
}

// Start serves until Shutdown is called. It binds explicitly to the loopback
// interface; the listen address is never configurable to a public one.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("binding loopback listener: %w", err)
	}

	s.logger.Info("server listening", slog.String("addr", s.addr))
	err = s.httpServer.Serve(listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.SetShuttingDown()
	s.logger.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}

// instrument records one metric sample per request.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, recorder.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack keeps the WebSocket upgrade on /events working through the metrics
// wrapper.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}
