// Package server exposes the daemon's HTTP surface: the inbound message
// endpoint and health check.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/roomflow/roomflow/internal/config"
	"github.com/roomflow/roomflow/internal/pipeline"
)

type Server struct {
	Router   *chi.Mux
	Port     int
	executor *pipeline.Executor
	logger   *slog.Logger
	http     *http.Server
}

// New builds the router and middleware chain around the pipeline executor.
func New(cfg config.ServerConfig, executor *pipeline.Executor, logger *slog.Logger) *Server {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Apply middleware in order
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(TimeoutMiddleware(timeout))
	r.Use(middleware.Recoverer)

	// Wrap with OpenTelemetry HTTP instrumentation
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "roomflow")
	})

	s := &Server{
		Router:   r,
		Port:     cfg.Port,
		executor: executor,
		logger:   logger,
		http: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      r,
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
	}

	r.Get("/health", s.handleHealth)
	r.Post("/v1/messages", s.handleMessage)

	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}

// Start listens until Shutdown is called or the listener fails. It returns
// http.ErrServerClosed after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting server", slog.Int("port", s.Port))
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the listener. New requests
// are refused immediately; the context bounds how long draining may take.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("stopping server")
	return s.http.Shutdown(ctx)
}
