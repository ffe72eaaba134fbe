package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/acp-registry/apiserver/config"
	"github.com/acp-registry/apiserver/internal/handlers"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	runtime    *Runtime
	logger     *slog.Logger
}

// New constructs a Server, making sure the registry document exists.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	rt, err := Bootstrap(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := rt.Registry.EnsureDocument(ctx); err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("initialise registry document: %w", err)
	}

	router := NewRouter(rt.Service, rt.Gatherer, logger)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		runtime:    rt,
		logger:     logger,
	}, nil
}

// NewRouter builds the chi router serving the moderation API.
// A nil gatherer disables the /metrics endpoint.
func NewRouter(service handlers.ModerationService, gatherer prometheus.Gatherer, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
		handlers.CORS,
	)
	router.NotFound(handlers.NotFound)
	router.MethodNotAllowed(handlers.MethodNotAllowed)

	router.Get("/healthz", handlers.Healthz)
	if gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	handlers.UserRouter(router, service, logger)
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.logger.Info("server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and releases storage and broker
// connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	return errors.Join(err, s.runtime.Close())
}
