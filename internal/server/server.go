package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"feedwatch/internal/core"
	"feedwatch/internal/server/handlers"
)

// Server serves the routes of every enabled feature
type Server struct {
	config   *core.Config
	logger   *core.Logger
	registry *core.Registry
	db       *core.Database
	server   *http.Server
}

// New creates a server over the features in registry. Routes are collected
// once, so features must be registered before New is called. db is only used
// by the health check and may be nil.
func New(config *core.Config, logger *core.Logger, registry *core.Registry, db *core.Database) *Server {
	srv := &Server{
		config:   config,
		logger:   logger,
		registry: registry,
		db:       db,
	}

	srv.server = &http.Server{
		Addr:     config.Addr(),
		ErrorLog: slog.NewLogLogger(logger.Handler(), slog.LevelError),
		Handler:  srv.routes(),
	}

	return srv
}

func (s *Server) routes() http.Handler {
	systemHandler := handlers.NewSystemHandler(s.logger, s.registry, s.db)

	mux := chi.NewRouter()

	// Add middleware
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Logger)

	// Health check
	mux.Get("/health", systemHandler.HealthCheckHandler)
	mux.Get("/features", systemHandler.FeaturesHandler)

	// Feature routes
	for _, route := range s.registry.GetAllRoutes() {
		mux.Method(route.Method, route.Path, route.Handler)
	}

	mux.NotFound(systemHandler.NotFoundHandler)

	return mux
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start listens until Shutdown is called. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	s.logger.Info("Starting server", "addr", s.server.Addr)

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	s.logger.Info("Server stopped")
	return nil
}

// Shutdown stops accepting requests, then shuts the features down
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	if err := s.registry.ShutdownAll(ctx); err != nil {
		return fmt.Errorf("failed to shutdown features: %w", err)
	}

	return nil
}
