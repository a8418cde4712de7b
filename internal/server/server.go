// Package server provides the HTTP API for Miftah.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hyperjump/miftah/internal/app"
	"github.com/hyperjump/miftah/internal/config"
	"github.com/hyperjump/miftah/internal/models"
	"go.uber.org/zap"
)

// Server is the HTTP server for the Miftah API.
type Server struct {
	app    *app.App
	config *config.ServerConfig
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server for application a. The listener is not opened
// until Start.
func NewServer(a *app.App, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		app:    a,
		config: cfg,
		logger: logger,
	}
	s.server = &http.Server{
		Addr:              cfg.Address(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/verses", s.handleVerses)
		r.Get("/narrations", s.handleNarrations)
		r.Get("/facts", s.handleFacts)
		r.Get("/facts/categories", s.handleCategories)
		r.Get("/verses/sort-keys", s.handleSortKeys(models.KindVerse))
		r.Get("/narrations/sort-keys", s.handleSortKeys(models.KindNarration))
		r.Get("/facts/sort-keys", s.handleSortKeys(models.KindFact))

		r.Get("/search", s.handleSearchGet)
		r.Post("/search", s.handleSearchPost)

		r.Get("/export/{dataset}", s.handleExport)

		r.Get("/users/{id}/data", s.handleGetUserData)
		r.Put("/users/{id}/data", s.handleSetUserData)
		r.Patch("/users/{id}/data", s.handleUpdateUserData)

		r.Post("/reload", s.handleReload)
		r.Get("/status", s.handleStatus)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("Starting server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server. Safe to call before or while Start runs.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
