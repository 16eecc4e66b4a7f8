// Package server provides the HTTP API for sommelier.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/hyperjump/sommelier/internal/config"
	"github.com/hyperjump/sommelier/internal/recommend"
	"github.com/hyperjump/sommelier/internal/storage"
	"github.com/hyperjump/sommelier/internal/tasting"
	"github.com/hyperjump/sommelier/internal/winelist"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server is the HTTP server for the sommelier API.
type Server struct {
	recommender *recommend.Service
	wines       *winelist.Service
	tasting     *tasting.Service
	storage     storage.Storage
	config      *config.ServerConfig
	logger      *zap.Logger
	server      *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	recommender *recommend.Service,
	wines *winelist.Service,
	tasting *tasting.Service,
	storage storage.Storage,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		recommender: recommender,
		wines:       wines,
		tasting:     tasting,
		storage:     storage,
		config:      cfg,
		logger:      logger,
	}
}

// Router builds the HTTP handler with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		if s.config.RateLimit > 0 {
			r.Use(httprate.LimitByIP(s.config.RateLimit, time.Minute))
		}

		r.Post("/recommendations", s.handleRecommend)
		r.Post("/completions", s.handleCompletion)
		r.Post("/reimagine", s.handleReimagine)
		r.Post("/chat", s.handleChat)
		r.Post("/edits", s.handleEdit)
		r.Get("/status", s.handleStatus)

		r.Route("/users/{userID}/wines", func(r chi.Router) {
			r.Get("/", s.handleListWines)
			r.Post("/", s.handleCreateWine)
			r.Get("/{sk}", s.handleGetWine)
			r.Put("/{sk}", s.handleUpdateWine)
			r.Delete("/{sk}", s.handleDeleteWine)
			r.Get("/{sk}/notes", s.handleListTastingNotes)
			r.Post("/{sk}/notes", s.handleAddTastingNote)
			r.Put("/{sk}/tasting-note", s.handleSelectTastingNote)
		})
	})

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
