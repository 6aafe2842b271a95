// Package server exposes the recommendation engine over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/nagomi-art/nagomi/internal/collection"
	"github.com/nagomi-art/nagomi/internal/config"
	"github.com/nagomi-art/nagomi/internal/engine"
	"github.com/nagomi-art/nagomi/internal/keywordidx"
	"github.com/nagomi-art/nagomi/internal/session"
)

// Server is the HTTP server for the Nagomi API.
type Server struct {
	engine     *engine.Engine
	sessions   *session.Store
	collection collection.Collection
	metadata   *keywordidx.MetadataIndex // optional; nil disables /artworks/search
	config     *config.ServerConfig
	logger     *zap.Logger
	server     *http.Server
}

// NewServer creates a server with the given dependencies. metadata may be nil.
func NewServer(
	eng *engine.Engine,
	sessions *session.Store,
	coll collection.Collection,
	metadata *keywordidx.MetadataIndex,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		engine:     eng,
		sessions:   sessions,
		collection: coll,
		metadata:   metadata,
		config:     cfg,
		logger:     logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/sessions", s.handleCreateSession)
	r.Post("/api/v1/recommend", s.handleRecommend)
	r.Get("/api/v1/artworks/search", s.handleArtworkSearch)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
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
