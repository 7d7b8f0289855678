// Package server provides the local HTTP API of the bible reader.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/dawei7/biblereader/internal/config"
	"github.com/dawei7/biblereader/internal/models"
	"github.com/dawei7/biblereader/internal/search"
	"github.com/dawei7/biblereader/internal/session"
	"github.com/dawei7/biblereader/internal/storage"
)

// Library is the version source the server needs.
type Library interface {
	Versions() ([]models.VersionInfo, error)
	Load(ctx context.Context, abbr string) (*models.Corpus, error)
	Current() *models.Corpus
	Attempts() []string
}

// Server is the HTTP server for the bible reader API.
type Server struct {
	library Library
	session *session.Session
	engine  *search.Engine
	storage storage.Storage // optional; history endpoints answer 501 without it
	config  *config.ServerConfig
	logger  *zap.Logger
	hub     *hub
	server  *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	lib Library,
	sess *session.Session,
	engine *search.Engine,
	store storage.Storage,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	s := &Server{
		library: lib,
		session: sess,
		engine:  engine,
		storage: store,
		config:  cfg,
		logger:  logger,
		hub:     newHub(logger),
	}
	sess.Subscribe(s.hub.publish)
	return s
}

// Router returns the HTTP handler with every route mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/live", s.handleLive)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(middleware.Compress(5))

		r.Get("/api/v1/status", s.handleStatus)
		r.Get("/api/v1/versions", s.handleVersions)
		r.Put("/api/v1/version", s.handleSelectVersion)
		r.Post("/api/v1/search", s.handleSearch)
		r.Post("/api/v1/export", s.handleExport)
		r.Post("/api/v1/highlight", s.handleHighlight)
		r.Get("/api/v1/passage", s.handlePassage)
		r.Get("/api/v1/read", s.handleRead)
		r.Get("/api/v1/history", s.handleHistory)
		r.Get("/api/v1/history/{id}", s.handleHistoryEntry)
		r.Delete("/api/v1/history", s.handleClearHistory)
	})
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

// Stop gracefully shuts down the server and disconnects live clients.
func (s *Server) Stop(ctx context.Context) error {
	s.hub.closeAll()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
