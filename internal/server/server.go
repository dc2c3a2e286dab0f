// Package server provides the HTTP API for askdocs.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/askdocs/askdocs/internal/config"
	"github.com/askdocs/askdocs/internal/ingest"
	"github.com/askdocs/askdocs/internal/rag"
	"github.com/askdocs/askdocs/internal/storage"
	"github.com/askdocs/askdocs/internal/vectorstore"
)

// WatchService is the subset of the watcher used by the HTTP handlers.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, ingestExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the askdocs API.
type Server struct {
	answerer *rag.Answerer
	ingester *ingest.Ingester
	storage  storage.Storage
	store    *vectorstore.Store
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server

	watch      WatchService
	configPath string
	configMu   sync.Mutex
}

// NewServer creates a server with the given dependencies.
func NewServer(
	answerer *rag.Answerer,
	ingester *ingest.Ingester,
	storage storage.Storage,
	store *vectorstore.Store,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		answerer: answerer,
		ingester: ingester,
		storage:  storage,
		store:    store,
		config:   cfg,
		logger:   logger,
	}
}

// EnableWatch wires the watch management endpoints. configPath, when set,
// is where directory changes are persisted.
func (s *Server) EnableWatch(w WatchService, configPath string) {
	s.watch = w
	s.configPath = configPath
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(300 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/ingest", s.handleIngest)
	r.Post("/api/v1/query", s.handleQuery)
	r.Get("/api/v1/documents", s.handleListDocuments)
	r.Get("/api/v1/documents/{id}", s.handleGetDocument)
	r.Get("/api/v1/watch/directories", s.handleWatchDirectoriesList)
	r.Post("/api/v1/watch/directories", s.handleWatchDirectoriesAdd)
	r.Delete("/api/v1/watch/directories", s.handleWatchDirectoriesRemove)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	return r
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
