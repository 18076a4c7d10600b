package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ziadkadry99/ragsearch/internal/answer"
	"github.com/ziadkadry99/ragsearch/internal/catalog"
	"github.com/ziadkadry99/ragsearch/internal/pipeline"
	"github.com/ziadkadry99/ragsearch/internal/retriever"
	"github.com/ziadkadry99/ragsearch/internal/store"
)

// Config holds server configuration.
type Config struct {
	Host           string
	Port           int
	CORSOrigins    []string
	RequestTimeout time.Duration
	// SearchMode, TopK, and Overfetch are the retrieval defaults applied
	// when a request leaves the field unset.
	SearchMode string
	TopK       int
	Overfetch  int
	// RewriteQuery runs chat questions through an LLM rewrite before
	// retrieval.
	RewriteQuery bool
}

// Server is the HTTP front end over the document corpus: upload and
// batch ingestion, catalog listing, retrieval, and chat.
type Server struct {
	cfg        Config
	logger     *zap.Logger
	catalog    *catalog.Catalog
	paths      store.Paths
	retriever  *retriever.Retriever
	composer   *answer.Composer
	pipeline   *pipeline.Pipeline
	router     chi.Router
	httpServer *http.Server
}

// New creates a server with all dependencies.
func New(cfg Config, logger *zap.Logger, cat *catalog.Catalog, paths store.Paths, rtr *retriever.Retriever, composer *answer.Composer, pl *pipeline.Pipeline) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:       cfg,
		logger:    logger,
		catalog:   cat,
		paths:     paths,
		retriever: rtr,
		composer:  composer,
		pipeline:  pl,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	timeout := s.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	r.Use(middleware.Timeout(timeout))

	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/documents", func(r chi.Router) {
			r.Get("/", s.handleListDocuments)
			r.Post("/upload", s.handleUpload)
			r.Post("/process", s.handleProcess)
		})
		r.Post("/search", s.handleSearch)
		r.Post("/chat", s.handleChat)
	})

	return r
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured address and blocks until the
// listener stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("server listening", zap.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"documents": s.retriever.DocumentCount(),
	})
}
