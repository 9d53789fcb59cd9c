// Package server exposes graphs, runs and tools over HTTP.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/randalmurphal/stepgraph/pkg/stepgraph/runstore"
	"github.com/randalmurphal/stepgraph/pkg/stepgraph/tools"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// Server is the HTTP API.
type Server struct {
	cfg     Config
	graphs  *GraphStore
	runs    runstore.Store
	tools   *tools.Registry
	logger  *slog.Logger
	metrics *Metrics
	router  chi.Router
}

// New wires a server. A nil logger discards logs.
func New(cfg Config, graphs *GraphStore, runs runstore.Store, reg *tools.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.DefaultMaxSteps < 1 {
		cfg.DefaultMaxSteps = DefaultConfig().DefaultMaxSteps
	}
	if cfg.SaveAttempts < 1 {
		cfg.SaveAttempts = 1
	}
	s := &Server{
		cfg:     cfg,
		graphs:  graphs,
		runs:    runs,
		tools:   reg,
		logger:  logger,
		metrics: NewMetrics(),
		router:  chi.NewRouter(),
	}
	s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)
	r.Use(s.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/tools", s.handleTools)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/graph", func(r chi.Router) {
		r.Post("/create", s.handleCreateGraph)
		r.Get("/list", s.handleListGraphs)
		r.Post("/run", s.handleRunGraph)
		r.Get("/state/{run_id}", s.handleGetState)
		r.Get("/{graph_id}", s.handleGetGraph)
		r.Delete("/{graph_id}", s.handleDeleteGraph)
	})
	r.Get("/runs/list", s.handleListRuns)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"dur", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
