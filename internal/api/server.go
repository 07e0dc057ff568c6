package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/mdxprep/internal/config"
	"github.com/dgallion1/mdxprep/internal/pipeline"
	"github.com/dgallion1/mdxprep/internal/tagfix"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for mdxprep.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	policy       tagfix.Policy
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		policy:       tagfix.NewPolicy(cfg.OptionalTags...),
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/clean", s.handleClean)
		r.Post("/api/clean/batch", s.handleBatchClean)
		r.Get("/api/clean/{jobID}/status", s.handleJobStatus)
		r.Get("/api/clean/{jobID}/result", s.handleJobResult)
		r.Get("/api/stats", s.handleStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
