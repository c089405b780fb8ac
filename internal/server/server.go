package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/me/godag/internal/config"
	"github.com/me/godag/internal/dep"
	"github.com/me/godag/internal/parser"
	"github.com/me/godag/internal/scheduler"
	"github.com/me/godag/internal/store"
	"github.com/me/godag/internal/timeutil"
)

// Server is the GoDag REST API server.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.ServerConfig
	startTime time.Time
	parser    *parser.Parser
	store     store.Store
	evaluator *dep.Evaluator
	scheduler scheduler.Scheduler
	clock     timeutil.Clock
}

// New creates a new Server with all routes registered.
// sched may be nil if no scheduling is desired (e.g. in tests).
func New(cfg config.ServerConfig, st store.Store, eval *dep.Evaluator, sched scheduler.Scheduler, clock timeutil.Clock, logger *slog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		config:    cfg,
		startTime: time.Now(),
		parser:    parser.New(logger),
		store:     st,
		evaluator: eval,
		scheduler: sched,
		clock:     clock,
	}
	s.routes()
	return s
}

// StartScheduler begins the scheduling loop in a background goroutine.
func (s *Server) StartScheduler(ctx context.Context) {
	if s.scheduler == nil {
		return
	}
	go func() {
		if err := s.scheduler.Start(ctx); err != nil && err != context.Canceled {
			s.logger.Error("scheduler stopped", "error", err)
		}
	}()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/dags", func(r chi.Router) {
			r.Get("/", s.handleListDags)
			r.Post("/", s.handleCreateDag)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDag)
				r.Delete("/", s.handleDeleteDag)
				r.Get("/runs", s.handleListRuns)
				r.Post("/runs", s.handleTriggerRun)
			})
		})

		r.Route("/runs/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetRun)
			r.Get("/tis", s.handleListTaskInstances)
		})

		r.Route("/tis/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetTaskInstance)
			r.Get("/deps", s.handleGetDepStatuses)
			r.Post("/run", s.handleForceRun)
		})
	})
}
