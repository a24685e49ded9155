package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/isdmx/runbox/config"
	"github.com/isdmx/runbox/judge"
	"github.com/isdmx/runbox/notifier"
	"github.com/isdmx/runbox/sandbox"
	"github.com/isdmx/runbox/tracker"
)

// ContainerOrchestrator is the subset of sandbox.Orchestrator the submission
// flow uses. *sandbox.Orchestrator satisfies it; tests substitute a fake.
type ContainerOrchestrator interface {
	SupportsLanguage(language string) bool
	Provision(ctx context.Context, language string) (sandbox.Handle, error)
	WaitHealthy(ctx context.Context, handle sandbox.Handle) error
	Dispatch(ctx context.Context, handle sandbox.Handle, sub judge.Submission) error
	Teardown(ctx context.Context, handle sandbox.Handle)
}

// Server is the HTTP server for the runbox orchestrator API.
type Server struct {
	logger   *zap.Logger
	config   *config.Config
	tracker  *tracker.Tracker
	orc      ContainerOrchestrator
	notifier notifier.Notifier
	router   chi.Router
	http     *http.Server
}

// New creates a new Server and wires its routes.
func New(logger *zap.Logger, cfg *config.Config, trk *tracker.Tracker, orc ContainerOrchestrator, ntf notifier.Notifier) *Server {
	s := &Server{
		logger:   logger,
		config:   cfg,
		tracker:  trk,
		orc:      orc,
		notifier: ntf,
		router:   chi.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Use(jsonContentType)

		r.Post("/submissions", s.handleSubmit)
		r.Post("/callbacks", s.handleCallback)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// jsonContentType sets Content-Type to application/json for API routes.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Router exposes the HTTP handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Server.Port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("orchestrator API listening", zap.String("addr", addr))
	return s.http.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}

	s.logger.Info("shutting down orchestrator API")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.http.Shutdown(shutdownCtx)
}
