// Package controller contains the HTTP API of the tournament server.
package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"gomokuplane/internal/controller/handlers"
	"gomokuplane/internal/controller/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Options configures the API router.
type Options struct {
	// AdminToken guards /admin and every mutating route. Empty disables auth.
	AdminToken string
	// RateLimit is requests per second per client; zero disables limiting.
	RateLimit      float64
	RateLimitBurst int
}

// Server is the HTTP server for the tournament API.
type Server struct {
	httpServer *http.Server
}

// New creates a new API server.
func New(addr string, deps handlers.Deps, opts Options) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      NewRouter(deps, opts),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// NewRouter builds the route table.
func NewRouter(deps handlers.Deps, opts Options) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	h := handlers.New(deps)
	admin := middleware.AdminAuth(opts.AdminToken)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)

	// Probes stay outside the limiter.
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewRateLimiter(opts.RateLimit, opts.RateLimitBurst).Middleware())

		r.Get("/agents", h.ListAgents)
		r.Get("/agents/{id}", h.GetAgent)
		r.Get("/tournaments", h.ListTournaments)
		r.Get("/tournaments/{id}", h.GetTournament)
		r.Get("/games/{id}", h.GetGame)
		r.Get("/games/{id}/html", h.GameHTML)
		r.Get("/leaderboard", h.Leaderboard)

		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Post("/agents", h.CreateAgent)
			r.Post("/tournaments", h.CreateTournament)
			r.Post("/tournaments/{id}/cancel", h.CancelTournament)
			r.Delete("/tournaments/{id}", h.DeleteTournament)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(admin)
			r.Get("/queue", h.Queue)
			r.Get("/health", h.Health)
			r.Get("/recovery", h.Recovery)
			r.Get("/workers", h.Workers)
			r.Get("/jobs", h.Jobs)
			r.Post("/tournaments/{id}/force-cleanup", h.ForceCleanupTournament)
			r.Post("/workers/{id}/force-cleanup", h.ForceCleanupWorker)
		})
	})

	return r
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
