// Package handlers contains HTTP handlers for the admin API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"gomokuplane/internal/artifact"
	"gomokuplane/internal/jobs"
	"gomokuplane/internal/logger"
	"gomokuplane/internal/monitor"
	"gomokuplane/internal/recovery"
	"gomokuplane/internal/store"
	"gomokuplane/pkg/api"

	"github.com/go-chi/chi/v5"
)

// HealthReporter is the part of the health monitor the API exposes.
type HealthReporter interface {
	HealthStatus(ctx context.Context) (monitor.HealthStatus, error)
	ForceWorkerCleanup(ctx context.Context, workerID string) (bool, error)
}

// RecoveryReporter is the part of the recovery module the API exposes.
type RecoveryReporter interface {
	Status(ctx context.Context) (recovery.Status, error)
	ForceCleanupTournament(ctx context.Context, tournamentID int64) (bool, error)
}

// Deps are the collaborators of the handlers.
type Deps struct {
	Store     store.Store
	Jobs      *jobs.Manager
	Monitor   HealthReporter
	Recovery  RecoveryReporter
	Artifacts artifact.Store
	Logger    *slog.Logger
	// WorkerTimeout decides which active workers are reported healthy.
	WorkerTimeout time.Duration
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	store         store.Store
	jobs          *jobs.Manager
	monitor       HealthReporter
	recovery      RecoveryReporter
	artifacts     artifact.Store
	logger        *slog.Logger
	workerTimeout time.Duration
}

// New creates a new Handlers instance.
func New(d Deps) *Handlers {
	if d.WorkerTimeout <= 0 {
		d.WorkerTimeout = 5 * time.Minute
	}
	return &Handlers{
		store:         d.Store,
		jobs:          d.Jobs,
		monitor:       d.Monitor,
		recovery:      d.Recovery,
		artifacts:     d.Artifacts,
		logger:        d.Logger,
		workerTimeout: d.WorkerTimeout,
	}
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJson(w, code, api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}

// storeError maps a failed lookup or transition to a response. Unexpected errors are logged.
func (h *Handlers) storeError(w http.ResponseWriter, r *http.Request, what string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.httpError(w, what+" not found", http.StatusNotFound)
	case errors.Is(err, jobs.ErrTournamentRunning):
		h.httpError(w, "Another tournament is already running", http.StatusConflict)
	case errors.Is(err, store.ErrConflict):
		h.httpError(w, "Conflicting state for "+what, http.StatusConflict)
	default:
		logger.FromContext(r.Context(), h.logger).Error("request failed", "path", r.URL.Path, "error", err)
		h.httpError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// queryLimit reads ?limit=, falling back to def and capping at max.
func queryLimit(r *http.Request, def, max int) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
