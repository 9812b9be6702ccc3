package handlers

import (
	"errors"
	"net/http"

	"gomokuplane/internal/logger"
	"gomokuplane/internal/store"
	"gomokuplane/pkg/api"

	"github.com/go-chi/chi/v5"
)

// Queue handles GET /admin/queue.
func (h *Handlers) Queue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	qs, err := h.jobs.GetQueueStatus(ctx)
	if err != nil {
		h.storeError(w, r, "Queue", err)
		return
	}
	resp := api.QueueStatus{
		Pending:   qs.Pending,
		Running:   qs.Running,
		Completed: qs.Completed,
		Failed:    qs.Failed,
		Cancelled: qs.Cancelled,
		Total:     qs.Total,
	}
	active, err := h.jobs.GetActiveJob(ctx)
	if err != nil {
		h.storeError(w, r, "Job", err)
		return
	}
	if active != nil {
		j := toJob(active)
		resp.ActiveJob = &j
	}
	h.respondJson(w, http.StatusOK, resp)
}

// Health handles GET /admin/health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if h.monitor == nil {
		h.httpError(w, "Health monitor not configured", http.StatusServiceUnavailable)
		return
	}
	hs, err := h.monitor.HealthStatus(r.Context())
	if err != nil {
		h.storeError(w, r, "Health", err)
		return
	}
	h.respondJson(w, http.StatusOK, toHealthStatus(hs))
}

// Recovery handles GET /admin/recovery.
func (h *Handlers) Recovery(w http.ResponseWriter, r *http.Request) {
	if h.recovery == nil {
		h.httpError(w, "Recovery not configured", http.StatusServiceUnavailable)
		return
	}
	st, err := h.recovery.Status(r.Context())
	if err != nil {
		h.storeError(w, r, "Recovery status", err)
		return
	}
	h.respondJson(w, http.StatusOK, toRecoveryStatus(st))
}

// Workers handles GET /admin/workers.
func (h *Handlers) Workers(w http.ResponseWriter, r *http.Request) {
	var statuses []store.WorkerStatus
	if s := r.URL.Query().Get("status"); s != "" {
		statuses = append(statuses, store.WorkerStatus(s))
	}
	list, err := h.store.ListWorkers(r.Context(), nil, statuses...)
	if err != nil {
		h.storeError(w, r, "Workers", err)
		return
	}
	now := h.jobs.Now()
	out := make([]api.Worker, 0, len(list))
	for i := range list {
		out = append(out, toWorker(&list[i], now, h.workerTimeout))
	}
	h.respondJson(w, http.StatusOK, out)
}

// Jobs handles GET /admin/jobs. ?status= and ?limit= narrow the list.
func (h *Handlers) Jobs(w http.ResponseWriter, r *http.Request) {
	filter := store.JobFilter{Limit: queryLimit(r, 50, 500)}
	if s := r.URL.Query().Get("status"); s != "" {
		filter.Statuses = []store.JobStatus{store.JobStatus(s)}
	}
	list, err := h.store.ListJobs(r.Context(), nil, filter)
	if err != nil {
		h.storeError(w, r, "Jobs", err)
		return
	}
	out := make([]api.Job, 0, len(list))
	for i := range list {
		out = append(out, toJob(&list[i]))
	}
	h.respondJson(w, http.StatusOK, out)
}

// ForceCleanupTournament handles POST /admin/tournaments/{id}/force-cleanup.
func (h *Handlers) ForceCleanupTournament(w http.ResponseWriter, r *http.Request) {
	if h.recovery == nil {
		h.httpError(w, "Recovery not configured", http.StatusServiceUnavailable)
		return
	}
	id, ok := pathID(r)
	if !ok {
		h.httpError(w, "Invalid tournament ID", http.StatusBadRequest)
		return
	}
	cleaned, err := h.recovery.ForceCleanupTournament(r.Context(), id)
	if err != nil {
		h.storeError(w, r, "Tournament", err)
		return
	}
	if !cleaned {
		h.httpError(w, "Tournament not found", http.StatusNotFound)
		return
	}
	logger.FromContext(r.Context(), h.logger).Warn("tournament force cleaned", "tournament_id", id)
	h.respondJson(w, http.StatusOK, api.CleanupResponse{Cleaned: true, Message: "Tournament cleaned up"})
}

// ForceCleanupWorker handles POST /admin/workers/{id}/force-cleanup.
func (h *Handlers) ForceCleanupWorker(w http.ResponseWriter, r *http.Request) {
	if h.monitor == nil {
		h.httpError(w, "Health monitor not configured", http.StatusServiceUnavailable)
		return
	}
	id := chi.URLParam(r, "id")
	if id == "" {
		h.httpError(w, "Invalid worker ID", http.StatusBadRequest)
		return
	}
	cleaned, err := h.monitor.ForceWorkerCleanup(r.Context(), id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.storeError(w, r, "Worker", err)
		return
	}
	if !cleaned {
		h.httpError(w, "Worker not found", http.StatusNotFound)
		return
	}
	logger.FromContext(r.Context(), h.logger).Warn("worker force cleaned", "worker_id", id)
	h.respondJson(w, http.StatusOK, api.CleanupResponse{Cleaned: true, Message: "Worker cleaned up"})
}
