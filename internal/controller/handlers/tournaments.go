package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gomokuplane/internal/logger"
	"gomokuplane/internal/store"
	"gomokuplane/internal/tournament"
	"gomokuplane/pkg/api"
)

// CreateTournament handles POST /tournaments.
// It records the tournament and enqueues its job. Only one tournament may run at
// a time, so the request is refused with 409 while another job is running.
func (h *Handlers) CreateTournament(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx, h.logger)

	var req api.CreateTournamentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Priority < api.PriorityMin || req.Priority > api.PriorityMax {
		h.httpError(w, fmt.Sprintf("Priority must be between %d and %d", api.PriorityMin, api.PriorityMax), http.StatusBadRequest)
		return
	}

	ids := uniqueIDs(req.AgentIDs)
	if len(ids) < 2 {
		h.httpError(w, "A tournament requires at least 2 agents", http.StatusBadRequest)
		return
	}
	found, err := h.store.GetAgentsByIDs(ctx, nil, ids)
	if err != nil {
		h.storeError(w, r, "Agents", err)
		return
	}
	if len(found) != len(ids) {
		h.httpError(w, "Unknown agent in selection", http.StatusBadRequest)
		return
	}

	active, err := h.jobs.GetActiveJob(ctx)
	if err != nil {
		h.storeError(w, r, "Job", err)
		return
	}
	if active != nil {
		h.httpError(w, fmt.Sprintf("Cannot create tournament: tournament %d is already running", active.TournamentID), http.StatusConflict)
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = fmt.Sprintf("Tournament %s", h.jobs.Now().Format("2006-01-02 15:04"))
	}
	t := &store.Tournament{
		Name:       name,
		Status:     store.TournamentStatusPending,
		TotalGames: tournament.TotalGames(len(ids)),
		AgentIDs:   ids,
		CreatedAt:  h.jobs.Now(),
	}
	if err := h.store.CreateTournament(ctx, nil, t); err != nil {
		h.storeError(w, r, "Tournament", err)
		return
	}

	job, err := h.jobs.CreateTournamentJob(ctx, t.ID, req.Priority)
	if err != nil {
		// A job started between the check and the admission.
		if derr := h.store.DeleteTournament(ctx, nil, t.ID); derr != nil {
			log.Error("failed to remove unqueued tournament", "tournament_id", t.ID, "error", derr)
		}
		h.storeError(w, r, "Tournament", err)
		return
	}

	log.Info("tournament created", "tournament_id", t.ID, "job_id", job.ID, "agents", len(ids))
	h.respondJson(w, http.StatusCreated, api.CreateTournamentResponse{
		Tournament: toTournament(t),
		Job:        toJob(job),
	})
}

// ListTournaments handles GET /tournaments. ?status= filters by status.
func (h *Handlers) ListTournaments(w http.ResponseWriter, r *http.Request) {
	filter := store.TournamentFilter{Limit: queryLimit(r, 50, 500)}
	if s := r.URL.Query().Get("status"); s != "" {
		filter.Statuses = []store.TournamentStatus{store.TournamentStatus(s)}
	}
	list, err := h.store.ListTournaments(r.Context(), nil, filter)
	if err != nil {
		h.storeError(w, r, "Tournaments", err)
		return
	}
	out := make([]api.Tournament, 0, len(list))
	for i := range list {
		out = append(out, toTournament(&list[i]))
	}
	h.respondJson(w, http.StatusOK, out)
}

// GetTournament handles GET /tournaments/{id}, including its games and latest job.
func (h *Handlers) GetTournament(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(r)
	if !ok {
		h.httpError(w, "Invalid tournament ID", http.StatusBadRequest)
		return
	}
	t, err := h.store.GetTournament(ctx, nil, id)
	if err != nil {
		h.storeError(w, r, "Tournament", err)
		return
	}

	resp := api.TournamentDetail{Tournament: toTournament(t), Games: []api.Game{}}
	job, err := h.store.GetLatestJobForTournament(ctx, nil, id)
	switch {
	case err == nil:
		j := toJob(job)
		resp.Job = &j
	case !errors.Is(err, store.ErrNotFound):
		h.storeError(w, r, "Job", err)
		return
	}

	games, err := h.store.ListGames(ctx, nil, store.GameFilter{TournamentID: id})
	if err != nil {
		h.storeError(w, r, "Games", err)
		return
	}
	for i := range games {
		resp.Games = append(resp.Games, toGame(&games[i]))
	}
	h.respondJson(w, http.StatusOK, resp)
}

// CancelTournament handles POST /tournaments/{id}/cancel.
// The worker observes the cancellation between games.
func (h *Handlers) CancelTournament(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.httpError(w, "Invalid tournament ID", http.StatusBadRequest)
		return
	}
	cancelled, err := h.jobs.CancelTournament(r.Context(), id)
	if err != nil {
		h.storeError(w, r, "Tournament", err)
		return
	}
	if !cancelled {
		h.httpError(w, "Tournament is not pending or running", http.StatusConflict)
		return
	}
	h.respondJson(w, http.StatusOK, api.StatusResponse{Status: string(store.TournamentStatusCancelled)})
}

// DeleteTournament handles DELETE /tournaments/{id}.
// An active tournament is cancelled first so its job does not outlive it.
func (h *Handlers) DeleteTournament(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(r)
	if !ok {
		h.httpError(w, "Invalid tournament ID", http.StatusBadRequest)
		return
	}
	if _, err := h.jobs.CancelTournament(ctx, id); err != nil {
		h.storeError(w, r, "Tournament", err)
		return
	}
	if err := h.store.DeleteTournament(ctx, nil, id); err != nil {
		h.storeError(w, r, "Tournament", err)
		return
	}
	logger.FromContext(ctx, h.logger).Info("tournament deleted", "tournament_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
