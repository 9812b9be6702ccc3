package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"gomokuplane/internal/agent"
	"gomokuplane/internal/store"
	"gomokuplane/pkg/api"
)

// CreateAgent handles POST /agents.
func (h *Handlers) CreateAgent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.CreateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Kind == "" {
		h.httpError(w, "Name and kind are required", http.StatusBadRequest)
		return
	}

	kind := store.AgentKind(req.Kind)
	if err := agent.ValidateConfig(kind, req.Config); err != nil {
		h.httpError(w, "Invalid agent: "+err.Error(), http.StatusBadRequest)
		return
	}

	a := &store.Agent{
		Name:        req.Name,
		Author:      req.Author,
		Description: req.Description,
		Version:     req.Version,
		Kind:        kind,
		Config:      req.Config,
		IsActive:    true,
		EloRating:   store.DefaultEloRating,
		CreatedAt:   h.jobs.Now(),
	}
	if err := h.store.CreateAgent(ctx, nil, a); err != nil {
		h.storeError(w, r, "Agent", err)
		return
	}
	h.respondJson(w, http.StatusCreated, toAgent(a))
}

// ListAgents handles GET /agents. ?active=true hides deactivated agents.
func (h *Handlers) ListAgents(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	list, err := h.store.ListAgents(r.Context(), nil, activeOnly)
	if err != nil {
		h.storeError(w, r, "Agents", err)
		return
	}
	out := make([]api.Agent, 0, len(list))
	for i := range list {
		out = append(out, toAgent(&list[i]))
	}
	h.respondJson(w, http.StatusOK, out)
}

// GetAgent handles GET /agents/{id}.
func (h *Handlers) GetAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.httpError(w, "Invalid agent ID", http.StatusBadRequest)
		return
	}
	a, err := h.store.GetAgent(r.Context(), nil, id)
	if err != nil {
		h.storeError(w, r, "Agent", err)
		return
	}
	h.respondJson(w, http.StatusOK, toAgent(a))
}

// Leaderboard handles GET /leaderboard.
func (h *Handlers) Leaderboard(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.Leaderboard(r.Context(), queryLimit(r, 50, 500))
	if err != nil {
		h.storeError(w, r, "Leaderboard", err)
		return
	}
	out := make([]api.Agent, 0, len(list))
	for i := range list {
		out = append(out, toAgent(&list[i]))
	}
	h.respondJson(w, http.StatusOK, out)
}
