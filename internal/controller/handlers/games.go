package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"gomokuplane/internal/artifact"
	"gomokuplane/internal/logger"
	"gomokuplane/internal/render"
)

// GetGame handles GET /games/{id}.
func (h *Handlers) GetGame(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.httpError(w, "Invalid game ID", http.StatusBadRequest)
		return
	}
	g, err := h.store.GetGame(r.Context(), nil, id)
	if err != nil {
		h.storeError(w, r, "Game", err)
		return
	}
	h.respondJson(w, http.StatusOK, toGame(g))
}

// GameHTML handles GET /games/{id}/html.
// The stored page is served when present; otherwise it is rebuilt from the JSON log.
func (h *Handlers) GameHTML(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx, h.logger)

	id, ok := pathID(r)
	if !ok {
		h.httpError(w, "Invalid game ID", http.StatusBadRequest)
		return
	}
	g, err := h.store.GetGame(ctx, nil, id)
	if err != nil {
		h.storeError(w, r, "Game", err)
		return
	}
	if h.artifacts == nil {
		h.httpError(w, "Game page not available", http.StatusNotFound)
		return
	}

	if g.HTMLLocation != "" {
		page, err := h.artifacts.Get(ctx, g.HTMLLocation)
		if err == nil {
			writeHTML(w, page)
			return
		}
		if !errors.Is(err, artifact.ErrNotFound) {
			log.Warn("failed to read game page", "game_id", id, "location", g.HTMLLocation, "error", err)
		}
	}

	if g.LogLocation == "" {
		h.httpError(w, "Game page not available", http.StatusNotFound)
		return
	}
	raw, err := h.artifacts.Get(ctx, g.LogLocation)
	if err != nil {
		if !errors.Is(err, artifact.ErrNotFound) {
			log.Warn("failed to read game log", "game_id", id, "location", g.LogLocation, "error", err)
		}
		h.httpError(w, "Game page not available", http.StatusNotFound)
		return
	}
	var doc render.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		h.storeError(w, r, "Game log", err)
		return
	}
	page, err := render.HTML(doc)
	if err != nil {
		h.storeError(w, r, "Game page", err)
		return
	}
	writeHTML(w, page)
}

func writeHTML(w http.ResponseWriter, page []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(page)
}
