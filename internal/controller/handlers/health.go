package handlers

import (
	"context"
	"net/http"
	"time"

	"gomokuplane/pkg/api"
)

const readyTimeout = 2 * time.Second

// Healthz answers as long as the process serves HTTP.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	h.respondJson(w, http.StatusOK, api.StatusResponse{Status: "ok"})
}

// Readyz fails with 503 while the store does not answer a ping within readyTimeout.
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("readiness check failed", "error", err)
		h.httpError(w, "Store unavailable", http.StatusServiceUnavailable)
		return
	}
	h.respondJson(w, http.StatusOK, api.StatusResponse{Status: "ready"})
}
