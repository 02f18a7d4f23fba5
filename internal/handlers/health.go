package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const serviceName = "catalogo-productos-api"

// HealthHandler reports 503 while the database is unreachable.
func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	body := map[string]any{
		"service":   serviceName,
		"version":   h.version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err := h.ping(ctx); err != nil {
		h.log.Warn("health check failed", zap.Error(err))
		body["status"] = "error"
		body["database"] = "disconnected"
		if !h.production {
			body["error"] = err.Error()
		}
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	body["status"] = "ok"
	body["database"] = "connected"
	writeJSON(w, http.StatusOK, body)
}

func (h *Handlers) InfoHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": serviceName,
		"version": h.version,
		"endpoints": map[string]string{
			"productos": "/api/" + h.version + "/productos",
			"health":    "/health",
		},
	})
}
