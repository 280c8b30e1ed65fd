package handlers

import (
	"net/http"
)

// HealthHandler reports whether the history database is usable.
type HealthHandler struct {
	History HistoryStore
}

// Check handles GET /health.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if err := h.History.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"status":  "unhealthy",
			"message": "History database connectivity failed",
			"error":   err.Error(),
		})
		return
	}

	count, err := h.History.Count(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"status":  "unhealthy",
			"message": "History database query failed",
			"error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "healthy",
		"message":         "Server and history database are up and running",
		"history_entries": count,
	})
}
