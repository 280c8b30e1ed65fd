package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"kit-marketplace/logger"
	"kit-marketplace/models"
)

// HistoryHandler serves the history surface.
type HistoryHandler struct {
	History HistoryStore
}

type historyResponse struct {
	Items    []models.ViewedItem `json:"items"`
	Count    int                 `json:"count"`
	Degraded bool                `json:"degraded,omitempty"`
}

// List handles GET /history. A storage failure yields an empty history rather
// than an error status.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.History.ListHistory(r.Context())
	resp := historyResponse{Items: items, Count: len(items)}
	if err != nil {
		resp = historyResponse{Items: []models.ViewedItem{}, Degraded: true}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Clear handles DELETE /history.
func (h *HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.History.ClearHistory(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "could not clear history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "history cleared"})
}

// Stream handles GET /history/stream as Server-Sent Events: one "history"
// event carrying the full ordered list per committed change.
func (h *HistoryHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := h.History.Subscribe()
	defer sub.Cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case items, ok := <-sub.Updates():
			if !ok {
				return
			}
			data, err := json.Marshal(items)
			if err != nil {
				logger.Error.Printf("encode history event: %v", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: history\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
