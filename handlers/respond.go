package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"kit-marketplace/history"
	"kit-marketplace/logger"
	"kit-marketplace/models"
)

// HistoryStore is the view-history contract the HTTP surface depends on.
// *history.Store implements it.
type HistoryStore interface {
	RecordView(ctx context.Context, item models.Item) error
	ListHistory(ctx context.Context) ([]models.ViewedItem, error)
	ClearHistory(ctx context.Context) error
	Subscribe() *history.Subscription
	Count(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
