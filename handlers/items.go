package handlers

import (
	"errors"
	"net/http"
	"time"

	"kit-marketplace/batcher"
	"kit-marketplace/catalog"
	"kit-marketplace/logger"

	"github.com/gorilla/mux"
)

// ItemHandler serves the item-detail surface. Opening an item records it in
// the view history.
type ItemHandler struct {
	Catalog catalog.Catalog
	History HistoryStore
	Views   batcher.Batcher
}

// GetItem handles GET /items/{id}.
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing item id")
		return
	}

	item, err := h.Catalog.GetItem(r.Context(), id)
	if errors.Is(err, catalog.ErrItemNotFound) {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	if err != nil {
		logger.Error.Printf("catalog lookup for %s failed: %v", id, err)
		writeError(w, http.StatusBadGateway, "catalog unavailable")
		return
	}

	// The detail view still renders when history cannot be written; the store
	// has already logged and reported the failure.
	_ = h.History.RecordView(r.Context(), item)

	if h.Views != nil {
		h.Views.Enqueue(batcher.ViewEvent{ItemID: item.ID, Timestamp: time.Now()})
	}
	writeJSON(w, http.StatusOK, item)
}
