package handlers

import (
	"net/http"

	"kit-marketplace/middlewares"

	"github.com/gorilla/mux"
)

// Deps bundles the handlers wired into the router. RateLimit is optional and
// guards the item-detail route.
type Deps struct {
	Items     *ItemHandler
	History   *HistoryHandler
	Health    *HealthHandler
	RateLimit func(http.Handler) http.Handler
}

// NewRouter assembles routes and middlewares.
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()

	r.Use(middlewares.LoggingMiddleware)
	r.Use(middlewares.SentryAlertMiddleware)
	r.Use(middlewares.ResponseTimeMiddleware)

	var item http.Handler = http.HandlerFunc(d.Items.GetItem)
	if d.RateLimit != nil {
		item = d.RateLimit(item)
	}
	r.Handle("/items/{id}", item).Methods("GET")
	r.HandleFunc("/history", d.History.List).Methods("GET")
	r.HandleFunc("/history", d.History.Clear).Methods("DELETE")
	r.HandleFunc("/history/stream", d.History.Stream).Methods("GET")
	r.HandleFunc("/health", d.Health.Check).Methods("GET")
	return r
}
