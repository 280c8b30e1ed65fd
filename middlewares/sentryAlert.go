package middlewares

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/gorilla/mux"
)

// SentryAlertMiddleware tags the request's Sentry hub with the matched route
// so events captured further down are grouped by endpoint.
func SentryAlertMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
			if route := mux.CurrentRoute(r); route != nil {
				if tpl, err := route.GetPathTemplate(); err == nil {
					hub.Scope().SetTag("route", tpl)
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}
