package middlewares

import (
	"net"
	"net/http"
	"strings"
	"time"

	"kit-marketplace/logger"
)

// LoggingMiddleware logs audit information for every request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		logger.Audit.Printf("Method: %s | URL: %s | User-Agent: %s | IP: %s | Took: %s",
			r.Method, r.URL.String(), r.UserAgent(), getIPAddress(r), time.Since(start))
	})
}

func getIPAddress(r *http.Request) string {
	// Check X-Forwarded-For header for proxies
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}

	// Fallback to RemoteAddr (trim port)
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
