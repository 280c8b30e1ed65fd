package middlewares

import (
	"net/http"
	"time"

	"kit-marketplace/logger"
)

// slowResponse is the time to first byte above which a request is logged.
const slowResponse = 500 * time.Millisecond

// timingWriter stamps X-Response-Time when the response header is committed.
type timingWriter struct {
	http.ResponseWriter
	start   time.Time
	elapsed time.Duration
	status  int
}

func (tw *timingWriter) commit(status int) {
	if tw.status != 0 {
		return
	}
	tw.status = status
	tw.elapsed = time.Since(tw.start)
	tw.ResponseWriter.Header().Set("X-Response-Time", tw.elapsed.String())
}

func (tw *timingWriter) WriteHeader(status int) {
	tw.commit(status)
	tw.ResponseWriter.WriteHeader(status)
}

func (tw *timingWriter) Write(b []byte) (int, error) {
	tw.commit(http.StatusOK)
	return tw.ResponseWriter.Write(b)
}

// Flush keeps the history stream working through the wrapper.
func (tw *timingWriter) Flush() {
	tw.commit(http.StatusOK)
	if f, ok := tw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (tw *timingWriter) Unwrap() http.ResponseWriter {
	return tw.ResponseWriter
}

// ResponseTimeMiddleware sets X-Response-Time to the time spent before the
// first byte of the response and logs requests slower than slowResponse.
func ResponseTimeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tw := &timingWriter{ResponseWriter: w, start: time.Now()}
		next.ServeHTTP(tw, r)

		// handlers that write nothing still get the header
		tw.commit(http.StatusOK)
		if tw.elapsed > slowResponse {
			logger.Debug.Printf("slow response: %s %s -> %d in %s", r.Method, r.URL.Path, tw.status, tw.elapsed)
		}
	})
}
