package router

import (
	"net/http"
	"time"

	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/metrics"
)

// slowRequest is the latency above which a request is counted as slow.
const slowRequest = time.Second

// corsMiddleware applies CORS headers to all requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// collectorMiddleware counts API requests on the Redis-backed collector. Health and
// scrape requests are not counted; a nil collector disables it.
func collectorMiddleware(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if collector == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			collector.IncrementCustom("http_requests")
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			if wrapped.statusCode >= http.StatusInternalServerError {
				collector.IncrementCustom("http_errors")
			}
			collector.IncrementCustom("http_" + r.Method)
			if time.Since(start) > slowRequest {
				collector.IncrementCustom("http_slow")
			}
		})
	}
}
