package router

import (
	"net/http"

	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/metrics"
)

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

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

// ingestPath is the endpoint sensors submit readings to.
const ingestPath = "/api/v1/measurements"

// ingressMiddleware counts submitted readings as received and tracks rejected ones.
// Processing outcomes are recorded by the evaluator. A nil collector disables it.
func ingressMiddleware(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if collector == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			submission := r.Method == http.MethodPost && r.URL.Path == ingestPath
			if submission {
				collector.RecordReceived()
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			collector.IncrementCustom("http_" + r.Method)
			switch {
			case rec.status >= http.StatusInternalServerError:
				collector.IncrementCustom("http_server_errors")
			case rec.status >= http.StatusBadRequest && submission:
				collector.IncrementCustom("measurements_rejected")
			}
		})
	}
}
