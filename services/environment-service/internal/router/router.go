// Package router wires the environment-service HTTP routes.
package router

import (
	"net/http"
	"time"

	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/metrics"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/environment-service/internal/handlers"
)

// Router wraps the HTTP mux and provides route configuration.
type Router struct {
	mux       *http.ServeMux
	handlers  *handlers.Handlers
	collector *metrics.Collector
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *handlers.Handlers, collector *metrics.Collector) *Router {
	r := &Router{
		mux:       http.NewServeMux(),
		handlers:  h,
		collector: collector,
	}
	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	r.mux.HandleFunc("/api/v1/parameters", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodPost:
			r.handlers.CreateParameter(w, req)
		case http.MethodGet:
			switch {
			case req.URL.Query().Get("parameter_id") != "":
				r.handlers.GetParameter(w, req)
			case req.URL.Query().Get("kind") != "":
				r.handlers.GetParameterByKind(w, req)
			default:
				r.handlers.ListParameters(w, req)
			}
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	r.mux.HandleFunc("/api/v1/parameters/update", r.handlers.UpdateParameter)

	r.mux.HandleFunc("/api/v1/measurements", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodPost:
			r.handlers.CreateMeasurement(w, req)
		case http.MethodGet:
			r.handlers.ListMeasurements(w, req)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	r.mux.HandleFunc("/api/v1/measurements/recent", r.handlers.RecentMeasurements)
	r.mux.HandleFunc("/api/v1/measurements/range", r.handlers.MeasurementsInRange)
	r.mux.HandleFunc("/api/v1/measurements/alerts", r.handlers.AlertMeasurements)

	r.mux.HandleFunc("/api/v1/metrics", r.handlers.GetSummary)

	r.mux.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

// Handler returns the mux wrapped in the ingress and CORS middleware.
func (r *Router) Handler() http.Handler {
	return corsMiddleware(ingressMiddleware(r.collector)(r.mux))
}

// NewServer creates a new HTTP server with the router configured.
func NewServer(port string, h *handlers.Handlers, collector *metrics.Collector) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      NewRouter(h, collector).Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
