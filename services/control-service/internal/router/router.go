// Package router wires the control-service HTTP routes.
package router

import (
	"net/http"
	"time"

	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/metrics"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/handlers"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/observability"
)

// Router wraps the HTTP mux and provides route configuration.
type Router struct {
	mux       *http.ServeMux
	handlers  *handlers.Handlers
	obs       *observability.Metrics
	collector *metrics.Collector
}

// NewRouter creates a new router with all routes configured. obs and collector may be nil.
func NewRouter(h *handlers.Handlers, obs *observability.Metrics, collector *metrics.Collector) *Router {
	r := &Router{
		mux:       http.NewServeMux(),
		handlers:  h,
		obs:       obs,
		collector: collector,
	}
	r.setupRoutes()
	return r
}

func (r *Router) handle(route string, fn http.HandlerFunc) {
	r.mux.Handle(route, r.obs.WrapHandler(route, fn))
}

func (r *Router) setupRoutes() {
	r.handle("/api/v1/actions", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodPost:
			r.handlers.CreateAction(w, req)
		case http.MethodGet:
			switch {
			case req.URL.Query().Get("action_id") != "":
				r.handlers.GetAction(w, req)
			case req.URL.Query().Get("equipment_id") != "":
				r.handlers.ListEquipmentActions(w, req)
			default:
				r.handlers.ListActions(w, req)
			}
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	r.handle("/api/v1/actions/conditions", r.handlers.CurrentConditions)

	r.handle("/api/v1/equipment", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodPost:
			r.handlers.CreateEquipment(w, req)
		case http.MethodGet:
			if req.URL.Query().Get("equipment_id") != "" {
				r.handlers.GetEquipment(w, req)
				return
			}
			r.handlers.ListEquipment(w, req)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	r.handle("/api/v1/equipment/update", r.handlers.UpdateEquipment)

	r.handle("/api/v1/metrics", r.handlers.GetSummary)
	r.handle("/api/v1/services/metrics", r.handlers.GetServiceMetrics)

	if r.obs != nil {
		r.mux.Handle("/metrics", r.obs.Handler())
	}

	r.mux.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

// Handler returns the mux wrapped in the collector and CORS middleware.
func (r *Router) Handler() http.Handler {
	return corsMiddleware(collectorMiddleware(r.collector)(r.mux))
}

// NewServer creates a new HTTP server with the router configured.
func NewServer(port string, h *handlers.Handlers, obs *observability.Metrics, collector *metrics.Collector) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      NewRouter(h, obs, collector).Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
