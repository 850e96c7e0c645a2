package handlers

import (
	"log/slog"
	"net/http"

	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/metrics"
)

// ServiceMetricsResponse wraps service snapshots with the known service list.
type ServiceMetricsResponse struct {
	Services      map[string]*metrics.Snapshot `json:"services"`
	KnownServices []string                     `json:"known_services"`
}

// GetSummary returns action and equipment counts.
// GET /api/v1/metrics
func (h *Handlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	summary, err := h.db.GetSummary(r.Context())
	if err != nil {
		handleError(w, err, "Failed to retrieve metrics")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// GetServiceMetrics returns the pipeline counters every service publishes to Redis.
// Services without a snapshot are reported offline.
// GET /api/v1/services/metrics[?service=]
func (h *Handlers) GetServiceMetrics(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	if h.metricsReader == nil {
		http.Error(w, "Metrics reader not available", http.StatusServiceUnavailable)
		return
	}

	ctx := r.Context()
	if name := r.URL.Query().Get("service"); name != "" {
		snap, err := h.metricsReader.Get(ctx, name)
		if err != nil {
			slog.Warn("Failed to get service metrics", "service", name, "error", err)
			snap = offlineSnapshot(name)
		}
		writeJSON(w, http.StatusOK, snap)
		return
	}

	all := h.metricsReader.GetAll(ctx)
	for _, name := range metrics.ServiceNames {
		if _, ok := all[name]; !ok {
			all[name] = offlineSnapshot(name)
		}
	}

	writeJSON(w, http.StatusOK, ServiceMetricsResponse{
		Services:      all,
		KnownServices: metrics.ServiceNames,
	})
}

func offlineSnapshot(name string) *metrics.Snapshot {
	return &metrics.Snapshot{ServiceName: name, Status: "offline"}
}
