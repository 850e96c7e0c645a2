package handlers

import "net/http"

// GetSummary returns parameter and measurement counts.
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
