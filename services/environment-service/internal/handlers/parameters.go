package handlers

import (
	"net/http"
	"strings"
)

// ParameterRequest is the body of parameter create and update requests.
// Kind is ignored on update.
type ParameterRequest struct {
	Kind         string   `json:"kind"`
	MinThreshold *float64 `json:"min_threshold"`
	MaxThreshold *float64 `json:"max_threshold"`
	Unit         string   `json:"unit"`
}

// validateThresholds writes a 400 and returns false when the band is missing or empty.
func validateThresholds(w http.ResponseWriter, req *ParameterRequest) bool {
	if req.MinThreshold == nil || req.MaxThreshold == nil {
		http.Error(w, "min_threshold and max_threshold are required", http.StatusBadRequest)
		return false
	}
	if *req.MinThreshold >= *req.MaxThreshold {
		http.Error(w, "min_threshold must be less than max_threshold", http.StatusBadRequest)
		return false
	}
	return true
}

// CreateParameter configures a new monitored parameter.
func (h *Handlers) CreateParameter(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req ParameterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	kind, ok := normalizeKind(req.Kind)
	if !ok {
		http.Error(w, "kind must be one of: temperature, humidity, luminosity, co2", http.StatusBadRequest)
		return
	}
	if !validateThresholds(w, &req) {
		return
	}

	param, err := h.db.CreateParameter(r.Context(), kind, *req.MinThreshold, *req.MaxThreshold, strings.TrimSpace(req.Unit))
	if err != nil {
		handleError(w, err, "Failed to create parameter", "kind", kind)
		return
	}

	writeJSON(w, http.StatusCreated, param)
}

// GetParameter retrieves a parameter by id.
func (h *Handlers) GetParameter(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	parameterID, ok := requireQueryParam(w, r, "parameter_id")
	if !ok {
		return
	}

	param, err := h.db.GetParameter(r.Context(), parameterID)
	if err != nil {
		handleError(w, err, "Failed to get parameter", "parameter_id", parameterID)
		return
	}

	writeJSON(w, http.StatusOK, param)
}

// GetParameterByKind retrieves the parameter configured for a kind.
func (h *Handlers) GetParameterByKind(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	kind, ok := normalizeKind(r.URL.Query().Get("kind"))
	if !ok {
		http.Error(w, "kind must be one of: temperature, humidity, luminosity, co2", http.StatusBadRequest)
		return
	}

	param, err := h.db.GetParameterByKind(r.Context(), kind)
	if err != nil {
		handleError(w, err, "Failed to get parameter", "kind", kind)
		return
	}

	writeJSON(w, http.StatusOK, param)
}

// ListParameters retrieves every configured parameter.
func (h *Handlers) ListParameters(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	params, err := h.db.ListParameters(r.Context())
	if err != nil {
		handleError(w, err, "Failed to list parameters")
		return
	}

	writeJSON(w, http.StatusOK, params)
}

// UpdateParameter replaces the threshold band of a parameter.
func (h *Handlers) UpdateParameter(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPut) {
		return
	}

	parameterID, ok := requireQueryParam(w, r, "parameter_id")
	if !ok {
		return
	}

	var req ParameterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !validateThresholds(w, &req) {
		return
	}

	ctx := r.Context()
	unit := strings.TrimSpace(req.Unit)
	if unit == "" {
		current, err := h.db.GetParameter(ctx, parameterID)
		if err != nil {
			handleError(w, err, "Failed to get parameter", "parameter_id", parameterID)
			return
		}
		unit = current.Unit
	}

	param, err := h.db.UpdateParameterThresholds(ctx, parameterID, *req.MinThreshold, *req.MaxThreshold, unit)
	if err != nil {
		handleError(w, err, "Failed to update parameter", "parameter_id", parameterID)
		return
	}

	writeJSON(w, http.StatusOK, param)
}
