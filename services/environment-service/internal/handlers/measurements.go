package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/mohamedlandolsi/greenhouse-management-system/services/environment-service/internal/evaluator"
)

const defaultRecentLimit = 10

// CreateMeasurementRequest is the body of a measurement submission.
type CreateMeasurementRequest struct {
	ParameterID string     `json:"parameter_id"`
	Value       *float64   `json:"value"`
	MeasuredAt  *time.Time `json:"measured_at,omitempty"`
}

// MeasurementResponse is the stored measurement with the threshold snapshot it was judged against.
type MeasurementResponse struct {
	ID            string    `json:"id"`
	ParameterID   string    `json:"parameter_id"`
	ParameterType string    `json:"parameter_type"`
	Value         float64   `json:"value"`
	Unit          string    `json:"unit"`
	MinThreshold  float64   `json:"min_threshold"`
	MaxThreshold  float64   `json:"max_threshold"`
	Alert         bool      `json:"alert"`
	Severity      string    `json:"severity,omitempty"`
	AlertEventID  string    `json:"alert_event_id,omitempty"`
	MeasuredAt    time.Time `json:"measured_at"`
	CreatedAt     time.Time `json:"created_at"`
}

func newMeasurementResponse(rec *evaluator.Recorded) MeasurementResponse {
	resp := MeasurementResponse{
		ID:            rec.Measurement.ID,
		ParameterID:   rec.Measurement.ParameterID,
		ParameterType: rec.Parameter.Kind,
		Value:         rec.Measurement.Value,
		Unit:          rec.Parameter.Unit,
		MinThreshold:  rec.Parameter.MinThreshold,
		MaxThreshold:  rec.Parameter.MaxThreshold,
		Alert:         rec.Measurement.Alert,
		Severity:      rec.Evaluation.Severity,
		MeasuredAt:    rec.Measurement.MeasuredAt,
		CreatedAt:     rec.Measurement.CreatedAt,
	}
	if rec.Alert != nil {
		resp.AlertEventID = rec.Alert.EventID
	}
	return resp
}

// CreateMeasurement records a measurement and triggers threshold evaluation.
func (h *Handlers) CreateMeasurement(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req CreateMeasurementRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ParameterID == "" {
		http.Error(w, "parameter_id is required", http.StatusBadRequest)
		return
	}
	if req.Value == nil {
		http.Error(w, "value is required", http.StatusBadRequest)
		return
	}

	rec, err := h.recorder.RecordMeasurement(r.Context(), evaluator.MeasurementRequest{
		ParameterID: req.ParameterID,
		Value:       *req.Value,
		MeasuredAt:  req.MeasuredAt,
	})
	if err != nil {
		handleError(w, err, "Failed to record measurement", "parameter_id", req.ParameterID)
		return
	}

	writeJSON(w, http.StatusCreated, newMeasurementResponse(rec))
}

// ListMeasurements returns a page of measurements, optionally for one parameter.
func (h *Handlers) ListMeasurements(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	page := parsePagination(r)
	result, err := h.db.ListMeasurements(r.Context(), optionalQueryParam(r, "parameter_id"), page.Limit, page.Offset)
	if err != nil {
		handleError(w, err, "Failed to list measurements")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// RecentMeasurements returns the latest measurements of a parameter.
func (h *Handlers) RecentMeasurements(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	parameterID, ok := requireQueryParam(w, r, "parameter_id")
	if !ok {
		return
	}

	limit := defaultRecentLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	measurements, err := h.db.RecentMeasurements(r.Context(), parameterID, limit)
	if err != nil {
		handleError(w, err, "Failed to get recent measurements", "parameter_id", parameterID)
		return
	}

	writeJSON(w, http.StatusOK, measurements)
}

// MeasurementsInRange returns measurements between from and to (RFC 3339).
func (h *Handlers) MeasurementsInRange(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	fromStr, ok := requireQueryParam(w, r, "from")
	if !ok {
		return
	}
	toStr, ok := requireQueryParam(w, r, "to")
	if !ok {
		return
	}

	from, err := time.Parse(time.RFC3339, fromStr)
	if err != nil {
		http.Error(w, "from must be an RFC 3339 timestamp", http.StatusBadRequest)
		return
	}
	to, err := time.Parse(time.RFC3339, toStr)
	if err != nil {
		http.Error(w, "to must be an RFC 3339 timestamp", http.StatusBadRequest)
		return
	}
	if from.After(to) {
		http.Error(w, "from must not be after to", http.StatusBadRequest)
		return
	}

	measurements, err := h.db.MeasurementsInRange(r.Context(), optionalQueryParam(r, "parameter_id"), from, to)
	if err != nil {
		handleError(w, err, "Failed to get measurements in range")
		return
	}

	writeJSON(w, http.StatusOK, measurements)
}

// AlertMeasurements returns measurements that breached their thresholds.
func (h *Handlers) AlertMeasurements(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	page := parsePagination(r)
	measurements, err := h.db.AlertMeasurements(r.Context(), optionalQueryParam(r, "parameter_id"), page.Limit)
	if err != nil {
		handleError(w, err, "Failed to get alert measurements")
		return
	}

	writeJSON(w, http.StatusOK, measurements)
}
