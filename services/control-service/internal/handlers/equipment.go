package handlers

import (
	"net/http"
	"strings"

	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/database"
)

// EquipmentRequest is the body of equipment create and update requests.
// Category is ignored on update; an empty state keeps the current one.
type EquipmentRequest struct {
	Category    string  `json:"category"`
	Name        string  `json:"name"`
	State       string  `json:"state"`
	ParameterID *string `json:"parameter_id,omitempty"`
}

// CreateEquipment registers a piece of equipment. State defaults to active.
func (h *Handlers) CreateEquipment(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req EquipmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	category := strings.ToLower(strings.TrimSpace(req.Category))
	if !database.ValidCategory(category) {
		http.Error(w, "category must be one of: ventilator, heater, light, irrigation", http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	state := strings.ToLower(strings.TrimSpace(req.State))
	if state == "" {
		state = database.StateActive
	}
	if !database.ValidState(state) {
		http.Error(w, "state must be one of: active, inactive", http.StatusBadRequest)
		return
	}

	eq, err := h.db.CreateEquipment(r.Context(), category, name, state, req.ParameterID)
	if err != nil {
		handleError(w, err, "Failed to create equipment", "category", category, "name", name)
		return
	}

	writeJSON(w, http.StatusCreated, eq)
}

// GetEquipment retrieves a piece of equipment by id.
func (h *Handlers) GetEquipment(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	equipmentID, ok := requireQueryParam(w, r, "equipment_id")
	if !ok {
		return
	}

	eq, err := h.db.GetEquipment(r.Context(), equipmentID)
	if err != nil {
		handleError(w, err, "Failed to get equipment", "equipment_id", equipmentID)
		return
	}

	writeJSON(w, http.StatusOK, eq)
}

// ListEquipment lists equipment, optionally filtered by category.
func (h *Handlers) ListEquipment(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	category := optionalQueryParam(r, "category")
	if category != nil && !database.ValidCategory(*category) {
		http.Error(w, "category must be one of: ventilator, heater, light, irrigation", http.StatusBadRequest)
		return
	}

	list, err := h.db.ListEquipment(r.Context(), category)
	if err != nil {
		handleError(w, err, "Failed to list equipment")
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// UpdateEquipment renames equipment, switches its state or re-links its parameter.
func (h *Handlers) UpdateEquipment(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPut) {
		return
	}

	equipmentID, ok := requireQueryParam(w, r, "equipment_id")
	if !ok {
		return
	}

	var req EquipmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	current, err := h.db.GetEquipment(ctx, equipmentID)
	if err != nil {
		handleError(w, err, "Failed to get equipment", "equipment_id", equipmentID)
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = current.Name
	}
	state := strings.ToLower(strings.TrimSpace(req.State))
	if state == "" {
		state = current.State
	}
	if !database.ValidState(state) {
		http.Error(w, "state must be one of: active, inactive", http.StatusBadRequest)
		return
	}
	parameterID := req.ParameterID
	if parameterID == nil {
		parameterID = current.ParameterID
	}

	eq, err := h.db.UpdateEquipment(ctx, equipmentID, name, state, parameterID)
	if err != nil {
		handleError(w, err, "Failed to update equipment", "equipment_id", equipmentID)
		return
	}

	writeJSON(w, http.StatusOK, eq)
}
