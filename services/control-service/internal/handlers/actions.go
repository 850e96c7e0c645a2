package handlers

import (
	"net/http"
	"strings"

	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/envclient"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/executor"
)

const defaultEquipmentActionsLimit = 20

// CreateActionRequest is an operator-issued action.
type CreateActionRequest struct {
	EquipmentID string   `json:"equipment_id"`
	ActionType  string   `json:"action_type"`
	TargetValue *float64 `json:"target_value,omitempty"`
	ParameterID *string  `json:"parameter_id,omitempty"`
}

// CreateAction creates a manual action and executes it immediately. The response
// carries the terminal state; a failed execution still answers 201.
func (h *Handlers) CreateAction(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req CreateActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.EquipmentID == "" {
		http.Error(w, "equipment_id is required", http.StatusBadRequest)
		return
	}

	action, err := h.executor.CreateManual(r.Context(), executor.ManualActionRequest{
		EquipmentID: req.EquipmentID,
		ActionType:  strings.ToLower(strings.TrimSpace(req.ActionType)),
		TargetValue: req.TargetValue,
		ParameterID: req.ParameterID,
	})
	if err != nil {
		handleError(w, err, "Failed to create action", "equipment_id", req.EquipmentID)
		return
	}

	writeJSON(w, http.StatusCreated, action)
}

// GetAction retrieves an action by id.
func (h *Handlers) GetAction(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	actionID, ok := requireQueryParam(w, r, "action_id")
	if !ok {
		return
	}

	action, err := h.db.GetAction(r.Context(), actionID)
	if err != nil {
		handleError(w, err, "Failed to get action", "action_id", actionID)
		return
	}

	writeJSON(w, http.StatusOK, action)
}

// ListActions returns a page of actions, newest first.
func (h *Handlers) ListActions(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	page := parsePagination(r)
	result, err := h.db.ListActions(r.Context(), page.Limit, page.Offset)
	if err != nil {
		handleError(w, err, "Failed to list actions")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ListEquipmentActions returns the latest actions issued to one piece of equipment.
func (h *Handlers) ListEquipmentActions(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	equipmentID, ok := requireQueryParam(w, r, "equipment_id")
	if !ok {
		return
	}

	limit := defaultEquipmentActionsLimit
	if r.URL.Query().Get("limit") != "" {
		limit = parsePagination(r).Limit
	}

	actions, err := h.db.ListActionsByEquipment(r.Context(), equipmentID, limit)
	if err != nil {
		handleError(w, err, "Failed to list equipment actions", "equipment_id", equipmentID)
		return
	}

	writeJSON(w, http.StatusOK, actions)
}

// CurrentConditions proxies the environment parameters through the circuit breaker.
// When the environment-service is unavailable the fallback body is served with 503.
func (h *Handlers) CurrentConditions(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	conditions, err := h.conditions.CurrentConditions(r.Context())
	if err != nil {
		if conditions == nil {
			conditions = envclient.Fallback()
		}
		writeJSON(w, http.StatusServiceUnavailable, conditions)
		return
	}

	writeJSON(w, http.StatusOK, conditions)
}
