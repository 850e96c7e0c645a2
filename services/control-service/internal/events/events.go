// Package events defines the alert events consumed from the greenhouse-alerts topic and
// the equipment action events published to the equipment-actions topic.
package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/apperrors"
)

// AlertEvent mirrors the alert payload published by the environment-service.
type AlertEvent struct {
	EventID        string    `json:"event_id"`
	MeasurementID  string    `json:"measurement_id"`
	ParameterID    string    `json:"parameter_id"`
	ParameterType  string    `json:"parameter_type"`
	Value          float64   `json:"value"`
	MinThreshold   float64   `json:"min_threshold"`
	MaxThreshold   float64   `json:"max_threshold"`
	MeasuredAt     time.Time `json:"measured_at"`
	Severity       string    `json:"severity"`
	Message        string    `json:"message"`
	EventTimestamp time.Time `json:"event_timestamp"`
}

// EquipmentActionEvent is published once per action reaching a terminal state.
type EquipmentActionEvent struct {
	EventID           string     `json:"event_id"`
	EquipmentID       string     `json:"equipment_id"`
	EquipmentName     string     `json:"equipment_name"`
	EquipmentCategory string     `json:"equipment_category"`
	ActionID          string     `json:"action_id"`
	ActionType        string     `json:"action_type"`
	Status            string     `json:"status"`
	TargetValue       *float64   `json:"target_value,omitempty"`
	ObservedValue     *float64   `json:"observed_value,omitempty"`
	ParameterID       string     `json:"parameter_id,omitempty"`
	ExecutedAt        *time.Time `json:"executed_at,omitempty"`
	Result            string     `json:"result"`
	IsAutomatic       bool       `json:"is_automatic"`
	EventTimestamp    time.Time  `json:"event_timestamp"`
}

// NewEventID returns a fresh globally unique event identifier.
func NewEventID() string {
	return uuid.NewString()
}

// IsEmpty reports whether payload carries no event at all (tombstones and JSON null).
func IsEmpty(payload []byte) bool {
	trimmed := bytes.TrimSpace(payload)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// DecodeAlert parses an alert payload. Undecodable payloads and alerts without an
// event id or parameter type are reported as apperrors.ErrMalformedEvent.
func DecodeAlert(payload []byte) (*AlertEvent, error) {
	var alert AlertEvent
	if err := json.Unmarshal(payload, &alert); err != nil {
		return nil, fmt.Errorf("decode alert event: %v: %w", err, apperrors.ErrMalformedEvent)
	}
	if alert.EventID == "" {
		return nil, fmt.Errorf("alert event has no event_id: %w", apperrors.ErrMalformedEvent)
	}
	if alert.ParameterType == "" {
		return nil, fmt.Errorf("alert event %s has no parameter_type: %w", alert.EventID, apperrors.ErrMalformedEvent)
	}
	return &alert, nil
}
