// Package events defines the event structures for the measurement-stream and greenhouse-alerts topics.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Severity tiers carried by AlertEvent.
const (
	SeverityLow      = "LOW"
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// MeasurementEvent is published to the measurement stream for every stored measurement.
type MeasurementEvent struct {
	EventID        string    `json:"event_id"`
	MeasurementID  string    `json:"measurement_id"`
	ParameterID    string    `json:"parameter_id"`
	ParameterType  string    `json:"parameter_type"`
	Value          float64   `json:"value"`
	Unit           string    `json:"unit"`
	MinThreshold   float64   `json:"min_threshold"`
	MaxThreshold   float64   `json:"max_threshold"`
	IsAlert        bool      `json:"is_alert"`
	MeasuredAt     time.Time `json:"measured_at"`
	EventTimestamp time.Time `json:"event_timestamp"`
}

// AlertEvent is published once per measurement that falls outside its parameter's thresholds.
// EventID is the de-duplication key used by consumers.
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

// NewEventID returns a fresh globally unique event identifier.
func NewEventID() string {
	return uuid.NewString()
}
