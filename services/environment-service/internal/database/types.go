package database

import (
	"time"
)

// Parameter is a monitored environmental dimension with its threshold band.
type Parameter struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"` // temperature, humidity, luminosity, co2
	MinThreshold float64   `json:"min_threshold"`
	MaxThreshold float64   `json:"max_threshold"`
	Unit         string    `json:"unit"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Measurement is one sampled value. Alert is computed at insert and never changes.
type Measurement struct {
	ID          string    `json:"id"`
	ParameterID string    `json:"parameter_id"`
	Value       float64   `json:"value"`
	MeasuredAt  time.Time `json:"measured_at"`
	Alert       bool      `json:"alert"`
	CreatedAt   time.Time `json:"created_at"`
}

// MeasurementListResult contains paginated measurement results.
type MeasurementListResult struct {
	Measurements []*Measurement `json:"measurements"`
	Total        int64          `json:"total"`
	Limit        int            `json:"limit"`
	Offset       int            `json:"offset"`
}
