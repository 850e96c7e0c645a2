// Package handlers provides HTTP handlers for the environment-service API.
package handlers

import (
	"context"
	"time"

	"github.com/mohamedlandolsi/greenhouse-management-system/services/environment-service/internal/database"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/environment-service/internal/evaluator"
)

// Repository defines the database operations used by the handlers.
type Repository interface {
	CreateParameter(ctx context.Context, kind string, minThreshold, maxThreshold float64, unit string) (*database.Parameter, error)
	GetParameter(ctx context.Context, parameterID string) (*database.Parameter, error)
	GetParameterByKind(ctx context.Context, kind string) (*database.Parameter, error)
	ListParameters(ctx context.Context) ([]*database.Parameter, error)
	UpdateParameterThresholds(ctx context.Context, parameterID string, minThreshold, maxThreshold float64, unit string) (*database.Parameter, error)

	ListMeasurements(ctx context.Context, parameterID *string, limit, offset int) (*database.MeasurementListResult, error)
	RecentMeasurements(ctx context.Context, parameterID string, limit int) ([]*database.Measurement, error)
	MeasurementsInRange(ctx context.Context, parameterID *string, from, to time.Time) ([]*database.Measurement, error)
	AlertMeasurements(ctx context.Context, parameterID *string, limit int) ([]*database.Measurement, error)

	GetSummary(ctx context.Context) (*database.Summary, error)
}

// MeasurementRecorder evaluates and stores measurements.
type MeasurementRecorder interface {
	RecordMeasurement(ctx context.Context, req evaluator.MeasurementRequest) (*evaluator.Recorded, error)
}

// Handlers wraps dependencies for HTTP handlers.
type Handlers struct {
	db       Repository
	recorder MeasurementRecorder
}

// NewHandlers creates a new handlers instance.
func NewHandlers(db Repository, recorder MeasurementRecorder) *Handlers {
	return &Handlers{
		db:       db,
		recorder: recorder,
	}
}
