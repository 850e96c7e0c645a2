package handlers

import (
	"context"
	"time"

	"github.com/mohamedlandolsi/greenhouse-management-system/services/environment-service/internal/database"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/environment-service/internal/evaluator"
)

// mockRepository implements Repository for testing.
type mockRepository struct {
	CreateParameterFn           func(ctx context.Context, kind string, minThreshold, maxThreshold float64, unit string) (*database.Parameter, error)
	GetParameterFn              func(ctx context.Context, parameterID string) (*database.Parameter, error)
	GetParameterByKindFn        func(ctx context.Context, kind string) (*database.Parameter, error)
	ListParametersFn            func(ctx context.Context) ([]*database.Parameter, error)
	UpdateParameterThresholdsFn func(ctx context.Context, parameterID string, minThreshold, maxThreshold float64, unit string) (*database.Parameter, error)
	ListMeasurementsFn          func(ctx context.Context, parameterID *string, limit, offset int) (*database.MeasurementListResult, error)
	RecentMeasurementsFn        func(ctx context.Context, parameterID string, limit int) ([]*database.Measurement, error)
	MeasurementsInRangeFn       func(ctx context.Context, parameterID *string, from, to time.Time) ([]*database.Measurement, error)
	AlertMeasurementsFn         func(ctx context.Context, parameterID *string, limit int) ([]*database.Measurement, error)
	GetSummaryFn                func(ctx context.Context) (*database.Summary, error)
}

func (m *mockRepository) CreateParameter(ctx context.Context, kind string, minThreshold, maxThreshold float64, unit string) (*database.Parameter, error) {
	if m.CreateParameterFn != nil {
		return m.CreateParameterFn(ctx, kind, minThreshold, maxThreshold, unit)
	}
	return &database.Parameter{ID: "param-1", Kind: kind, MinThreshold: minThreshold, MaxThreshold: maxThreshold, Unit: unit}, nil
}

func (m *mockRepository) GetParameter(ctx context.Context, parameterID string) (*database.Parameter, error) {
	if m.GetParameterFn != nil {
		return m.GetParameterFn(ctx, parameterID)
	}
	return &database.Parameter{ID: parameterID, Kind: "temperature", MinThreshold: 15, MaxThreshold: 30, Unit: "°C"}, nil
}

func (m *mockRepository) GetParameterByKind(ctx context.Context, kind string) (*database.Parameter, error) {
	if m.GetParameterByKindFn != nil {
		return m.GetParameterByKindFn(ctx, kind)
	}
	return &database.Parameter{ID: "param-1", Kind: kind}, nil
}

func (m *mockRepository) ListParameters(ctx context.Context) ([]*database.Parameter, error) {
	if m.ListParametersFn != nil {
		return m.ListParametersFn(ctx)
	}
	return []*database.Parameter{}, nil
}

func (m *mockRepository) UpdateParameterThresholds(ctx context.Context, parameterID string, minThreshold, maxThreshold float64, unit string) (*database.Parameter, error) {
	if m.UpdateParameterThresholdsFn != nil {
		return m.UpdateParameterThresholdsFn(ctx, parameterID, minThreshold, maxThreshold, unit)
	}
	return &database.Parameter{ID: parameterID, MinThreshold: minThreshold, MaxThreshold: maxThreshold, Unit: unit}, nil
}

func (m *mockRepository) ListMeasurements(ctx context.Context, parameterID *string, limit, offset int) (*database.MeasurementListResult, error) {
	if m.ListMeasurementsFn != nil {
		return m.ListMeasurementsFn(ctx, parameterID, limit, offset)
	}
	return &database.MeasurementListResult{Measurements: []*database.Measurement{}, Limit: limit, Offset: offset}, nil
}

func (m *mockRepository) RecentMeasurements(ctx context.Context, parameterID string, limit int) ([]*database.Measurement, error) {
	if m.RecentMeasurementsFn != nil {
		return m.RecentMeasurementsFn(ctx, parameterID, limit)
	}
	return []*database.Measurement{}, nil
}

func (m *mockRepository) MeasurementsInRange(ctx context.Context, parameterID *string, from, to time.Time) ([]*database.Measurement, error) {
	if m.MeasurementsInRangeFn != nil {
		return m.MeasurementsInRangeFn(ctx, parameterID, from, to)
	}
	return []*database.Measurement{}, nil
}

func (m *mockRepository) AlertMeasurements(ctx context.Context, parameterID *string, limit int) ([]*database.Measurement, error) {
	if m.AlertMeasurementsFn != nil {
		return m.AlertMeasurementsFn(ctx, parameterID, limit)
	}
	return []*database.Measurement{}, nil
}

func (m *mockRepository) GetSummary(ctx context.Context) (*database.Summary, error) {
	if m.GetSummaryFn != nil {
		return m.GetSummaryFn(ctx)
	}
	return &database.Summary{ByKind: map[string]database.KindStats{}}, nil
}

// mockRecorder implements MeasurementRecorder for testing.
type mockRecorder struct {
	RecordMeasurementFn func(ctx context.Context, req evaluator.MeasurementRequest) (*evaluator.Recorded, error)
}

func (m *mockRecorder) RecordMeasurement(ctx context.Context, req evaluator.MeasurementRequest) (*evaluator.Recorded, error) {
	if m.RecordMeasurementFn != nil {
		return m.RecordMeasurementFn(ctx, req)
	}
	param := &database.Parameter{ID: req.ParameterID, Kind: "temperature", MinThreshold: 15, MaxThreshold: 30, Unit: "°C"}
	ev := evaluator.Evaluate(req.Value, param.MinThreshold, param.MaxThreshold)
	return &evaluator.Recorded{
		Measurement: &database.Measurement{ID: "meas-1", ParameterID: req.ParameterID, Value: req.Value, Alert: ev.IsAlert},
		Parameter:   param,
		Evaluation:  ev,
	}, nil
}
