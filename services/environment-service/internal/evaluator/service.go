package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/apperrors"
	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/publisher"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/environment-service/internal/database"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/environment-service/internal/events"
)

// Repository is the storage the evaluator needs.
type Repository interface {
	GetParameter(ctx context.Context, parameterID string) (*database.Parameter, error)
	CreateMeasurement(ctx context.Context, parameterID string, value float64, measuredAt time.Time, alert bool) (*database.Measurement, error)
}

// EventPublisher publishes measurement and alert events.
type EventPublisher interface {
	PublishMeasurement(ctx context.Context, event *events.MeasurementEvent) publisher.Result
	PublishAlert(ctx context.Context, event *events.AlertEvent) publisher.Result
}

// MetricsRecorder defines the metrics operations needed by the service.
type MetricsRecorder interface {
	RecordProcessed(latency time.Duration)
	RecordError()
	IncrementCustom(name string)
}

// NoOpMetrics is a null-object implementation of MetricsRecorder.
type NoOpMetrics struct{}

var _ MetricsRecorder = NoOpMetrics{}

func (NoOpMetrics) RecordProcessed(time.Duration) {}
func (NoOpMetrics) RecordError()                  {}
func (NoOpMetrics) IncrementCustom(string)        {}

// MeasurementRequest is a validated measurement submission. MeasuredAt defaults to now.
type MeasurementRequest struct {
	ParameterID string
	Value       float64
	MeasuredAt  *time.Time
}

// Recorded is the stored measurement together with the threshold snapshot it was judged against.
type Recorded struct {
	Measurement *database.Measurement
	Parameter   *database.Parameter
	Evaluation  Evaluation
	Alert       *events.AlertEvent // nil when the value is inside the band
}

// Service stores measurements and emits their events.
type Service struct {
	repo      Repository
	publisher EventPublisher
	metrics   MetricsRecorder
	now       func() time.Time
}

// NewService creates a measurement service. If m is nil, a no-op implementation is used.
func NewService(repo Repository, pub EventPublisher, m MetricsRecorder) *Service {
	if m == nil {
		m = NoOpMetrics{}
	}
	return &Service{
		repo:      repo,
		publisher: pub,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RecordMeasurement evaluates, persists and publishes one measurement.
// Publish failures are compensated by the publisher and never fail the call,
// because the measurement is already committed.
func (s *Service) RecordMeasurement(ctx context.Context, req MeasurementRequest) (*Recorded, error) {
	start := time.Now()

	if strings.TrimSpace(req.ParameterID) == "" {
		return nil, fmt.Errorf("parameter_id is required: %w", apperrors.ErrInvalidArgument)
	}

	param, err := s.repo.GetParameter(ctx, req.ParameterID)
	if err != nil {
		s.metrics.RecordError()
		return nil, err
	}

	measuredAt := s.now()
	if req.MeasuredAt != nil && !req.MeasuredAt.IsZero() {
		measuredAt = req.MeasuredAt.UTC()
	}

	ev := Evaluate(req.Value, param.MinThreshold, param.MaxThreshold)

	m, err := s.repo.CreateMeasurement(ctx, param.ID, req.Value, measuredAt, ev.IsAlert)
	if err != nil {
		s.metrics.RecordError()
		return nil, err
	}

	s.metrics.IncrementCustom("measurements_recorded")

	s.publisher.PublishMeasurement(ctx, s.measurementEvent(m, param, ev))

	rec := &Recorded{Measurement: m, Parameter: param, Evaluation: ev}
	if ev.IsAlert {
		rec.Alert = s.alertEvent(m, param, ev)
		s.metrics.IncrementCustom("alerts_detected")

		slog.Info("Threshold violation detected",
			"measurement_id", m.ID,
			"parameter_id", param.ID,
			"kind", param.Kind,
			"value", m.Value,
			"direction", ev.Direction,
			"severity", ev.Severity,
			"event_id", rec.Alert.EventID,
		)

		s.publisher.PublishAlert(ctx, rec.Alert)
	}

	s.metrics.RecordProcessed(time.Since(start))
	return rec, nil
}

func (s *Service) measurementEvent(m *database.Measurement, p *database.Parameter, ev Evaluation) *events.MeasurementEvent {
	return &events.MeasurementEvent{
		EventID:        events.NewEventID(),
		MeasurementID:  m.ID,
		ParameterID:    p.ID,
		ParameterType:  p.Kind,
		Value:          m.Value,
		Unit:           p.Unit,
		MinThreshold:   p.MinThreshold,
		MaxThreshold:   p.MaxThreshold,
		IsAlert:        ev.IsAlert,
		MeasuredAt:     m.MeasuredAt,
		EventTimestamp: s.now(),
	}
}

func (s *Service) alertEvent(m *database.Measurement, p *database.Parameter, ev Evaluation) *events.AlertEvent {
	return &events.AlertEvent{
		EventID:        events.NewEventID(),
		MeasurementID:  m.ID,
		ParameterID:    p.ID,
		ParameterType:  p.Kind,
		Value:          m.Value,
		MinThreshold:   p.MinThreshold,
		MaxThreshold:   p.MaxThreshold,
		MeasuredAt:     m.MeasuredAt,
		Severity:       ev.Severity,
		Message:        AlertMessage(p.Kind, m.Value, p.Unit, p.MinThreshold, p.MaxThreshold),
		EventTimestamp: s.now(),
	}
}

// AlertMessage renders the human-readable alert text.
func AlertMessage(kind string, value float64, unit string, min, max float64) string {
	return fmt.Sprintf("Alert: %s value %s%s is outside threshold [%s - %s]",
		kind, formatFloat(value), unit, formatFloat(min), formatFloat(max))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
