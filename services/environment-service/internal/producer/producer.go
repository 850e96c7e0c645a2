// Package producer publishes measurement and alert events, routing alert events
// that could not be delivered to the alerts dead-letter topic.
package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/publisher"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/environment-service/internal/events"
)

// MetricsRecorder defines the metrics operations needed by the producer.
type MetricsRecorder interface {
	RecordPublished()
	RecordError()
	RecordDeadLettered()
	IncrementCustom(name string)
}

// NoOpMetrics is a null-object implementation of MetricsRecorder.
type NoOpMetrics struct{}

func (NoOpMetrics) RecordPublished()       {}
func (NoOpMetrics) RecordError()           {}
func (NoOpMetrics) RecordDeadLettered()    {}
func (NoOpMetrics) IncrementCustom(string) {}

// Producer serializes events and hands them to a RecordPublisher.
type Producer struct {
	pub               publisher.RecordPublisher
	measurementsTopic string
	alertsTopic       string
	metrics           MetricsRecorder
	timeout           time.Duration
}

// NewProducer creates a producer for the given topics. If m is nil, a no-op implementation is used.
func NewProducer(pub publisher.RecordPublisher, measurementsTopic, alertsTopic string, m MetricsRecorder) (*Producer, error) {
	if measurementsTopic == "" {
		return nil, fmt.Errorf("measurements topic cannot be empty")
	}
	if alertsTopic == "" {
		return nil, fmt.Errorf("alerts topic cannot be empty")
	}
	if m == nil {
		m = NoOpMetrics{}
	}
	return &Producer{
		pub:               pub,
		measurementsTopic: measurementsTopic,
		alertsTopic:       alertsTopic,
		metrics:           m,
		timeout:           publisher.PublishTimeout,
	}, nil
}

// PublishMeasurement publishes a measurement event keyed by parameter id.
// Failures are logged only; the measurement stream is best-effort.
// The caller's cancellation is ignored since the measurement is already stored.
func (p *Producer) PublishMeasurement(ctx context.Context, event *events.MeasurementEvent) publisher.Result {
	ctx, cancel := publisher.Detach(ctx, p.timeout)
	defer cancel()

	payload, err := json.Marshal(event)
	if err != nil {
		p.metrics.RecordError()
		return publisher.Result{Status: publisher.StatusFatal, Err: fmt.Errorf("failed to marshal measurement event: %w", err)}
	}

	res := p.pub.Publish(ctx, publisher.Record{
		Topic: p.measurementsTopic,
		Key:   event.ParameterID,
		Value: payload,
		Headers: map[string]string{
			"event_type": "measurement",
			"event_id":   event.EventID,
		},
	})
	if !res.OK() {
		p.metrics.RecordError()
		slog.Warn("Failed to publish measurement event",
			"event_id", event.EventID,
			"measurement_id", event.MeasurementID,
			"parameter_id", event.ParameterID,
			"status", res.Status,
			"error", res.Err,
		)
		return res
	}

	p.metrics.RecordPublished()
	slog.Debug("Published measurement event",
		"event_id", event.EventID,
		"parameter_id", event.ParameterID,
		"partition", res.Partition,
		"offset", res.Offset,
	)
	return res
}

// PublishAlert publishes an alert event keyed by parameter id. A retryable failure
// is compensated by sending the same record to the alerts dead-letter topic.
// Both sends run on a detached context bounded by the publish timeout.
func (p *Producer) PublishAlert(ctx context.Context, event *events.AlertEvent) publisher.Result {
	ctx, cancel := publisher.Detach(ctx, p.timeout)
	defer cancel()

	payload, err := json.Marshal(event)
	if err != nil {
		p.metrics.RecordError()
		return publisher.Result{Status: publisher.StatusFatal, Err: fmt.Errorf("failed to marshal alert event: %w", err)}
	}

	rec := publisher.Record{
		Topic: p.alertsTopic,
		Key:   event.ParameterID,
		Value: payload,
		Headers: map[string]string{
			"event_type": "alert",
			"event_id":   event.EventID,
			"severity":   event.Severity,
		},
	}

	res := p.pub.Publish(ctx, rec)
	switch res.Status {
	case publisher.StatusSuccess:
		p.metrics.RecordPublished()
		p.metrics.IncrementCustom("alerts_published")
		slog.Info("Published alert event",
			"event_id", event.EventID,
			"parameter_id", event.ParameterID,
			"severity", event.Severity,
			"partition", res.Partition,
			"offset", res.Offset,
		)
	case publisher.StatusRetryable:
		p.metrics.RecordError()
		p.deadLetter(ctx, rec, event.EventID, res.Err)
	default:
		p.metrics.RecordError()
		slog.Error("Alert event cannot be published",
			"event_id", event.EventID,
			"parameter_id", event.ParameterID,
			"error", res.Err,
		)
	}
	return res
}

func (p *Producer) deadLetter(ctx context.Context, rec publisher.Record, eventID string, cause error) {
	dlq := publisher.DeadLetter(rec, cause, map[string]string{"x-original-topic": rec.Topic})

	slog.Warn("Alert publish failed, routing to dead-letter topic",
		"event_id", eventID,
		"topic", rec.Topic,
		"dlq_topic", dlq.Topic,
		"error", cause,
	)

	if res := p.pub.Publish(ctx, dlq); !res.OK() {
		slog.Error("Failed to publish alert to dead-letter topic",
			"event_id", eventID,
			"dlq_topic", dlq.Topic,
			"error", res.Err,
		)
		return
	}
	p.metrics.RecordDeadLettered()
	p.metrics.IncrementCustom("dlq_routed")
}

// Close closes the underlying publisher.
func (p *Producer) Close() error {
	return p.pub.Close()
}
