// Package producer publishes equipment action events and raw dead-letter records.
package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/publisher"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/events"
)

// MetricsRecorder defines the metrics operations needed by the producer.
type MetricsRecorder interface {
	RecordPublish(topic, status string)
	RecordDeadLettered(topic string)
}

// NoOpMetrics is a null-object implementation of MetricsRecorder.
type NoOpMetrics struct{}

func (NoOpMetrics) RecordPublish(string, string) {}
func (NoOpMetrics) RecordDeadLettered(string)    {}

// Producer publishes action events keyed by equipment id.
type Producer struct {
	pub          publisher.RecordPublisher
	actionsTopic string
	metrics      MetricsRecorder
	timeout      time.Duration
}

// NewProducer creates a producer for actionsTopic. If m is nil, a no-op implementation is used.
func NewProducer(pub publisher.RecordPublisher, actionsTopic string, m MetricsRecorder) (*Producer, error) {
	if actionsTopic == "" {
		return nil, fmt.Errorf("actions topic cannot be empty")
	}
	if m == nil {
		m = NoOpMetrics{}
	}
	return &Producer{pub: pub, actionsTopic: actionsTopic, metrics: m, timeout: publisher.PublishTimeout}, nil
}

// PublishAction publishes an equipment action event. A retryable failure is compensated
// by sending the same record to the actions dead-letter topic. The action is already
// stored, so the caller's cancellation does not stop the send.
func (p *Producer) PublishAction(ctx context.Context, event *events.EquipmentActionEvent) publisher.Result {
	ctx, cancel := publisher.Detach(ctx, p.timeout)
	defer cancel()

	payload, err := json.Marshal(event)
	if err != nil {
		return publisher.Result{Status: publisher.StatusFatal, Err: fmt.Errorf("failed to marshal action event: %w", err)}
	}

	rec := publisher.Record{
		Topic: p.actionsTopic,
		Key:   event.EquipmentID,
		Value: payload,
		Headers: map[string]string{
			"event_type": "equipment_action",
			"event_id":   event.EventID,
			"status":     event.Status,
		},
	}

	res := p.pub.Publish(ctx, rec)
	p.metrics.RecordPublish(rec.Topic, res.Status.String())

	switch res.Status {
	case publisher.StatusSuccess:
		slog.Info("Published equipment action event",
			"event_id", event.EventID,
			"action_id", event.ActionID,
			"equipment_id", event.EquipmentID,
			"status", event.Status,
			"partition", res.Partition,
			"offset", res.Offset,
		)
	case publisher.StatusRetryable:
		slog.Warn("Action event publish failed, routing to dead-letter topic",
			"event_id", event.EventID,
			"action_id", event.ActionID,
			"error", res.Err,
		)
		p.DeadLetter(ctx, rec, res.Err, nil)
	default:
		slog.Error("Action event cannot be published",
			"event_id", event.EventID,
			"action_id", event.ActionID,
			"error", res.Err,
		)
	}
	return res
}

// DeadLetter sends rec to its topic's dead-letter topic with the failure headers.
// It runs on a detached context so records drained during shutdown still land.
func (p *Producer) DeadLetter(ctx context.Context, rec publisher.Record, cause error, extra map[string]string) publisher.Result {
	ctx, cancel := publisher.Detach(ctx, p.timeout)
	defer cancel()

	headers := map[string]string{"x-original-topic": rec.Topic}
	for k, v := range extra {
		headers[k] = v
	}
	dlq := publisher.DeadLetter(rec, cause, headers)

	res := p.pub.Publish(ctx, dlq)
	if !res.OK() {
		slog.Error("Failed to publish to dead-letter topic",
			"dlq_topic", dlq.Topic,
			"key", rec.Key,
			"error", res.Err,
		)
		p.metrics.RecordPublish(dlq.Topic, res.Status.String())
		return res
	}

	p.metrics.RecordDeadLettered(rec.Topic)
	slog.Warn("Record routed to dead-letter topic",
		"dlq_topic", dlq.Topic,
		"key", rec.Key,
		"partition", res.Partition,
		"offset", res.Offset,
	)
	return res
}

// Close closes the underlying publisher.
func (p *Producer) Close() error {
	return p.pub.Close()
}
