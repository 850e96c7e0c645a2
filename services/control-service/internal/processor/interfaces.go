package processor

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/publisher"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/decision"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/events"
)

// MessageReader reads raw alert messages and commits their offsets.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AlertHandler turns an alert into a corrective action.
type AlertHandler interface {
	HandleAlert(ctx context.Context, alert *events.AlertEvent) (*decision.Outcome, error)
}

// DeadLetterer routes a record to its dead-letter topic.
type DeadLetterer interface {
	DeadLetter(ctx context.Context, rec publisher.Record, cause error, extra map[string]string) publisher.Result
}

// MetricsRecorder defines the metrics operations needed by the processor.
type MetricsRecorder interface {
	RecordReceived()
	RecordAlert(outcome string, latency time.Duration)
	RecordRetry()
}

// NoOpMetrics is a null-object implementation of MetricsRecorder.
type NoOpMetrics struct{}

var _ MetricsRecorder = NoOpMetrics{}

func (NoOpMetrics) RecordReceived()                   {}
func (NoOpMetrics) RecordAlert(string, time.Duration) {}
func (NoOpMetrics) RecordRetry()                      {}
