// Package processor consumes alert events and drives them through deduplication,
// decisioning and execution. An offset is committed only once its message has been
// handled, skipped, or dead-lettered.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/apperrors"
	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/publisher"
	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/retry"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/dedup"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/events"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/observability"
)

// Dead-letter headers describing where the original message came from.
const (
	HeaderOriginalPartition = "x-original-partition"
	HeaderOriginalOffset    = "x-original-offset"
	HeaderAttempts          = "x-attempts"
)

// Config bounds per-message handling.
type Config struct {
	MaxRetries   int
	RetryBackoff time.Duration
}

// Processor handles alert messages. It is safe for concurrent use by several workers.
type Processor struct {
	handler    AlertHandler
	deadLetter DeadLetterer
	seen       dedup.Store
	metrics    MetricsRecorder
	policy     retry.Config
	dlqPolicy  retry.Config
}

// NewProcessor creates a processor. If m is nil, a no-op implementation is used.
func NewProcessor(handler AlertHandler, dl DeadLetterer, seen dedup.Store, cfg Config, m MetricsRecorder) *Processor {
	if m == nil {
		m = NoOpMetrics{}
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	dlqPolicy := retry.DefaultConfig()
	dlqPolicy.Retryable = func(err error) bool { return errors.Is(err, apperrors.ErrTransientPublish) }
	return &Processor{
		handler:    handler,
		deadLetter: dl,
		seen:       seen,
		metrics:    m,
		policy:     retry.Fixed(cfg.MaxRetries, cfg.RetryBackoff),
		dlqPolicy:  dlqPolicy,
	}
}

// Run fetches and handles messages from reader until ctx is cancelled.
func (p *Processor) Run(ctx context.Context, reader MessageReader) error {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("Failed to fetch alert message", "error", err)
			if !sleep(ctx, time.Second) {
				return nil
			}
			continue
		}

		p.metrics.RecordReceived()
		if !p.HandleMessage(ctx, msg) {
			// Cancelled mid-message: leave the offset uncommitted for redelivery.
			return nil
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("Failed to commit offset",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// HandleMessage processes one message and reports whether its offset may be committed.
// It returns false only when ctx was cancelled before the message reached a final outcome.
func (p *Processor) HandleMessage(ctx context.Context, msg kafka.Message) bool {
	start := time.Now()

	if events.IsEmpty(msg.Value) {
		slog.Warn("Skipping empty alert message", "partition", msg.Partition, "offset", msg.Offset)
		p.metrics.RecordAlert(observability.OutcomeEmpty, time.Since(start))
		return true
	}

	alert, err := events.DecodeAlert(msg.Value)
	if err != nil {
		slog.Warn("Malformed alert message", "partition", msg.Partition, "offset", msg.Offset, "error", err)
		return p.sendToDLQ(ctx, msg, err, 1, observability.OutcomeMalformed, start)
	}

	if p.isDuplicate(ctx, alert.EventID) {
		slog.Info("Skipping duplicate alert", "event_id", alert.EventID)
		p.metrics.RecordAlert(observability.OutcomeDuplicate, time.Since(start))
		return true
	}

	out := retry.Do(ctx, p.policy, "handle_alert", func(ctx context.Context) error {
		_, err := p.handler.HandleAlert(ctx, alert)
		return err
	})
	for i := 1; i < out.Attempts; i++ {
		p.metrics.RecordRetry()
	}

	if out.Err == nil {
		if err := p.seen.Mark(ctx, alert.EventID); err != nil {
			slog.Warn("Failed to record processed alert", "event_id", alert.EventID, "error", err)
		}
		p.metrics.RecordAlert(observability.OutcomeProcessed, time.Since(start))
		return true
	}

	if ctx.Err() != nil {
		slog.Info("Alert processing interrupted", "event_id", alert.EventID)
		return false
	}

	slog.Error("Alert processing failed, routing to dead-letter topic",
		"event_id", alert.EventID,
		"parameter_type", alert.ParameterType,
		"attempts", out.Attempts,
		"exhausted", out.Exhausted,
		"error", out.Err,
	)
	return p.sendToDLQ(ctx, msg, out.Err, out.Attempts, observability.OutcomeDeadLettered, start)
}

// isDuplicate consults the dedup store. A store failure is treated as unseen; the
// unique source event id on actions still prevents a second action.
func (p *Processor) isDuplicate(ctx context.Context, eventID string) bool {
	seen, err := p.seen.Seen(ctx, eventID)
	if err != nil {
		slog.Warn("Dedup lookup failed", "event_id", eventID, "error", err)
		return false
	}
	return seen
}

func (p *Processor) sendToDLQ(ctx context.Context, msg kafka.Message, cause error, attempts int, outcome string, start time.Time) bool {
	rec := publisher.Record{
		Topic:   msg.Topic,
		Key:     string(msg.Key),
		Value:   msg.Value,
		Headers: headerMap(msg.Headers),
	}
	extra := map[string]string{
		HeaderOriginalPartition: strconv.Itoa(msg.Partition),
		HeaderOriginalOffset:    strconv.FormatInt(msg.Offset, 10),
		HeaderAttempts:          strconv.Itoa(attempts),
	}

	err := retry.WithRetry(ctx, p.dlqPolicy, "dead_letter", func() error {
		res := p.deadLetter.DeadLetter(ctx, rec, cause, extra)
		switch res.Status {
		case publisher.StatusSuccess:
			return nil
		case publisher.StatusRetryable:
			return fmt.Errorf("%w: %v", apperrors.ErrTransientPublish, res.Err)
		default:
			return res.Err
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		slog.Error("Dropping alert message that could not be dead-lettered",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		p.metrics.RecordAlert(observability.OutcomeFailed, time.Since(start))
		return true
	}

	p.metrics.RecordAlert(outcome, time.Since(start))
	return true
}

func headerMap(hs []kafka.Header) map[string]string {
	if len(hs) == 0 {
		return nil
	}
	out := make(map[string]string, len(hs))
	for _, h := range hs {
		out[h.Key] = string(h.Value)
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// ReaderFactory creates one reader per worker.
type ReaderFactory func() (MessageReader, error)

// RunWorkers starts workers goroutines, each with its own reader in the same consumer
// group, and blocks until all of them have stopped.
func (p *Processor) RunWorkers(ctx context.Context, workers int, newReader ReaderFactory) error {
	if workers < 1 {
		workers = 1
	}

	readers := make([]MessageReader, 0, workers)
	for i := 0; i < workers; i++ {
		r, err := newReader()
		if err != nil {
			for _, opened := range readers {
				opened.Close()
			}
			return fmt.Errorf("failed to create reader for worker %d: %w", i, err)
		}
		readers = append(readers, r)
	}

	slog.Info("Starting alert consumer workers", "workers", workers)

	var wg sync.WaitGroup
	for i, r := range readers {
		wg.Add(1)
		go func(id int, reader MessageReader) {
			defer wg.Done()
			defer reader.Close()
			if err := p.Run(ctx, reader); err != nil {
				slog.Error("Alert consumer worker stopped", "worker", id, "error", err)
				return
			}
			slog.Info("Alert consumer worker stopped", "worker", id)
		}(i, r)
	}
	wg.Wait()
	return nil
}
