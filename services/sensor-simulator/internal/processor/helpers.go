package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mohamedlandolsi/greenhouse-management-system/services/sensor-simulator/internal/generator"
)

// progress tracks one run for rate reporting.
type progress struct {
	start   time.Time
	lastLog time.Time
	sent    int
}

func newProgress() *progress {
	now := time.Now()
	return &progress{start: now, lastLog: now}
}

// due reports whether interval has passed since the last periodic log, and resets it.
func (pr *progress) due(interval time.Duration) bool {
	if time.Since(pr.lastLog) < interval {
		return false
	}
	pr.lastLog = time.Now()
	return true
}

func (pr *progress) attrs() []any {
	elapsed := time.Since(pr.start)
	return []any{
		"sent", pr.sent,
		"elapsed_sec", formatDuration(elapsed),
		"rate_per_sec", formatRate(calculateRate(pr.sent, elapsed)),
	}
}

// step sends one reading and advances pr. The first reading is logged in full.
func (p *Processor) step(ctx context.Context, pr *progress) error {
	reading, err := p.send(ctx, pr.sent+1)
	if err != nil {
		if isCancelled(ctx, err) {
			slog.Warn("Submission cancelled", "sent", pr.sent)
		}
		return err
	}
	pr.sent++
	if pr.sent == 1 {
		logReadingDetails("Sent first reading (sample)", reading)
	}
	return nil
}

// isCancelled checks if an error is due to context cancellation.
func isCancelled(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled)
}

// handlePostError returns context.Canceled when the run was cancelled, otherwise logs
// and wraps err.
func handlePostError(ctx context.Context, r *generator.Reading, err error, number int) error {
	if isCancelled(ctx, err) {
		return context.Canceled
	}

	slog.Error("Failed to submit measurement",
		"parameter_id", r.ParameterID,
		"kind", r.Kind,
		"value", r.Value,
		"reading_number", number,
		"error", err,
	)
	return fmt.Errorf("failed to submit reading %d: %w", number, err)
}

func logReadingDetails(message string, r *generator.Reading) {
	slog.Info(message,
		"parameter_id", r.ParameterID,
		"kind", r.Kind,
		"value", r.Value,
		"unit", r.Unit,
		"out_of_band", r.OutOfBand,
		"measured_at", r.MeasuredAt,
	)
}

func calculateRate(count int, elapsed time.Duration) float64 {
	if s := elapsed.Seconds(); s > 0 {
		return float64(count) / s
	}
	return 0
}

func formatDuration(d time.Duration) string { return fmt.Sprintf("%.2f", d.Seconds()) }
func formatRate(rate float64) string        { return fmt.Sprintf("%.2f", rate) }
