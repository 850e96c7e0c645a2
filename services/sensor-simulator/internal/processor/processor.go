// Package processor drives measurement generation and submission in burst or
// continuous mode.
package processor

import (
	"context"
	"time"

	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/retry"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/sensor-simulator/internal/client"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/sensor-simulator/internal/config"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/sensor-simulator/internal/generator"
)

const (
	// progressLogInterval defines how often to log progress in continuous mode
	progressLogInterval = 5 * time.Second
	// burstProgressInterval defines how often to log progress in burst mode (every N readings)
	burstProgressInterval = 100
)

// Custom counter names recorded alongside the standard metrics.
const (
	CounterAlertsRaised   = "alerts_raised"
	CounterOutOfBand      = "out_of_band_sent"
	CounterThresholdDrift = "threshold_drift"
)

// Processor orchestrates reading generation and submission.
type Processor struct {
	source  ReadingSource
	poster  MeasurementPoster
	cfg     *config.Config
	retry   retry.Config
	metrics MetricsRecorder
}

// NewProcessor creates a processor. A nil m disables metrics.
func NewProcessor(source ReadingSource, poster MeasurementPoster, cfg *config.Config, m MetricsRecorder) *Processor {
	if m == nil {
		m = NoOpMetrics{}
	}
	policy := retry.DefaultConfig()
	policy.MaxRetries = cfg.MaxRetries

	return &Processor{
		source:  source,
		poster:  poster,
		cfg:     cfg,
		retry:   policy,
		metrics: m,
	}
}

// Process runs burst mode when a burst size is configured, continuous mode otherwise.
func (p *Processor) Process(ctx context.Context) error {
	if p.cfg.BurstSize > 0 {
		return p.runBurstMode(ctx)
	}
	return p.runContinuousMode(ctx)
}

// send generates one reading and posts it, retrying transient failures.
func (p *Processor) send(ctx context.Context, number int) (*generator.Reading, error) {
	start := time.Now()
	reading := p.source.Generate()

	var result *client.MeasurementResult
	out := retry.Do(ctx, p.retry, "post_measurement", func(ctx context.Context) error {
		var err error
		result, err = p.poster.PostMeasurement(ctx, reading)
		return err
	})
	if out.Err != nil {
		p.metrics.RecordError()
		return reading, handlePostError(ctx, reading, out.Err, number)
	}

	p.metrics.RecordProcessed(time.Since(start))
	p.metrics.RecordPublished()
	if reading.OutOfBand {
		p.metrics.IncrementCustom(CounterOutOfBand)
	}
	if result.Alert {
		p.metrics.IncrementCustom(CounterAlertsRaised)
	}
	// Thresholds changed after discovery, so the service judged the reading differently.
	if result.Alert != reading.OutOfBand {
		p.metrics.IncrementCustom(CounterThresholdDrift)
	}
	return reading, nil
}
