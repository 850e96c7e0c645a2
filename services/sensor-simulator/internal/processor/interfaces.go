package processor

import (
	"context"
	"time"

	"github.com/mohamedlandolsi/greenhouse-management-system/services/sensor-simulator/internal/client"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/sensor-simulator/internal/generator"
)

// MeasurementPoster submits readings to the environment-service.
type MeasurementPoster interface {
	PostMeasurement(ctx context.Context, r *generator.Reading) (*client.MeasurementResult, error)
}

// ReadingSource produces the next reading to submit.
type ReadingSource interface {
	Generate() *generator.Reading
}

// MetricsRecorder records run counters. *metrics.Collector satisfies it.
type MetricsRecorder interface {
	RecordError()
	RecordProcessed(duration time.Duration)
	RecordPublished()
	IncrementCustom(name string)
}

// NoOpMetrics discards every metric.
type NoOpMetrics struct{}

var _ MetricsRecorder = NoOpMetrics{}

func (NoOpMetrics) RecordError()                  {}
func (NoOpMetrics) RecordProcessed(time.Duration) {}
func (NoOpMetrics) RecordPublished()              {}
func (NoOpMetrics) IncrementCustom(string)        {}
