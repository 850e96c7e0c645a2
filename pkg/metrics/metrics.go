// Package metrics collects per-service pipeline counters and publishes them to Redis,
// where any service (or an operator) can read the latest snapshot.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// KeyPrefix is the Redis key prefix for service metrics.
	KeyPrefix = "greenhouse:metrics:"
	// TTL is how long a snapshot stays in Redis if not refreshed.
	TTL = 2 * time.Minute
	// DefaultReportInterval is the default interval for writing snapshots to Redis.
	DefaultReportInterval = 30 * time.Second
)

// Snapshot is the JSON document stored in Redis for one service.
type Snapshot struct {
	ServiceName string    `json:"service_name"`
	StartedAt   time.Time `json:"started_at"`
	LastUpdated time.Time `json:"last_updated"`
	Status      string    `json:"status"` // "healthy", "stale" or "offline"

	Received     uint64 `json:"received"`
	Processed    uint64 `json:"processed"`
	Published    uint64 `json:"published"`
	Errors       uint64 `json:"errors"`
	DeadLettered uint64 `json:"dead_lettered"`
	Deduplicated uint64 `json:"deduplicated"`

	ProcessedPerSecond     float64 `json:"processed_per_second"`
	AvgProcessingLatencyMs float64 `json:"avg_processing_latency_ms"`

	Custom map[string]uint64 `json:"custom,omitempty"`
}

// Collector accumulates counters with atomics and flushes them periodically.
type Collector struct {
	serviceName    string
	redis          redis.Cmdable
	startedAt      time.Time
	reportInterval time.Duration

	received     atomic.Uint64
	processed    atomic.Uint64
	published    atomic.Uint64
	errors       atomic.Uint64
	deadLettered atomic.Uint64
	deduplicated atomic.Uint64

	totalLatencyNs atomic.Uint64

	rateMu        sync.Mutex
	lastFlush     time.Time
	lastProcessed uint64

	customMu sync.RWMutex
	custom   map[string]*atomic.Uint64

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewCollector creates a collector for serviceName. A nil client disables flushing,
// which keeps counters usable in tests and when Redis is not configured.
func NewCollector(serviceName string, client redis.Cmdable) *Collector {
	now := time.Now().UTC()
	return &Collector{
		serviceName:    serviceName,
		redis:          client,
		startedAt:      now,
		reportInterval: DefaultReportInterval,
		lastFlush:      now,
		custom:         make(map[string]*atomic.Uint64),
		stopCh:         make(chan struct{}),
	}
}

// SetReportInterval sets the flush interval. Call before Start.
func (c *Collector) SetReportInterval(interval time.Duration) {
	if interval > 0 {
		c.reportInterval = interval
	}
}

// Start flushes snapshots every report interval until ctx is done or Stop is called.
func (c *Collector) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.reportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				c.Flush(context.Background())
				return
			case <-c.stopCh:
				c.Flush(context.Background())
				return
			case <-ticker.C:
				c.Flush(ctx)
			}
		}
	}()
}

// Stop stops the flush loop and waits for the final write.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
}

func (c *Collector) RecordReceived()  { c.received.Add(1) }
func (c *Collector) RecordPublished() { c.published.Add(1) }
func (c *Collector) RecordError()     { c.errors.Add(1) }

// RecordProcessed counts a completed unit of work and its latency.
func (c *Collector) RecordProcessed(latency time.Duration) {
	c.processed.Add(1)
	c.totalLatencyNs.Add(uint64(latency.Nanoseconds()))
}

// RecordDeadLettered counts a record routed to a dead-letter topic.
func (c *Collector) RecordDeadLettered() { c.deadLettered.Add(1) }

// RecordDeduplicated counts a redelivered event skipped by idempotency checks.
func (c *Collector) RecordDeduplicated() { c.deduplicated.Add(1) }

// IncrementCustom increments a named counter.
func (c *Collector) IncrementCustom(name string) {
	c.counter(name).Add(1)
}

func (c *Collector) counter(name string) *atomic.Uint64 {
	c.customMu.RLock()
	counter, ok := c.custom[name]
	c.customMu.RUnlock()
	if ok {
		return counter
	}

	c.customMu.Lock()
	defer c.customMu.Unlock()
	if counter, ok = c.custom[name]; !ok {
		counter = &atomic.Uint64{}
		c.custom[name] = counter
	}
	return counter
}

// Snapshot returns the current counters without writing them anywhere.
func (c *Collector) Snapshot() *Snapshot {
	now := time.Now().UTC()
	processed := c.processed.Load()

	c.rateMu.Lock()
	var rate float64
	if elapsed := now.Sub(c.lastFlush).Seconds(); elapsed > 0 {
		rate = float64(processed-c.lastProcessed) / elapsed
	}
	c.rateMu.Unlock()

	var avgMs float64
	if processed > 0 {
		avgMs = float64(c.totalLatencyNs.Load()) / float64(processed) / float64(time.Millisecond)
	}

	c.customMu.RLock()
	custom := make(map[string]uint64, len(c.custom))
	for name, counter := range c.custom {
		custom[name] = counter.Load()
	}
	c.customMu.RUnlock()

	return &Snapshot{
		ServiceName:            c.serviceName,
		StartedAt:              c.startedAt,
		LastUpdated:            now,
		Status:                 "healthy",
		Received:               c.received.Load(),
		Processed:              processed,
		Published:              c.published.Load(),
		Errors:                 c.errors.Load(),
		DeadLettered:           c.deadLettered.Load(),
		Deduplicated:           c.deduplicated.Load(),
		ProcessedPerSecond:     rate,
		AvgProcessingLatencyMs: avgMs,
		Custom:                 custom,
	}
}

// Flush writes the current snapshot to Redis with TTL.
func (c *Collector) Flush(ctx context.Context) {
	if c.redis == nil {
		return
	}

	snap := c.Snapshot()

	c.rateMu.Lock()
	c.lastFlush = snap.LastUpdated
	c.lastProcessed = snap.Processed
	c.rateMu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		slog.Error("Failed to marshal metrics", "service", c.serviceName, "error", err)
		return
	}

	key := KeyPrefix + c.serviceName
	if err := c.redis.Set(ctx, key, data, TTL).Err(); err != nil {
		slog.Error("Failed to write metrics to Redis", "service", c.serviceName, "error", err)
		return
	}

	slog.Debug("Metrics written to Redis", "service", c.serviceName, "key", key)
}

// Reader reads service snapshots from Redis.
type Reader struct {
	redis redis.Cmdable
}

// NewReader creates a new metrics reader.
func NewReader(client redis.Cmdable) *Reader {
	return &Reader{redis: client}
}

// Get retrieves the snapshot for one service. Snapshots older than TTL are marked stale.
func (r *Reader) Get(ctx context.Context, serviceName string) (*Snapshot, error) {
	data, err := r.redis.Get(ctx, KeyPrefix+serviceName).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("no metrics found for service: %s", serviceName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metrics: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
	}
	if time.Since(snap.LastUpdated) > TTL {
		snap.Status = "stale"
	}
	return &snap, nil
}

// GetAll retrieves snapshots for every known greenhouse service, skipping missing ones.
func (r *Reader) GetAll(ctx context.Context) map[string]*Snapshot {
	result := make(map[string]*Snapshot, len(ServiceNames))
	for _, name := range ServiceNames {
		snap, err := r.Get(ctx, name)
		if err != nil {
			slog.Debug("No metrics for service", "service", name, "error", err)
			continue
		}
		result[name] = snap
	}
	return result
}

// ServiceNames is the list of greenhouse services that report metrics.
var ServiceNames = []string{
	"environment-service",
	"control-service",
}
