// Package observability exposes control-service metrics to Prometheus and mirrors the
// pipeline counters onto the Redis-backed service metrics collector.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/metrics"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/breaker"
)

const namespace = "greenhouse_control"

// Alert outcomes recorded by the consumer.
const (
	OutcomeProcessed    = "processed"
	OutcomeDuplicate    = "duplicate"
	OutcomeEmpty        = "empty"
	OutcomeMalformed    = "malformed"
	OutcomeDeadLettered = "dead_lettered"
	OutcomeFailed       = "failed"
)

// Metrics is safe to use on a nil receiver, which records nothing.
type Metrics struct {
	registry  *prometheus.Registry
	collector *metrics.Collector

	alertsTotal        *prometheus.CounterVec
	processingDuration prometheus.Histogram
	retriesTotal       prometheus.Counter
	actionsTotal       *prometheus.CounterVec
	publishTotal       *prometheus.CounterVec
	deadLetteredTotal  *prometheus.CounterVec
	breakerState       *prometheus.GaugeVec
	httpRequestsTotal  *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// New registers the control-service metrics on a fresh registry. collector may be nil.
func New(collector *metrics.Collector) *Metrics {
	m := &Metrics{
		registry:  prometheus.NewRegistry(),
		collector: collector,
		alertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_consumed_total",
			Help:      "Alert events consumed, by outcome.",
		}, []string{"outcome"}),
		processingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "alert_processing_duration_seconds",
			Help:      "Time from reading an alert to committing it.",
			Buckets:   prometheus.DefBuckets,
		}),
		retriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_retries_total",
			Help:      "Extra attempts made while handling alerts.",
		}),
		actionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Actions reaching a terminal state, by status and trigger.",
		}, []string{"status", "trigger"}),
		publishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Publish attempts, by topic and result status.",
		}, []string{"topic", "status"}),
		deadLetteredTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dead_lettered_total",
			Help:      "Records routed to a dead-letter topic, by source topic.",
		}, []string{"topic"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open).",
		}, []string{"breaker"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by route and status code.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request durations, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.alertsTotal,
		m.processingDuration,
		m.retriesTotal,
		m.actionsTotal,
		m.publishTotal,
		m.deadLetteredTotal,
		m.breakerState,
		m.httpRequestsTotal,
		m.httpDuration,
	)
	return m
}

// Registry returns the registry backing Handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordReceived counts an alert read from the topic.
func (m *Metrics) RecordReceived() {
	if m == nil {
		return
	}
	if m.collector != nil {
		m.collector.RecordReceived()
	}
}

// RecordAlert counts a committed alert by outcome and observes its processing time.
func (m *Metrics) RecordAlert(outcome string, latency time.Duration) {
	if m == nil {
		return
	}
	m.alertsTotal.WithLabelValues(outcome).Inc()
	m.processingDuration.Observe(latency.Seconds())

	if m.collector == nil {
		return
	}
	switch outcome {
	case OutcomeProcessed:
		m.collector.RecordProcessed(latency)
	case OutcomeDuplicate:
		m.collector.RecordDeduplicated()
		m.collector.IncrementCustom("alerts_deduplicated")
	case OutcomeDeadLettered:
		m.collector.RecordError()
	default:
		m.collector.IncrementCustom("alerts_" + outcome)
	}
}

// RecordRetry counts one extra attempt.
func (m *Metrics) RecordRetry() {
	if m == nil {
		return
	}
	m.retriesTotal.Inc()
}

// RecordActionFinished counts an action reaching a terminal state.
func (m *Metrics) RecordActionFinished(status string, automatic bool) {
	if m == nil {
		return
	}
	trigger := "manual"
	if automatic {
		trigger = "automatic"
	}
	m.actionsTotal.WithLabelValues(status, trigger).Inc()
	if m.collector != nil {
		m.collector.IncrementCustom("actions_" + status)
	}
}

// RecordPublish counts a publish attempt.
func (m *Metrics) RecordPublish(topic, status string) {
	if m == nil {
		return
	}
	m.publishTotal.WithLabelValues(topic, status).Inc()
	if m.collector == nil {
		return
	}
	if status == "success" {
		m.collector.RecordPublished()
	} else {
		m.collector.RecordError()
	}
}

// RecordDeadLettered counts a record sent to the dead-letter topic of topic.
func (m *Metrics) RecordDeadLettered(topic string) {
	if m == nil {
		return
	}
	m.deadLetteredTotal.WithLabelValues(topic).Inc()
	if m.collector != nil {
		m.collector.RecordDeadLettered()
		m.collector.IncrementCustom("dlq_routed")
	}
}

// SetBreakerState exports the state of a circuit breaker.
func (m *Metrics) SetBreakerState(name string, state breaker.State) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(name).Set(float64(state))
}

// BreakerStateHook adapts SetBreakerState to breaker.Config.OnStateChange.
func (m *Metrics) BreakerStateHook() func(name string, from, to breaker.State) {
	return func(name string, _, to breaker.State) {
		m.SetBreakerState(name, to)
	}
}

// WatchDedupSize exports the number of event ids held by store. Stores that cannot
// report a size (Len returns -1) are skipped.
func (m *Metrics) WatchDedupSize(store interface{ Len() int }) {
	if m == nil || store.Len() < 0 {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "dedup_entries",
		Help:      "Alert event ids remembered by the in-process dedup store.",
	}, func() float64 { return float64(store.Len()) }))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler records request count and duration for route.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
