package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/metrics"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/breaker"
)

func TestMetrics_RecordAlert(t *testing.T) {
	collector := metrics.NewCollector("control-service", nil)
	m := New(collector)

	m.RecordReceived()
	m.RecordAlert(OutcomeProcessed, 5*time.Millisecond)
	m.RecordAlert(OutcomeDuplicate, time.Millisecond)
	m.RecordAlert(OutcomeMalformed, time.Millisecond)

	if got := testutil.ToFloat64(m.alertsTotal.WithLabelValues(OutcomeProcessed)); got != 1 {
		t.Errorf("processed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.alertsTotal.WithLabelValues(OutcomeDuplicate)); got != 1 {
		t.Errorf("duplicate = %v, want 1", got)
	}

	snap := collector.Snapshot()
	if snap.Received != 1 || snap.Processed != 1 || snap.Deduplicated != 1 {
		t.Errorf("collector snapshot = %+v", snap)
	}
	if snap.Custom["alerts_deduplicated"] != 1 || snap.Custom["alerts_malformed"] != 1 {
		t.Errorf("custom counters = %v", snap.Custom)
	}
}

func TestMetrics_ActionsPublishAndDLQ(t *testing.T) {
	collector := metrics.NewCollector("control-service", nil)
	m := New(collector)

	m.RecordActionFinished("executed", true)
	m.RecordActionFinished("failed", false)
	m.RecordPublish("equipment-actions", "success")
	m.RecordPublish("equipment-actions", "retryable")
	m.RecordDeadLettered("greenhouse-alerts")

	if got := testutil.ToFloat64(m.actionsTotal.WithLabelValues("executed", "automatic")); got != 1 {
		t.Errorf("executed/automatic = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.actionsTotal.WithLabelValues("failed", "manual")); got != 1 {
		t.Errorf("failed/manual = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.deadLetteredTotal.WithLabelValues("greenhouse-alerts")); got != 1 {
		t.Errorf("dead lettered = %v, want 1", got)
	}

	snap := collector.Snapshot()
	if snap.Published != 1 || snap.Errors != 1 || snap.DeadLettered != 1 || snap.Custom["dlq_routed"] != 1 {
		t.Errorf("collector snapshot = %+v", snap)
	}
}

func TestMetrics_BreakerStateHook(t *testing.T) {
	m := New(nil)
	hook := m.BreakerStateHook()

	hook("environment-service", breaker.Closed, breaker.Open)
	if got := testutil.ToFloat64(m.breakerState.WithLabelValues("environment-service")); got != 2 {
		t.Errorf("gauge = %v, want 2 (open)", got)
	}
	hook("environment-service", breaker.Open, breaker.HalfOpen)
	if got := testutil.ToFloat64(m.breakerState.WithLabelValues("environment-service")); got != 1 {
		t.Errorf("gauge = %v, want 1 (half-open)", got)
	}
}

func TestMetrics_HandlerAndWrap(t *testing.T) {
	m := New(nil)
	wrapped := m.WrapHandler("/api/v1/actions", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/actions", nil))

	if got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/api/v1/actions", "201")); got != 1 {
		t.Errorf("http requests = %v, want 1", got)
	}

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "greenhouse_control_http_requests_total") {
		t.Errorf("/metrics status = %d, body missing request counter", w.Code)
	}
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	m.RecordReceived()
	m.RecordAlert(OutcomeProcessed, time.Millisecond)
	m.RecordRetry()
	m.RecordActionFinished("executed", true)
	m.RecordPublish("t", "success")
	m.RecordDeadLettered("t")
	m.SetBreakerState("b", breaker.Open)
	m.BreakerStateHook()("b", breaker.Closed, breaker.Open)
	m.WatchDedupSize(fixedLen(3))

	next := http.NotFoundHandler()
	if m.WrapHandler("/x", next) == nil {
		t.Error("WrapHandler() on nil receiver returned nil")
	}
}

type fixedLen int

func (f fixedLen) Len() int { return int(f) }

func TestMetrics_WatchDedupSize(t *testing.T) {
	m := New(nil)
	m.WatchDedupSize(fixedLen(-1))
	m.WatchDedupSize(fixedLen(42))

	n, err := testutil.GatherAndCount(m.Registry(), "greenhouse_control_dedup_entries")
	if err != nil || n != 1 {
		t.Fatalf("dedup gauge count = %d, err = %v, want 1", n, err)
	}
	want := `
# HELP greenhouse_control_dedup_entries Alert event ids remembered by the in-process dedup store.
# TYPE greenhouse_control_dedup_entries gauge
greenhouse_control_dedup_entries 42
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(want), "greenhouse_control_dedup_entries"); err != nil {
		t.Error(err)
	}
}
