package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama/mocks"

	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/publisher"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/environment-service/internal/events"
)

// fakeRecordPublisher returns results keyed by topic and records every call.
type fakeRecordPublisher struct {
	results map[string]publisher.Result
	records []publisher.Record
}

func (f *fakeRecordPublisher) Publish(_ context.Context, rec publisher.Record) publisher.Result {
	f.records = append(f.records, rec)
	if res, ok := f.results[rec.Topic]; ok {
		return res
	}
	return publisher.Result{Status: publisher.StatusSuccess}
}

func (f *fakeRecordPublisher) Close() error { return nil }

type fakeMetrics struct {
	published, errors, deadLettered int
	custom                          map[string]int
}

func (f *fakeMetrics) RecordPublished()    { f.published++ }
func (f *fakeMetrics) RecordError()        { f.errors++ }
func (f *fakeMetrics) RecordDeadLettered() { f.deadLettered++ }
func (f *fakeMetrics) IncrementCustom(name string) {
	if f.custom == nil {
		f.custom = map[string]int{}
	}
	f.custom[name]++
}

func sampleAlert() *events.AlertEvent {
	return &events.AlertEvent{
		EventID:        "evt-1",
		MeasurementID:  "meas-1",
		ParameterID:    "param-temp",
		ParameterType:  "temperature",
		Value:          35,
		MinThreshold:   15,
		MaxThreshold:   30,
		Severity:       events.SeverityMedium,
		MeasuredAt:     time.Now().UTC(),
		EventTimestamp: time.Now().UTC(),
	}
}

func TestNewProducer_Validation(t *testing.T) {
	pub := &fakeRecordPublisher{}
	if _, err := NewProducer(pub, "", "greenhouse-alerts", nil); err == nil {
		t.Error("NewProducer() with empty measurements topic error = nil")
	}
	if _, err := NewProducer(pub, "measurement-stream", "", nil); err == nil {
		t.Error("NewProducer() with empty alerts topic error = nil")
	}
}

func TestProducer_PublishAlert_Success(t *testing.T) {
	pub := &fakeRecordPublisher{}
	m := &fakeMetrics{}
	p, _ := NewProducer(pub, "measurement-stream", "greenhouse-alerts", m)

	res := p.PublishAlert(context.Background(), sampleAlert())
	if !res.OK() {
		t.Fatalf("PublishAlert() status = %v", res.Status)
	}
	if len(pub.records) != 1 {
		t.Fatalf("published %d records, want 1", len(pub.records))
	}

	rec := pub.records[0]
	if rec.Topic != "greenhouse-alerts" || rec.Key != "param-temp" {
		t.Errorf("record topic/key = %s/%s", rec.Topic, rec.Key)
	}
	var decoded events.AlertEvent
	if err := json.Unmarshal(rec.Value, &decoded); err != nil {
		t.Fatalf("payload is not an AlertEvent: %v", err)
	}
	if decoded.EventID != "evt-1" {
		t.Errorf("payload event_id = %s, want evt-1", decoded.EventID)
	}
	if m.custom["alerts_published"] != 1 {
		t.Errorf("alerts_published = %d, want 1", m.custom["alerts_published"])
	}
}

func TestProducer_PublishAlert_RetryableGoesToDLQ(t *testing.T) {
	pub := &fakeRecordPublisher{results: map[string]publisher.Result{
		"greenhouse-alerts": {Status: publisher.StatusRetryable, Err: errors.New("not enough replicas")},
	}}
	m := &fakeMetrics{}
	p, _ := NewProducer(pub, "measurement-stream", "greenhouse-alerts", m)

	p.PublishAlert(context.Background(), sampleAlert())

	if len(pub.records) != 2 {
		t.Fatalf("published %d records, want 2 (original + DLQ)", len(pub.records))
	}
	dlq := pub.records[1]
	if dlq.Topic != "greenhouse-alerts.DLQ" {
		t.Errorf("DLQ topic = %s", dlq.Topic)
	}
	if dlq.Key != "param-temp" || string(dlq.Value) != string(pub.records[0].Value) {
		t.Error("DLQ record does not carry the original key and payload")
	}
	if dlq.Headers[publisher.HeaderOriginalError] != "not enough replicas" {
		t.Errorf("x-original-error = %q", dlq.Headers[publisher.HeaderOriginalError])
	}
	if m.deadLettered != 1 {
		t.Errorf("deadLettered = %d, want 1", m.deadLettered)
	}
}

func TestProducer_PublishAlert_FatalIsNotDeadLettered(t *testing.T) {
	pub := &fakeRecordPublisher{results: map[string]publisher.Result{
		"greenhouse-alerts": {Status: publisher.StatusFatal, Err: errors.New("message too large")},
	}}
	m := &fakeMetrics{}
	p, _ := NewProducer(pub, "measurement-stream", "greenhouse-alerts", m)

	p.PublishAlert(context.Background(), sampleAlert())

	if len(pub.records) != 1 {
		t.Errorf("published %d records, want 1", len(pub.records))
	}
	if m.errors != 1 || m.deadLettered != 0 {
		t.Errorf("errors/deadLettered = %d/%d, want 1/0", m.errors, m.deadLettered)
	}
}

func TestProducer_PublishMeasurement_FailureIsLoggedOnly(t *testing.T) {
	pub := &fakeRecordPublisher{results: map[string]publisher.Result{
		"measurement-stream": {Status: publisher.StatusRetryable, Err: errors.New("broker down")},
	}}
	m := &fakeMetrics{}
	p, _ := NewProducer(pub, "measurement-stream", "greenhouse-alerts", m)

	res := p.PublishMeasurement(context.Background(), &events.MeasurementEvent{EventID: "evt-2", ParameterID: "param-temp"})

	if res.Status != publisher.StatusRetryable {
		t.Errorf("PublishMeasurement() status = %v, want retryable", res.Status)
	}
	if len(pub.records) != 1 {
		t.Errorf("published %d records, want 1 (no DLQ for measurements)", len(pub.records))
	}
	if m.errors != 1 {
		t.Errorf("errors = %d, want 1", m.errors)
	}
}

func TestProducer_PublishesAfterCallerCancellation(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageAndSucceed()
	sp.ExpectSendMessageAndSucceed()

	m := &fakeMetrics{}
	p, err := NewProducer(publisher.NewWithProducer(sp), "measurement-stream", "greenhouse-alerts", m)
	if err != nil {
		t.Fatalf("NewProducer() error = %v", err)
	}
	defer p.Close()

	// The HTTP request that stored the measurement is already gone.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if res := p.PublishMeasurement(ctx, &events.MeasurementEvent{EventID: "evt-m", ParameterID: "param-temp"}); !res.OK() {
		t.Errorf("PublishMeasurement() = %+v, want success", res)
	}
	if res := p.PublishAlert(ctx, sampleAlert()); !res.OK() {
		t.Errorf("PublishAlert() = %+v, want success", res)
	}
	if m.published != 2 || m.deadLettered != 0 {
		t.Errorf("published=%d deadLettered=%d, want 2 and 0", m.published, m.deadLettered)
	}
}

// ctxRecordPublisher fails the first send with a retryable error and records
// whether each send saw a live context.
type ctxRecordPublisher struct {
	calls   int
	liveCtx []bool
	topics  []string
}

func (f *ctxRecordPublisher) Publish(ctx context.Context, rec publisher.Record) publisher.Result {
	f.calls++
	f.liveCtx = append(f.liveCtx, ctx.Err() == nil)
	f.topics = append(f.topics, rec.Topic)
	if f.calls == 1 {
		return publisher.Result{Status: publisher.StatusRetryable, Err: errors.New("broker unavailable")}
	}
	return publisher.Result{Status: publisher.StatusSuccess}
}

func (f *ctxRecordPublisher) Close() error { return nil }

func TestProducer_PublishAlert_DeadLettersAfterCallerCancellation(t *testing.T) {
	pub := &ctxRecordPublisher{}
	m := &fakeMetrics{}
	p, _ := NewProducer(pub, "measurement-stream", "greenhouse-alerts", m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p.PublishAlert(ctx, sampleAlert())

	if len(pub.topics) != 2 || pub.topics[1] != "greenhouse-alerts.DLQ" {
		t.Fatalf("topics = %v, want alert then its DLQ", pub.topics)
	}
	for i, live := range pub.liveCtx {
		if !live {
			t.Errorf("send %d saw a cancelled context", i)
		}
	}
	if m.deadLettered != 1 {
		t.Errorf("deadLettered = %d, want 1", m.deadLettered)
	}
}
