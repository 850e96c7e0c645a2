package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/apperrors"
	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/publisher"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/database"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/decision"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/events"
)

const alertsTopic = "greenhouse-alerts"

// FakeReader serves queued messages and cancels the run once they are exhausted.
type FakeReader struct {
	mu        sync.Mutex
	Messages  []kafka.Message
	Committed []kafka.Message
	CommitErr error
	Closed    bool
	cancel    context.CancelFunc
	next      int
}

func (f *FakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return kafka.Message{}, err
	}
	if f.next >= len(f.Messages) {
		if f.cancel != nil {
			f.cancel()
		}
		return kafka.Message{}, context.Canceled
	}
	msg := f.Messages[f.next]
	f.next++
	return msg, nil
}

func (f *FakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CommitErr != nil {
		return f.CommitErr
	}
	f.Committed = append(f.Committed, msgs...)
	return nil
}

func (f *FakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// FakeDeadLetterer records dead-lettered records. Results are returned in order; the
// last one repeats.
type FakeDeadLetterer struct {
	mu      sync.Mutex
	Records []publisher.Record
	Causes  []error
	Extras  []map[string]string
	Results []publisher.Result
}

func (f *FakeDeadLetterer) DeadLetter(_ context.Context, rec publisher.Record, cause error, extra map[string]string) publisher.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Records = append(f.Records, rec)
	f.Causes = append(f.Causes, cause)
	f.Extras = append(f.Extras, extra)
	if len(f.Results) == 0 {
		return publisher.Result{Status: publisher.StatusSuccess}
	}
	res := f.Results[0]
	if len(f.Results) > 1 {
		f.Results = f.Results[1:]
	}
	return res
}

// FakeHandler is an AlertHandler driven by HandleFn.
type FakeHandler struct {
	HandleFn func(ctx context.Context, alert *events.AlertEvent) (*decision.Outcome, error)
	Calls    int
}

func (f *FakeHandler) HandleAlert(ctx context.Context, alert *events.AlertEvent) (*decision.Outcome, error) {
	f.Calls++
	if f.HandleFn != nil {
		return f.HandleFn(ctx, alert)
	}
	return &decision.Outcome{}, nil
}

// FakeMetrics counts outcomes.
type FakeMetrics struct {
	mu       sync.Mutex
	Received int
	Retries  int
	Outcomes map[string]int
}

func (f *FakeMetrics) RecordReceived() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Received++
}

func (f *FakeMetrics) RecordAlert(outcome string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Outcomes == nil {
		f.Outcomes = map[string]int{}
	}
	f.Outcomes[outcome]++
}

func (f *FakeMetrics) RecordRetry() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Retries++
}

// FakeDedup is a dedup store whose lookups can be forced to fail.
type FakeDedup struct {
	mu      sync.Mutex
	ids     map[string]bool
	SeenErr error
}

func (f *FakeDedup) Seen(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SeenErr != nil {
		return false, f.SeenErr
	}
	return f.ids[id], nil
}

func (f *FakeDedup) Mark(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ids == nil {
		f.ids = map[string]bool{}
	}
	f.ids[id] = true
	return nil
}

func (f *FakeDedup) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ids)
}

// FakeStore is an in-memory implementation of the engine and executor repositories,
// including the unique source event id on actions.
type FakeStore struct {
	mu        sync.Mutex
	Equipment map[string]*database.Equipment
	Actions   []*database.Action
}

func (s *FakeStore) FindActiveEquipment(_ context.Context, category string) (*database.Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.Equipment {
		if e.Category == category && e.State == database.StateActive {
			return e, nil
		}
	}
	return nil, fmt.Errorf("no active %s: %w", category, apperrors.ErrEquipmentNotAvailable)
}

func (s *FakeStore) GetEquipment(_ context.Context, id string) (*database.Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.Equipment[id]; ok {
		return e, nil
	}
	return nil, apperrors.ErrNotFound
}

func (s *FakeStore) TouchEquipment(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.Equipment[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	e.LastActionAt = &at
	return nil
}

func (s *FakeStore) CreateAction(_ context.Context, in database.NewAction) (*database.Action, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if in.SourceEventID != nil {
		for _, a := range s.Actions {
			if a.SourceEventID != nil && *a.SourceEventID == *in.SourceEventID {
				cp := *a
				return &cp, false, nil
			}
		}
	}
	a := &database.Action{
		ID:            fmt.Sprintf("act-%d", len(s.Actions)+1),
		EquipmentID:   in.EquipmentID,
		ParameterID:   in.ParameterID,
		ActionType:    in.ActionType,
		TargetValue:   in.TargetValue,
		ObservedValue: in.ObservedValue,
		SourceEventID: in.SourceEventID,
		Status:        database.StatusPending,
	}
	s.Actions = append(s.Actions, a)
	cp := *a
	return &cp, true, nil
}

func (s *FakeStore) GetActionBySourceEvent(_ context.Context, eventID string) (*database.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.Actions {
		if a.SourceEventID != nil && *a.SourceEventID == eventID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s *FakeStore) GetAction(_ context.Context, id string) (*database.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.Actions {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s *FakeStore) MarkExecuted(_ context.Context, id string, at time.Time, result string) (*database.Action, error) {
	return s.finish(id, database.StatusExecuted, &at, result)
}

func (s *FakeStore) MarkFailed(_ context.Context, id, result string) (*database.Action, error) {
	return s.finish(id, database.StatusFailed, nil, result)
}

func (s *FakeStore) finish(id, status string, at *time.Time, result string) (*database.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.Actions {
		if a.ID != id {
			continue
		}
		if a.Status != database.StatusPending {
			return nil, apperrors.ErrInvalidTransition
		}
		a.Status, a.ExecutedAt, a.Result = status, at, result
		cp := *a
		return &cp, nil
	}
	return nil, apperrors.ErrNotFound
}

// FakeActionPublisher records published action events.
type FakeActionPublisher struct {
	mu     sync.Mutex
	Events []*events.EquipmentActionEvent
}

func (f *FakeActionPublisher) PublishAction(_ context.Context, ev *events.EquipmentActionEvent) publisher.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Events = append(f.Events, ev)
	return publisher.Result{Status: publisher.StatusSuccess}
}

func alertMessage(offset int64, alert events.AlertEvent) kafka.Message {
	payload, err := json.Marshal(alert)
	if err != nil {
		panic(err)
	}
	return kafka.Message{
		Topic:     alertsTopic,
		Partition: 0,
		Offset:    offset,
		Key:       []byte(alert.ParameterID),
		Value:     payload,
		Headers:   []kafka.Header{{Key: "event_type", Value: []byte("alert")}},
	}
}

func temperatureAlert(eventID string, value float64) events.AlertEvent {
	return events.AlertEvent{
		EventID:       eventID,
		MeasurementID: "meas-1",
		ParameterID:   "param-temp",
		ParameterType: "temperature",
		Value:         value,
		MinThreshold:  15,
		MaxThreshold:  30,
		Severity:      "MEDIUM",
		MeasuredAt:    time.Now().UTC(),
	}
}
