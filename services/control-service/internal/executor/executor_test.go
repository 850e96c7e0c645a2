package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/apperrors"
	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/publisher"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/database"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/events"
)

// memRepository is an in-memory Repository enforcing the pending-only transitions.
type memRepository struct {
	equipment map[string]*database.Equipment
	actions   map[string]*database.Action
	touched   []string
	touchErr  error
	getErr    error
}

func newMemRepository() *memRepository {
	return &memRepository{
		equipment: map[string]*database.Equipment{
			"fan-1":  {ID: "fan-1", Name: "Fan 1", Category: database.CategoryVentilator, State: database.StateActive},
			"heat-1": {ID: "heat-1", Name: "Heater 1", Category: database.CategoryHeater, State: database.StateInactive},
		},
		actions: map[string]*database.Action{},
	}
}

func (m *memRepository) GetAction(_ context.Context, id string) (*database.Action, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	a, ok := m.actions[id]
	if !ok {
		return nil, fmt.Errorf("action %s: %w", id, apperrors.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (m *memRepository) GetEquipment(_ context.Context, id string) (*database.Equipment, error) {
	e, ok := m.equipment[id]
	if !ok {
		return nil, fmt.Errorf("equipment %s: %w", id, apperrors.ErrNotFound)
	}
	return e, nil
}

func (m *memRepository) CreateAction(_ context.Context, in database.NewAction) (*database.Action, bool, error) {
	a := &database.Action{
		ID:            fmt.Sprintf("act-%d", len(m.actions)+1),
		EquipmentID:   in.EquipmentID,
		ParameterID:   in.ParameterID,
		ActionType:    in.ActionType,
		TargetValue:   in.TargetValue,
		ObservedValue: in.ObservedValue,
		SourceEventID: in.SourceEventID,
		Status:        database.StatusPending,
	}
	m.actions[a.ID] = a
	cp := *a
	return &cp, true, nil
}

func (m *memRepository) TouchEquipment(_ context.Context, id string, at time.Time) error {
	if m.touchErr != nil {
		return m.touchErr
	}
	m.touched = append(m.touched, id)
	return nil
}

func (m *memRepository) MarkExecuted(ctx context.Context, id string, at time.Time, result string) (*database.Action, error) {
	return m.transition(id, database.StatusExecuted, &at, result)
}

func (m *memRepository) MarkFailed(ctx context.Context, id, result string) (*database.Action, error) {
	return m.transition(id, database.StatusFailed, nil, result)
}

func (m *memRepository) transition(id, status string, at *time.Time, result string) (*database.Action, error) {
	a, ok := m.actions[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if a.Status != database.StatusPending {
		return nil, apperrors.ErrInvalidTransition
	}
	a.Status = status
	a.ExecutedAt = at
	a.Result = result
	cp := *a
	return &cp, nil
}

func (m *memRepository) addPending(id, equipmentID string) {
	m.actions[id] = &database.Action{ID: id, EquipmentID: equipmentID, ActionType: database.ActionActivate, Status: database.StatusPending}
}

type fakePublisher struct {
	events []*events.EquipmentActionEvent
	result publisher.Result
}

func (f *fakePublisher) PublishAction(_ context.Context, ev *events.EquipmentActionEvent) publisher.Result {
	f.events = append(f.events, ev)
	return f.result
}

type fakeActuator struct {
	err   error
	calls int
}

func (f *fakeActuator) Actuate(context.Context, *database.Equipment, *database.Action) error {
	f.calls++
	return f.err
}

type fakeMetrics struct {
	finished []string
}

func (f *fakeMetrics) RecordActionFinished(status string, automatic bool) {
	f.finished = append(f.finished, fmt.Sprintf("%s/%t", status, automatic))
}

func newTestExecutor(repo *memRepository, act Actuator) (*Executor, *fakePublisher, *fakeMetrics) {
	pub := &fakePublisher{result: publisher.Result{Status: publisher.StatusSuccess}}
	m := &fakeMetrics{}
	e := New(repo, pub, act, m)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return fixed }
	return e, pub, m
}

func TestExecutor_Execute_Success(t *testing.T) {
	repo := newMemRepository()
	repo.addPending("act-1", "fan-1")
	e, pub, m := newTestExecutor(repo, &fakeActuator{})

	got, err := e.Execute(context.Background(), "act-1", true)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got.Status != database.StatusExecuted {
		t.Errorf("Status = %s, want executed", got.Status)
	}
	if got.ExecutedAt == nil {
		t.Error("ExecutedAt should be set")
	}
	if got.Result != ResultExecuted {
		t.Errorf("Result = %q", got.Result)
	}
	if len(repo.touched) != 1 || repo.touched[0] != "fan-1" {
		t.Errorf("touched = %v, want [fan-1]", repo.touched)
	}
	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	ev := pub.events[0]
	if ev.Status != database.StatusExecuted || !ev.IsAutomatic || ev.EquipmentName != "Fan 1" || ev.EventID == "" {
		t.Errorf("unexpected event %+v", ev)
	}
	if len(m.finished) != 1 || m.finished[0] != "executed/true" {
		t.Errorf("metrics = %v", m.finished)
	}
}

func TestExecutor_Execute_ActuatorFailure(t *testing.T) {
	repo := newMemRepository()
	repo.addPending("act-1", "fan-1")
	e, pub, _ := newTestExecutor(repo, &fakeActuator{err: errors.New("relay stuck")})

	got, err := e.Execute(context.Background(), "act-1", false)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got.Status != database.StatusFailed {
		t.Errorf("Status = %s, want failed", got.Status)
	}
	if got.Result != "Execution failed: relay stuck" {
		t.Errorf("Result = %q", got.Result)
	}
	if got.ExecutedAt != nil {
		t.Error("failed action should have no ExecutedAt")
	}
	if len(repo.touched) != 0 {
		t.Errorf("equipment touched on failure: %v", repo.touched)
	}
	if len(pub.events) != 1 || pub.events[0].Status != database.StatusFailed {
		t.Errorf("expected one failed event, got %+v", pub.events)
	}
}

func TestExecutor_Execute_InactiveEquipmentFails(t *testing.T) {
	repo := newMemRepository()
	repo.addPending("act-1", "heat-1")
	act := &fakeActuator{}
	e, _, _ := newTestExecutor(repo, act)

	got, err := e.Execute(context.Background(), "act-1", false)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got.Status != database.StatusFailed {
		t.Errorf("Status = %s, want failed", got.Status)
	}
	if !strings.Contains(got.Result, "inactive") {
		t.Errorf("Result = %q", got.Result)
	}
	if act.calls != 0 {
		t.Error("actuator should not be called for inactive equipment")
	}
}

func TestExecutor_Execute_TouchFailureMarksFailed(t *testing.T) {
	repo := newMemRepository()
	repo.addPending("act-1", "fan-1")
	repo.touchErr = errors.New("db gone")
	e, _, _ := newTestExecutor(repo, &fakeActuator{})

	got, err := e.Execute(context.Background(), "act-1", true)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got.Status != database.StatusFailed {
		t.Errorf("Status = %s, want failed", got.Status)
	}
}

func TestExecutor_Execute_TerminalIsNeverRewritten(t *testing.T) {
	repo := newMemRepository()
	repo.addPending("act-1", "fan-1")
	e, pub, _ := newTestExecutor(repo, &fakeActuator{})

	if _, err := e.Execute(context.Background(), "act-1", true); err != nil {
		t.Fatalf("first Execute() error = %v", err)
	}
	_, err := e.Execute(context.Background(), "act-1", true)
	if !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Fatalf("second Execute() error = %v, want ErrInvalidTransition", err)
	}
	if repo.actions["act-1"].Status != database.StatusExecuted {
		t.Errorf("status changed to %s", repo.actions["act-1"].Status)
	}
	if len(pub.events) != 1 {
		t.Errorf("published %d events, want 1", len(pub.events))
	}
}

func TestExecutor_Execute_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*memRepository)
		id    string
		want  error
	}{
		{
			name:  "unknown action",
			setup: func(*memRepository) {},
			id:    "missing",
			want:  apperrors.ErrNotFound,
		},
		{
			name:  "unknown equipment",
			setup: func(r *memRepository) { r.addPending("act-1", "ghost") },
			id:    "act-1",
			want:  apperrors.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepository()
			tt.setup(repo)
			e, pub, _ := newTestExecutor(repo, &fakeActuator{})

			_, err := e.Execute(context.Background(), tt.id, true)
			if !errors.Is(err, tt.want) {
				t.Errorf("Execute() error = %v, want %v", err, tt.want)
			}
			if len(pub.events) != 0 {
				t.Errorf("published %d events on error", len(pub.events))
			}
		})
	}
}

func TestExecutor_Execute_PublishFailureDoesNotFail(t *testing.T) {
	repo := newMemRepository()
	repo.addPending("act-1", "fan-1")
	e, pub, _ := newTestExecutor(repo, &fakeActuator{})
	pub.result = publisher.Result{Status: publisher.StatusRetryable, Err: errors.New("broker down")}

	got, err := e.Execute(context.Background(), "act-1", true)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got.Status != database.StatusExecuted {
		t.Errorf("Status = %s, want executed", got.Status)
	}
}

func TestExecutor_CreateManual(t *testing.T) {
	target := 22.0
	tests := []struct {
		name       string
		req        ManualActionRequest
		wantErr    error
		wantStatus string
	}{
		{
			name:       "executes",
			req:        ManualActionRequest{EquipmentID: "fan-1", ActionType: database.ActionAdjust, TargetValue: &target},
			wantStatus: database.StatusExecuted,
		},
		{
			name:    "missing equipment id",
			req:     ManualActionRequest{ActionType: database.ActionActivate},
			wantErr: apperrors.ErrInvalidArgument,
		},
		{
			name:    "unknown action type",
			req:     ManualActionRequest{EquipmentID: "fan-1", ActionType: "explode"},
			wantErr: apperrors.ErrInvalidArgument,
		},
		{
			name:    "unknown equipment",
			req:     ManualActionRequest{EquipmentID: "ghost", ActionType: database.ActionActivate},
			wantErr: apperrors.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepository()
			e, pub, m := newTestExecutor(repo, &fakeActuator{})

			got, err := e.CreateManual(context.Background(), tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CreateManual() error = %v, want %v", err, tt.wantErr)
				}
				if len(repo.actions) != 0 {
					t.Errorf("created %d actions on error", len(repo.actions))
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateManual() error = %v", err)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", got.Status, tt.wantStatus)
			}
			if len(pub.events) != 1 || pub.events[0].IsAutomatic {
				t.Errorf("expected one manual event, got %+v", pub.events)
			}
			if len(m.finished) != 1 || m.finished[0] != "executed/false" {
				t.Errorf("metrics = %v", m.finished)
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	e := New(newMemRepository(), &fakePublisher{}, nil, nil)
	if _, ok := e.actuator.(LogActuator); !ok {
		t.Errorf("default actuator = %T, want LogActuator", e.actuator)
	}
	if _, ok := e.metrics.(NoOpMetrics); !ok {
		t.Errorf("default metrics = %T, want NoOpMetrics", e.metrics)
	}
}
