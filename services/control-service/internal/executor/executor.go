// Package executor drives actions from pending to a terminal state and publishes
// the outcome.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/apperrors"
	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/publisher"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/database"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/events"
)

// ResultExecuted is stored on actions that executed successfully.
const ResultExecuted = "Action executed successfully"

// Repository is the storage the executor needs.
type Repository interface {
	GetAction(ctx context.Context, actionID string) (*database.Action, error)
	GetEquipment(ctx context.Context, equipmentID string) (*database.Equipment, error)
	CreateAction(ctx context.Context, in database.NewAction) (*database.Action, bool, error)
	TouchEquipment(ctx context.Context, equipmentID string, at time.Time) error
	MarkExecuted(ctx context.Context, actionID string, executedAt time.Time, result string) (*database.Action, error)
	MarkFailed(ctx context.Context, actionID, result string) (*database.Action, error)
}

// EventPublisher publishes action events.
type EventPublisher interface {
	PublishAction(ctx context.Context, event *events.EquipmentActionEvent) publisher.Result
}

// Actuator performs the physical control operation.
type Actuator interface {
	Actuate(ctx context.Context, equipment *database.Equipment, action *database.Action) error
}

// LogActuator logs the command and reports success.
type LogActuator struct{}

func (LogActuator) Actuate(ctx context.Context, equipment *database.Equipment, action *database.Action) error {
	slog.Info("Actuating equipment",
		"equipment_id", equipment.ID,
		"equipment_name", equipment.Name,
		"category", equipment.Category,
		"action_id", action.ID,
		"action_type", action.ActionType,
	)
	return nil
}

// MetricsRecorder defines the metrics operations needed by the executor.
type MetricsRecorder interface {
	RecordActionFinished(status string, automatic bool)
}

// NoOpMetrics is a null-object implementation of MetricsRecorder.
type NoOpMetrics struct{}

func (NoOpMetrics) RecordActionFinished(string, bool) {}

// ManualActionRequest is an operator-issued command.
type ManualActionRequest struct {
	EquipmentID string
	ActionType  string
	TargetValue *float64
	ParameterID *string
}

// Executor runs actions.
type Executor struct {
	repo      Repository
	publisher EventPublisher
	actuator  Actuator
	metrics   MetricsRecorder
	now       func() time.Time
}

// New creates an executor. A nil actuator defaults to LogActuator and nil metrics to a no-op.
func New(repo Repository, pub EventPublisher, actuator Actuator, m MetricsRecorder) *Executor {
	if actuator == nil {
		actuator = LogActuator{}
	}
	if m == nil {
		m = NoOpMetrics{}
	}
	return &Executor{
		repo:      repo,
		publisher: pub,
		actuator:  actuator,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Execute moves a pending action to executed or failed and publishes the outcome.
// Actuation errors are recorded on the action and are not returned; storage errors are.
func (e *Executor) Execute(ctx context.Context, actionID string, isAutomatic bool) (*database.Action, error) {
	action, err := e.repo.GetAction(ctx, actionID)
	if err != nil {
		return nil, err
	}
	if action.Status != database.StatusPending {
		return nil, fmt.Errorf("action %s is %s: %w", actionID, action.Status, apperrors.ErrInvalidTransition)
	}

	equipment, err := e.repo.GetEquipment(ctx, action.EquipmentID)
	if err != nil {
		return nil, err
	}

	var final *database.Action
	if execErr := e.actuate(ctx, equipment, action); execErr != nil {
		slog.Warn("Action execution failed",
			"action_id", action.ID,
			"equipment_id", equipment.ID,
			"error", execErr,
		)
		final, err = e.repo.MarkFailed(ctx, action.ID, "Execution failed: "+execErr.Error())
	} else {
		final, err = e.repo.MarkExecuted(ctx, action.ID, e.now(), ResultExecuted)
	}
	if err != nil {
		return nil, err
	}

	e.metrics.RecordActionFinished(final.Status, isAutomatic)
	e.publisher.PublishAction(ctx, newActionEvent(final, equipment, isAutomatic, e.now()))

	return final, nil
}

func (e *Executor) actuate(ctx context.Context, equipment *database.Equipment, action *database.Action) error {
	if equipment.State != database.StateActive {
		return fmt.Errorf("equipment %s is %s", equipment.ID, equipment.State)
	}
	if err := e.actuator.Actuate(ctx, equipment, action); err != nil {
		return err
	}
	return e.repo.TouchEquipment(ctx, equipment.ID, e.now())
}

// CreateManual creates an action for an operator request and executes it.
func (e *Executor) CreateManual(ctx context.Context, req ManualActionRequest) (*database.Action, error) {
	if req.EquipmentID == "" {
		return nil, fmt.Errorf("equipment_id is required: %w", apperrors.ErrInvalidArgument)
	}
	if !database.ValidActionType(req.ActionType) {
		return nil, fmt.Errorf("unknown action type %q: %w", req.ActionType, apperrors.ErrInvalidArgument)
	}
	if _, err := e.repo.GetEquipment(ctx, req.EquipmentID); err != nil {
		return nil, err
	}

	action, _, err := e.repo.CreateAction(ctx, database.NewAction{
		EquipmentID: req.EquipmentID,
		ParameterID: req.ParameterID,
		ActionType:  req.ActionType,
		TargetValue: req.TargetValue,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Created manual action",
		"action_id", action.ID,
		"equipment_id", req.EquipmentID,
		"action_type", req.ActionType,
	)
	return e.Execute(ctx, action.ID, false)
}

func newActionEvent(a *database.Action, eq *database.Equipment, isAutomatic bool, now time.Time) *events.EquipmentActionEvent {
	ev := &events.EquipmentActionEvent{
		EventID:           events.NewEventID(),
		EquipmentID:       eq.ID,
		EquipmentName:     eq.Name,
		EquipmentCategory: eq.Category,
		ActionID:          a.ID,
		ActionType:        a.ActionType,
		Status:            a.Status,
		TargetValue:       a.TargetValue,
		ObservedValue:     a.ObservedValue,
		ExecutedAt:        a.ExecutedAt,
		Result:            a.Result,
		IsAutomatic:       isAutomatic,
		EventTimestamp:    now,
	}
	if a.ParameterID != nil {
		ev.ParameterID = *a.ParameterID
	}
	return ev
}
