package decision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/apperrors"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/database"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/events"
)

// Repository is the storage the engine needs.
type Repository interface {
	GetActionBySourceEvent(ctx context.Context, eventID string) (*database.Action, error)
	FindActiveEquipment(ctx context.Context, category string) (*database.Equipment, error)
	CreateAction(ctx context.Context, in database.NewAction) (*database.Action, bool, error)
}

// Executor runs a pending action to a terminal state.
type Executor interface {
	Execute(ctx context.Context, actionID string, isAutomatic bool) (*database.Action, error)
}

// Outcome reports what HandleAlert did.
type Outcome struct {
	Decision Decision
	Action   *database.Action
	// Resumed is true when an action for the alert already existed.
	Resumed bool
}

// Engine turns alerts into executed actions.
type Engine struct {
	repo     Repository
	executor Executor
}

// NewEngine creates an engine.
func NewEngine(repo Repository, executor Executor) *Engine {
	return &Engine{repo: repo, executor: executor}
}

// HandleAlert decides on a corrective action for alert, creates it on an active piece
// of equipment of the chosen category and executes it automatically.
//
// An action already recorded for the alert's event id is not created again: if it is
// still pending it is executed, otherwise it is returned as is. That lookup happens
// before equipment selection, so a redelivered alert never depends on the equipment
// that handled it still being active.
func (e *Engine) HandleAlert(ctx context.Context, alert *events.AlertEvent) (*Outcome, error) {
	if alert == nil || alert.EventID == "" {
		return nil, fmt.Errorf("alert without event id: %w", apperrors.ErrInvalidArgument)
	}

	kind := ParseKind(alert.ParameterType)
	direction := DirectionOf(alert.Value, alert.MinThreshold, alert.MaxThreshold)
	decision := Decide(kind, direction)

	slog.Debug("Decided corrective action",
		"event_id", alert.EventID,
		"parameter_type", alert.ParameterType,
		"kind", kind,
		"direction", direction,
		"decision", decision,
	)

	existing, err := e.repo.GetActionBySourceEvent(ctx, alert.EventID)
	switch {
	case err == nil:
		return e.resume(ctx, alert, &Outcome{Decision: decision, Action: existing, Resumed: true})
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, fmt.Errorf("failed to look up action for event %s: %w", alert.EventID, err)
	}

	equipment, err := e.repo.FindActiveEquipment(ctx, decision.Category)
	if err != nil {
		return nil, err
	}

	target := TargetValue(alert.Value, alert.MinThreshold, alert.MaxThreshold)
	observed := alert.Value
	in := database.NewAction{
		EquipmentID:   equipment.ID,
		ActionType:    decision.ActionType,
		TargetValue:   &target,
		ObservedValue: &observed,
		SourceEventID: &alert.EventID,
	}
	if alert.ParameterID != "" {
		parameterID := alert.ParameterID
		in.ParameterID = &parameterID
	}

	// A concurrent delivery may still win the insert; CreateAction then returns its row.
	action, created, err := e.repo.CreateAction(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to create action for event %s: %w", alert.EventID, err)
	}
	return e.resume(ctx, alert, &Outcome{Decision: decision, Action: action, Resumed: !created})
}

// resume executes outcome.Action unless it already reached a terminal state.
func (e *Engine) resume(ctx context.Context, alert *events.AlertEvent, outcome *Outcome) (*Outcome, error) {
	action := outcome.Action
	if action.Status != database.StatusPending {
		slog.Info("Action for event already completed",
			"event_id", alert.EventID,
			"action_id", action.ID,
			"status", action.Status,
		)
		return outcome, nil
	}

	executed, err := e.executor.Execute(ctx, action.ID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to execute action %s: %w", action.ID, err)
	}
	outcome.Action = executed

	slog.Info("Handled alert",
		"event_id", alert.EventID,
		"parameter_id", alert.ParameterID,
		"equipment_id", executed.EquipmentID,
		"action_id", executed.ID,
		"decision", outcome.Decision,
		"status", executed.Status,
		"resumed", outcome.Resumed,
	)
	return outcome, nil
}
