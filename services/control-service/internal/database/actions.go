package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/apperrors"
)

const actionColumns = "id, equipment_id, parameter_id, action_type, target_value, observed_value, status, executed_at, result, source_event_id, created_at"

func scanAction(row rowScanner) (*Action, error) {
	var a Action
	var parameterID, sourceEventID sql.NullString
	var target, observed sql.NullFloat64
	var executedAt sql.NullTime
	if err := row.Scan(&a.ID, &a.EquipmentID, &parameterID, &a.ActionType, &target, &observed,
		&a.Status, &executedAt, &a.Result, &sourceEventID, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.ParameterID = stringPtr(parameterID)
	a.TargetValue = floatPtr(target)
	a.ObservedValue = floatPtr(observed)
	a.ExecutedAt = timePtr(executedAt)
	a.SourceEventID = stringPtr(sourceEventID)
	return &a, nil
}

// CreateAction inserts a pending action. When SourceEventID is set the insert is
// idempotent: if an action for that event already exists it is returned with created=false.
func (db *DB) CreateAction(ctx context.Context, in NewAction) (action *Action, created bool, err error) {
	query := `
		INSERT INTO actions (equipment_id, parameter_id, action_type, target_value, observed_value, status, result, source_event_id)
		VALUES ($1, $2, $3, $4, $5, $6, '', $7)
		ON CONFLICT (source_event_id) DO NOTHING
		RETURNING ` + actionColumns

	action, err = scanAction(db.conn.QueryRowContext(ctx, query,
		in.EquipmentID,
		nullString(in.ParameterID),
		in.ActionType,
		nullFloat(in.TargetValue),
		nullFloat(in.ObservedValue),
		StatusPending,
		nullString(in.SourceEventID),
	))
	if err == nil {
		return action, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) || in.SourceEventID == nil {
		return nil, false, translateError(err, "create", "action")
	}

	existing, err := db.GetActionBySourceEvent(ctx, *in.SourceEventID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetAction retrieves an action by id.
func (db *DB) GetAction(ctx context.Context, actionID string) (*Action, error) {
	query := `SELECT ` + actionColumns + ` FROM actions WHERE id = $1`

	a, err := scanAction(db.conn.QueryRowContext(ctx, query, actionID))
	if err != nil {
		return nil, translateError(err, "get", "action "+actionID)
	}
	return a, nil
}

// GetActionBySourceEvent retrieves the action created for an alert event.
func (db *DB) GetActionBySourceEvent(ctx context.Context, eventID string) (*Action, error) {
	query := `SELECT ` + actionColumns + ` FROM actions WHERE source_event_id = $1`

	a, err := scanAction(db.conn.QueryRowContext(ctx, query, eventID))
	if err != nil {
		return nil, translateError(err, "get", "action for event "+eventID)
	}
	return a, nil
}

// ListActions returns a page of actions, newest first.
func (db *DB) ListActions(ctx context.Context, limit, offset int) (*ActionListResult, error) {
	var total int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM actions`).Scan(&total); err != nil {
		return nil, translateError(err, "count", "actions")
	}

	query := `SELECT ` + actionColumns + ` FROM actions ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	actions, err := db.queryActions(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}

	return &ActionListResult{Actions: actions, Total: total, Limit: limit, Offset: offset}, nil
}

// ListActionsByEquipment returns the latest actions issued to one piece of equipment.
func (db *DB) ListActionsByEquipment(ctx context.Context, equipmentID string, limit int) ([]*Action, error) {
	query := `SELECT ` + actionColumns + ` FROM actions WHERE equipment_id = $1 ORDER BY created_at DESC LIMIT $2`
	return db.queryActions(ctx, query, equipmentID, limit)
}

func (db *DB) queryActions(ctx context.Context, query string, args ...any) ([]*Action, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateError(err, "list", "actions")
	}
	defer rows.Close()

	actions := []*Action{}
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating actions: %w", err)
	}
	return actions, nil
}

// MarkExecuted moves a pending action to executed.
func (db *DB) MarkExecuted(ctx context.Context, actionID string, executedAt time.Time, result string) (*Action, error) {
	query := `
		UPDATE actions
		SET status = $2, executed_at = $3, result = $4
		WHERE id = $1 AND status = $5
		RETURNING ` + actionColumns
	return db.transition(ctx, query, actionID, StatusExecuted, executedAt, result, StatusPending)
}

// MarkFailed moves a pending action to failed.
func (db *DB) MarkFailed(ctx context.Context, actionID, result string) (*Action, error) {
	query := `
		UPDATE actions
		SET status = $2, result = $3
		WHERE id = $1 AND status = $4
		RETURNING ` + actionColumns
	return db.transition(ctx, query, actionID, StatusFailed, result, StatusPending)
}

// transition applies a guarded status update. No row means the action is missing
// or already terminal.
func (db *DB) transition(ctx context.Context, query, actionID string, args ...any) (*Action, error) {
	a, err := scanAction(db.conn.QueryRowContext(ctx, query, append([]any{actionID}, args...)...))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, translateError(err, "update", "action "+actionID)
	}

	current, getErr := db.GetAction(ctx, actionID)
	if getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("action %s is %s: %w", actionID, current.Status, apperrors.ErrInvalidTransition)
}
