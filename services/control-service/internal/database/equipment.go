package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/apperrors"
)

const equipmentColumns = "id, category, name, state, last_action_at, parameter_id, created_at, updated_at"

func scanEquipment(row rowScanner) (*Equipment, error) {
	var e Equipment
	var lastActionAt sql.NullTime
	var parameterID sql.NullString
	if err := row.Scan(&e.ID, &e.Category, &e.Name, &e.State, &lastActionAt, &parameterID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.LastActionAt = timePtr(lastActionAt)
	e.ParameterID = stringPtr(parameterID)
	return &e, nil
}

// CreateEquipment registers a new piece of equipment.
func (db *DB) CreateEquipment(ctx context.Context, category, name, state string, parameterID *string) (*Equipment, error) {
	query := `
		INSERT INTO equipment (category, name, state, parameter_id)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + equipmentColumns

	e, err := scanEquipment(db.conn.QueryRowContext(ctx, query, category, name, state, nullString(parameterID)))
	if err != nil {
		return nil, translateError(err, "create", "equipment")
	}
	return e, nil
}

// GetEquipment retrieves equipment by id.
func (db *DB) GetEquipment(ctx context.Context, equipmentID string) (*Equipment, error) {
	query := `SELECT ` + equipmentColumns + ` FROM equipment WHERE id = $1`

	e, err := scanEquipment(db.conn.QueryRowContext(ctx, query, equipmentID))
	if err != nil {
		return nil, translateError(err, "get", "equipment "+equipmentID)
	}
	return e, nil
}

// ListEquipment returns all equipment, optionally restricted to one category.
func (db *DB) ListEquipment(ctx context.Context, category *string) ([]*Equipment, error) {
	query := `SELECT ` + equipmentColumns + ` FROM equipment`
	var args []any
	if category != nil {
		query += ` WHERE category = $1`
		args = append(args, *category)
	}
	query += ` ORDER BY category, name`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateError(err, "list", "equipment")
	}
	defer rows.Close()

	list := []*Equipment{}
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan equipment: %w", err)
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating equipment: %w", err)
	}
	return list, nil
}

// FindActiveEquipment returns the active equipment of category that acted least recently.
// It fails with apperrors.ErrEquipmentNotAvailable when none is active.
func (db *DB) FindActiveEquipment(ctx context.Context, category string) (*Equipment, error) {
	query := `
		SELECT ` + equipmentColumns + `
		FROM equipment
		WHERE category = $1 AND state = $2
		ORDER BY last_action_at ASC NULLS FIRST, created_at ASC
		LIMIT 1`

	e, err := scanEquipment(db.conn.QueryRowContext(ctx, query, category, StateActive))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no active %s: %w", category, apperrors.ErrEquipmentNotAvailable)
	}
	if err != nil {
		return nil, translateError(err, "find", "active "+category)
	}
	return e, nil
}

// UpdateEquipment replaces the mutable fields of a piece of equipment.
func (db *DB) UpdateEquipment(ctx context.Context, equipmentID, name, state string, parameterID *string) (*Equipment, error) {
	query := `
		UPDATE equipment
		SET name = $2, state = $3, parameter_id = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + equipmentColumns

	e, err := scanEquipment(db.conn.QueryRowContext(ctx, query, equipmentID, name, state, nullString(parameterID)))
	if err != nil {
		return nil, translateError(err, "update", "equipment "+equipmentID)
	}
	return e, nil
}

// TouchEquipment records at as the equipment's last action time.
func (db *DB) TouchEquipment(ctx context.Context, equipmentID string, at time.Time) error {
	query := `UPDATE equipment SET last_action_at = $2, updated_at = NOW() WHERE id = $1`

	res, err := db.conn.ExecContext(ctx, query, equipmentID, at)
	if err != nil {
		return translateError(err, "touch", "equipment "+equipmentID)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("equipment %s touch: %w", equipmentID, apperrors.ErrNotFound)
	}
	return nil
}
