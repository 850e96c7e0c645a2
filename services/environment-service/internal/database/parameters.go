package database

import (
	"context"
	"fmt"
)

const parameterColumns = `id, kind, min_threshold, max_threshold, unit, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParameter(row rowScanner) (*Parameter, error) {
	var p Parameter
	if err := row.Scan(
		&p.ID,
		&p.Kind,
		&p.MinThreshold,
		&p.MaxThreshold,
		&p.Unit,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateParameter inserts a parameter. A second parameter of the same kind is a duplicate.
func (db *DB) CreateParameter(ctx context.Context, kind string, minThreshold, maxThreshold float64, unit string) (*Parameter, error) {
	query := `
		INSERT INTO parameters (kind, min_threshold, max_threshold, unit, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING ` + parameterColumns

	p, err := scanParameter(db.conn.QueryRowContext(ctx, query, kind, minThreshold, maxThreshold, unit))
	if err != nil {
		return nil, translateError(err, "create", "parameter")
	}
	return p, nil
}

// GetParameter retrieves a parameter by ID.
func (db *DB) GetParameter(ctx context.Context, parameterID string) (*Parameter, error) {
	query := `SELECT ` + parameterColumns + ` FROM parameters WHERE id = $1`

	p, err := scanParameter(db.conn.QueryRowContext(ctx, query, parameterID))
	if err != nil {
		return nil, translateError(err, "get", "parameter "+parameterID)
	}
	return p, nil
}

// GetParameterByKind retrieves the parameter configured for kind.
func (db *DB) GetParameterByKind(ctx context.Context, kind string) (*Parameter, error) {
	query := `SELECT ` + parameterColumns + ` FROM parameters WHERE kind = $1`

	p, err := scanParameter(db.conn.QueryRowContext(ctx, query, kind))
	if err != nil {
		return nil, translateError(err, "get", "parameter of kind "+kind)
	}
	return p, nil
}

// ListParameters retrieves every configured parameter ordered by kind.
func (db *DB) ListParameters(ctx context.Context) ([]*Parameter, error) {
	query := `SELECT ` + parameterColumns + ` FROM parameters ORDER BY kind`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list parameters: %w", err)
	}
	defer rows.Close()

	parameters := []*Parameter{}
	for rows.Next() {
		p, err := scanParameter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan parameter: %w", err)
		}
		parameters = append(parameters, p)
	}
	return parameters, rows.Err()
}

// UpdateParameterThresholds replaces the threshold band and unit of a parameter.
func (db *DB) UpdateParameterThresholds(ctx context.Context, parameterID string, minThreshold, maxThreshold float64, unit string) (*Parameter, error) {
	query := `
		UPDATE parameters
		SET min_threshold = $2,
		    max_threshold = $3,
		    unit = $4,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + parameterColumns

	p, err := scanParameter(db.conn.QueryRowContext(ctx, query, parameterID, minThreshold, maxThreshold, unit))
	if err != nil {
		return nil, translateError(err, "update", "parameter "+parameterID)
	}
	return p, nil
}
