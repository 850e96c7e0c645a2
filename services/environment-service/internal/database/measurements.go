package database

import (
	"context"
	"fmt"
	"time"
)

const measurementColumns = `id, parameter_id, value, measured_at, alert, created_at`

func scanMeasurement(row rowScanner) (*Measurement, error) {
	var m Measurement
	if err := row.Scan(
		&m.ID,
		&m.ParameterID,
		&m.Value,
		&m.MeasuredAt,
		&m.Alert,
		&m.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateMeasurement stores a measurement with its computed alert flag.
func (db *DB) CreateMeasurement(ctx context.Context, parameterID string, value float64, measuredAt time.Time, alert bool) (*Measurement, error) {
	query := `
		INSERT INTO measurements (parameter_id, value, measured_at, alert, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING ` + measurementColumns

	m, err := scanMeasurement(db.conn.QueryRowContext(ctx, query, parameterID, value, measuredAt, alert))
	if err != nil {
		return nil, translateError(err, "create", "measurement")
	}
	return m, nil
}

// ListMeasurements retrieves measurements newest first, optionally filtered by parameter.
func (db *DB) ListMeasurements(ctx context.Context, parameterID *string, limit, offset int) (*MeasurementListResult, error) {
	var countQuery, query string
	var args []any

	if parameterID != nil {
		countQuery = `SELECT COUNT(*) FROM measurements WHERE parameter_id = $1`
		query = `SELECT ` + measurementColumns + `
			FROM measurements
			WHERE parameter_id = $1
			ORDER BY measured_at DESC
			LIMIT $2 OFFSET $3`
		args = []any{*parameterID}
	} else {
		countQuery = `SELECT COUNT(*) FROM measurements`
		query = `SELECT ` + measurementColumns + `
			FROM measurements
			ORDER BY measured_at DESC
			LIMIT $1 OFFSET $2`
	}

	var total int64
	if err := db.conn.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count measurements: %w", err)
	}

	measurements, err := db.queryMeasurements(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, err
	}

	return &MeasurementListResult{
		Measurements: measurements,
		Total:        total,
		Limit:        limit,
		Offset:       offset,
	}, nil
}

// RecentMeasurements retrieves the latest limit measurements of a parameter.
func (db *DB) RecentMeasurements(ctx context.Context, parameterID string, limit int) ([]*Measurement, error) {
	query := `SELECT ` + measurementColumns + `
		FROM measurements
		WHERE parameter_id = $1
		ORDER BY measured_at DESC
		LIMIT $2`
	return db.queryMeasurements(ctx, query, parameterID, limit)
}

// MeasurementsInRange retrieves measurements with from <= measured_at <= to, oldest first.
func (db *DB) MeasurementsInRange(ctx context.Context, parameterID *string, from, to time.Time) ([]*Measurement, error) {
	if parameterID != nil {
		query := `SELECT ` + measurementColumns + `
			FROM measurements
			WHERE parameter_id = $1 AND measured_at BETWEEN $2 AND $3
			ORDER BY measured_at ASC`
		return db.queryMeasurements(ctx, query, *parameterID, from, to)
	}
	query := `SELECT ` + measurementColumns + `
		FROM measurements
		WHERE measured_at BETWEEN $1 AND $2
		ORDER BY measured_at ASC`
	return db.queryMeasurements(ctx, query, from, to)
}

// AlertMeasurements retrieves measurements flagged as alerts, newest first.
func (db *DB) AlertMeasurements(ctx context.Context, parameterID *string, limit int) ([]*Measurement, error) {
	if parameterID != nil {
		query := `SELECT ` + measurementColumns + `
			FROM measurements
			WHERE alert = TRUE AND parameter_id = $1
			ORDER BY measured_at DESC
			LIMIT $2`
		return db.queryMeasurements(ctx, query, *parameterID, limit)
	}
	query := `SELECT ` + measurementColumns + `
		FROM measurements
		WHERE alert = TRUE
		ORDER BY measured_at DESC
		LIMIT $1`
	return db.queryMeasurements(ctx, query, limit)
}

func (db *DB) queryMeasurements(ctx context.Context, query string, args ...any) ([]*Measurement, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query measurements: %w", err)
	}
	defer rows.Close()

	measurements := []*Measurement{}
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan measurement: %w", err)
		}
		measurements = append(measurements, m)
	}
	return measurements, rows.Err()
}
