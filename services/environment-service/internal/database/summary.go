package database

import (
	"context"
	"fmt"
	"time"
)

// KindStats counts measurements of one parameter kind.
type KindStats struct {
	Measurements int64 `json:"measurements"`
	Alerts       int64 `json:"alerts"`
}

// Summary aggregates parameter and measurement counts.
type Summary struct {
	TotalParameters     int64                `json:"total_parameters"`
	TotalMeasurements   int64                `json:"total_measurements"`
	AlertMeasurements   int64                `json:"alert_measurements"`
	MeasurementsLast24h int64                `json:"measurements_last_24h"`
	AlertsLast24h       int64                `json:"alerts_last_24h"`
	ByKind              map[string]KindStats `json:"by_kind"`
	CollectedAt         time.Time            `json:"collected_at"`
}

// queryTimeout bounds each summary query.
const queryTimeout = 2 * time.Second

// GetSummary aggregates counts over parameters and measurements.
func (db *DB) GetSummary(ctx context.Context) (*Summary, error) {
	s := &Summary{
		ByKind:      make(map[string]KindStats),
		CollectedAt: time.Now().UTC(),
	}

	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := db.conn.QueryRowContext(qctx, `
		SELECT
			(SELECT COUNT(*) FROM parameters),
			COUNT(*),
			COUNT(*) FILTER (WHERE alert),
			COUNT(*) FILTER (WHERE measured_at > NOW() - INTERVAL '24 hours'),
			COUNT(*) FILTER (WHERE alert AND measured_at > NOW() - INTERVAL '24 hours')
		FROM measurements
	`).Scan(&s.TotalParameters, &s.TotalMeasurements, &s.AlertMeasurements, &s.MeasurementsLast24h, &s.AlertsLast24h)
	if err != nil {
		return nil, fmt.Errorf("failed to count measurements: %w", err)
	}

	rows, err := db.conn.QueryContext(qctx, `
		SELECT p.kind, COUNT(m.id), COUNT(m.id) FILTER (WHERE m.alert)
		FROM parameters p
		LEFT JOIN measurements m ON m.parameter_id = p.id
		GROUP BY p.kind
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count measurements by kind: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var st KindStats
		if err := rows.Scan(&kind, &st.Measurements, &st.Alerts); err != nil {
			return nil, fmt.Errorf("failed to scan kind count: %w", err)
		}
		s.ByKind[kind] = st
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to count measurements by kind: %w", err)
	}

	return s, nil
}
