package database

import (
	"context"
	"fmt"
	"time"
)

// Summary aggregates action and equipment counts.
type Summary struct {
	TotalActions     int64            `json:"total_actions"`
	ActionsByStatus  map[string]int64 `json:"actions_by_status"`
	AutomaticActions int64            `json:"automatic_actions"`
	ManualActions    int64            `json:"manual_actions"`
	ActionsLast24h   int64            `json:"actions_last_24h"`

	TotalEquipment      int64            `json:"total_equipment"`
	ActiveEquipment     int64            `json:"active_equipment"`
	EquipmentByCategory map[string]int64 `json:"equipment_by_category"`

	CollectedAt time.Time `json:"collected_at"`
}

// queryTimeout bounds each summary query.
const queryTimeout = 2 * time.Second

// GetSummary aggregates counts over actions and equipment.
// Automatic actions are the ones recorded for an alert event.
func (db *DB) GetSummary(ctx context.Context) (*Summary, error) {
	s := &Summary{
		ActionsByStatus:     make(map[string]int64),
		EquipmentByCategory: make(map[string]int64),
		CollectedAt:         time.Now().UTC(),
	}

	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.conn.QueryContext(qctx, `SELECT status, COUNT(*) FROM actions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count actions by status: %w", err)
	}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan action count: %w", err)
		}
		s.ActionsByStatus[status] = n
		s.TotalActions += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to count actions by status: %w", err)
	}

	err = db.conn.QueryRowContext(qctx, `
		SELECT
			COUNT(*) FILTER (WHERE source_event_id IS NOT NULL),
			COUNT(*) FILTER (WHERE created_at > NOW() - INTERVAL '24 hours')
		FROM actions
	`).Scan(&s.AutomaticActions, &s.ActionsLast24h)
	if err != nil {
		return nil, fmt.Errorf("failed to count recent actions: %w", err)
	}
	s.ManualActions = s.TotalActions - s.AutomaticActions

	rows, err = db.conn.QueryContext(qctx, `SELECT category, state, COUNT(*) FROM equipment GROUP BY category, state`)
	if err != nil {
		return nil, fmt.Errorf("failed to count equipment: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var category, state string
		var n int64
		if err := rows.Scan(&category, &state, &n); err != nil {
			return nil, fmt.Errorf("failed to scan equipment count: %w", err)
		}
		s.EquipmentByCategory[category] += n
		s.TotalEquipment += n
		if state == StateActive {
			s.ActiveEquipment += n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to count equipment: %w", err)
	}

	return s, nil
}
