// Package handlers provides HTTP handlers for the control-service API.
package handlers

import (
	"context"

	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/metrics"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/database"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/envclient"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/executor"
)

// Repository defines the database operations used by the handlers.
type Repository interface {
	CreateEquipment(ctx context.Context, category, name, state string, parameterID *string) (*database.Equipment, error)
	GetEquipment(ctx context.Context, equipmentID string) (*database.Equipment, error)
	ListEquipment(ctx context.Context, category *string) ([]*database.Equipment, error)
	UpdateEquipment(ctx context.Context, equipmentID, name, state string, parameterID *string) (*database.Equipment, error)

	GetAction(ctx context.Context, actionID string) (*database.Action, error)
	ListActions(ctx context.Context, limit, offset int) (*database.ActionListResult, error)
	ListActionsByEquipment(ctx context.Context, equipmentID string, limit int) ([]*database.Action, error)

	GetSummary(ctx context.Context) (*database.Summary, error)
}

// ManualExecutor creates and executes operator actions.
type ManualExecutor interface {
	CreateManual(ctx context.Context, req executor.ManualActionRequest) (*database.Action, error)
}

// ConditionsReader reads the current environment conditions.
type ConditionsReader interface {
	CurrentConditions(ctx context.Context) (*envclient.Conditions, error)
}

// ServiceMetricsReader reads the service snapshots published by every service.
type ServiceMetricsReader interface {
	Get(ctx context.Context, serviceName string) (*metrics.Snapshot, error)
	GetAll(ctx context.Context) map[string]*metrics.Snapshot
}

// Handlers wraps dependencies for HTTP handlers.
type Handlers struct {
	db            Repository
	executor      ManualExecutor
	conditions    ConditionsReader
	metricsReader ServiceMetricsReader
}

// NewHandlers creates a new handlers instance. metricsReader may be nil when Redis is
// not configured.
func NewHandlers(db Repository, exec ManualExecutor, conditions ConditionsReader, metricsReader ServiceMetricsReader) *Handlers {
	return &Handlers{
		db:            db,
		executor:      exec,
		conditions:    conditions,
		metricsReader: metricsReader,
	}
}
