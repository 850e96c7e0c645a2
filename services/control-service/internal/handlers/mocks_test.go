package handlers

import (
	"context"
	"fmt"

	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/apperrors"
	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/metrics"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/database"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/envclient"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/executor"
)

// mockRepository implements Repository for testing.
type mockRepository struct {
	CreateEquipmentFn        func(ctx context.Context, category, name, state string, parameterID *string) (*database.Equipment, error)
	GetEquipmentFn           func(ctx context.Context, equipmentID string) (*database.Equipment, error)
	ListEquipmentFn          func(ctx context.Context, category *string) ([]*database.Equipment, error)
	UpdateEquipmentFn        func(ctx context.Context, equipmentID, name, state string, parameterID *string) (*database.Equipment, error)
	GetActionFn              func(ctx context.Context, actionID string) (*database.Action, error)
	ListActionsFn            func(ctx context.Context, limit, offset int) (*database.ActionListResult, error)
	ListActionsByEquipmentFn func(ctx context.Context, equipmentID string, limit int) ([]*database.Action, error)
	GetSummaryFn             func(ctx context.Context) (*database.Summary, error)
}

func (m *mockRepository) CreateEquipment(ctx context.Context, category, name, state string, parameterID *string) (*database.Equipment, error) {
	if m.CreateEquipmentFn != nil {
		return m.CreateEquipmentFn(ctx, category, name, state, parameterID)
	}
	return &database.Equipment{ID: "eq-1", Category: category, Name: name, State: state, ParameterID: parameterID}, nil
}

func (m *mockRepository) GetEquipment(ctx context.Context, equipmentID string) (*database.Equipment, error) {
	if m.GetEquipmentFn != nil {
		return m.GetEquipmentFn(ctx, equipmentID)
	}
	return &database.Equipment{ID: equipmentID, Category: database.CategoryVentilator, Name: "Fan 1", State: database.StateActive}, nil
}

func (m *mockRepository) ListEquipment(ctx context.Context, category *string) ([]*database.Equipment, error) {
	if m.ListEquipmentFn != nil {
		return m.ListEquipmentFn(ctx, category)
	}
	return []*database.Equipment{}, nil
}

func (m *mockRepository) UpdateEquipment(ctx context.Context, equipmentID, name, state string, parameterID *string) (*database.Equipment, error) {
	if m.UpdateEquipmentFn != nil {
		return m.UpdateEquipmentFn(ctx, equipmentID, name, state, parameterID)
	}
	return &database.Equipment{ID: equipmentID, Name: name, State: state, ParameterID: parameterID}, nil
}

func (m *mockRepository) GetAction(ctx context.Context, actionID string) (*database.Action, error) {
	if m.GetActionFn != nil {
		return m.GetActionFn(ctx, actionID)
	}
	return &database.Action{ID: actionID, Status: database.StatusExecuted}, nil
}

func (m *mockRepository) ListActions(ctx context.Context, limit, offset int) (*database.ActionListResult, error) {
	if m.ListActionsFn != nil {
		return m.ListActionsFn(ctx, limit, offset)
	}
	return &database.ActionListResult{Actions: []*database.Action{}, Limit: limit, Offset: offset}, nil
}

func (m *mockRepository) ListActionsByEquipment(ctx context.Context, equipmentID string, limit int) ([]*database.Action, error) {
	if m.ListActionsByEquipmentFn != nil {
		return m.ListActionsByEquipmentFn(ctx, equipmentID, limit)
	}
	return []*database.Action{}, nil
}

func (m *mockRepository) GetSummary(ctx context.Context) (*database.Summary, error) {
	if m.GetSummaryFn != nil {
		return m.GetSummaryFn(ctx)
	}
	return &database.Summary{ActionsByStatus: map[string]int64{}, EquipmentByCategory: map[string]int64{}}, nil
}

// mockExecutor implements ManualExecutor for testing.
type mockExecutor struct {
	CreateManualFn func(ctx context.Context, req executor.ManualActionRequest) (*database.Action, error)
}

func (m *mockExecutor) CreateManual(ctx context.Context, req executor.ManualActionRequest) (*database.Action, error) {
	if m.CreateManualFn != nil {
		return m.CreateManualFn(ctx, req)
	}
	return &database.Action{ID: "act-1", EquipmentID: req.EquipmentID, ActionType: req.ActionType, TargetValue: req.TargetValue, Status: database.StatusExecuted}, nil
}

// mockConditions implements ConditionsReader for testing.
type mockConditions struct {
	CurrentConditionsFn func(ctx context.Context) (*envclient.Conditions, error)
}

func (m *mockConditions) CurrentConditions(ctx context.Context) (*envclient.Conditions, error) {
	if m.CurrentConditionsFn != nil {
		return m.CurrentConditionsFn(ctx)
	}
	return &envclient.Conditions{Parameters: []envclient.Parameter{{ID: "p1", Kind: "temperature", MinThreshold: 15, MaxThreshold: 30}}}, nil
}

// mockMetricsReader implements ServiceMetricsReader over a fixed snapshot set.
type mockMetricsReader struct {
	snapshots map[string]*metrics.Snapshot
}

func (m *mockMetricsReader) Get(_ context.Context, name string) (*metrics.Snapshot, error) {
	if s, ok := m.snapshots[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("no metrics found for service: %s", name)
}

func (m *mockMetricsReader) GetAll(context.Context) map[string]*metrics.Snapshot {
	out := make(map[string]*metrics.Snapshot, len(m.snapshots))
	for k, v := range m.snapshots {
		out[k] = v
	}
	return out
}

func notFound(resource string) error {
	return fmt.Errorf("%s: %w", resource, apperrors.ErrNotFound)
}
