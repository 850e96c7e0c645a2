package database

import "time"

// Equipment categories.
const (
	CategoryVentilator = "ventilator"
	CategoryHeater     = "heater"
	CategoryLight      = "light"
	CategoryIrrigation = "irrigation"
)

// Equipment states.
const (
	StateActive   = "active"
	StateInactive = "inactive"
)

// Action types.
const (
	ActionActivate   = "activate"
	ActionDeactivate = "deactivate"
	ActionAdjust     = "adjust"
)

// Action statuses. Executed and failed are terminal.
const (
	StatusPending  = "pending"
	StatusExecuted = "executed"
	StatusFailed   = "failed"
)

// ValidCategory reports whether c is a known equipment category.
func ValidCategory(c string) bool {
	switch c {
	case CategoryVentilator, CategoryHeater, CategoryLight, CategoryIrrigation:
		return true
	}
	return false
}

// ValidState reports whether s is a known equipment state.
func ValidState(s string) bool {
	return s == StateActive || s == StateInactive
}

// ValidActionType reports whether a is a known action type.
func ValidActionType(a string) bool {
	switch a {
	case ActionActivate, ActionDeactivate, ActionAdjust:
		return true
	}
	return false
}

// Equipment represents a physical actuator in the greenhouse.
type Equipment struct {
	ID           string     `json:"id"`
	Category     string     `json:"category"`
	Name         string     `json:"name"`
	State        string     `json:"state"`
	LastActionAt *time.Time `json:"last_action_at,omitempty"`
	ParameterID  *string    `json:"parameter_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Action is a command issued to one piece of equipment.
type Action struct {
	ID            string     `json:"id"`
	EquipmentID   string     `json:"equipment_id"`
	ParameterID   *string    `json:"parameter_id,omitempty"`
	ActionType    string     `json:"action_type"`
	TargetValue   *float64   `json:"target_value,omitempty"`
	ObservedValue *float64   `json:"observed_value,omitempty"`
	Status        string     `json:"status"`
	ExecutedAt    *time.Time `json:"executed_at,omitempty"`
	Result        string     `json:"result"`
	SourceEventID *string    `json:"source_event_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// NewAction holds the fields supplied when an action is created.
// SourceEventID is set for actions triggered by an alert event.
type NewAction struct {
	EquipmentID   string
	ParameterID   *string
	ActionType    string
	TargetValue   *float64
	ObservedValue *float64
	SourceEventID *string
}

// ActionListResult is a page of actions.
type ActionListResult struct {
	Actions []*Action `json:"actions"`
	Total   int64     `json:"total"`
	Limit   int       `json:"limit"`
	Offset  int       `json:"offset"`
}
