// Package decision maps threshold alerts to corrective equipment actions.
package decision

import (
	"fmt"
	"strings"

	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/database"
)

// ParameterKind is a monitored environmental quantity.
type ParameterKind int

const (
	KindUnknown ParameterKind = iota
	KindTemperature
	KindHumidity
	KindLuminosity
	KindCO2
)

func (k ParameterKind) String() string {
	switch k {
	case KindTemperature:
		return "temperature"
	case KindHumidity:
		return "humidity"
	case KindLuminosity:
		return "luminosity"
	case KindCO2:
		return "co2"
	default:
		return "unknown"
	}
}

var kindAliases = map[string]ParameterKind{
	"temperature": KindTemperature,
	"temp":        KindTemperature,
	"humidity":    KindHumidity,
	"humidite":    KindHumidity,
	"luminosity":  KindLuminosity,
	"luminosite":  KindLuminosity,
	"light":       KindLuminosity,
	"co2":         KindCO2,
}

// ParseKind parses a parameter type case-insensitively. Unrecognized names map to KindUnknown.
func ParseKind(s string) ParameterKind {
	return kindAliases[strings.ToLower(strings.TrimSpace(s))]
}

// Direction tells which bound a value breached.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionHigh
	DirectionLow
)

func (d Direction) String() string {
	switch d {
	case DirectionHigh:
		return "high"
	case DirectionLow:
		return "low"
	default:
		return "none"
	}
}

// DirectionOf classifies value against the band [min, max].
func DirectionOf(value, min, max float64) Direction {
	switch {
	case value > max:
		return DirectionHigh
	case value < min:
		return DirectionLow
	default:
		return DirectionNone
	}
}

// Decision is the equipment category to drive and the action to issue.
type Decision struct {
	Category   string
	ActionType string
}

func (d Decision) String() string {
	return fmt.Sprintf("%s/%s", d.Category, d.ActionType)
}

// Default applies to every kind and direction without a specific rule.
var Default = Decision{Category: database.CategoryVentilator, ActionType: database.ActionAdjust}

type ruleKey struct {
	kind      ParameterKind
	direction Direction
}

var rules = map[ruleKey]Decision{
	{KindTemperature, DirectionHigh}: {Category: database.CategoryVentilator, ActionType: database.ActionActivate},
	{KindTemperature, DirectionLow}:  {Category: database.CategoryHeater, ActionType: database.ActionActivate},
	{KindHumidity, DirectionHigh}:    {Category: database.CategoryVentilator, ActionType: database.ActionActivate},
	{KindLuminosity, DirectionLow}:   {Category: database.CategoryLight, ActionType: database.ActionActivate},
	{KindCO2, DirectionHigh}:         {Category: database.CategoryVentilator, ActionType: database.ActionActivate},
}

// Decide returns the decision for every (kind, direction) pair.
func Decide(kind ParameterKind, direction Direction) Decision {
	if d, ok := rules[ruleKey{kind, direction}]; ok {
		return d
	}
	return Default
}

// TargetValue is the bound the corrective action steers back towards.
func TargetValue(value, min, max float64) float64 {
	if value > max {
		return max
	}
	return min
}
