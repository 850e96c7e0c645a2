// Package evaluator checks measurements against parameter thresholds and emits
// measurement and alert events.
package evaluator

import (
	"math"

	"github.com/mohamedlandolsi/greenhouse-management-system/services/environment-service/internal/events"
)

// Direction is the side of the threshold band a value falls on.
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

// Evaluation is the outcome of comparing one value to a threshold band.
type Evaluation struct {
	IsAlert      bool
	Direction    Direction
	DeviationPct float64 // percent beyond the breached bound, relative to that bound
	Severity     string  // empty when IsAlert is false
}

// Evaluate compares value against [min, max]. Values on a bound are inside the band.
func Evaluate(value, min, max float64) Evaluation {
	var ev Evaluation
	switch {
	case value > max:
		ev = Evaluation{IsAlert: true, Direction: DirectionHigh, DeviationPct: (value - max) / reference(max) * 100}
	case value < min:
		ev = Evaluation{IsAlert: true, Direction: DirectionLow, DeviationPct: (min - value) / reference(min) * 100}
	default:
		return Evaluation{Direction: DirectionNone}
	}
	ev.Severity = SeverityFor(ev.DeviationPct)
	return ev
}

// SeverityFor maps a percent deviation to a severity tier.
func SeverityFor(deviationPct float64) string {
	switch {
	case deviationPct > 50:
		return events.SeverityCritical
	case deviationPct > 25:
		return events.SeverityHigh
	case deviationPct > 10:
		return events.SeverityMedium
	default:
		return events.SeverityLow
	}
}

// reference is the magnitude deviations are measured against. A zero bound is
// treated as 1 so that the percentage stays finite.
func reference(bound float64) float64 {
	if ref := math.Abs(bound); ref != 0 {
		return ref
	}
	return 1
}
