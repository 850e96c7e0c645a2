// Package generator produces synthetic sensor readings against known threshold bands.
// Generation is deterministic when seeded.
package generator

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/mohamedlandolsi/greenhouse-management-system/services/sensor-simulator/internal/config"
)

// Band is the configured acceptable range of one parameter.
type Band struct {
	ParameterID string
	Kind        string
	Min         float64
	Max         float64
	Unit        string
}

// Reading is a single synthetic measurement.
type Reading struct {
	ParameterID string
	Kind        string
	Value       float64
	Unit        string
	OutOfBand   bool // generated outside [Min, Max]
	MeasuredAt  time.Time
}

// Generator picks a kind by weight and draws a value relative to its band.
type Generator struct {
	rng            *rand.Rand
	kinds          []weightedValue
	bands          map[string]Band
	outOfBandRatio float64
	now            func() time.Time
}

type weightedValue struct {
	value  string
	weight int
}

const (
	// minExcess and maxExcess bound how far outside the band an out-of-band reading lands,
	// as a fraction of the band width.
	minExcess = 0.05
	maxExcess = 0.5
)

// New creates a generator for the given bands. Kinds in the distribution without a band
// are skipped; it fails when no weighted kind has a band.
func New(cfg config.Config, bands []Band) (*Generator, error) {
	dist, err := config.ParseDistribution(cfg.KindDist)
	if err != nil {
		return nil, err
	}

	byKind := make(map[string]Band, len(bands))
	for _, b := range bands {
		byKind[b.Kind] = b
	}

	keys := make([]string, 0, len(dist))
	for k := range dist {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	gen := &Generator{
		bands:          byKind,
		outOfBandRatio: cfg.OutOfBandRatio,
		now:            time.Now,
	}
	for _, k := range keys {
		if _, ok := byKind[k]; !ok || dist[k] == 0 {
			continue
		}
		gen.kinds = append(gen.kinds, weightedValue{value: k, weight: dist[k]})
	}
	if len(gen.kinds) == 0 {
		return nil, fmt.Errorf("no configured parameter matches kind distribution %q", cfg.KindDist)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gen.rng = rand.New(rand.NewSource(seed))

	return gen, nil
}

// Kinds returns the kinds the generator will emit.
func (g *Generator) Kinds() []string {
	out := make([]string, len(g.kinds))
	for i, k := range g.kinds {
		out[i] = k.value
	}
	return out
}

// Generate draws the next reading.
func (g *Generator) Generate() *Reading {
	band := g.bands[g.selectWeighted()]
	width := band.Max - band.Min

	r := &Reading{
		ParameterID: band.ParameterID,
		Kind:        band.Kind,
		Unit:        band.Unit,
		MeasuredAt:  g.now().UTC(),
	}

	if g.rng.Float64() < g.outOfBandRatio {
		excess := width * (minExcess + (maxExcess-minExcess)*g.rng.Float64())
		if g.rng.Intn(2) == 0 {
			r.Value = round2(band.Max + excess)
		} else {
			r.Value = round2(band.Min - excess)
		}
		r.OutOfBand = true
		return r
	}

	r.Value = round2(band.Min + width*g.rng.Float64())
	return r
}

// selectWeighted selects a kind using cumulative probability.
func (g *Generator) selectWeighted() string {
	total := 0
	for _, c := range g.kinds {
		total += c.weight
	}

	n := g.rng.Intn(total)
	cumulative := 0
	for _, c := range g.kinds {
		cumulative += c.weight
		if n < cumulative {
			return c.value
		}
	}
	return g.kinds[len(g.kinds)-1].value
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
