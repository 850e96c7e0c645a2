package generator

import (
	"testing"

	"github.com/mohamedlandolsi/greenhouse-management-system/services/sensor-simulator/internal/config"
)

func testBands() []Band {
	return []Band{
		{ParameterID: "p-temp", Kind: "temperature", Min: 15, Max: 30, Unit: "°C"},
		{ParameterID: "p-hum", Kind: "humidity", Min: 40, Max: 80, Unit: "%"},
	}
}

func inBand(b Band, v float64) bool {
	return v >= b.Min && v <= b.Max
}

func TestGenerator_InBand(t *testing.T) {
	cfg := config.Config{KindDist: "temperature:50,humidity:50", Seed: 42}
	gen, err := New(cfg, testBands())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	bands := map[string]Band{}
	for _, b := range testBands() {
		bands[b.Kind] = b
	}

	for i := 0; i < 500; i++ {
		r := gen.Generate()
		b, ok := bands[r.Kind]
		if !ok {
			t.Fatalf("unexpected kind %q", r.Kind)
		}
		if r.ParameterID != b.ParameterID || r.Unit != b.Unit {
			t.Errorf("reading %+v not tied to band %+v", r, b)
		}
		if r.OutOfBand || !inBand(b, r.Value) {
			t.Fatalf("reading %v outside [%v, %v] with ratio 0", r.Value, b.Min, b.Max)
		}
		if r.MeasuredAt.IsZero() {
			t.Error("MeasuredAt should be set")
		}
	}
}

func TestGenerator_OutOfBand(t *testing.T) {
	cfg := config.Config{KindDist: "temperature:100", Seed: 7, OutOfBandRatio: 1}
	gen, err := New(cfg, testBands())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	above, below := 0, 0
	for i := 0; i < 200; i++ {
		r := gen.Generate()
		if !r.OutOfBand {
			t.Fatal("ratio 1 should always produce out-of-band readings")
		}
		switch {
		case r.Value > 30:
			above++
		case r.Value < 15:
			below++
		default:
			t.Fatalf("out-of-band reading %v lies inside the band", r.Value)
		}
	}
	if above == 0 || below == 0 {
		t.Errorf("expected breaches on both sides, got above=%d below=%d", above, below)
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	cfg := config.Config{KindDist: "temperature:50,humidity:50", Seed: 99, OutOfBandRatio: 0.3}
	a, _ := New(cfg, testBands())
	b, _ := New(cfg, testBands())

	for i := 0; i < 50; i++ {
		ra, rb := a.Generate(), b.Generate()
		if ra.Kind != rb.Kind || ra.Value != rb.Value || ra.OutOfBand != rb.OutOfBand {
			t.Fatalf("reading %d differs: %+v vs %+v", i, ra, rb)
		}
	}
}

func TestGenerator_WeightedSelection(t *testing.T) {
	cfg := config.Config{KindDist: "temperature:80,humidity:20", Seed: 1}
	gen, err := New(cfg, testBands())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	counts := map[string]int{}
	const n = 2000
	for i := 0; i < n; i++ {
		counts[gen.Generate().Kind]++
	}
	if counts["temperature"] < n*7/10 || counts["temperature"] > n*9/10 {
		t.Errorf("temperature share = %d/%d, want about 80%%", counts["temperature"], n)
	}
}

func TestNew_SkipsKindsWithoutBand(t *testing.T) {
	cfg := config.Config{KindDist: "temperature:50,co2:50", Seed: 3}
	gen, err := New(cfg, testBands())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	kinds := gen.Kinds()
	if len(kinds) != 1 || kinds[0] != "temperature" {
		t.Errorf("Kinds() = %v, want [temperature]", kinds)
	}
	for i := 0; i < 20; i++ {
		if k := gen.Generate().Kind; k != "temperature" {
			t.Fatalf("Generate() kind = %q", k)
		}
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name  string
		dist  string
		bands []Band
	}{
		{name: "invalid distribution", dist: "temperature:10", bands: testBands()},
		{name: "no matching band", dist: "co2:100", bands: testBands()},
		{name: "no bands", dist: "temperature:100", bands: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(config.Config{KindDist: tt.dist}, tt.bands); err == nil {
				t.Error("New() error = nil, want error")
			}
		})
	}
}
