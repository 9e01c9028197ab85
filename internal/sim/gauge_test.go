package sim

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func intp(v int) *int { return &v }

func TestNewSchemaRejectsBadSpecs(t *testing.T) {
	tests := []struct {
		name  string
		specs []GaugeSpec
	}{
		{"empty", nil},
		{"missing id", []GaugeSpec{{Max: 100}}},
		{"duplicate", []GaugeSpec{{ID: "morale", Max: 100}, {ID: "morale", Max: 100}}},
		{"inverted range", []GaugeSpec{{ID: "morale", Min: 50, Max: 10}}},
	}

	for _, tt := range tests {
		if _, err := NewSchema(tt.specs); err == nil {
			t.Errorf("%s: expected error, got nil", tt.name)
		}
	}
}

func TestClamp(t *testing.T) {
	schema, err := NewSchema(testConfig().Gauges)
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}

	tests := []struct {
		name string
		in   Gauges
		want Gauges
	}{
		{
			name: "in range",
			in:   Gauges{"funds": 100, "compliance": 70, "morale": 60, "productivity": 50, "retention": 50},
			want: Gauges{"funds": 100, "compliance": 70, "morale": 60, "productivity": 50, "retention": 50},
		},
		{
			name: "overshoot both ways",
			in:   Gauges{"funds": -5, "compliance": 1000, "morale": -1000, "productivity": 101, "retention": -1},
			want: Gauges{"funds": 0, "compliance": 100, "morale": 0, "productivity": 100, "retention": 0},
		},
		{
			name: "funds has no ceiling",
			in:   Gauges{"funds": 99_000_000, "compliance": 1, "morale": 1, "productivity": 1, "retention": 1},
			want: Gauges{"funds": 99_000_000, "compliance": 1, "morale": 1, "productivity": 1, "retention": 1},
		},
		{
			name: "missing and unknown keys",
			in:   Gauges{"morale": 10, "stamina": 5},
			want: Gauges{"funds": 0, "compliance": 0, "morale": 10, "productivity": 0, "retention": 0},
		},
	}

	for _, tt := range tests {
		got := schema.Clamp(tt.in)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("%s: Clamp mismatch (-want +got):\n%s", tt.name, diff)
		}
	}
}

func TestApplyKeepsEveryGaugeInRange(t *testing.T) {
	schema, err := NewSchema(testConfig().Gauges)
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	rng := rand.New(rand.NewPCG(7, 11))
	g := schema.Clamp(testConfig().Initial)

	for i := 0; i < 2000; i++ {
		d := Deltas{}
		for _, spec := range schema.Specs() {
			d[spec.ID] = rng.IntN(2_000_001) - 1_000_000
		}
		g = schema.Apply(g, d)

		for _, spec := range schema.Specs() {
			v := g[spec.ID]
			if v < spec.Min || (!spec.Unbounded && v > spec.Max) {
				t.Fatalf("step %d: %s = %d outside [%d, %d]", i, spec.ID, v, spec.Min, spec.Max)
			}
		}
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	schema, _ := NewSchema(testConfig().Gauges)
	in := Gauges{"funds": 10, "compliance": 10, "morale": 10, "productivity": 10, "retention": 10}
	_ = schema.Apply(in, Deltas{"morale": 5})
	if in["morale"] != 10 {
		t.Errorf("input mutated: morale = %d, want 10", in["morale"])
	}
}

func TestBreachUsesDeclarationOrder(t *testing.T) {
	schema, _ := NewSchema(testConfig().Gauges)
	g := Gauges{"funds": 1, "compliance": 50, "morale": 0, "productivity": 0, "retention": 0}

	spec, ok := schema.Breach(g)
	if !ok {
		t.Fatal("expected a breach")
	}
	if spec.ID != "morale" {
		t.Errorf("breach = %s, want morale", spec.ID)
	}

	g["morale"] = 1
	g["productivity"] = 1
	g["retention"] = 1
	if spec, ok := schema.Breach(g); ok {
		t.Errorf("unexpected breach on %s", spec.ID)
	}
}

func TestBreachIgnoresGaugesWithoutFloor(t *testing.T) {
	schema, err := NewSchema([]GaugeSpec{
		{ID: "mood", Max: 100},
		{ID: "cash", Max: 100, Floor: intp(20)},
	})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	if _, ok := schema.Breach(Gauges{"mood": 0, "cash": 21}); ok {
		t.Error("mood has no floor and cash is above 20")
	}
	if spec, ok := schema.Breach(Gauges{"mood": 0, "cash": 20}); !ok || spec.ID != "cash" {
		t.Errorf("Breach = (%s, %v), want (cash, true)", spec.ID, ok)
	}
}

func TestCritical(t *testing.T) {
	schema, _ := NewSchema(testConfig().Gauges)
	g := Gauges{"funds": 5, "compliance": 20, "morale": 0, "productivity": 21, "retention": 3}

	got := schema.Critical(g)
	want := []GaugeID{"compliance", "retention"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Critical mismatch (-want +got):\n%s", diff)
	}
}

func TestDiff(t *testing.T) {
	schema, _ := NewSchema(testConfig().Gauges)
	before := Gauges{"funds": 100, "compliance": 50, "morale": 50, "productivity": 50, "retention": 50}
	after := Gauges{"funds": 40, "compliance": 50, "morale": 55, "productivity": 50, "retention": 50}

	want := Deltas{"funds": -60, "morale": 5}
	if diff := cmp.Diff(want, schema.Diff(before, after)); diff != "" {
		t.Errorf("Diff mismatch (-want +got):\n%s", diff)
	}
}
