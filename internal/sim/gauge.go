package sim

import (
	"errors"
	"fmt"
)

// Schema is a validated, ordered set of gauges. Declaration order is the
// iteration order for floor checks and display.
type Schema struct {
	specs []GaugeSpec
	index map[GaugeID]int
}

// NewSchema validates specs once and returns the schema built from them.
func NewSchema(specs []GaugeSpec) (*Schema, error) {
	if len(specs) == 0 {
		return nil, errors.New("schema has no gauges")
	}
	s := &Schema{
		specs: make([]GaugeSpec, len(specs)),
		index: make(map[GaugeID]int, len(specs)),
	}
	copy(s.specs, specs)
	for i, spec := range specs {
		if spec.ID == "" {
			return nil, fmt.Errorf("gauge %d has no id", i)
		}
		if _, dup := s.index[spec.ID]; dup {
			return nil, fmt.Errorf("duplicate gauge %q", spec.ID)
		}
		if !spec.Unbounded && spec.Max < spec.Min {
			return nil, fmt.Errorf("gauge %q: max %d below min %d", spec.ID, spec.Max, spec.Min)
		}
		s.index[spec.ID] = i
	}
	return s, nil
}

// Specs returns the gauges in declaration order.
func (s *Schema) Specs() []GaugeSpec {
	out := make([]GaugeSpec, len(s.specs))
	copy(out, s.specs)
	return out
}

// Spec looks up a gauge.
func (s *Schema) Spec(id GaugeID) (GaugeSpec, bool) {
	i, ok := s.index[id]
	if !ok {
		return GaugeSpec{}, false
	}
	return s.specs[i], true
}

// Has reports whether id is declared.
func (s *Schema) Has(id GaugeID) bool {
	_, ok := s.index[id]
	return ok
}

// Clamp returns a copy of g with every declared gauge forced into its range.
// Missing gauges are read as zero; undeclared keys are dropped.
func (s *Schema) Clamp(g Gauges) Gauges {
	out := make(Gauges, len(s.specs))
	for _, spec := range s.specs {
		out[spec.ID] = clampValue(g[spec.ID], spec)
	}
	return out
}

// Apply adds d to g and clamps the result. g is not modified.
func (s *Schema) Apply(g Gauges, d Deltas) Gauges {
	sum := g.Clone()
	for id, v := range d {
		if !s.Has(id) {
			continue
		}
		sum[id] += v
	}
	return s.Clamp(sum)
}

// Diff returns after-before for every gauge that changed.
func (s *Schema) Diff(before, after Gauges) Deltas {
	out := Deltas{}
	for _, spec := range s.specs {
		if d := after[spec.ID] - before[spec.ID]; d != 0 {
			out[spec.ID] = d
		}
	}
	return out
}

// Breach returns the first gauge, in declaration order, at or below its floor.
func (s *Schema) Breach(g Gauges) (GaugeSpec, bool) {
	for _, spec := range s.specs {
		if spec.Floor == nil {
			continue
		}
		if g[spec.ID] <= *spec.Floor {
			return spec, true
		}
	}
	return GaugeSpec{}, false
}

// Critical lists gauges at or below their warning threshold but not at a
// floor, in declaration order.
func (s *Schema) Critical(g Gauges) []GaugeID {
	var out []GaugeID
	for _, spec := range s.specs {
		if spec.Critical == nil || g[spec.ID] > *spec.Critical {
			continue
		}
		if spec.Floor != nil && g[spec.ID] <= *spec.Floor {
			continue
		}
		out = append(out, spec.ID)
	}
	return out
}

func clampValue(v int, spec GaugeSpec) int {
	if v < spec.Min {
		return spec.Min
	}
	if !spec.Unbounded && v > spec.Max {
		return spec.Max
	}
	return v
}
