// Package autoplay plays packs without a human, for balance checks and
// smoke tests of new content.
package autoplay

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/Altair29/J-GLOW-sub001/internal/sim"
)

// Strategy picks a choice for the current scenario of a snapshot.
type Strategy interface {
	Name() string
	Choose(specs []sim.GaugeSpec, snap sim.Snapshot) string
}

// Names lists the built-in strategies.
var Names = []string{"first", "random", "greedy", "cautious"}

// ByName returns a built-in strategy. seed only affects "random".
func ByName(name string, seed uint64) (Strategy, error) {
	switch name {
	case "first":
		return First{}, nil
	case "random":
		return NewRandom(seed), nil
	case "greedy":
		return Greedy{}, nil
	case "cautious":
		return Cautious{}, nil
	}
	return nil, fmt.Errorf("unknown strategy %q (want one of %s)", name, strings.Join(Names, ", "))
}

// First always takes the first choice.
type First struct{}

func (First) Name() string { return "first" }

func (First) Choose(_ []sim.GaugeSpec, snap sim.Snapshot) string {
	return snap.Scenario.Choices[0].ID
}

// Random picks uniformly with a seeded generator, so runs are repeatable.
type Random struct {
	rng *rand.Rand
}

// NewRandom returns a Random strategy seeded with seed.
func NewRandom(seed uint64) *Random {
	return &Random{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (*Random) Name() string { return "random" }

func (r *Random) Choose(_ []sim.GaugeSpec, snap sim.Snapshot) string {
	choices := snap.Scenario.Choices
	return choices[r.rng.IntN(len(choices))].ID
}

// Greedy takes the choice with the largest total change to non-monetary
// gauges, counting delayed effects as if they had already landed.
type Greedy struct{}

func (Greedy) Name() string { return "greedy" }

func (Greedy) Choose(specs []sim.GaugeSpec, snap sim.Snapshot) string {
	best, bestScore := "", math.MinInt
	for _, c := range snap.Scenario.Choices {
		if s := gain(specs, total(snap, c)); s > bestScore {
			best, bestScore = c.ID, s
		}
	}
	return best
}

// Cautious takes the choice that leaves the most headroom above the nearest
// floor, breaking ties with Greedy's measure.
type Cautious struct{}

func (Cautious) Name() string { return "cautious" }

func (Cautious) Choose(specs []sim.GaugeSpec, snap sim.Snapshot) string {
	best := ""
	bestMargin, bestGain := math.MinInt, math.MinInt
	for _, c := range snap.Scenario.Choices {
		d := total(snap, c)
		m, g := margin(specs, snap.Gauges, d), gain(specs, d)
		if m > bestMargin || (m == bestMargin && g > bestGain) {
			best, bestMargin, bestGain = c.ID, m, g
		}
	}
	return best
}

// total is the combined immediate and delayed change of choosing c now.
func total(snap sim.Snapshot, c sim.Choice) sim.Deltas {
	eff := sim.Resolve(snap.Scenario.ID, c, snap.Turn)
	out := eff.Immediate.Clone()
	if out == nil {
		out = sim.Deltas{}
	}
	if eff.Pending != nil {
		for id, v := range eff.Pending.Deltas {
			out[id] += v
		}
	}
	return out
}

func gain(specs []sim.GaugeSpec, d sim.Deltas) int {
	sum := 0
	for _, spec := range specs {
		if !spec.Monetary {
			sum += d[spec.ID]
		}
	}
	return sum
}

// margin is the smallest distance above a floor after applying d, as a
// percentage of the gauge's range so money and scores compare.
func margin(specs []sim.GaugeSpec, gauges sim.Gauges, d sim.Deltas) int {
	lowest := math.MaxInt
	for _, spec := range specs {
		if spec.Floor == nil {
			continue
		}
		span := spec.Max - spec.Min
		if spec.Unbounded {
			span = spec.DisplayMax - spec.Min
		}
		if span <= 0 {
			span = 1
		}
		v := gauges[spec.ID] + d[spec.ID]
		if !spec.Unbounded {
			v = min(v, spec.Max)
		}
		pct := (v - *spec.Floor) * 100 / span
		lowest = min(lowest, pct)
	}
	return lowest
}
