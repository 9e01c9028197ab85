package autoplay

import (
	"context"
	"testing"

	"github.com/Altair29/J-GLOW-sub001/internal/content"
	"github.com/Altair29/J-GLOW-sub001/internal/session"
	"github.com/Altair29/J-GLOW-sub001/internal/sim"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

var testSpecs = []sim.GaugeSpec{
	{ID: "cash", Min: 0, Unbounded: true, DisplayMax: 1000, Floor: intp(0), Monetary: true},
	{ID: "morale", Min: 0, Max: 100, Floor: intp(0)},
	{ID: "safety", Min: 0, Max: 100, Floor: intp(0)},
}

func snapshotWith(gauges sim.Gauges, choices ...sim.Choice) sim.Snapshot {
	return sim.Snapshot{
		Phase:    sim.PhaseAwaitingChoice,
		Turn:     3,
		Gauges:   gauges,
		Scenario: &sim.Scenario{ID: "s", Choices: choices},
	}
}

func choice(id string, effects ...sim.Effect) sim.Choice {
	return sim.Choice{ID: id, Effects: effects}
}

func TestStrategyChoices(t *testing.T) {
	gauges := sim.Gauges{"cash": 500, "morale": 50, "safety": 8}
	snap := snapshotWith(gauges,
		choice("rich", sim.Immediate{Deltas: sim.Deltas{"cash": 400}}),
		choice("bold", sim.Immediate{Deltas: sim.Deltas{"morale": 20, "safety": -5}}),
		choice("slow", sim.Immediate{Deltas: sim.Deltas{"morale": 2}},
			sim.Delayed{Deltas: sim.Deltas{"morale": 12}, Trigger: sim.TriggerAfter(2), Message: "later"}),
		choice("safe", sim.Immediate{Deltas: sim.Deltas{"safety": 10, "morale": -3}}),
	)

	tests := []struct {
		strategy Strategy
		want     string
	}{
		{First{}, "rich"},
		{Greedy{}, "bold"},
		{Cautious{}, "safe"},
	}
	for _, tt := range tests {
		t.Run(tt.strategy.Name(), func(t *testing.T) {
			if got := tt.strategy.Choose(testSpecs, snap); got != tt.want {
				t.Errorf("Choose = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGreedyCountsDelayedEffects(t *testing.T) {
	snap := snapshotWith(sim.Gauges{"morale": 50, "safety": 50},
		choice("now", sim.Immediate{Deltas: sim.Deltas{"morale": 5}}),
		choice("later", sim.Delayed{Deltas: sim.Deltas{"morale": 9}, Trigger: sim.TriggerAt(7), Message: "m"}),
	)
	if got := (Greedy{}).Choose(testSpecs, snap); got != "later" {
		t.Errorf("Choose = %q, want later", got)
	}
}

func TestRandomIsRepeatable(t *testing.T) {
	snap := snapshotWith(sim.Gauges{}, choice("a"), choice("b"), choice("c"))

	pick := func(seed uint64) []string {
		r := NewRandom(seed)
		var out []string
		for range 20 {
			out = append(out, r.Choose(nil, snap))
		}
		return out
	}
	if diff := cmp.Diff(pick(7), pick(7)); diff != "" {
		t.Errorf("same seed diverged (-first +second):\n%s", diff)
	}
	seen := map[string]bool{}
	for _, id := range pick(7) {
		seen[id] = true
	}
	if len(seen) < 2 {
		t.Errorf("20 random picks only chose %v", seen)
	}
}

func TestByName(t *testing.T) {
	for _, name := range Names {
		s, err := ByName(name, 1)
		require.NoError(t, err)
		require.Equal(t, name, s.Name())
	}
	_, err := ByName("psychic", 1)
	require.ErrorContains(t, err, "unknown strategy")
}

func builtinManager(t *testing.T) (*session.Manager, *content.Registry) {
	t.Helper()
	reg, err := content.Builtin()
	require.NoError(t, err)
	return session.NewManager(reg, nil, nil), reg
}

func TestPlayFirstGoesBankrupt(t *testing.T) {
	m, reg := builtinManager(t)
	pack, err := reg.Get("management")
	require.NoError(t, err)

	res, err := Play(context.Background(), m, pack, First{})
	require.NoError(t, err)

	require.Equal(t, sim.PhaseGameOver, res.Final.Phase)
	f := res.Final.Outcome.Failure
	require.Equal(t, sim.GaugeID("funds"), f.Gauge)
	require.Equal(t, 10, f.Turn)
	require.Equal(t, sim.CauseImmediate, f.Cause)
	require.Len(t, res.Steps, 10)
	require.Equal(t, "paid_leave", res.Steps[9].ChoiceID)

	require.NotEmpty(t, res.Token)
	require.Equal(t, res.Token, res.Record.Token)
	require.Equal(t, "first", res.Record.Strategy)
	require.Empty(t, m.Runs())
}

func TestPlayEveryStrategyFinishes(t *testing.T) {
	m, reg := builtinManager(t)
	for _, p := range reg.List() {
		for _, name := range Names {
			s, err := ByName(name, 42)
			require.NoError(t, err)
			res, err := Play(context.Background(), m, p, s)
			require.NoError(t, err, "%s/%s", p.Name, name)
			require.True(t, res.Final.Phase.Terminal(), "%s/%s", p.Name, name)
			require.Equal(t, res.Final.Phase, res.Record.Phase)
		}
	}
}

func TestSurvey(t *testing.T) {
	m, reg := builtinManager(t)
	pack, err := reg.Get("swipe")
	require.NoError(t, err)

	sum, err := Survey(context.Background(), m, pack, 25, func(i int) Strategy { return NewRandom(uint64(i)) })
	require.NoError(t, err)
	require.Equal(t, 25, sum.Runs)
	require.Equal(t, "random", sum.Strategy)

	n := 0
	for _, c := range sum.Ranks {
		n += c
	}
	for _, c := range sum.Failures {
		n += c
	}
	require.Equal(t, 25, n)

	for _, rank := range sum.Ranked(pack.Config.Grader.Tiers) {
		require.Positive(t, sum.Ranks[rank])
	}
}
