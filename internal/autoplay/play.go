package autoplay

import (
	"context"
	"fmt"
	"sort"

	"github.com/Altair29/J-GLOW-sub001/internal/content"
	"github.com/Altair29/J-GLOW-sub001/internal/session"
	"github.com/Altair29/J-GLOW-sub001/internal/sim"
	"github.com/Altair29/J-GLOW-sub001/internal/store"
)

// Step is one decision the strategy made.
type Step struct {
	Turn       int
	ScenarioID string
	ChoiceID   string
	Applied    sim.Deltas
	Triggered  []sim.PendingEffect
}

// Result is a finished automated run.
type Result struct {
	Run    session.RunInfo
	Steps  []Step
	Final  sim.Snapshot
	Token  string
	Record store.Record
}

// Play runs pack to the end through m, letting s make every choice.
func Play(ctx context.Context, m *session.Manager, pack *content.Pack, s Strategy) (Result, error) {
	info, snap, err := m.Start(ctx, pack.Name, session.WithStrategy(s.Name()))
	if err != nil {
		return Result{}, err
	}
	defer m.Abandon(info.ID)

	out := Result{Run: info, Final: snap}
	for !snap.Phase.Terminal() {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		choice := s.Choose(pack.Config.Gauges, snap)
		res, err := m.Submit(ctx, info.ID, snap.Scenario.ID, choice)
		if err != nil {
			return out, fmt.Errorf("turn %d: %w", snap.Turn, err)
		}
		out.Steps = append(out.Steps, Step{
			Turn:       res.Turn,
			ScenarioID: res.Scenario.ID,
			ChoiceID:   res.Choice.ID,
			Applied:    res.Applied,
			Triggered:  res.Triggered,
		})
		snap = res.Snapshot
		out.Token = res.Token
	}
	out.Final = snap
	rec, err := m.Record(info.ID)
	if err != nil {
		return out, err
	}
	out.Record = rec
	if out.Token == "" {
		out.Token = rec.Token
	}
	return out, nil
}

// Summary aggregates many automated runs of one pack.
type Summary struct {
	Pack      string
	Strategy  string
	Runs      int
	Ranks     map[string]int      // rank -> runs
	Failures  map[sim.GaugeID]int // gauge -> game overs
	MeanScore float64             // over completed runs
}

// Ranked returns the ranks seen, in the order the pack's tiers list them.
func (s Summary) Ranked(tiers []sim.Tier) []string {
	sorted := append([]sim.Tier(nil), tiers...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Min > sorted[j].Min })
	var out []string
	for _, t := range sorted {
		if s.Ranks[t.Rank] > 0 {
			out = append(out, t.Rank)
		}
	}
	return out
}

// Survey plays pack runs times with the strategy produced by newStrategy
// for each run index.
func Survey(ctx context.Context, m *session.Manager, pack *content.Pack, runs int, newStrategy func(i int) Strategy) (Summary, error) {
	sum := Summary{
		Pack:     pack.Name,
		Runs:     runs,
		Ranks:    map[string]int{},
		Failures: map[sim.GaugeID]int{},
	}
	completed, total := 0, 0
	for i := range runs {
		s := newStrategy(i)
		sum.Strategy = s.Name()
		res, err := Play(ctx, m, pack, s)
		if err != nil {
			return sum, fmt.Errorf("run %d: %w", i, err)
		}
		o := res.Final.Outcome
		switch {
		case o == nil:
		case o.Grade != nil:
			sum.Ranks[o.Grade.Rank]++
			completed++
			total += o.Grade.Score
		case o.Failure != nil:
			sum.Failures[o.Failure.Gauge]++
		}
	}
	if completed > 0 {
		sum.MeanScore = float64(total) / float64(completed)
	}
	return sum, nil
}
