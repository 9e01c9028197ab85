package sim

import (
	"errors"
	"sort"
)

// Tier is one row of the grade table.
type Tier struct {
	Min   int    `json:"min" yaml:"min"`
	Rank  string `json:"rank" yaml:"rank"`
	Label string `json:"label" yaml:"label"`
	Note  string `json:"note,omitempty" yaml:"note,omitempty"`
}

// Grade is the result of grading a completed run.
type Grade struct {
	Rank     string `json:"rank"`
	Label    string `json:"label"`
	Note     string `json:"note,omitempty"`
	Score    int    `json:"score"`
	MaxScore int    `json:"max_score,omitempty"`
	Reported Gauges `json:"reported,omitempty"`
}

// Grader maps final gauges to a grade. Include lists the summed gauges;
// monetary gauges are reported separately and never summed.
type Grader struct {
	Include []GaugeID `json:"include"`
	Tiers   []Tier    `json:"tiers"`
}

func (g Grader) validate(schema *Schema) error {
	if len(g.Tiers) == 0 {
		return errors.New("grader has no tiers")
	}
	if len(g.Include) == 0 {
		return errors.New("grader includes no gauges")
	}
	for _, id := range g.Include {
		spec, ok := schema.Spec(id)
		if !ok {
			return errors.New("grader includes unknown gauge " + string(id))
		}
		if spec.Monetary {
			return errors.New("grader cannot sum monetary gauge " + string(id))
		}
	}
	return nil
}

// Grade sums the included gauges and picks the highest tier whose Min the
// score reaches. A score below every tier gets the lowest one.
func (g Grader) Grade(schema *Schema, gauges Gauges) Grade {
	tiers := make([]Tier, len(g.Tiers))
	copy(tiers, g.Tiers)
	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].Min > tiers[j].Min })

	score, maxScore := 0, 0
	for _, id := range g.Include {
		score += gauges[id]
		if spec, ok := schema.Spec(id); ok && !spec.Unbounded {
			maxScore += spec.Max
		}
	}

	pick := tiers[len(tiers)-1]
	for _, t := range tiers {
		if score >= t.Min {
			pick = t
			break
		}
	}

	out := Grade{
		Rank:     pick.Rank,
		Label:    pick.Label,
		Note:     pick.Note,
		Score:    score,
		MaxScore: maxScore,
	}
	for _, spec := range schema.Specs() {
		if !spec.Monetary {
			continue
		}
		if out.Reported == nil {
			out.Reported = Gauges{}
		}
		out.Reported[spec.ID] = gauges[spec.ID]
	}
	return out
}
