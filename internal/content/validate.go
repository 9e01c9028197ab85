package content

import (
	"fmt"
	"strings"
)

// ValidationResult is the outcome of validating a pack.
type ValidationResult struct {
	Tier    int                `json:"tier"`
	Passed  bool               `json:"passed"`
	Code    int                `json:"code"`
	Message string             `json:"message"`
	Details []ValidationDetail `json:"details,omitempty"`
}

// ValidationDetail describes a single validation check result.
type ValidationDetail struct {
	Check    string `json:"check"`
	Passed   bool   `json:"passed"`
	Warning  bool   `json:"warning,omitempty"`
	Where    string `json:"where,omitempty"`
	Expected string `json:"expected,omitempty"`
	Got      string `json:"got,omitempty"`
	Fix      string `json:"fix,omitempty"` // required for non-passing checks
}

// Failures returns the details that did not pass and are not warnings.
func (r *ValidationResult) Failures() []ValidationDetail {
	var out []ValidationDetail
	for _, d := range r.Details {
		if !d.Passed && !d.Warning {
			out = append(out, d)
		}
	}
	return out
}

// Warnings returns the details flagged as warnings.
func (r *ValidationResult) Warnings() []ValidationDetail {
	var out []ValidationDetail
	for _, d := range r.Details {
		if d.Warning {
			out = append(out, d)
		}
	}
	return out
}

// Validate runs Tier 0 (structure) and, if that passes, Tier 1 (references
// and scheduling) checks.
func Validate(f *File) *ValidationResult {
	if result := Tier0Structural(f); !result.Passed {
		return result
	}
	return Tier1References(f)
}

// Tier0Structural checks identifiers, gauge ranges and that every scenario
// offers a real choice.
func Tier0Structural(f *File) *ValidationResult {
	result := &ValidationResult{Tier: 0, Passed: true}

	if f.Name == "" {
		result.fail(1, ValidationDetail{
			Check:    "pack_name",
			Expected: "non-empty name",
			Got:      "empty",
			Fix:      "Add a top-level `name:` to the pack file.",
		})
	}
	if len(f.Gauges) == 0 {
		result.fail(2, ValidationDetail{
			Check:    "gauges_declared",
			Expected: "at least one gauge",
			Got:      "none",
			Fix:      "Declare the pack's gauges under `gauges:`.",
		})
	}

	seenGauge := map[string]bool{}
	for i, g := range f.Gauges {
		where := fmt.Sprintf("gauges[%d]", i)
		switch {
		case g.ID == "":
			result.fail(3, ValidationDetail{Check: "gauge_id", Where: where, Expected: "id", Got: "empty",
				Fix: "Give every gauge an `id:`."})
		case seenGauge[g.ID]:
			result.fail(3, ValidationDetail{Check: "gauge_unique", Where: where, Expected: "unique id", Got: g.ID,
				Fix: fmt.Sprintf("Rename the second %q gauge.", g.ID)})
		}
		seenGauge[g.ID] = true
		if !g.Unbounded && g.Max < g.Min {
			result.fail(4, ValidationDetail{Check: "gauge_range", Where: where,
				Expected: fmt.Sprintf("max >= min (%d)", g.Min), Got: fmt.Sprintf("max %d", g.Max),
				Fix: "Raise `max:` or set `unbounded: true` for monetary gauges."})
		}
	}

	if f.TotalTurns < 0 {
		result.fail(5, ValidationDetail{Check: "total_turns", Expected: ">= 0", Got: fmt.Sprint(f.TotalTurns),
			Fix: "Set `total_turns:` to the number of scenarios to play."})
	}

	seenScenario := map[string]bool{}
	for i, sc := range f.Scenarios {
		where := fmt.Sprintf("scenarios[%d]", i)
		if sc.ID == "" || seenScenario[sc.ID] {
			result.fail(6, ValidationDetail{Check: "scenario_id", Where: where, Expected: "unique, non-empty id", Got: sc.ID,
				Fix: "Give every scenario its own `id:`."})
		}
		seenScenario[sc.ID] = true

		if len(sc.Choices) < 2 {
			result.fail(7, ValidationDetail{Check: "scenario_choices", Where: sc.ID, Expected: ">= 2 choices",
				Got: fmt.Sprint(len(sc.Choices)), Fix: "Add at least two choices to the scenario."})
		}
		seenChoice := map[string]bool{}
		for _, c := range sc.Choices {
			if c.ID == "" || seenChoice[c.ID] {
				result.fail(8, ValidationDetail{Check: "choice_id", Where: sc.ID, Expected: "unique, non-empty id", Got: c.ID,
					Fix: "Give every choice within a scenario its own `id:`."})
			}
			seenChoice[c.ID] = true
		}
	}

	if result.Passed {
		result.Message = "Tier 0 passed"
	}
	return result
}

// Tier1References checks every gauge reference, delayed-effect triggers and
// the grade table.
func Tier1References(f *File) *ValidationResult {
	result := &ValidationResult{Tier: 1, Passed: true}

	gauges := map[string]GaugeFile{}
	var names []string
	for _, g := range f.Gauges {
		gauges[g.ID] = g
		names = append(names, g.ID)
	}
	known := strings.Join(names, ", ")
	checkRef := func(where, id string) {
		if _, ok := gauges[id]; !ok {
			result.fail(10, ValidationDetail{Check: "gauge_ref", Where: where, Expected: "one of " + known, Got: id,
				Fix: fmt.Sprintf("Declare %q under `gauges:` or fix the typo.", id)})
		}
	}

	for id := range f.Initial {
		checkRef("initial", id)
	}
	for _, g := range f.Gauges {
		if _, ok := f.Initial[g.ID]; !ok {
			result.warn(ValidationDetail{Check: "initial_value", Where: "initial", Expected: g.ID, Got: "missing",
				Fix: fmt.Sprintf("Set a starting value for %q; it starts at its minimum.", g.ID)})
		}
	}

	last := f.TotalTurns
	if len(f.Scenarios) < last {
		result.warn(ValidationDetail{Check: "catalog_length", Expected: fmt.Sprintf(">= %d scenarios", f.TotalTurns),
			Got: fmt.Sprint(len(f.Scenarios)), Fix: "Add scenarios or lower `total_turns:`; runs end when the catalog does."})
		last = len(f.Scenarios)
	}

	for i, sc := range f.Scenarios {
		turn := i + 1
		for _, c := range sc.Choices {
			where := sc.ID + "/" + c.ID
			for id := range c.Delta {
				checkRef(where, id)
			}
			d := c.Delay
			if d == nil {
				continue
			}
			for id := range d.Delta {
				checkRef(where+"/delay", id)
			}
			switch {
			case d.After != nil && d.Turn != nil:
				result.fail(11, ValidationDetail{Check: "delay_trigger", Where: where, Expected: "after or turn", Got: "both",
					Fix: "Use either `after:` (turns from now) or `turn:` (absolute), not both."})
			case d.After == nil && d.Turn == nil:
				result.fail(11, ValidationDetail{Check: "delay_trigger", Where: where, Expected: "after or turn", Got: "neither",
					Fix: "Add `after: N` or `turn: N` to the delay."})
			case d.After != nil && *d.After < 1:
				result.fail(12, ValidationDetail{Check: "delay_offset", Where: where, Expected: "after >= 1", Got: fmt.Sprint(*d.After),
					Fix: "Use a positive offset; immediate changes belong in `delta:`."})
			case d.Turn != nil && *d.Turn <= turn:
				result.warn(ValidationDetail{Check: "delay_in_past", Where: where,
					Expected: fmt.Sprintf("turn > %d", turn), Got: fmt.Sprint(*d.Turn),
					Fix: "The effect fires on the next turn; use `after: 1` to say so."})
			}
			if fires := fireTurn(d, turn); fires > last+1 {
				result.warn(ValidationDetail{Check: "delay_after_end", Where: where,
					Expected: fmt.Sprintf("turn <= %d", last+1), Got: fmt.Sprint(fires),
					Fix: "The run ends before this effect fires; bring it forward or drop it."})
			}
			if d.Message == "" {
				result.warn(ValidationDetail{Check: "delay_message", Where: where, Expected: "message", Got: "empty",
					Fix: "Tell the player why the delayed change happened."})
			}
		}
	}

	if len(f.Grading.Tiers) == 0 {
		result.fail(13, ValidationDetail{Check: "grade_tiers", Expected: "at least one tier", Got: "none",
			Fix: "Add `grading.tiers` with a `min: 0` catch-all."})
	}
	if len(f.Grading.Include) == 0 {
		result.fail(13, ValidationDetail{Check: "grade_include", Expected: "gauges to sum", Got: "none",
			Fix: "List the non-monetary gauges under `grading.include`."})
	}
	for _, id := range f.Grading.Include {
		checkRef("grading", id)
		if g, ok := gauges[id]; ok && g.Monetary {
			result.fail(14, ValidationDetail{Check: "grade_monetary", Where: "grading", Expected: "non-monetary gauge", Got: id,
				Fix: "Remove the monetary gauge from `grading.include`; it is reported separately."})
		}
	}

	if result.Passed {
		result.Message = "Tier 1 passed"
		if n := len(result.Warnings()); n > 0 {
			result.Message = fmt.Sprintf("Tier 1 passed with %d warning(s)", n)
		}
	}
	return result
}

func fireTurn(d *DelayFile, turn int) int {
	switch {
	case d.Turn != nil:
		return max(*d.Turn, turn+1)
	case d.After != nil:
		return turn + *d.After
	}
	return turn + 1
}

func (r *ValidationResult) fail(code int, d ValidationDetail) {
	d.Passed = false
	r.Details = append(r.Details, d)
	if r.Passed {
		r.Passed = false
		r.Code = code
		r.Message = fmt.Sprintf("%s failed at %s: expected %s, got %s", d.Check, orPack(d.Where), d.Expected, d.Got)
	}
}

func (r *ValidationResult) warn(d ValidationDetail) {
	d.Passed = false
	d.Warning = true
	r.Details = append(r.Details, d)
}

func orPack(where string) string {
	if where == "" {
		return "pack"
	}
	return where
}
