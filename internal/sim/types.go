// Package sim is the turn-based gauge simulation behind the hiring games:
// bounded gauges, choices with immediate and delayed effects, a turn state
// machine and a grader. It performs no I/O.
package sim

// GaugeID names one dimension of the simulated business's health.
type GaugeID string

// Gauges is a gauge vector. Values are only meaningful against a Schema.
type Gauges map[GaugeID]int

// Clone returns an independent copy of g.
func (g Gauges) Clone() Gauges {
	out := make(Gauges, len(g))
	for k, v := range g {
		out[k] = v
	}
	return out
}

// Deltas is a per-gauge change. A missing key and a zero value both mean
// "no change".
type Deltas map[GaugeID]int

// Clone returns an independent copy of d.
func (d Deltas) Clone() Deltas {
	if d == nil {
		return nil
	}
	out := make(Deltas, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// IsZero reports whether d changes nothing.
func (d Deltas) IsZero() bool {
	for _, v := range d {
		if v != 0 {
			return false
		}
	}
	return true
}

// GaugeSpec declares one gauge's range and thresholds.
type GaugeSpec struct {
	ID    GaugeID `json:"id"`
	Label string  `json:"label"`
	Min   int     `json:"min"`
	Max   int     `json:"max"`
	// Unbounded gauges have no upper clamp; DisplayMax is the reference band
	// a host uses to draw them.
	Unbounded  bool `json:"unbounded,omitempty"`
	DisplayMax int  `json:"display_max,omitempty"`
	// Floor ends the run when the gauge is at or below it. Nil means the
	// gauge never ends a run.
	Floor *int `json:"floor,omitempty"`
	// Critical is a warning threshold; it never ends a run.
	Critical *int `json:"critical,omitempty"`
	Monetary bool `json:"monetary,omitempty"`
}

// Scenario is one turn's decision point.
type Scenario struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Prompt  string   `json:"prompt"`
	Choices []Choice `json:"choices"`
}

// Choice looks up a choice by ID.
func (s Scenario) Choice(id string) (Choice, bool) {
	for _, c := range s.Choices {
		if c.ID == id {
			return c, true
		}
	}
	return Choice{}, false
}

// Choice is a selectable option within a Scenario.
type Choice struct {
	ID      string   `json:"id"`
	Label   string   `json:"label"`
	Outcome string   `json:"outcome"`
	Effects []Effect `json:"-"`
}

// PendingEffect is a delayed effect waiting in the scheduler.
type PendingEffect struct {
	Turn       int    `json:"turn"`
	SourceTurn int    `json:"source_turn"`
	Deltas     Deltas `json:"deltas"`
	Message    string `json:"message"`
	ScenarioID string `json:"scenario_id"`
	ChoiceID   string `json:"choice_id"`
}

// Phase is the controller's state.
type Phase string

const (
	PhaseNotStarted     Phase = "not_started"
	PhaseAwaitingChoice Phase = "awaiting_choice"
	PhaseCompleted      Phase = "completed"
	PhaseGameOver       Phase = "game_over"
)

// Terminal reports whether no further choices are accepted.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseGameOver
}

// Cause says which kind of effect breached a floor.
type Cause string

const (
	CauseImmediate Cause = "immediate"
	CauseDelayed   Cause = "delayed"
)

// Failure describes a game over.
type Failure struct {
	Gauge   GaugeID `json:"gauge"`
	Value   int     `json:"value"`
	Floor   int     `json:"floor"`
	Turn    int     `json:"turn"`
	Cause   Cause   `json:"cause"`
	Message string  `json:"message,omitempty"`
}

// Outcome is set once a run is terminal. Exactly one of Failure and Grade
// is non-nil.
type Outcome struct {
	Phase   Phase    `json:"phase"`
	Failure *Failure `json:"failure,omitempty"`
	Grade   *Grade   `json:"grade,omitempty"`
}

// MomentKind distinguishes timeline entries.
type MomentKind string

const (
	MomentChoice  MomentKind = "choice"
	MomentDelayed MomentKind = "delayed"
)

// Moment is one entry in the key-moments log.
type Moment struct {
	Kind        MomentKind     `json:"kind"`
	Turn        int            `json:"turn"`
	ScenarioID  string         `json:"scenario_id"`
	Title       string         `json:"title,omitempty"`
	ChoiceID    string         `json:"choice_id,omitempty"`
	ChoiceLabel string         `json:"choice_label,omitempty"`
	Message     string         `json:"message,omitempty"`
	Requested   Deltas         `json:"requested,omitempty"`
	Applied     Deltas         `json:"applied,omitempty"`
	Scheduled   *PendingEffect `json:"scheduled,omitempty"`
}

// Snapshot is a read-only view of a run.
type Snapshot struct {
	Phase      Phase           `json:"phase"`
	Turn       int             `json:"turn"`
	TotalTurns int             `json:"total_turns"`
	Gauges     Gauges          `json:"gauges"`
	Scenario   *Scenario       `json:"scenario,omitempty"`
	Pending    []PendingEffect `json:"pending,omitempty"`
	Critical   []GaugeID       `json:"critical,omitempty"`
	Moments    []Moment        `json:"moments,omitempty"`
	Outcome    *Outcome        `json:"outcome,omitempty"`
}

// Resolution is the result of one accepted Submit.
type Resolution struct {
	Turn      int             `json:"turn"`
	Scenario  Scenario        `json:"scenario"`
	Choice    Choice          `json:"choice"`
	Applied   Deltas          `json:"applied"`
	Scheduled *PendingEffect  `json:"scheduled,omitempty"`
	Triggered []PendingEffect `json:"triggered,omitempty"`
	// TriggeredApplied is the clamped change the flushed effects made.
	TriggeredApplied Deltas   `json:"triggered_applied,omitempty"`
	Snapshot         Snapshot `json:"snapshot"`
}
