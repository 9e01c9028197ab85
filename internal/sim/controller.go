package sim

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNotStarted is returned by Submit before Start.
	ErrNotStarted = errors.New("run not started")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("run already started")
	// ErrNotAwaitingChoice is returned when a choice arrives while the run
	// is terminal. The run is not changed.
	ErrNotAwaitingChoice = errors.New("run is not awaiting a choice")
	// ErrStaleScenario is returned when a choice names a scenario other than
	// the current one, e.g. a duplicated submit from the previous turn.
	ErrStaleScenario = errors.New("choice is for a scenario that is not current")
	// ErrUnknownChoice is returned when the current scenario has no such choice.
	ErrUnknownChoice = errors.New("unknown choice")
)

// Config configures one kind of run.
type Config struct {
	Gauges     []GaugeSpec `json:"gauges"`
	Initial    Gauges      `json:"initial"`
	TotalTurns int         `json:"total_turns"`
	Grader     Grader      `json:"grader"`
}

// Controller is the turn state machine for a single run. It is safe for
// concurrent use; Submit is atomic.
type Controller struct {
	mu        sync.Mutex
	schema    *Schema
	cfg       Config
	scenarios []Scenario

	phase     Phase
	turn      int
	gauges    Gauges
	scheduler *Scheduler
	moments   []Moment
	outcome   *Outcome
}

// NewController validates cfg against scenarios and returns a controller in
// PhaseNotStarted.
func NewController(cfg Config, scenarios []Scenario) (*Controller, error) {
	schema, err := NewSchema(cfg.Gauges)
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	if cfg.TotalTurns < 0 {
		return nil, fmt.Errorf("total turns %d is negative", cfg.TotalTurns)
	}
	for id := range cfg.Initial {
		if !schema.Has(id) {
			return nil, fmt.Errorf("initial value for unknown gauge %q", id)
		}
	}
	if err := cfg.Grader.validate(schema); err != nil {
		return nil, fmt.Errorf("validate grader: %w", err)
	}
	for _, sc := range scenarios {
		for _, c := range sc.Choices {
			if err := checkEffects(schema, c.Effects); err != nil {
				return nil, fmt.Errorf("scenario %s choice %s: %w", sc.ID, c.ID, err)
			}
		}
	}

	ctl := &Controller{
		schema:    schema,
		cfg:       cfg,
		scenarios: append([]Scenario(nil), scenarios...),
	}
	ctl.reset()
	return ctl, nil
}

func checkEffects(schema *Schema, effects []Effect) error {
	for _, e := range effects {
		var d Deltas
		switch e := e.(type) {
		case Immediate:
			d = e.Deltas
		case Delayed:
			d = e.Deltas
		}
		for id := range d {
			if !schema.Has(id) {
				return fmt.Errorf("effect on unknown gauge %q", id)
			}
		}
	}
	return nil
}

// Schema returns the validated gauge schema.
func (c *Controller) Schema() *Schema { return c.schema }

// Start moves a fresh run to PhaseAwaitingChoice, or straight to
// PhaseCompleted when there is nothing to play.
func (c *Controller) Start() (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseNotStarted {
		return c.snapshot(), ErrAlreadyStarted
	}
	c.turn = 1
	c.phase = PhaseAwaitingChoice
	if c.turn > c.lastTurn() {
		c.complete()
	}
	return c.snapshot(), nil
}

// Reset throws the run away and starts a new one from the configured initial
// gauges.
func (c *Controller) Reset() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reset()
	c.turn = 1
	c.phase = PhaseAwaitingChoice
	if c.turn > c.lastTurn() {
		c.complete()
	}
	return c.snapshot()
}

func (c *Controller) reset() {
	c.phase = PhaseNotStarted
	c.turn = 0
	c.gauges = c.schema.Clamp(c.cfg.Initial)
	c.scheduler = NewScheduler()
	c.moments = nil
	c.outcome = nil
}

// Submit resolves the player's choice for the current scenario.
func (c *Controller) Submit(scenarioID, choiceID string) (Resolution, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.phase {
	case PhaseAwaitingChoice:
	case PhaseNotStarted:
		return Resolution{}, ErrNotStarted
	default:
		return Resolution{}, ErrNotAwaitingChoice
	}

	sc := c.scenarios[c.turn-1]
	if sc.ID != scenarioID {
		return Resolution{}, fmt.Errorf("%w: got %q, current is %q", ErrStaleScenario, scenarioID, sc.ID)
	}
	choice, ok := sc.Choice(choiceID)
	if !ok {
		return Resolution{}, fmt.Errorf("%w: %q in scenario %q", ErrUnknownChoice, choiceID, sc.ID)
	}

	madeOn := c.turn
	eff := Resolve(sc.ID, choice, madeOn)

	before := c.gauges
	c.gauges = c.schema.Apply(before, eff.Immediate)
	applied := c.schema.Diff(before, c.gauges)

	res := Resolution{
		Turn:     madeOn,
		Scenario: sc,
		Choice:   choice,
		Applied:  applied,
	}
	moment := Moment{
		Kind:        MomentChoice,
		Turn:        madeOn,
		ScenarioID:  sc.ID,
		Title:       sc.Title,
		ChoiceID:    choice.ID,
		ChoiceLabel: choice.Label,
		Message:     choice.Outcome,
		Requested:   eff.Immediate,
		Applied:     applied,
	}

	if spec, breached := c.schema.Breach(c.gauges); breached {
		c.moments = append(c.moments, moment)
		c.fail(spec, CauseImmediate, "")
		res.Snapshot = c.snapshot()
		return res, nil
	}

	if eff.Pending != nil {
		c.scheduler.Register(*eff.Pending)
		p := *eff.Pending
		res.Scheduled = &p
		moment.Scheduled = &p
	}
	c.moments = append(c.moments, moment)

	c.turn++
	triggered := c.scheduler.DueAt(c.turn)
	if len(triggered) > 0 {
		res.Triggered = triggered
		res.TriggeredApplied = Deltas{}
		for _, p := range triggered {
			prev := c.gauges
			c.gauges = c.schema.Apply(prev, p.Deltas)
			diff := c.schema.Diff(prev, c.gauges)
			for id, v := range diff {
				res.TriggeredApplied[id] += v
			}
			c.moments = append(c.moments, Moment{
				Kind:       MomentDelayed,
				Turn:       c.turn,
				ScenarioID: p.ScenarioID,
				ChoiceID:   p.ChoiceID,
				Message:    p.Message,
				Requested:  p.Deltas.Clone(),
				Applied:    diff,
			})
		}
		if spec, breached := c.schema.Breach(c.gauges); breached {
			c.fail(spec, CauseDelayed, causeMessage(triggered, spec.ID))
			res.Snapshot = c.snapshot()
			return res, nil
		}
	}

	if c.turn > c.lastTurn() {
		c.complete()
	}
	res.Snapshot = c.snapshot()
	return res, nil
}

// causeMessage picks the message of the last flushed effect that lowered id.
func causeMessage(triggered []PendingEffect, id GaugeID) string {
	msg := ""
	for _, p := range triggered {
		if p.Deltas[id] < 0 {
			msg = p.Message
		}
	}
	return msg
}

func (c *Controller) fail(spec GaugeSpec, cause Cause, msg string) {
	c.phase = PhaseGameOver
	c.outcome = &Outcome{
		Phase:   PhaseGameOver,
		Failure: &Failure{
			Gauge:   spec.ID,
			Value:   c.gauges[spec.ID],
			Floor:   *spec.Floor,
			Turn:    c.turn,
			Cause:   cause,
			Message: msg,
		},
	}
}

func (c *Controller) complete() {
	c.phase = PhaseCompleted
	g := c.cfg.Grader.Grade(c.schema, c.gauges)
	c.outcome = &Outcome{Phase: PhaseCompleted, Grade: &g}
}

// lastTurn is the final playable turn: the configured total, cut short by a
// catalog that runs out first.
func (c *Controller) lastTurn() int {
	return min(c.cfg.TotalTurns, len(c.scenarios))
}

// Snapshot returns the current state of the run.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller) snapshot() Snapshot {
	s := Snapshot{
		Phase:      c.phase,
		Turn:       c.turn,
		TotalTurns: c.lastTurn(),
		Gauges:     c.gauges.Clone(),
		Pending:    c.scheduler.Pending(),
		Critical:   c.schema.Critical(c.gauges),
	}
	if c.phase == PhaseAwaitingChoice {
		sc := c.scenarios[c.turn-1]
		s.Scenario = &sc
	}
	if len(c.moments) > 0 {
		s.Moments = append([]Moment(nil), c.moments...)
	}
	if c.outcome != nil {
		o := *c.outcome
		s.Outcome = &o
	}
	return s
}
