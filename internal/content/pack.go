// Package content loads the scenario packs the simulation games are played
// with. Packs are authored in YAML and compiled into sim types.
package content

import (
	"errors"
	"fmt"

	"github.com/Altair29/J-GLOW-sub001/internal/sim"
	"gopkg.in/yaml.v3"
)

// ErrUnknownPack is returned when a pack name is not registered.
var ErrUnknownPack = errors.New("unknown pack")

// Pack is a compiled, playable scenario pack.
type Pack struct {
	Name        string
	Title       string
	Description string
	Config      sim.Config
	Scenarios   []sim.Scenario
}

// NewController returns a fresh, unstarted run of the pack.
func (p *Pack) NewController() (*sim.Controller, error) {
	return sim.NewController(p.Config, p.Scenarios)
}

// File is the authored YAML form of a pack. Effect fields are optional and
// loosely typed here; Compile turns them into sim.Effect variants.
type File struct {
	Name        string         `yaml:"name"`
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	TotalTurns  int            `yaml:"total_turns"`
	Gauges      []GaugeFile    `yaml:"gauges"`
	Initial     map[string]int `yaml:"initial"`
	Grading     GradingFile    `yaml:"grading"`
	Scenarios   []ScenarioFile `yaml:"scenarios"`
}

type GaugeFile struct {
	ID         string `yaml:"id"`
	Label      string `yaml:"label"`
	Min        int    `yaml:"min"`
	Max        int    `yaml:"max"`
	Unbounded  bool   `yaml:"unbounded"`
	DisplayMax int    `yaml:"display_max"`
	Floor      *int   `yaml:"floor"`
	Critical   *int   `yaml:"critical"`
	Monetary   bool   `yaml:"monetary"`
}

type GradingFile struct {
	Include []string   `yaml:"include"`
	Tiers   []sim.Tier `yaml:"tiers"`
}

type ScenarioFile struct {
	ID      string       `yaml:"id"`
	Title   string       `yaml:"title"`
	Prompt  string       `yaml:"prompt"`
	Choices []ChoiceFile `yaml:"choices"`
}

type ChoiceFile struct {
	ID      string         `yaml:"id"`
	Label   string         `yaml:"label"`
	Outcome string         `yaml:"outcome"`
	Delta   map[string]int `yaml:"delta"`
	Delay   *DelayFile     `yaml:"delay"`
}

// DelayFile schedules a delayed effect. Exactly one of After (turns after
// the choice) and Turn (absolute turn) is set.
type DelayFile struct {
	After   *int           `yaml:"after"`
	Turn    *int           `yaml:"turn"`
	Delta   map[string]int `yaml:"delta"`
	Message string         `yaml:"message"`
}

// Parse decodes a YAML pack without validating it.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse pack: %w", err)
	}
	return &f, nil
}

// Load parses, validates and compiles a YAML pack.
func Load(data []byte) (*Pack, error) {
	f, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if result := Validate(f); !result.Passed {
		return nil, fmt.Errorf("pack %q: %s", f.Name, result.Message)
	}
	return Compile(f)
}

// Compile converts an authored pack into sim types and checks that the
// engine accepts it.
func Compile(f *File) (*Pack, error) {
	p := &Pack{
		Name:        f.Name,
		Title:       f.Title,
		Description: f.Description,
		Config: sim.Config{
			Initial:    sim.Gauges{},
			TotalTurns: f.TotalTurns,
		},
	}
	for _, g := range f.Gauges {
		p.Config.Gauges = append(p.Config.Gauges, sim.GaugeSpec{
			ID:         sim.GaugeID(g.ID),
			Label:      g.Label,
			Min:        g.Min,
			Max:        g.Max,
			Unbounded:  g.Unbounded,
			DisplayMax: g.DisplayMax,
			Floor:      g.Floor,
			Critical:   g.Critical,
			Monetary:   g.Monetary,
		})
	}
	for id, v := range f.Initial {
		p.Config.Initial[sim.GaugeID(id)] = v
	}
	for _, id := range f.Grading.Include {
		p.Config.Grader.Include = append(p.Config.Grader.Include, sim.GaugeID(id))
	}
	p.Config.Grader.Tiers = append([]sim.Tier(nil), f.Grading.Tiers...)

	for _, sf := range f.Scenarios {
		sc := sim.Scenario{ID: sf.ID, Title: sf.Title, Prompt: sf.Prompt}
		for _, cf := range sf.Choices {
			sc.Choices = append(sc.Choices, compileChoice(cf))
		}
		p.Scenarios = append(p.Scenarios, sc)
	}

	if _, err := p.NewController(); err != nil {
		return nil, fmt.Errorf("compile pack %q: %w", f.Name, err)
	}
	return p, nil
}

func compileChoice(cf ChoiceFile) sim.Choice {
	c := sim.Choice{ID: cf.ID, Label: cf.Label, Outcome: cf.Outcome}
	if len(cf.Delta) > 0 {
		c.Effects = append(c.Effects, sim.Immediate{Deltas: toDeltas(cf.Delta)})
	}
	if d := cf.Delay; d != nil {
		var trigger sim.Trigger
		switch {
		case d.Turn != nil:
			trigger = sim.TriggerAt(*d.Turn)
		case d.After != nil:
			trigger = sim.TriggerAfter(*d.After)
		default:
			trigger = sim.TriggerAfter(1)
		}
		c.Effects = append(c.Effects, sim.Delayed{
			Deltas:  toDeltas(d.Delta),
			Trigger: trigger,
			Message: d.Message,
		})
	}
	return c
}

func toDeltas(m map[string]int) sim.Deltas {
	out := make(sim.Deltas, len(m))
	for k, v := range m {
		out[sim.GaugeID(k)] = v
	}
	return out
}
