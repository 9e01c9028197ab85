package sim

import "fmt"

// Effect is what a choice does to the gauges. The only implementations are
// Immediate and Delayed.
type Effect interface {
	effect()
}

// Immediate applies Deltas on the turn the choice is made.
type Immediate struct {
	Deltas Deltas
}

// Delayed applies Deltas when the run reaches the trigger turn and shows
// Message to the player.
type Delayed struct {
	Deltas  Deltas
	Trigger Trigger
	Message string
}

func (Immediate) effect() {}
func (Delayed) effect()   {}

// Trigger names the turn a delayed effect fires on, either absolutely or as
// an offset from the turn the choice was made.
type Trigger struct {
	relative bool
	n        int
}

// TriggerAt fires on turn n.
func TriggerAt(n int) Trigger { return Trigger{n: n} }

// TriggerAfter fires k turns after the choice.
func TriggerAfter(k int) Trigger { return Trigger{relative: true, n: k} }

// Resolve returns the absolute trigger turn for a choice made on turn.
func (t Trigger) Resolve(turn int) int {
	if t.relative {
		return turn + t.n
	}
	return t.n
}

// Relative reports whether the trigger is an offset.
func (t Trigger) Relative() bool { return t.relative }

// N returns the authored number: the absolute turn or the offset.
func (t Trigger) N() int { return t.n }

func (t Trigger) String() string {
	if t.relative {
		return fmt.Sprintf("+%d", t.n)
	}
	return fmt.Sprintf("turn %d", t.n)
}

// Effects is what resolving one choice on one turn produces.
type Effects struct {
	Immediate Deltas
	Pending   *PendingEffect
}

// Resolve computes the immediate deltas and the delayed effect, if any, of
// choosing c on turn. Immediate deltas and the delayed effect are
// independent: both may touch the same gauge.
func Resolve(scenarioID string, c Choice, turn int) Effects {
	out := Effects{Immediate: Deltas{}}
	for _, e := range c.Effects {
		switch e := e.(type) {
		case Immediate:
			for id, v := range e.Deltas {
				if v == 0 {
					continue
				}
				out.Immediate[id] += v
			}
		case Delayed:
			if out.Pending != nil {
				// Content validation rejects a second delay; keep the first.
				continue
			}
			out.Pending = &PendingEffect{
				Turn:       e.Trigger.Resolve(turn),
				SourceTurn: turn,
				Deltas:     e.Deltas.Clone(),
				Message:    e.Message,
				ScenarioID: scenarioID,
				ChoiceID:   c.ID,
			}
		default:
			panic(fmt.Sprintf("sim: unknown effect %T", e))
		}
	}
	return out
}
