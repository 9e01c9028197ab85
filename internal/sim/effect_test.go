package sim

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTriggerResolve(t *testing.T) {
	tests := []struct {
		trigger Trigger
		turn    int
		want    int
	}{
		{TriggerAt(5), 2, 5},
		{TriggerAt(5), 9, 5},
		{TriggerAfter(3), 2, 5},
		{TriggerAfter(0), 4, 4},
	}

	for _, tt := range tests {
		if got := tt.trigger.Resolve(tt.turn); got != tt.want {
			t.Errorf("%s.Resolve(%d) = %d, want %d", tt.trigger, tt.turn, got, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	c := Choice{
		ID: "hire_agency",
		Effects: []Effect{
			Immediate{Deltas: Deltas{"funds": -500_000, "retention": 0}},
			Immediate{Deltas: Deltas{"funds": -100_000, "morale": 5}},
			Delayed{Deltas: Deltas{"retention": -15}, Trigger: TriggerAfter(3), Message: "two workers quit"},
		},
	}

	got := Resolve("s2", c, 2)

	want := Effects{
		Immediate: Deltas{"funds": -600_000, "morale": 5},
		Pending: &PendingEffect{
			Turn:       5,
			SourceTurn: 2,
			Deltas:     Deltas{"retention": -15},
			Message:    "two workers quit",
			ScenarioID: "s2",
			ChoiceID:   "hire_agency",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveWithoutEffects(t *testing.T) {
	got := Resolve("s1", Choice{ID: "wait"}, 1)
	if len(got.Immediate) != 0 || got.Pending != nil {
		t.Errorf("Resolve = %+v, want no effects", got)
	}
}

func TestResolveKeepsFirstDelay(t *testing.T) {
	c := Choice{
		ID: "twice",
		Effects: []Effect{
			Delayed{Deltas: Deltas{"morale": -1}, Trigger: TriggerAt(3), Message: "first"},
			Delayed{Deltas: Deltas{"morale": -9}, Trigger: TriggerAt(4), Message: "second"},
		},
	}
	got := Resolve("s1", c, 1)
	if got.Pending == nil || got.Pending.Message != "first" {
		t.Errorf("Pending = %+v, want the first delay", got.Pending)
	}
}
