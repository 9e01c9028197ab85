package sim

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDueAtIsIdempotent(t *testing.T) {
	s := NewScheduler()
	s.Register(PendingEffect{Turn: 3, Deltas: Deltas{"morale": -5}, Message: "a"})
	s.Register(PendingEffect{Turn: 3, Deltas: Deltas{"morale": -5}, Message: "b"})
	s.Register(PendingEffect{Turn: 4, Deltas: Deltas{"retention": 2}, Message: "c"})

	if got := s.DueAt(2); len(got) != 0 {
		t.Fatalf("DueAt(2) returned %d effects, want 0", len(got))
	}

	first := s.DueAt(3)
	if len(first) != 2 {
		t.Fatalf("DueAt(3) returned %d effects, want 2", len(first))
	}
	if first[0].Message != "a" || first[1].Message != "b" {
		t.Errorf("DueAt(3) order = [%s %s], want [a b]", first[0].Message, first[1].Message)
	}
	if again := s.DueAt(3); len(again) != 0 {
		t.Errorf("second DueAt(3) returned %d effects, want 0", len(again))
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestDueAtFlushesOverdueEffects(t *testing.T) {
	s := NewScheduler()
	s.Register(PendingEffect{Turn: 1, Message: "late"})
	s.Register(PendingEffect{Turn: 9, Message: "future"})

	got := s.DueAt(5)
	if len(got) != 1 || got[0].Message != "late" {
		t.Fatalf("DueAt(5) = %+v, want only the overdue effect", got)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestRegisterDoesNotDeduplicate(t *testing.T) {
	s := NewScheduler()
	p := PendingEffect{Turn: 2, Deltas: Deltas{"compliance": -10}}
	s.Register(p)
	s.Register(p)

	if got := s.DueAt(2); len(got) != 2 {
		t.Errorf("DueAt(2) returned %d effects, want 2", len(got))
	}
}

func TestPendingReturnsCopies(t *testing.T) {
	s := NewScheduler()
	d := Deltas{"morale": -3}
	s.Register(PendingEffect{Turn: 4, Deltas: d})
	d["morale"] = 100

	view := s.Pending()
	view[0].Deltas["morale"] = 50

	want := []PendingEffect{{Turn: 4, Deltas: Deltas{"morale": -3}}}
	if diff := cmp.Diff(want, s.Pending()); diff != "" {
		t.Errorf("Pending mismatch (-want +got):\n%s", diff)
	}
}
