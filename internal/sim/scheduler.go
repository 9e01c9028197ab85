package sim

// Scheduler holds delayed effects until their trigger turn.
type Scheduler struct {
	pending []PendingEffect
}

// NewScheduler returns an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Register adds p. Effects are never deduplicated.
func (s *Scheduler) Register(p PendingEffect) {
	p.Deltas = p.Deltas.Clone()
	s.pending = append(s.pending, p)
}

// DueAt removes and returns every effect whose trigger turn is at or before
// turn, in registration order. Overdue effects fire on the first flush that
// sees them rather than being dropped.
func (s *Scheduler) DueAt(turn int) []PendingEffect {
	var due []PendingEffect
	kept := s.pending[:0]
	for _, p := range s.pending {
		if p.Turn <= turn {
			due = append(due, p)
			continue
		}
		kept = append(kept, p)
	}
	// zero the tail so removed entries don't pin their delta maps
	for i := len(kept); i < len(s.pending); i++ {
		s.pending[i] = PendingEffect{}
	}
	s.pending = kept
	return due
}

// Pending returns a copy of the effects still waiting.
func (s *Scheduler) Pending() []PendingEffect {
	if len(s.pending) == 0 {
		return nil
	}
	out := make([]PendingEffect, len(s.pending))
	for i, p := range s.pending {
		p.Deltas = p.Deltas.Clone()
		out[i] = p
	}
	return out
}

// Len returns the number of waiting effects.
func (s *Scheduler) Len() int { return len(s.pending) }
