// Package store persists finished simulation runs so players can share and
// revisit their results.
package store

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Altair29/J-GLOW-sub001/internal/sim"
)

var (
	// ErrNotFound is returned when no record has the requested token.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when a record with the same token is saved twice.
	ErrAlreadyExists = errors.New("record already exists")
)

// Record is the archived result of one terminal run.
type Record struct {
	Token      string          `json:"token"`
	RunID      string          `json:"run_id"`
	Pack       string          `json:"pack"`
	PackTitle  string          `json:"pack_title,omitempty"`
	Strategy   string          `json:"strategy,omitempty"` // empty for human players
	Phase      sim.Phase       `json:"phase"`
	Turn       int             `json:"turn"`
	TotalTurns int             `json:"total_turns"`
	Specs      []sim.GaugeSpec `json:"specs"`
	Gauges     sim.Gauges      `json:"gauges"`
	Failure    *sim.Failure    `json:"failure,omitempty"`
	Grade      *sim.Grade      `json:"grade,omitempty"`
	Moments    []sim.Moment    `json:"moments,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Rank returns the grade rank, or "-" for a run that ended in game over.
func (r Record) Rank() string {
	if r.Grade == nil {
		return "-"
	}
	return r.Grade.Rank
}

// Score returns the graded score, or 0 for a run that ended in game over.
func (r Record) Score() int {
	if r.Grade == nil {
		return 0
	}
	return r.Grade.Score
}

// Repository stores run records keyed by share token.
type Repository interface {
	Save(ctx context.Context, rec Record) error
	Get(ctx context.Context, token string) (Record, error)
	// List returns the newest records first. limit <= 0 means no limit.
	List(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// GenerateToken creates a share token in the format {date}-{hex}.
func GenerateToken() string {
	now := time.Now().UTC()
	b := make([]byte, 5)
	rand.Read(b)
	return fmt.Sprintf("%s-%x", now.Format("20060102"), b)
}

// Open returns the repository named by url: memory://, sqlite://path or a
// postgres:// connection string.
func Open(ctx context.Context, url string) (Repository, error) {
	scheme, rest, ok := strings.Cut(url, "://")
	if !ok {
		return nil, fmt.Errorf("store url %q has no scheme", url)
	}
	switch scheme {
	case "memory":
		return NewMemory(), nil
	case "sqlite":
		return OpenSQLite(ctx, rest)
	case "postgres", "postgresql":
		return OpenPostgres(ctx, url)
	default:
		return nil, fmt.Errorf("store url %q: unsupported scheme %q", url, scheme)
	}
}

// detail is the JSON column shared by the SQL backends.
type detail struct {
	Specs   []sim.GaugeSpec `json:"specs"`
	Gauges  sim.Gauges      `json:"gauges"`
	Failure *sim.Failure    `json:"failure,omitempty"`
	Grade   *sim.Grade      `json:"grade,omitempty"`
	Moments []sim.Moment    `json:"moments,omitempty"`
}

func encodeDetail(rec Record) ([]byte, error) {
	data, err := json.Marshal(detail{
		Specs:   rec.Specs,
		Gauges:  rec.Gauges,
		Failure: rec.Failure,
		Grade:   rec.Grade,
		Moments: rec.Moments,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal detail for %s: %w", rec.Token, err)
	}
	return data, nil
}

func decodeDetail(rec *Record, data []byte) error {
	var d detail
	if err := json.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("unmarshal detail for %s: %w", rec.Token, err)
	}
	rec.Specs = d.Specs
	rec.Gauges = d.Gauges
	rec.Failure = d.Failure
	rec.Grade = d.Grade
	rec.Moments = d.Moments
	return nil
}

func checkRecord(rec Record) error {
	if strings.TrimSpace(rec.Token) == "" {
		return errors.New("record token is required")
	}
	if !rec.Phase.Terminal() {
		return fmt.Errorf("record %s: phase %q is not terminal", rec.Token, rec.Phase)
	}
	return nil
}
