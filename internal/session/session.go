// Package session hosts simulation runs for a front end: it starts runs
// from content packs, forwards choices to each run's controller and
// publishes the record of every run that ends.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Altair29/J-GLOW-sub001/internal/content"
	"github.com/Altair29/J-GLOW-sub001/internal/sim"
	"github.com/Altair29/J-GLOW-sub001/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrUnknownRun is returned for a run ID the manager does not hold.
	ErrUnknownRun = errors.New("unknown run")
	// ErrNotFinished is returned when publishing a run that is still in play.
	ErrNotFinished = errors.New("run has not finished")
)

// Publisher receives the record of every finished run.
type Publisher interface {
	Publish(ctx context.Context, rec store.Record) error
}

// Packs looks up content packs by name.
type Packs interface {
	Get(name string) (*content.Pack, error)
}

// RunInfo identifies a hosted run.
type RunInfo struct {
	ID        string    `json:"id"`
	Pack      string    `json:"pack"`
	Title     string    `json:"title"`
	Strategy  string    `json:"strategy,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// Resolution is a controller resolution plus the share token once the run
// has been published.
type Resolution struct {
	sim.Resolution
	Token string `json:"token,omitempty"`
}

// StartOption customizes Start.
type StartOption func(*RunInfo)

// WithStrategy marks the run as played by an automated strategy.
func WithStrategy(name string) StartOption {
	return func(info *RunInfo) { info.Strategy = name }
}

type run struct {
	info RunInfo
	pack *content.Pack
	ctl  *sim.Controller

	mu    sync.Mutex
	token string
}

// Manager owns the active runs.
type Manager struct {
	packs Packs
	pub   Publisher
	log   *zap.Logger
	now   func() time.Time

	mu   sync.RWMutex
	runs map[string]*run
}

// NewManager creates a Manager. A nil publisher keeps records in memory
// only; a nil logger discards output.
func NewManager(packs Packs, pub Publisher, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		packs: packs,
		pub:   pub,
		log:   logger,
		now:   time.Now,
		runs:  map[string]*run{},
	}
}

// Start begins a new run of the named pack.
func (m *Manager) Start(ctx context.Context, packName string, opts ...StartOption) (RunInfo, sim.Snapshot, error) {
	pack, err := m.packs.Get(packName)
	if err != nil {
		return RunInfo{}, sim.Snapshot{}, fmt.Errorf("start run: %w", err)
	}
	ctl, err := pack.NewController()
	if err != nil {
		return RunInfo{}, sim.Snapshot{}, fmt.Errorf("start run of %s: %w", packName, err)
	}
	snap, err := ctl.Start()
	if err != nil {
		return RunInfo{}, sim.Snapshot{}, fmt.Errorf("start run of %s: %w", packName, err)
	}

	r := &run{
		info: RunInfo{
			ID:        uuid.NewString(),
			Pack:      pack.Name,
			Title:     pack.Title,
			StartedAt: m.now().UTC(),
		},
		pack: pack,
		ctl:  ctl,
	}
	for _, opt := range opts {
		opt(&r.info)
	}

	m.mu.Lock()
	m.runs[r.info.ID] = r
	m.mu.Unlock()

	m.log.Info("Run started",
		zap.String("run", r.info.ID),
		zap.String("pack", pack.Name),
		zap.Int("turns", snap.TotalTurns))

	if snap.Phase.Terminal() {
		m.finish(ctx, r, snap)
	}
	return r.info, snap, nil
}

// Submit applies a choice to the run's current scenario. When the choice
// ends the run, the record is published and its token returned.
func (m *Manager) Submit(ctx context.Context, runID, scenarioID, choiceID string) (Resolution, error) {
	r, err := m.get(runID)
	if err != nil {
		return Resolution{}, err
	}
	res, err := r.ctl.Submit(scenarioID, choiceID)
	if err != nil {
		m.log.Debug("Choice rejected",
			zap.String("run", runID),
			zap.String("scenario", scenarioID),
			zap.String("choice", choiceID),
			zap.Error(err))
		return Resolution{}, fmt.Errorf("submit to run %s: %w", runID, err)
	}

	m.log.Debug("Choice applied",
		zap.String("run", runID),
		zap.Int("turn", res.Turn),
		zap.String("scenario", scenarioID),
		zap.String("choice", choiceID),
		zap.Int("triggered", len(res.Triggered)))

	out := Resolution{Resolution: res}
	if res.Snapshot.Phase.Terminal() {
		out.Token = m.finish(ctx, r, res.Snapshot)
	}
	return out, nil
}

// Snapshot returns the run's current state.
func (m *Manager) Snapshot(runID string) (sim.Snapshot, error) {
	r, err := m.get(runID)
	if err != nil {
		return sim.Snapshot{}, err
	}
	return r.ctl.Snapshot(), nil
}

// Info returns the run's identity.
func (m *Manager) Info(runID string) (RunInfo, error) {
	r, err := m.get(runID)
	if err != nil {
		return RunInfo{}, err
	}
	return r.info, nil
}

// Token returns the share token of a published run, or "" if the run has
// not been published.
func (m *Manager) Token(runID string) (string, error) {
	r, err := m.get(runID)
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.token, nil
}

// Restart throws away the run's progress and starts it again from the
// pack's initial gauges. The run keeps its ID. A run that ends as soon as
// it restarts is published like one that ends on Start.
func (m *Manager) Restart(ctx context.Context, runID string) (sim.Snapshot, error) {
	r, err := m.get(runID)
	if err != nil {
		return sim.Snapshot{}, err
	}
	r.mu.Lock()
	r.token = ""
	r.mu.Unlock()

	snap := r.ctl.Reset()
	m.log.Info("Run restarted", zap.String("run", runID))
	if snap.Phase.Terminal() {
		m.finish(ctx, r, snap)
	}
	return snap, nil
}

// Abandon drops the run. Abandoned runs are never published.
func (m *Manager) Abandon(runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[runID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	}
	delete(m.runs, runID)
	m.log.Info("Run abandoned", zap.String("run", runID))
	return nil
}

// Runs lists the hosted runs, oldest first.
func (m *Manager) Runs() []RunInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RunInfo, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r.info)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Publish retries publishing a finished run whose earlier publish failed.
// It returns the existing token if the run was already published.
func (m *Manager) Publish(ctx context.Context, runID string) (string, error) {
	r, err := m.get(runID)
	if err != nil {
		return "", err
	}
	snap := r.ctl.Snapshot()
	if !snap.Phase.Terminal() {
		return "", fmt.Errorf("publish run %s: %w", runID, ErrNotFinished)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.token != "" {
		return r.token, nil
	}
	return m.publishLocked(ctx, r, snap)
}

// Record builds the archive record for a finished run without publishing
// it.
func (m *Manager) Record(runID string) (store.Record, error) {
	r, err := m.get(runID)
	if err != nil {
		return store.Record{}, err
	}
	snap := r.ctl.Snapshot()
	if !snap.Phase.Terminal() {
		return store.Record{}, fmt.Errorf("record of run %s: %w", runID, ErrNotFinished)
	}
	r.mu.Lock()
	token := r.token
	r.mu.Unlock()
	return m.record(r, snap, token), nil
}

func (m *Manager) get(runID string) (*run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	}
	return r, nil
}

// finish logs the outcome and publishes the record once. Publish failures
// are logged; the run stays available for Publish.
func (m *Manager) finish(ctx context.Context, r *run, snap sim.Snapshot) string {
	fields := []zap.Field{
		zap.String("run", r.info.ID),
		zap.String("pack", r.info.Pack),
		zap.String("phase", string(snap.Phase)),
		zap.Int("turn", snap.Turn),
	}
	if o := snap.Outcome; o != nil && o.Grade != nil {
		fields = append(fields, zap.String("rank", o.Grade.Rank), zap.Int("score", o.Grade.Score))
	}
	if o := snap.Outcome; o != nil && o.Failure != nil {
		fields = append(fields, zap.String("gauge", string(o.Failure.Gauge)), zap.String("cause", string(o.Failure.Cause)))
	}
	m.log.Info("Run finished", fields...)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.token != "" {
		return r.token
	}
	token, err := m.publishLocked(ctx, r, snap)
	if err != nil {
		m.log.Warn("Publish failed", zap.String("run", r.info.ID), zap.Error(err))
		return ""
	}
	return token
}

func (m *Manager) publishLocked(ctx context.Context, r *run, snap sim.Snapshot) (string, error) {
	rec := m.record(r, snap, store.GenerateToken())
	if m.pub != nil {
		if err := m.pub.Publish(ctx, rec); err != nil {
			return "", fmt.Errorf("publish run %s: %w", r.info.ID, err)
		}
	}
	r.token = rec.Token
	m.log.Info("Run published", zap.String("run", r.info.ID), zap.String("token", rec.Token))
	return rec.Token, nil
}

func (m *Manager) record(r *run, snap sim.Snapshot, token string) store.Record {
	rec := store.Record{
		Token:      token,
		RunID:      r.info.ID,
		Pack:       r.info.Pack,
		PackTitle:  r.info.Title,
		Strategy:   r.info.Strategy,
		Phase:      snap.Phase,
		Turn:       snap.Turn,
		TotalTurns: snap.TotalTurns,
		Specs:      append([]sim.GaugeSpec(nil), r.pack.Config.Gauges...),
		Gauges:     snap.Gauges,
		Moments:    snap.Moments,
		CreatedAt:  m.now().UTC(),
	}
	if o := snap.Outcome; o != nil {
		rec.Failure = o.Failure
		rec.Grade = o.Grade
	}
	return rec
}
