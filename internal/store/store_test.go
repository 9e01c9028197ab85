package store

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/Altair29/J-GLOW-sub001/internal/sim"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func sampleRecord(token string, created time.Time) Record {
	return Record{
		Token:      token,
		RunID:      "4b0c5a4e-8f7e-4bb2-9f0e-3c2a9d7e6f10",
		Pack:       "management",
		PackTitle:  "Foreign Worker Management Simulation",
		Phase:      sim.PhaseCompleted,
		Turn:       13,
		TotalTurns: 12,
		Specs: []sim.GaugeSpec{
			{ID: "funds", Label: "Funds", Unbounded: true, Floor: intp(0), Monetary: true},
			{ID: "morale", Label: "Morale", Max: 100, Floor: intp(0), Critical: intp(20)},
		},
		Gauges: sim.Gauges{"funds": 1200000, "morale": 74},
		Grade: &sim.Grade{
			Rank: "A", Label: "Trusted workplace", Score: 74, MaxScore: 100,
			Reported: sim.Gauges{"funds": 1200000},
		},
		Moments: []sim.Moment{{
			Kind: sim.MomentChoice, Turn: 1, ScenarioID: "m01", ChoiceID: "company_lease",
			Requested: sim.Deltas{"funds": -600000, "morale": 10},
			Applied:   sim.Deltas{"funds": -600000, "morale": 10},
		}},
		CreatedAt: created,
	}
}

func backends(t *testing.T) map[string]Repository {
	t.Helper()
	lite, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { lite.Close() })
	return map[string]Repository{
		"memory": NewMemory(),
		"sqlite": lite,
	}
}

func TestRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2026, time.March, 3, 9, 30, 0, 0, time.UTC)

	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			want := sampleRecord("20260303-aaaa", created)
			require.NoError(t, repo.Save(ctx, want))

			got, err := repo.Get(ctx, want.Token)
			require.NoError(t, err)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Get mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRepositoryGameOverRecord(t *testing.T) {
	ctx := context.Background()
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			rec := sampleRecord("20260303-dead", time.Now().UTC().Truncate(time.Millisecond))
			rec.Phase = sim.PhaseGameOver
			rec.Grade = nil
			rec.Failure = &sim.Failure{Gauge: "funds", Value: 0, Floor: 0, Turn: 4, Cause: sim.CauseImmediate}
			require.NoError(t, repo.Save(ctx, rec))

			got, err := repo.Get(ctx, rec.Token)
			require.NoError(t, err)
			require.Equal(t, "-", got.Rank())
			require.Equal(t, 0, got.Score())
			require.Equal(t, rec.Failure, got.Failure)
		})
	}
}

func TestRepositoryErrors(t *testing.T) {
	ctx := context.Background()
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.Get(ctx, "missing")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
			}

			rec := sampleRecord("20260303-dup0", time.Now().UTC())
			require.NoError(t, repo.Save(ctx, rec))
			if err := repo.Save(ctx, rec); !errors.Is(err, ErrAlreadyExists) {
				t.Errorf("second Save error = %v, want ErrAlreadyExists", err)
			}

			running := sampleRecord("20260303-live", time.Now().UTC())
			running.Phase = sim.PhaseAwaitingChoice
			require.Error(t, repo.Save(ctx, running))

			untokened := sampleRecord(" ", time.Now().UTC())
			require.Error(t, repo.Save(ctx, untokened))
		})
	}
}

func TestRepositoryListNewestFirst(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)

	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for i, token := range []string{"t1", "t2", "t3"} {
				require.NoError(t, repo.Save(ctx, sampleRecord(token, base.Add(time.Duration(i)*time.Hour))))
			}

			all, err := repo.List(ctx, 0)
			require.NoError(t, err)
			var tokens []string
			for _, r := range all {
				tokens = append(tokens, r.Token)
			}
			if diff := cmp.Diff([]string{"t3", "t2", "t1"}, tokens); diff != "" {
				t.Errorf("List order mismatch (-want +got):\n%s", diff)
			}

			two, err := repo.List(ctx, 2)
			require.NoError(t, err)
			require.Len(t, two, 2)
			require.Equal(t, "t3", two[0].Token)
		})
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	rec := sampleRecord("copy", time.Now().UTC())
	require.NoError(t, repo.Save(ctx, rec))

	rec.Gauges["morale"] = 0
	got, err := repo.Get(ctx, "copy")
	require.NoError(t, err)
	got.Gauges["morale"] = 1

	again, err := repo.Get(ctx, "copy")
	require.NoError(t, err)
	if again.Gauges["morale"] != 74 {
		t.Errorf("stored morale = %d, want 74", again.Gauges["morale"])
	}
}

func TestOpenByScheme(t *testing.T) {
	ctx := context.Background()

	repo, err := Open(ctx, "memory://")
	require.NoError(t, err)
	require.IsType(t, &Memory{}, repo)

	repo, err = Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "x.db"))
	require.NoError(t, err)
	require.IsType(t, &SQLite{}, repo)
	require.NoError(t, repo.Close())

	for _, bad := range []string{"jglow.db", "mysql://localhost/x", "sqlite://"} {
		if _, err := Open(ctx, bad); err == nil {
			t.Errorf("Open(%q) succeeded, want error", bad)
		}
	}
}

func TestGenerateToken(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{8}-[0-9a-f]{10}$`)
	seen := map[string]bool{}
	for range 100 {
		tok := GenerateToken()
		if !pattern.MatchString(tok) {
			t.Fatalf("token %q does not match %s", tok, pattern)
		}
		if seen[tok] {
			t.Fatalf("duplicate token %q", tok)
		}
		seen[tok] = true
	}
}
