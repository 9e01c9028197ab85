package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Altair29/J-GLOW-sub001/internal/db"
	"github.com/Altair29/J-GLOW-sub001/internal/sim"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is a Repository backed by the sim_runs table. The schema is
// created by db.Migrate.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to databaseURL.
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Postgres{pool: pool}, nil
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) Save(ctx context.Context, rec Record) error {
	if err := checkRecord(rec); err != nil {
		return err
	}
	data, err := encodeDetail(rec)
	if err != nil {
		return err
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO sim_runs (token, run_id, pack, pack_title, strategy, phase, turn, total_turns,
		                      rank, score, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, rec.Token, rec.RunID, rec.Pack, rec.PackTitle, rec.Strategy, string(rec.Phase), rec.Turn, rec.TotalTurns,
		rec.Rank(), rec.Score(), data, createdAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("save %s: %w", rec.Token, ErrAlreadyExists)
		}
		return fmt.Errorf("save %s: %w", rec.Token, err)
	}
	return nil
}

const pgSelect = `
	SELECT token, run_id, pack, pack_title, strategy, phase, turn, total_turns, detail, created_at
	FROM sim_runs`

func (p *Postgres) Get(ctx context.Context, token string) (Record, error) {
	rec, err := scanPostgres(p.pool.QueryRow(ctx, pgSelect+` WHERE token = $1`, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, fmt.Errorf("get %s: %w", token, ErrNotFound)
		}
		return Record{}, fmt.Errorf("get %s: %w", token, err)
	}
	return rec, nil
}

func (p *Postgres) List(ctx context.Context, limit int) ([]Record, error) {
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	rows, err := p.pool.Query(ctx, pgSelect+` ORDER BY created_at DESC, token DESC LIMIT $1`, limitArg)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanPostgres(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}

func scanPostgres(row pgx.Row) (Record, error) {
	var (
		rec   Record
		phase string
		data  []byte
	)
	err := row.Scan(&rec.Token, &rec.RunID, &rec.Pack, &rec.PackTitle, &rec.Strategy,
		&phase, &rec.Turn, &rec.TotalTurns, &data, &rec.CreatedAt)
	if err != nil {
		return Record{}, err
	}
	rec.Phase = sim.Phase(phase)
	rec.CreatedAt = rec.CreatedAt.UTC()
	if err := decodeDetail(&rec, data); err != nil {
		return Record{}, err
	}
	return rec, nil
}
