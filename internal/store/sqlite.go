package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Altair29/J-GLOW-sub001/internal/sim"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sim_runs (
    token       TEXT PRIMARY KEY,
    run_id      TEXT NOT NULL,
    pack        TEXT NOT NULL,
    pack_title  TEXT NOT NULL DEFAULT '',
    strategy    TEXT NOT NULL DEFAULT '',
    phase       TEXT NOT NULL,
    turn        INTEGER NOT NULL,
    total_turns INTEGER NOT NULL,
    detail      TEXT NOT NULL,
    created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sim_runs_created ON sim_runs (created_at DESC);
`

// SQLite is a Repository backed by a local SQLite file.
type SQLite struct {
	sqlDB *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and ensures
// the schema exists.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.ExecContext(ctx, sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLite{sqlDB: sqlDB}, nil
}

func (s *SQLite) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *SQLite) Save(ctx context.Context, rec Record) error {
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

	_, err = s.sqlDB.ExecContext(ctx, `
		INSERT INTO sim_runs (token, run_id, pack, pack_title, strategy, phase, turn, total_turns, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Token, rec.RunID, rec.Pack, rec.PackTitle, rec.Strategy, string(rec.Phase),
		rec.Turn, rec.TotalTurns, string(data), createdAt.UTC().UnixMilli(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("save %s: %w", rec.Token, ErrAlreadyExists)
		}
		return fmt.Errorf("save %s: %w", rec.Token, err)
	}
	return nil
}

const sqliteSelect = `
	SELECT token, run_id, pack, pack_title, strategy, phase, turn, total_turns, detail, created_at
	FROM sim_runs`

func (s *SQLite) Get(ctx context.Context, token string) (Record, error) {
	row := s.sqlDB.QueryRowContext(ctx, sqliteSelect+` WHERE token = ?`, token)
	rec, err := scanSQLite(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, fmt.Errorf("get %s: %w", token, ErrNotFound)
		}
		return Record{}, fmt.Errorf("get %s: %w", token, err)
	}
	return rec, nil
}

func (s *SQLite) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.sqlDB.QueryContext(ctx, sqliteSelect+` ORDER BY created_at DESC, token DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanSQLite(rows)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLite(row scanner) (Record, error) {
	var (
		rec       Record
		phase     string
		data      string
		createdAt int64
	)
	err := row.Scan(&rec.Token, &rec.RunID, &rec.Pack, &rec.PackTitle, &rec.Strategy,
		&phase, &rec.Turn, &rec.TotalTurns, &data, &createdAt)
	if err != nil {
		return Record{}, err
	}
	rec.Phase = sim.Phase(phase)
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	if err := decodeDetail(&rec, []byte(data)); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
