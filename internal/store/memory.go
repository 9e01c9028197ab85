package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory is an in-process Repository. Records are copied in and out through
// their JSON form so callers never share maps with the store.
type Memory struct {
	mu      sync.RWMutex
	records map[string][]byte
	meta    map[string]Record
}

// NewMemory returns an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		records: map[string][]byte{},
		meta:    map[string]Record{},
	}
}

func (m *Memory) Save(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkRecord(rec); err != nil {
		return err
	}
	data, err := encodeDetail(rec)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.Token]; ok {
		return fmt.Errorf("save %s: %w", rec.Token, ErrAlreadyExists)
	}
	head := rec
	head.Specs, head.Gauges, head.Failure, head.Grade, head.Moments = nil, nil, nil, nil, nil
	m.records[rec.Token] = data
	m.meta[rec.Token] = head
	return nil
}

func (m *Memory) Get(ctx context.Context, token string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.get(token)
}

func (m *Memory) get(token string) (Record, error) {
	data, ok := m.records[token]
	if !ok {
		return Record{}, fmt.Errorf("get %s: %w", token, ErrNotFound)
	}
	rec := m.meta[token]
	if err := decodeDetail(&rec, data); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (m *Memory) List(ctx context.Context, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Record, 0, len(m.records))
	for token := range m.records {
		rec, err := m.get(token)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Token > out[j].Token
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
