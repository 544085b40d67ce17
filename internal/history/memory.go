// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"slices"
	"sync"

	"github.com/pdiddy/dataset-engine/pkg/types"
)

// Memory is a Store held entirely in memory.
type Memory struct {
	mu      sync.RWMutex
	records map[string]types.HistoryRecord
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]types.HistoryRecord)}
}

func (m *Memory) Contains(_ context.Context, key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[key]
	return ok
}

func (m *Memory) Get(_ context.Context, key string) (*types.HistoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	rec.Files = slices.Clone(rec.Files)
	return &rec, nil
}

func (m *Memory) Put(_ context.Context, key string, rec types.HistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.Key = key
	rec.Files = slices.Clone(rec.Files)
	m.records[key] = rec
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}

func (m *Memory) Flush(context.Context) error { return nil }

func (m *Memory) List(context.Context) ([]types.HistoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.HistoryRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *Memory) Close() error { return nil }

func sortNewestFirst(recs []types.HistoryRecord) {
	slices.SortFunc(recs, func(a, b types.HistoryRecord) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		if a.Key < b.Key {
			return -1
		}
		if a.Key > b.Key {
			return 1
		}
		return 0
	})
}
