// Package store provides in-memory deposit stores.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/deposit-engine/deposit"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	inputs       map[int64]deposit.InputRecord
	results      map[int64]deposit.ResultRecord // keyed by input id
	categories   map[string]deposit.Category
	nextInputID  int64
	nextResultID int64
}

var (
	_ deposit.CalculationStore = (*Memory)(nil)
	_ deposit.CategoryStore    = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{
		inputs:     make(map[int64]deposit.InputRecord),
		results:    make(map[int64]deposit.ResultRecord),
		categories: make(map[string]deposit.Category),
	}
}

// SaveCalculation stores both records under one lock.
func (m *Memory) SaveCalculation(_ context.Context, in deposit.InputRecord, out deposit.ResultRecord) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextInputID++
	m.nextResultID++
	in.ID = m.nextInputID
	out.ID = m.nextResultID
	out.InputID = in.ID

	m.inputs[in.ID] = in
	m.results[in.ID] = out
	return in.ID, out.ID, nil
}

func (m *Memory) GetCalculation(_ context.Context, calcID int64) (*deposit.InputRecord, *deposit.ResultRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	in, ok := m.inputs[calcID]
	if !ok {
		return nil, nil, nil
	}
	out, ok := m.results[calcID]
	if !ok {
		return nil, nil, nil
	}
	return &in, &out, nil
}

// ListCalculations returns up to limit records, newest first. limit <= 0
// returns everything.
func (m *Memory) ListCalculations(_ context.Context, limit int) ([]deposit.CalculationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int64, 0, len(m.inputs))
	for id := range m.inputs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	records := make([]deposit.CalculationRecord, 0, len(ids))
	for _, id := range ids {
		records = append(records, deposit.CalculationRecord{Input: m.inputs[id], Result: m.results[id]})
	}
	return records, nil
}

// UpsertCategory replaces the category with the same code.
func (m *Memory) UpsertCategory(_ context.Context, c deposit.Category) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.categories[c.Code]
	if ok {
		c.ID = existing.ID
	} else {
		c.ID = int64(len(m.categories) + 1)
	}
	m.categories[c.Code] = c
	return !ok, nil
}

func (m *Memory) ListCategories(_ context.Context) ([]deposit.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]deposit.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// Count returns the number of stored calculations.
func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.inputs)
}
