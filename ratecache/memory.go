package ratecache

import (
	"context"
	"sync"
)

// MemoryStore is a process local EntryStore.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (m *MemoryStore) GetEntry(_ context.Context, productCode string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[productCode]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *MemoryStore) PutEntry(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ProductCode] = e
	return nil
}
