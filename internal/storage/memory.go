package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory. Records do not survive restarts,
// so it is only suitable for tests and dry runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]time.Time{}}
}

// Has reports whether key exists.
func (m *MemoryStore) Has(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[key]
	return ok, nil
}

// PutIfAbsent stores key unless it is already present.
func (m *MemoryStore) PutIfAbsent(_ context.Context, key string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[key]; !ok {
		m.records[key] = at
	}
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
