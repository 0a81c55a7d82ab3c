package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store for tests. SetError makes every
// subsequent operation fail, for exercising storage-fault paths.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
	failErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

// SetError forces all operations to fail with err until reset with nil.
func (m *MemoryStore) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failErr != nil {
		return nil, false, storageErr(key, m.failErr)
	}
	data, ok := m.records[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, true, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return storageErr(key, m.failErr)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.records[key] = cp
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return storageErr(key, m.failErr)
	}
	delete(m.records, key)
	return nil
}
