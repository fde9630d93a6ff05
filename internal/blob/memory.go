package blob

import (
	"context"
	"fmt"
	"sync"

	"github.com/matsen/semikb/internal/kg"
	"github.com/matsen/semikb/internal/storage"
)

// MemoryStore keeps encoded bundles in memory. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	bundles map[string][]byte
	saves   int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bundles: make(map[string][]byte)}
}

// Load decodes the bundle at path.
func (m *MemoryStore) Load(_ context.Context, path string) (kg.Data, error) {
	m.mu.RLock()
	data, ok := m.bundles[path]
	m.mu.RUnlock()
	if !ok {
		return kg.Data{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return storage.DecodeBundle(data)
}

// Save encodes d and stores it at path.
func (m *MemoryStore) Save(_ context.Context, path string, d kg.Data) error {
	data, err := storage.EncodeBundle(d)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.bundles[path] = data
	m.saves++
	return nil
}

// Bytes returns a copy of the encoded bundle at path.
func (m *MemoryStore) Bytes(path string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.bundles[path]
	if !ok {
		return nil, false
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	return copied, true
}

// Saves returns the number of successful saves.
func (m *MemoryStore) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}
