package kvstore

import (
	"bytes"
	"context"
	"sort"
	"sync"
)

// MemoryStorage keeps values in a map; contents are lost on exit
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string][]byte
}

var _ Storage = (*MemoryStorage)(nil)

// NewMemoryStorage creates an empty in-memory storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: make(map[string][]byte)}
}

// GetItem returns a copy of the stored value
func (m *MemoryStorage) GetItem(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(v), nil
}

// SetItem stores a copy of value
func (m *MemoryStorage) SetItem(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = bytes.Clone(value)
	return nil
}

// RemoveItem deletes key
func (m *MemoryStorage) RemoveItem(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
	return nil
}

// Keys lists the stored keys in sorted order
func (m *MemoryStorage) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
