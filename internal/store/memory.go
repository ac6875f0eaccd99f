package store

import (
	"strings"
	"sync"
)

// MemoryStore is a map-backed KV for tests and ephemeral sessions
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Get returns the stored value, or (nil, nil) when the key is absent
func (m *MemoryStore) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Set stores a copy of value under key
func (m *MemoryStore) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

// SetMany stores copies of all items under one lock acquisition
func (m *MemoryStore) SetMany(items map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, value := range items {
		v := make([]byte, len(value))
		copy(v, value)
		m.data[key] = v
	}
	return nil
}

// Delete removes a key; deleting a missing key is a no-op
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// DeletePrefix removes every key sharing the prefix
func (m *MemoryStore) DeletePrefix(prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
		}
	}
	return nil
}
