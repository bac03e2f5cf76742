package cache

import (
	"strings"
	"sync"
)

// MemoryBackend is a volatile Backend storing values in a process local map.
// It is safe for concurrent access and suited for tests and for running with
// caching but without disk persistence. Values are copied on the way in and
// out.
//
// MaxBytes bounds the summed size of all values; zero means unbounded. A Put
// that would exceed it fails with ErrStorageFull.
type MemoryBackend struct {
	MaxBytes int

	mu     sync.RWMutex
	values map[string][]byte
	size   int
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend(maxBytes int) *MemoryBackend {
	return &MemoryBackend{MaxBytes: maxBytes, values: make(map[string][]byte)}
}

// Get returns a copy of the stored value.
func (m *MemoryBackend) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true, nil
}

// Put stores a copy of value.
func (m *MemoryBackend) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string][]byte)
	}

	next := m.size - len(m.values[key]) + len(value)
	if m.MaxBytes > 0 && next > m.MaxBytes {
		return ErrStorageFull
	}

	cp := make([]byte, len(value))
	copy(cp, value)
	m.values[key] = cp
	m.size = next
	return nil
}

// Delete removes keys.
func (m *MemoryBackend) Delete(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		if v, ok := m.values[k]; ok {
			m.size -= len(v)
			delete(m.values, k)
		}
	}
	return nil
}

// Keys lists keys with prefix.
func (m *MemoryBackend) Keys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Close is a no-op.
func (m *MemoryBackend) Close() error { return nil }
