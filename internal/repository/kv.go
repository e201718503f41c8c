package repository

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
)

var (
	// ErrKeyNotFound is returned by KV.Get for absent keys
	ErrKeyNotFound = errors.New("key not found")
	// ErrQuotaExceeded is returned when a write would exceed the backend's capacity
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrStorageDisabled is returned by a backend that refuses all access
	ErrStorageDisabled = errors.New("storage disabled")
)

// KV is the durable key-value primitive the store is built on
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// MemoryKV is an in-process KV. A positive Quota caps total stored bytes.
type MemoryKV struct {
	mu       sync.RWMutex
	data     map[string][]byte
	size     int
	Quota    int
	Disabled bool
	// FailDelete makes Delete fail for keys with this prefix
	FailDelete string
}

// NewMemoryKV creates an empty in-memory KV
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

// Get returns a copy of the value stored under key
func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Disabled {
		return nil, ErrStorageDisabled
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return slices.Clone(v), nil
}

// Set stores value under key
func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Disabled {
		return ErrStorageDisabled
	}
	next := m.size - len(m.data[key]) + len(value)
	if m.Quota > 0 && next > m.Quota {
		return ErrQuotaExceeded
	}
	m.data[key] = slices.Clone(value)
	m.size = next
	return nil
}

// Delete removes key. Deleting an absent key succeeds.
func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Disabled {
		return ErrStorageDisabled
	}
	if m.FailDelete != "" && strings.HasPrefix(key, m.FailDelete) {
		return errors.New("delete refused")
	}
	m.size -= len(m.data[key])
	delete(m.data, key)
	return nil
}

// Keys lists keys with the given prefix in sorted order
func (m *MemoryKV) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Disabled {
		return nil, ErrStorageDisabled
	}
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// Close is a no-op
func (m *MemoryKV) Close() error {
	return nil
}
