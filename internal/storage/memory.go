package storage

import (
	"context"
	"sync"
)

// Memory keeps slots in process memory. Contents survive a store rebuild
// inside the same process but not a restart.
type Memory struct {
	mu    sync.RWMutex
	slots map[string]string
}

var _ Storage = (*Memory)(nil)

// NewMemory returns an empty Memory storage.
func NewMemory() *Memory {
	return &Memory{slots: make(map[string]string)}
}

// Get returns the value stored under key and whether it exists.
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.slots[key]
	return v, ok, nil
}

// Set stores value under key.
func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.slots[key] = value
	m.mu.Unlock()
	return nil
}

// Remove deletes key.
func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.slots, key)
	m.mu.Unlock()
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
