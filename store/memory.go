package store

import (
	"context"
	"sync"
	"time"
)

// Memory is the default in-process Store.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry)}
}

func (m *Memory) Get(_ context.Context, key string) (Entry, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	return e, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, value any, writtenAt time.Time) error {
	m.mu.Lock()
	m.entries[key] = Entry{Value: value, WrittenAt: writtenAt}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Evict(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) EvictAll(_ context.Context) error {
	m.mu.Lock()
	clear(m.entries)
	m.mu.Unlock()
	return nil
}

// Len reports the number of entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Memory) Close(context.Context) error { return nil }
