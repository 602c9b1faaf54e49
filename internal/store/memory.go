package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by one-shot commands and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	clock   func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		clock:   time.Now,
	}
}

// SetClock overrides the wall clock, for expiry tests.
func (m *MemoryStore) SetClock(clock func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = clock
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok || m.clock().After(e.expiresAt) {
		return nil, ErrNotFound
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.entries[key] = memoryEntry{value: v, expiresAt: m.clock().Add(ttl)}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
