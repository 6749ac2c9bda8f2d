// Package cache provides the gateway's keyed response cache behind the
// CacheStore port: an in-process store for single-replica deployments and a
// Redis-backed one for fleets.
package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is a TTL map guarded by one mutex. Entries are evicted lazily on
// read. Patch applies the mutation under the lock, which makes it the
// linearization point for cache rewrites within one process.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.liveEntry(key)
	if !ok {
		return nil, false, nil
	}
	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	m.entries[key] = memoryEntry{
		value:     stored,
		expiresAt: m.expiry(ttl),
	}
	return nil
}

func (m *Memory) Patch(_ context.Context, key string, apply func(current []byte) ([]byte, error)) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.liveEntry(key)
	if !ok {
		return false, nil
	}
	next, err := apply(entry.value)
	if err != nil {
		return false, err
	}
	entry.value = next
	m.entries[key] = entry
	return true, nil
}

func (m *Memory) Invalidate(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}

func (m *Memory) liveEntry(key string) (memoryEntry, bool) {
	entry, ok := m.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		delete(m.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}

func (m *Memory) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(ttl)
}
