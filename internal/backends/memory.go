package backends

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultCleanupInterval is how often expired memory entries are purged.
const DefaultCleanupInterval = 10 * time.Minute

// MemoryStore keeps entries in process memory with per-entry expiry. Entries
// are lost on exit, so it suits long-running processes and tests.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates a MemoryStore whose janitor runs every
// cleanupInterval.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	return &MemoryStore{cache: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

// NewMemoryStoreFactory reads cleanup_interval.
func NewMemoryStoreFactory(config map[string]interface{}) (Store, error) {
	interval, err := durationOption(config, "cleanup_interval", DefaultCleanupInterval)
	if err != nil {
		return nil, err
	}
	return NewMemoryStore(interval), nil
}

// Get implements secretcache.Backend.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), b...), true, nil
}

// Put implements secretcache.Backend.
func (m *MemoryStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.cache.Set(key, append([]byte(nil), value...), ttl)
	return nil
}

// Delete implements secretcache.Backend.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.cache.Delete(key)
	return nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Close drops all entries.
func (m *MemoryStore) Close() error {
	m.cache.Flush()
	return nil
}

// Len returns the number of stored entries, including expired ones not yet
// purged.
func (m *MemoryStore) Len() int {
	return m.cache.ItemCount()
}
