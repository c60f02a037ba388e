package fakes

import (
	"context"
	"sync"
	"time"

	"github.com/systmms/secretcache/pkg/secretcache"
)

// FakeBackend is a map-backed secretcache.Backend that records TTLs and
// operations instead of expiring entries.
type FakeBackend struct {
	mu sync.Mutex

	Entries map[string][]byte
	TTLs    map[string]time.Duration

	// Ops records every operation as "get:key", "put:key" or "delete:key".
	Ops []string

	GetErr    error
	PutErr    error
	DeleteErr error
}

// NewFakeBackend creates an empty fake backend.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		Entries: make(map[string][]byte),
		TTLs:    make(map[string]time.Duration),
	}
}

// Get implements secretcache.Backend.
func (f *FakeBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Ops = append(f.Ops, "get:"+key)
	if f.GetErr != nil {
		return nil, false, f.GetErr
	}
	v, ok := f.Entries[key]
	return v, ok, nil
}

// Put implements secretcache.Backend.
func (f *FakeBackend) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Ops = append(f.Ops, "put:"+key)
	if f.PutErr != nil {
		return f.PutErr
	}
	f.Entries[key] = append([]byte(nil), value...)
	f.TTLs[key] = ttl
	return nil
}

// Delete implements secretcache.Backend.
func (f *FakeBackend) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Ops = append(f.Ops, "delete:"+key)
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	delete(f.Entries, key)
	delete(f.TTLs, key)
	return nil
}

// Has reports whether key is stored.
func (f *FakeBackend) Has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.Entries[key]
	return ok
}

// Writes returns the put operations recorded so far.
func (f *FakeBackend) Writes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, op := range f.Ops {
		if len(op) > 4 && op[:4] == "put:" {
			out = append(out, op)
		}
	}
	return out
}

var _ secretcache.Backend = (*FakeBackend)(nil)
