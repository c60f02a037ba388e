package fakes

import (
	"context"
	"sync"
	"time"

	"github.com/systmms/secretcache/pkg/secretcache"
)

// FakeRemoteStore is an in-memory secretcache.RemoteStore with call counters.
type FakeRemoteStore struct {
	mu sync.Mutex

	// Payloads maps identifiers to raw payload strings.
	Payloads map[string]string
	// Missing lists identifiers whose response carries no payload field.
	Missing map[string]bool
	// Descriptions maps identifiers to rotation schedules.
	Descriptions map[string]secretcache.RemoteDescription
	// FetchErrors and DescribeErrors map identifiers to errors to return.
	FetchErrors    map[string]error
	DescribeErrors map[string]error

	FetchCalls    int
	DescribeCalls int
}

// NewFakeRemoteStore creates an empty fake remote store.
func NewFakeRemoteStore() *FakeRemoteStore {
	return &FakeRemoteStore{
		Payloads:       make(map[string]string),
		Missing:        make(map[string]bool),
		Descriptions:   make(map[string]secretcache.RemoteDescription),
		FetchErrors:    make(map[string]error),
		DescribeErrors: make(map[string]error),
	}
}

// AddSecret stores a payload with no rotation schedule.
func (f *FakeRemoteStore) AddSecret(id, payload string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Payloads[id] = payload
}

// AddRotatingSecret stores a payload with rotation enabled.
func (f *FakeRemoteStore) AddRotatingSecret(id, payload string, nextRotation time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Payloads[id] = payload
	f.Descriptions[id] = secretcache.RemoteDescription{
		RotationEnabled: true,
		NextRotation:    &nextRotation,
	}
}

// FetchSecretValue implements secretcache.RemoteStore.
func (f *FakeRemoteStore) FetchSecretValue(_ context.Context, id string) (secretcache.RemoteSecret, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FetchCalls++

	if err, ok := f.FetchErrors[id]; ok {
		return secretcache.RemoteSecret{}, err
	}
	if f.Missing[id] {
		return secretcache.RemoteSecret{Found: false}, nil
	}
	payload, ok := f.Payloads[id]
	if !ok {
		return secretcache.RemoteSecret{}, &secretcache.RemoteError{
			Code:    "ResourceNotFoundException",
			Message: "Secrets Manager can't find the specified secret.",
		}
	}
	return secretcache.RemoteSecret{Payload: []byte(payload), Found: true}, nil
}

// DescribeSecret implements secretcache.RemoteStore.
func (f *FakeRemoteStore) DescribeSecret(_ context.Context, id string) (secretcache.RemoteDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DescribeCalls++

	if err, ok := f.DescribeErrors[id]; ok {
		return secretcache.RemoteDescription{}, err
	}
	return f.Descriptions[id], nil
}

// Calls returns the total number of remote calls made.
func (f *FakeRemoteStore) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.FetchCalls + f.DescribeCalls
}

// Reset clears the call counters.
func (f *FakeRemoteStore) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FetchCalls = 0
	f.DescribeCalls = 0
}

var _ secretcache.RemoteStore = (*FakeRemoteStore)(nil)
