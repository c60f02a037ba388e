package backends

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreContract(t *testing.T) {
	t.Parallel()
	runStoreContract(t, func(t *testing.T) Store {
		s := NewMemoryStore(time.Minute)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestMemoryStoreExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)

	require.NoError(t, s.Put(ctx, "short", []byte("v"), 20*time.Millisecond))
	require.NoError(t, s.Put(ctx, "long", []byte("v"), time.Hour))

	time.Sleep(50 * time.Millisecond)

	_, ok, err := s.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.Get(ctx, "long")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore(0)

	value := []byte("original")
	require.NoError(t, s.Put(ctx, "k", value, time.Hour))
	value[0] = 'X'

	got, _, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got)

	got[0] = 'Y'
	again, _, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again)
}

func TestMemoryStoreClose(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)
	require.NoError(t, s.Put(ctx, "k", []byte("v"), time.Hour))
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Close())
	assert.Equal(t, 0, s.Len())
}
