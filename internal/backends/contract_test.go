package backends

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract checks the behavior every Store must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key is a miss", func(t *testing.T) {
		s := newStore(t)
		v, ok, err := s.Get(ctx, "secret:absent")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, v)
	})

	t.Run("put then get", func(t *testing.T) {
		s := newStore(t)
		value := []byte{0x00, 0x01, 0xFE, 0xFF, 'x'}
		require.NoError(t, s.Put(ctx, "secret:prod/db", value, time.Hour))

		got, ok, err := s.Get(ctx, "secret:prod/db")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, value, got)
	})

	t.Run("put overwrites", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, "secret-meta:a", []byte("one"), time.Hour))
		require.NoError(t, s.Put(ctx, "secret-meta:a", []byte("two"), time.Hour))

		got, ok, err := s.Get(ctx, "secret-meta:a")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte("two"), got)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, "secret:a", []byte("v"), time.Hour))
		require.NoError(t, s.Delete(ctx, "secret:a"))
		require.NoError(t, s.Delete(ctx, "secret:a"))
		require.NoError(t, s.Delete(ctx, "secret:never-written"))

		_, ok, err := s.Get(ctx, "secret:a")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("keys are independent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, "secret:prod/db", []byte("payload"), time.Hour))
		require.NoError(t, s.Put(ctx, "secret-meta:prod/db", []byte("meta"), time.Hour))
		require.NoError(t, s.Put(ctx, "secret:prod-db", []byte("other"), time.Hour))

		require.NoError(t, s.Delete(ctx, "secret:prod/db"))

		_, ok, err := s.Get(ctx, "secret:prod/db")
		require.NoError(t, err)
		assert.False(t, ok)

		got, ok, err := s.Get(ctx, "secret-meta:prod/db")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte("meta"), got)

		got, ok, err = s.Get(ctx, "secret:prod-db")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte("other"), got)
	})

	t.Run("ping", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Ping(ctx))
	})
}
