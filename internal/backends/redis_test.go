package backends

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisStore(t *testing.T, prefix string) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(client, prefix)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStoreContract(t *testing.T) {
	t.Parallel()
	runStoreContract(t, func(t *testing.T) Store {
		s, _ := newMiniredisStore(t, "")
		return s
	})
}

func TestRedisStoreSetsTTL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, mr := newMiniredisStore(t, "")

	require.NoError(t, s.Put(ctx, "secret:prod/db", []byte("sealed"), 30*24*time.Hour))
	assert.Equal(t, 30*24*time.Hour, mr.TTL("secret:prod/db"))

	mr.FastForward(30*24*time.Hour + time.Second)
	_, ok, err := s.Get(ctx, "secret:prod/db")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreKeyPrefix(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, mr := newMiniredisStore(t, "app1:")

	require.NoError(t, s.Put(ctx, "secret:a", []byte("v"), time.Minute))
	assert.True(t, mr.Exists("app1:secret:a"))
	assert.False(t, mr.Exists("secret:a"))

	got, ok, err := s.Get(ctx, "secret:a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestRedisStoreServerDown(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, mr := newMiniredisStore(t, "")
	mr.Close()

	_, _, err := s.Get(ctx, "secret:a")
	assert.Error(t, err)
	assert.Error(t, s.Put(ctx, "secret:a", []byte("v"), time.Minute))
	assert.Error(t, s.Ping(ctx))
}

func TestRedisStoreFactory(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("s3cret")
	t.Setenv("TEST_REDIS_PASSWORD", "s3cret")

	store, err := NewRedisStoreFactory(map[string]interface{}{
		"addr":         mr.Addr(),
		"password_env": "TEST_REDIS_PASSWORD",
		"key_prefix":   "sc:",
	})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	require.NoError(t, store.Ping(context.Background()))
	require.NoError(t, store.Put(context.Background(), "k", []byte("v"), time.Minute))
	assert.True(t, mr.Exists("sc:k"))
}
