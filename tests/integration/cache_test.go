// Package integration runs the cache against real services.
package integration

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretcache/internal/backends"
	"github.com/systmms/secretcache/internal/providers"
	"github.com/systmms/secretcache/internal/secure"
	"github.com/systmms/secretcache/pkg/secretcache"
	"github.com/systmms/secretcache/tests/testutil"
)

// countingRemote records how often the cache reaches the remote store.
type countingRemote struct {
	secretcache.RemoteStore
	fetches   atomic.Int32
	describes atomic.Int32
}

func (c *countingRemote) FetchSecretValue(ctx context.Context, id string) (secretcache.RemoteSecret, error) {
	c.fetches.Add(1)
	return c.RemoteStore.FetchSecretValue(ctx, id)
}

func (c *countingRemote) DescribeSecret(ctx context.Context, id string) (secretcache.RemoteDescription, error) {
	c.describes.Add(1)
	return c.RemoteStore.DescribeSecret(ctx, id)
}

func newCipher(t *testing.T) *secure.Cipher {
	t.Helper()

	key, err := secure.GenerateKey()
	require.NoError(t, err)
	cipher, err := secure.NewCipher(key)
	require.NoError(t, err)
	t.Cleanup(cipher.Destroy)
	return cipher
}

func TestSecretsManagerWithMemoryBackend(t *testing.T) {
	env := testutil.RequireServices(t, "localstack")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	localstack := env.SecretsManager()

	remote, err := providers.NewAWSSecretsManagerProvider(env.LocalStackConfig())
	require.NoError(t, err)
	require.NoError(t, remote.Validate(ctx))

	newCache := func(t *testing.T) (*secretcache.Cache, *countingRemote, backends.Store) {
		counting := &countingRemote{RemoteStore: remote}
		backend := backends.NewMemoryStore(time.Minute)
		t.Cleanup(func() { _ = backend.Close() })

		c, err := secretcache.New(counting, backend, newCipher(t))
		require.NoError(t, err)
		return c, counting, backend
	}

	t.Run("miss_then_hit", func(t *testing.T) {
		localstack.CreateSecret("it/database/credentials", map[string]interface{}{
			"username": "admin",
			"password": "test-password-123",
		})
		c, counting, backend := newCache(t)

		payload, err := c.GetSecret(ctx, "it/database/credentials")
		require.NoError(t, err)
		assert.Equal(t, "admin", payload["username"])

		ciphertext, found, err := backend.Get(ctx, secretcache.PayloadKey("it/database/credentials"))
		require.NoError(t, err)
		require.True(t, found)
		assert.NotContains(t, string(ciphertext), "test-password-123")

		payload, err = c.GetSecret(ctx, "it/database/credentials")
		require.NoError(t, err)
		assert.Equal(t, "test-password-123", payload["password"])
		assert.Equal(t, int32(1), counting.fetches.Load())
		assert.Equal(t, int32(1), counting.describes.Load())
	})

	t.Run("rotation_metadata_without_schedule", func(t *testing.T) {
		localstack.CreateSecret("it/untracked", map[string]interface{}{"k": "v"})
		c, _, _ := newCache(t)

		_, err := c.GetSecret(ctx, "it/untracked")
		require.NoError(t, err)

		meta, err := c.GetRotationMetadata(ctx, "it/untracked")
		require.NoError(t, err)
		assert.False(t, meta.RotationEnabled)
		assert.Nil(t, meta.NextRotation)
	})

	t.Run("clear_forces_refetch", func(t *testing.T) {
		localstack.CreateSecret("it/clear", map[string]interface{}{"version": "one"})
		c, counting, _ := newCache(t)

		_, err := c.GetSecret(ctx, "it/clear")
		require.NoError(t, err)

		localstack.UpdateSecret("it/clear", map[string]interface{}{"version": "two"})
		c.ClearCache(ctx, "it/clear")

		payload, err := c.GetSecret(ctx, "it/clear")
		require.NoError(t, err)
		assert.Equal(t, "two", payload["version"])
		assert.Equal(t, int32(2), counting.fetches.Load())
	})

	t.Run("secret_not_found", func(t *testing.T) {
		c, _, _ := newCache(t)

		_, err := c.GetSecret(ctx, "it/does/not/exist")
		require.Error(t, err)

		var fetchErr *secretcache.FetchError
		require.True(t, errors.As(err, &fetchErr))
		assert.Equal(t, secretcache.KindRemote, fetchErr.Kind)
		assert.Contains(t, err.Error(), "ResourceNotFoundException")
	})

	t.Run("non_object_payload", func(t *testing.T) {
		localstack.CreateSecretString("it/plain", "just-a-string")
		c, _, _ := newCache(t)

		_, err := c.GetSecret(ctx, "it/plain")
		assert.ErrorIs(t, err, secretcache.ErrInvalidJSON)
	})

	t.Run("concurrent_access", func(t *testing.T) {
		localstack.CreateSecret("it/concurrent", map[string]interface{}{"value": "shared"})
		c, _, _ := newCache(t)

		var wg sync.WaitGroup
		errs := make(chan error, 20)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				payload, err := c.GetSecret(ctx, "it/concurrent")
				if err == nil && payload["value"] != "shared" {
					err = assert.AnError
				}
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			assert.NoError(t, err)
		}
	})
}

func TestSecretsManagerWithRedisBackend(t *testing.T) {
	env := testutil.RequireServices(t, "localstack", "redis")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	env.SecretsManager().CreateSecret("it/redis/api", map[string]interface{}{"api_key": "key-abc123"})

	remote, err := providers.NewAWSSecretsManagerProvider(env.LocalStackConfig())
	require.NoError(t, err)

	backend, err := backends.New("redis", env.RedisConfig("secretcache-it:"))
	require.NoError(t, err)
	defer func() { _ = backend.Close() }()
	require.NoError(t, backend.Ping(ctx))

	cipher := newCipher(t)

	first, err := secretcache.New(remote, backend, cipher)
	require.NoError(t, err)
	defer first.ClearCache(ctx, "it/redis/api")

	_, err = first.GetSecret(ctx, "it/redis/api")
	require.NoError(t, err)

	// A second process sharing the backend and key serves from cache.
	counting := &countingRemote{RemoteStore: remote}
	second, err := secretcache.New(counting, backend, cipher)
	require.NoError(t, err)

	payload, err := second.GetSecret(ctx, "it/redis/api")
	require.NoError(t, err)
	assert.Equal(t, "key-abc123", payload["api_key"])
	assert.Zero(t, counting.fetches.Load())
}
