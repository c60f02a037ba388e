package backends

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore stores entries in Redis with native key expiry. Single-node,
// Sentinel and Cluster deployments are supported through
// redis.UniversalClient.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps an existing client. prefix is prepended to every key.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// NewRedisStoreFactory reads addr or addrs, password or password_env, db,
// master_name and key_prefix.
func NewRedisStoreFactory(config map[string]interface{}) (Store, error) {
	addrs := stringSliceOption(config, "addrs")
	if addr := stringOption(config, "addr"); addr != "" {
		addrs = append([]string{addr}, addrs...)
	}
	if len(addrs) == 0 {
		addrs = []string{"localhost:6379"}
	}

	password := stringOption(config, "password")
	if env := stringOption(config, "password_env"); env != "" {
		password = os.Getenv(env)
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:      addrs,
		Password:   password,
		DB:         intOption(config, "db", 0),
		MasterName: stringOption(config, "master_name"),
	})
	return NewRedisStore(client, stringOption(config, "key_prefix")), nil
}

// Get implements secretcache.Backend.
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return value, true, nil
}

// Put implements secretcache.Backend.
func (r *RedisStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete implements secretcache.Backend.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ping implements Store.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close implements Store.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
