package secretcache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"
)

const (
	payloadKeyPrefix  = "secret:"
	metadataKeyPrefix = "secret-meta:"
)

// PayloadKey returns the backend key holding the encrypted payload for id.
func PayloadKey(id string) string { return payloadKeyPrefix + id }

// MetadataKey returns the backend key holding the rotation metadata for id.
func MetadataKey(id string) string { return metadataKeyPrefix + id }

// Cache is the rotation-aware secret cache.
//
// All work happens on the calling goroutine. No cross-call locking is done:
// concurrent misses for the same identifier may each fetch, and the last
// write wins. Cache is safe for concurrent use when its RemoteStore and
// Backend are.
type Cache struct {
	remote  RemoteStore
	backend Backend
	cipher  Cipher

	defaultTTL time.Duration
	buffer     time.Duration
	bufferDays int
	clock      Clock
	logger     Logger
	metrics    *Metrics
}

// New creates a Cache. remote, backend and cipher are required.
func New(remote RemoteStore, backend Backend, cipher Cipher, opts ...Option) (*Cache, error) {
	if remote == nil {
		return nil, errors.New("remote store cannot be nil")
	}
	if backend == nil {
		return nil, errors.New("cache backend cannot be nil")
	}
	if cipher == nil {
		return nil, errors.New("cipher cannot be nil")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &Cache{
		remote:     remote,
		backend:    backend,
		cipher:     cipher,
		defaultTTL: o.defaultTTL,
		buffer:     BufferDuration(o.rotationBufferDays),
		bufferDays: o.rotationBufferDays,
		clock:      o.clock,
		logger:     o.logger,
		metrics:    o.metrics,
	}, nil
}

// GetSecret returns the payload for id, from cache when the rotation policy
// allows it and from the remote store otherwise. The only error returned is
// *FetchError.
func (c *Cache) GetSecret(ctx context.Context, id string) (Payload, error) {
	if id == "" {
		return nil, c.fail(&FetchError{Kind: KindInvalidID, Err: ErrInvalidID})
	}

	meta, ok := c.loadMetadata(ctx, id)
	if !ok {
		c.metrics.recordOutcome(outcomeMiss)
		return c.fetchAndCache(ctx, id)
	}

	ciphertext, ok := c.load(ctx, PayloadKey(id))
	if !ok {
		c.logger.Debug("Cache miss for %s: payload entry missing", id)
		c.metrics.recordOutcome(outcomeMiss)
		return c.fetchAndCache(ctx, id)
	}

	payload, err := c.open(ciphertext)
	if err != nil {
		c.logger.Warn("Cached payload for %s could not be decrypted, discarding entry: %v", id, err)
		c.metrics.recordOutcome(outcomeSelfHeal)
		c.ClearCache(ctx, id)
		return c.fetchAndCache(ctx, id)
	}

	now := c.clock.Now()
	d := decide(meta, now, c.buffer)
	if d.serve {
		c.logger.Debug("Cache hit for %s (%s)", id, d.reason)
		c.metrics.recordOutcome(outcomeHit)
		return payload, nil
	}

	c.logger.Debug("Refreshing %s: %s", id, d.reason)
	c.metrics.recordOutcome(outcomeRefresh)
	return c.fetchAndCache(ctx, id)
}

// ClearCache removes both cache entries for id. It is idempotent and never
// fails; backend errors are logged.
func (c *Cache) ClearCache(ctx context.Context, id string) {
	for _, key := range []string{PayloadKey(id), MetadataKey(id)} {
		if err := c.backend.Delete(ctx, key); err != nil {
			c.logger.Warn("Failed to delete cache key %s: %v", key, err)
			c.metrics.recordBackendError("delete")
		}
	}
}

// GetRotationMetadata returns the cached rotation metadata for id, or
// describes the secret remotely when none is cached. The remote path writes
// nothing to the cache.
func (c *Cache) GetRotationMetadata(ctx context.Context, id string) (RotationMetadata, error) {
	if id == "" {
		return RotationMetadata{}, c.fail(&FetchError{Kind: KindInvalidID, Err: ErrInvalidID})
	}

	if meta, ok := c.loadMetadata(ctx, id); ok {
		return meta, nil
	}

	desc, err := c.remote.DescribeSecret(ctx, id)
	c.metrics.recordRemote("describe", err)
	if err != nil {
		return RotationMetadata{}, c.fail(remoteFetchError(id, err))
	}
	return metadataFromDescription(desc, c.clock.Now()), nil
}

// RotationBufferDays reports the configured buffer window.
func (c *Cache) RotationBufferDays() int {
	return c.bufferDays
}

// DefaultTTL reports the configured default TTL.
func (c *Cache) DefaultTTL() time.Duration {
	return c.defaultTTL
}

// fetchAndCache loads the secret and its rotation schedule from the remote
// store, stores both with a planned TTL, and returns the plaintext payload.
func (c *Cache) fetchAndCache(ctx context.Context, id string) (Payload, error) {
	secret, err := c.remote.FetchSecretValue(ctx, id)
	c.metrics.recordRemote("fetch", err)
	if err != nil {
		return nil, c.fail(remoteFetchError(id, err))
	}
	if !secret.Found {
		return nil, c.fail(&FetchError{SecretID: id, Kind: KindNotFound, Err: ErrNotFound})
	}

	payload, err := decodePayload(secret.Payload)
	if err != nil {
		return nil, c.fail(&FetchError{
			SecretID: id,
			Kind:     KindInvalidJSON,
			Message:  "expected a JSON object",
			Err:      ErrInvalidJSON,
		})
	}

	meta := c.describe(ctx, id)
	ttl := ComputeTTL(meta.NextRotation, meta.LastChecked, c.bufferDays, c.defaultTTL)
	c.metrics.recordTTL(ttl.Seconds())

	c.store(ctx, id, secret.Payload, meta, ttl)
	return payload, nil
}

// describe fetches rotation metadata, degrading to "rotation unknown" when
// the remote call fails.
func (c *Cache) describe(ctx context.Context, id string) RotationMetadata {
	now := c.clock.Now()
	desc, err := c.remote.DescribeSecret(ctx, id)
	c.metrics.recordRemote("describe", err)
	if err != nil {
		c.logger.Warn("Rotation metadata unavailable for %s, caching with default TTL: %v", id, err)
		return RotationMetadata{LastChecked: now}
	}
	return metadataFromDescription(desc, now)
}

// store writes the payload then the metadata. Write failures are logged and
// never block returning the payload; a half-written pair reads as a miss.
func (c *Cache) store(ctx context.Context, id string, plaintext []byte, meta RotationMetadata, ttl time.Duration) {
	ciphertext, err := c.cipher.Encrypt(plaintext)
	if err != nil {
		c.logger.Warn("Failed to encrypt payload for %s, not caching: %v", id, err)
		c.metrics.recordBackendError("encrypt")
		return
	}
	if err := c.backend.Put(ctx, PayloadKey(id), ciphertext, ttl); err != nil {
		c.logger.Warn("Failed to cache payload for %s: %v", id, err)
		c.metrics.recordBackendError("put")
		return
	}

	metaBytes, err := encodeMetadata(meta)
	if err != nil {
		c.logger.Warn("Failed to encode rotation metadata for %s: %v", id, err)
		c.metrics.recordBackendError("encode")
		return
	}
	if err := c.backend.Put(ctx, MetadataKey(id), metaBytes, ttl); err != nil {
		c.logger.Warn("Failed to cache rotation metadata for %s: %v", id, err)
		c.metrics.recordBackendError("put")
		return
	}
	c.logger.Debug("Cached %s for %s", id, ttl)
}

// loadMetadata reads and decodes the metadata entry. Absent, unreadable and
// undecodable entries all report ok=false.
func (c *Cache) loadMetadata(ctx context.Context, id string) (RotationMetadata, bool) {
	raw, ok := c.load(ctx, MetadataKey(id))
	if !ok {
		return RotationMetadata{}, false
	}
	meta, err := decodeMetadata(raw)
	if err != nil {
		c.logger.Warn("Cached rotation metadata for %s is corrupt: %v", id, err)
		return RotationMetadata{}, false
	}
	return meta, true
}

func (c *Cache) load(ctx context.Context, key string) ([]byte, bool) {
	value, found, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Warn("Failed to read cache key %s: %v", key, err)
		c.metrics.recordBackendError("get")
		return nil, false
	}
	return value, found
}

// open decrypts a cached payload. A blob that decrypts but does not hold a
// JSON object is reported as an error too; both paths self-heal.
func (c *Cache) open(ciphertext []byte) (Payload, error) {
	plaintext, err := c.cipher.Decrypt(ciphertext)
	if err != nil {
		return nil, err
	}
	return decodePayload(plaintext)
}

func (c *Cache) fail(err *FetchError) error {
	c.metrics.recordFetchError(err.Kind)
	if err.Kind != KindInvalidID {
		c.logger.Warn("%v", err)
	}
	return err
}

// decodePayload requires a single JSON object. Numbers are kept as
// json.Number so large integers survive unchanged.
func decodePayload(data []byte) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if err := dec.Decode(new(any)); err != io.EOF {
		return nil, errors.New("unexpected data after JSON object")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("payload is not a JSON object")
	}
	return Payload(obj), nil
}
