// Package secretcache is a rotation-aware, encrypted cache in front of a
// remote secret store.
//
// The cache minimizes calls to the remote store while guaranteeing that a
// caller never receives a secret past its declared rotation date for longer
// than the recheck interval, and that cached plaintext is never written to
// the backend unencrypted.
//
// # Cache Gate
//
// GetSecret serves the cached payload when it is safe to do so:
//
//   - no rotation schedule is known (the entry's TTL is trusted), or
//   - the rotation date is further away than the rotation buffer, or
//   - the secret is inside the buffer but was checked less than an hour ago.
//
// Otherwise it refetches the payload and the rotation schedule, plans a new
// TTL with ComputeTTL, and stores both entries:
//
//	secret:{id}       encrypted payload
//	secret-meta:{id}  rotation metadata (plaintext JSON)
//
// A payload without metadata, or metadata without a payload, is a miss.
//
// # Degraded paths
//
// A cached payload that cannot be decrypted (for example after the
// encryption key changed) is deleted and refetched. A failed describe call
// caches the payload with the default TTL and no rotation tracking. Neither
// is surfaced to the caller; only *FetchError is.
//
// # Collaborators
//
// The remote store, the cache backend and the cipher are interfaces injected
// at construction time. Implementations live in internal/providers,
// internal/backends and internal/secure.
//
// # Usage
//
//	c, err := secretcache.New(remote, backend, cipher,
//	    secretcache.WithDefaultTTL(5*time.Minute),
//	    secretcache.WithRotationBufferDays(7),
//	)
//	if err != nil {
//	    return err
//	}
//	payload, err := c.GetSecret(ctx, "prod/db")
package secretcache
