package secretcache

import (
	"context"
	"fmt"
	"time"
)

// Payload is a decoded secret document. It is never interpreted by the cache.
type Payload map[string]any

// RemoteSecret is the result of a remote fetch. Found is false when the remote
// store answered but carried no payload field.
type RemoteSecret struct {
	Payload []byte
	Found   bool
}

// RemoteDescription is the rotation schedule reported by the remote store.
type RemoteDescription struct {
	RotationEnabled bool
	NextRotation    *time.Time
	LastRotated     *time.Time
}

// RemoteStore is the authoritative secret store the cache sits in front of.
// Implementations report failures as *RemoteError.
type RemoteStore interface {
	FetchSecretValue(ctx context.Context, id string) (RemoteSecret, error)
	DescribeSecret(ctx context.Context, id string) (RemoteDescription, error)
}

// RemoteError is a rejected or failed remote call. Code is the remote
// service's own error code (for example "AccessDeniedException").
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Backend is a key-value store with per-entry expiry. Expiry is owned by the
// backend. Get reports found=false for absent or expired keys.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Cipher seals payloads before they reach the backend.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// Clock isolates wall-clock reads.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now returns f().
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads time.Now in UTC.
var SystemClock Clock = ClockFunc(func() time.Time { return time.Now().UTC() })

// Logger is the leveled logger used for degraded paths. It matches
// internal/logging.Logger.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
