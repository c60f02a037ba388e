package secure

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"
)

// ErrEmptySecret is returned when a SecureBuffer is created from no bytes.
var ErrEmptySecret = errors.New("secure buffer requires at least one byte")

// ErrDestroyed is returned when a destroyed SecureBuffer is opened.
var ErrDestroyed = errors.New("secure buffer has been destroyed")

// SecureBuffer holds key material in a memguard.Enclave, encrypted at rest
// in memory and outside the garbage-collected heap.
//
// Note: memguard.Enclave has no Destroy method. Destroy drops the reference
// so the buffer cannot be reopened; memguard.Purge in main wipes whatever
// remains at exit.
type SecureBuffer struct {
	enclave   *memguard.Enclave
	size      int
	mu        sync.RWMutex
	destroyed bool
}

// NewSecureBuffer moves data into a protected enclave. memguard wipes the
// source slice, so callers must not reuse data afterwards.
func NewSecureBuffer(data []byte) (*SecureBuffer, error) {
	if len(data) == 0 {
		return nil, ErrEmptySecret
	}
	size := len(data)
	return &SecureBuffer{
		enclave: memguard.NewEnclave(data),
		size:    size,
	}, nil
}

// Open decrypts the enclave into a locked buffer. The caller MUST call
// Destroy on the returned LockedBuffer.
//
//	locked, err := buf.Open()
//	if err != nil {
//	    return err
//	}
//	defer locked.Destroy()
func (s *SecureBuffer) Open() (*memguard.LockedBuffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed {
		return nil, ErrDestroyed
	}
	return s.enclave.Open()
}

// Size returns the length of the protected data.
func (s *SecureBuffer) Size() int {
	return s.size
}

// Destroy prevents further use of the buffer. It is idempotent.
func (s *SecureBuffer) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return
	}
	s.enclave = nil
	s.destroyed = true
}
