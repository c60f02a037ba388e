package secure

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

// KeySize is the length in bytes of a cache encryption key.
const KeySize = 32

const nonceSize = 24

var (
	// ErrDecrypt is returned when a sealed value is truncated, was sealed
	// under a different key, or has been tampered with.
	ErrDecrypt = errors.New("secure: message authentication failed")

	// ErrInvalidKey is returned for keys that are not KeySize bytes.
	ErrInvalidKey = fmt.Errorf("secure: key must be %d bytes", KeySize)
)

// Cipher seals cache payloads with NaCl secretbox (XSalsa20-Poly1305).
// Each sealed value is a random 24-byte nonce followed by the box.
//
// The key lives in a SecureBuffer and is only unsealed for the duration of
// a single Encrypt or Decrypt call. Cipher is safe for concurrent use.
type Cipher struct {
	key *SecureBuffer
}

// NewCipher creates a Cipher from a KeySize-byte key. The key slice is wiped.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	buf, err := NewSecureBuffer(key)
	if err != nil {
		return nil, err
	}
	return &Cipher{key: buf}, nil
}

// Encrypt seals plaintext under a fresh nonce.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	locked, err := c.key.Open()
	if err != nil {
		return nil, fmt.Errorf("open key: %w", err)
	}
	defer locked.Destroy()

	return secretbox.Seal(nonce[:], plaintext, &nonce, locked.ByteArray32()), nil
}

// Decrypt opens a value produced by Encrypt. Any failure is ErrDecrypt.
func (c *Cipher) Decrypt(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, ErrDecrypt
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])

	locked, err := c.key.Open()
	if err != nil {
		return nil, fmt.Errorf("open key: %w", err)
	}
	defer locked.Destroy()

	plaintext, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, locked.ByteArray32())
	if !ok {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

// Destroy releases the key. The Cipher cannot be used afterwards.
func (c *Cipher) Destroy() {
	c.key.Destroy()
}
