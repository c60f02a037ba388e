package fakes

import (
	"bytes"
	"errors"
	"sync"
)

var fakeSealPrefix = []byte("sealed:")

// ErrFakeDecrypt is returned by FakeCipher when decryption fails.
var ErrFakeDecrypt = errors.New("fake cipher: message authentication failed")

// FakeCipher is a reversible, non-secret stand-in for secure.Cipher. It
// reverses the plaintext so tests can tell sealed bytes from plaintext.
type FakeCipher struct {
	mu sync.Mutex

	// FailDecrypt forces every Decrypt call to fail.
	FailDecrypt bool
	// FailEncrypt forces every Encrypt call to fail.
	FailEncrypt bool

	EncryptCalls int
	DecryptCalls int
}

// Encrypt implements secretcache.Cipher.
func (c *FakeCipher) Encrypt(plaintext []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.EncryptCalls++
	if c.FailEncrypt {
		return nil, errors.New("fake cipher: encrypt failed")
	}
	out := append([]byte(nil), fakeSealPrefix...)
	return append(out, reverse(plaintext)...), nil
}

// Decrypt implements secretcache.Cipher.
func (c *FakeCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.DecryptCalls++
	if c.FailDecrypt || !bytes.HasPrefix(ciphertext, fakeSealPrefix) {
		return nil, ErrFakeDecrypt
	}
	return reverse(ciphertext[len(fakeSealPrefix):]), nil
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[len(b)-1-i] = b[i]
	}
	return out
}
