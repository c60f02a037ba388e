package secure

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	key, err := GenerateKey()
	require.NoError(t, err)
	c, err := NewCipher(key)
	require.NoError(t, err)
	t.Cleanup(c.Destroy)
	return c
}

func TestNewCipherKeyLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{name: "32 bytes", size: 32},
		{name: "16 bytes", size: 16, wantErr: true},
		{name: "64 bytes", size: 64, wantErr: true},
		{name: "empty", size: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, err := NewCipher(make([]byte, tt.size))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKey)
				return
			}
			require.NoError(t, err)
			c.Destroy()
		})
	}
}

func TestCipherRoundTrip(t *testing.T) {
	t.Parallel()
	c := newTestCipher(t)

	plaintexts := [][]byte{
		[]byte(`{"password":"hunter2"}`),
		[]byte(`{}`),
		bytes.Repeat([]byte("a"), 64*1024),
	}
	for _, p := range plaintexts {
		sealed, err := c.Encrypt(p)
		require.NoError(t, err)
		assert.Len(t, sealed, nonceSize+len(p)+16)
		if len(p) > 8 {
			assert.False(t, bytes.Contains(sealed, p[:8]))
		}

		opened, err := c.Decrypt(sealed)
		require.NoError(t, err)
		assert.Equal(t, p, opened)
	}
}

func TestCipherUsesFreshNonce(t *testing.T) {
	t.Parallel()
	c := newTestCipher(t)

	a, err := c.Encrypt([]byte("same"))
	require.NoError(t, err)
	b, err := c.Encrypt([]byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCipherDecryptFailures(t *testing.T) {
	t.Parallel()
	c := newTestCipher(t)
	other := newTestCipher(t)

	sealed, err := c.Encrypt([]byte(`{"k":"v"}`))
	require.NoError(t, err)

	tampered := append([]byte(nil), sealed...)
	tampered[len(tampered)-1] ^= 0xFF

	tests := []struct {
		name  string
		input []byte
		c     *Cipher
	}{
		{name: "wrong key", input: sealed, c: other},
		{name: "tampered box", input: tampered, c: c},
		{name: "truncated", input: sealed[:nonceSize+4], c: c},
		{name: "empty", input: nil, c: c},
		{name: "plaintext", input: []byte(`{"k":"v"}`), c: c},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.c.Decrypt(tt.input)
			assert.ErrorIs(t, err, ErrDecrypt)
		})
	}
}

func TestCipherAfterDestroy(t *testing.T) {
	t.Parallel()

	key, err := GenerateKey()
	require.NoError(t, err)
	c, err := NewCipher(key)
	require.NoError(t, err)
	c.Destroy()

	_, err = c.Encrypt([]byte("x"))
	assert.ErrorIs(t, err, ErrDestroyed)
}
