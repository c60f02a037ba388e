package secure

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/argon2"
)

// Key source types.
const (
	SourceEnv        = "env"
	SourcePassphrase = "passphrase"
	SourceKeyring    = "keyring"
)

// Argon2id parameters for passphrase-derived keys.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// Defaults for KeySource fields.
const (
	DefaultKeyEnv         = "SECRETCACHE_KEY"
	DefaultPassphraseEnv  = "SECRETCACHE_PASSPHRASE"
	DefaultKeyringService = "secretcache"
	DefaultKeyringUser    = "cache-key"
)

// ErrKeyNotFound is returned when the configured source holds no key.
var ErrKeyNotFound = errors.New("encryption key not found")

// KeySource describes where the cache encryption key comes from.
type KeySource struct {
	// Type is one of SourceEnv, SourcePassphrase or SourceKeyring.
	Type string

	// Env names the variable holding a base64 key (env) or the passphrase
	// (passphrase).
	Env string

	// Salt is mixed into passphrase-derived keys. Changing it changes the key
	// and every cached entry self-heals on next read.
	Salt string

	KeyringService string
	KeyringUser    string
}

// LoadKey resolves src to a KeySize-byte key.
func LoadKey(src KeySource) ([]byte, error) {
	switch src.Type {
	case SourceEnv, "":
		name := src.Env
		if name == "" {
			name = DefaultKeyEnv
		}
		encoded := strings.TrimSpace(os.Getenv(name))
		if encoded == "" {
			return nil, fmt.Errorf("%w: environment variable %s is not set", ErrKeyNotFound, name)
		}
		return DecodeKey(encoded)

	case SourcePassphrase:
		name := src.Env
		if name == "" {
			name = DefaultPassphraseEnv
		}
		passphrase := os.Getenv(name)
		if passphrase == "" {
			return nil, fmt.Errorf("%w: environment variable %s is not set", ErrKeyNotFound, name)
		}
		if src.Salt == "" {
			return nil, errors.New("passphrase key source requires a salt")
		}
		return DeriveKey(passphrase, src.Salt), nil

	case SourceKeyring:
		service, user := keyringNames(src)
		encoded, err := keyring.Get(service, user)
		if err != nil {
			if errors.Is(err, keyring.ErrNotFound) {
				return nil, fmt.Errorf("%w: no keyring entry %s/%s", ErrKeyNotFound, service, user)
			}
			return nil, fmt.Errorf("read keyring entry %s/%s: %w", service, user, err)
		}
		return DecodeKey(encoded)

	default:
		return nil, fmt.Errorf("unknown key source %q", src.Type)
	}
}

// DeriveKey stretches a passphrase into a key with Argon2id.
func DeriveKey(passphrase, salt string) []byte {
	return argon2.IDKey([]byte(passphrase), []byte(salt), argonTime, argonMemory, argonThreads, KeySize)
}

// GenerateKey returns a new random key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}

// EncodeKey renders a key the way LoadKey expects it in env vars and the
// keyring.
func EncodeKey(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

// DecodeKey parses a base64 key and checks its length.
func DecodeKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	return key, nil
}

// StoreKey writes an encoded key to the OS keyring.
func StoreKey(src KeySource, key []byte) error {
	service, user := keyringNames(src)
	if err := keyring.Set(service, user, EncodeKey(key)); err != nil {
		return fmt.Errorf("write keyring entry %s/%s: %w", service, user, err)
	}
	return nil
}

func keyringNames(src KeySource) (string, string) {
	service, user := src.KeyringService, src.KeyringUser
	if service == "" {
		service = DefaultKeyringService
	}
	if user == "" {
		user = DefaultKeyringUser
	}
	return service, user
}
