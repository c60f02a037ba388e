// Package secure encrypts cache entries and keeps the encryption key out of
// ordinary process memory.
//
// Cipher seals payloads with NaCl secretbox. The key is held in a
// SecureBuffer backed by memguard, which encrypts it at rest in memory,
// mlocks it and surrounds it with guard pages. The plaintext key only exists
// inside a LockedBuffer for the length of one Encrypt or Decrypt call.
//
// # Key sources
//
// LoadKey reads the key from one of:
//
//	env         base64 key in an environment variable (SECRETCACHE_KEY)
//	passphrase  passphrase in an environment variable, stretched with Argon2id
//	keyring     base64 key in the OS keyring (Keychain, Secret Service, wincred)
//
// Use GenerateKey and EncodeKey to create a key for the env or keyring
// sources.
//
// # Usage
//
//	key, err := secure.LoadKey(secure.KeySource{Type: secure.SourceEnv})
//	if err != nil {
//	    return err
//	}
//	cipher, err := secure.NewCipher(key)
//	if err != nil {
//	    return err
//	}
//	defer cipher.Destroy()
//
// Call memguard.Purge in main to wipe all protected memory at exit.
//
// # Platform Behavior
//
// Memory locking on Linux is bounded by RLIMIT_MEMLOCK. When mlock fails
// memguard falls back to ordinary memory.
package secure
