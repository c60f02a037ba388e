package backends

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileStore keeps one JSON file per key under a directory. Expired files are
// removed when read.
type FileStore struct {
	baseDir string
	now     func() time.Time
	mu      sync.RWMutex
}

type fileEntry struct {
	Key       string    `json:"key"`
	Value     []byte    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewFileStore creates a file-based store rooted at baseDir.
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir, now: time.Now}
}

// NewFileStoreFactory reads dir, defaulting to DefaultCacheDir.
func NewFileStoreFactory(config map[string]interface{}) (Store, error) {
	dir := stringOption(config, "dir")
	if dir == "" {
		dir = DefaultCacheDir()
	}
	return NewFileStore(dir), nil
}

// DefaultCacheDir returns the default file cache directory.
func DefaultCacheDir() string {
	if dir := os.Getenv("SECRETCACHE_DIR"); dir != "" {
		return dir
	}

	if xdgCache := os.Getenv("XDG_CACHE_HOME"); xdgCache != "" {
		return filepath.Join(xdgCache, "secretcache")
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "secretcache")
	}

	return filepath.Join(os.TempDir(), "secretcache")
}

// Get implements secretcache.Backend.
func (fs *FileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	fs.mu.RLock()
	data, err := os.ReadFile(fs.path(key))
	fs.mu.RUnlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache file: %w", err)
	}

	var entry fileEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cache file: %w", err)
	}

	if !fs.now().Before(entry.ExpiresAt) {
		fs.removeIfExpired(key)
		return nil, false, nil
	}
	return entry.Value, true, nil
}

// removeIfExpired deletes the file for key only if it is still expired
// under the write lock, so an entry rewritten by a concurrent Put survives.
func (fs *FileStore) removeIfExpired(key string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path := fs.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var entry fileEntry
	if err := json.Unmarshal(data, &entry); err == nil && fs.now().Before(entry.ExpiresAt) {
		return
	}
	_ = os.Remove(path)
}

// Put implements secretcache.Backend. The file is written to a temporary
// name and renamed into place.
func (fs *FileStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.MkdirAll(fs.baseDir, 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.Marshal(fileEntry{
		Key:       key,
		Value:     value,
		ExpiresAt: fs.now().Add(ttl).UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(fs.baseDir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		return fmt.Errorf("failed to set cache file permissions: %w", err)
	}
	if err := os.Rename(tmpName, fs.path(key)); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// Delete implements secretcache.Backend.
func (fs *FileStore) Delete(_ context.Context, key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.Remove(fs.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cache file: %w", err)
	}
	return nil
}

// Ping checks that the cache directory exists or can be created.
func (fs *FileStore) Ping(context.Context) error {
	if err := os.MkdirAll(fs.baseDir, 0700); err != nil {
		return fmt.Errorf("cache directory %s is not writable: %w", fs.baseDir, err)
	}
	return nil
}

// Close is a no-op.
func (fs *FileStore) Close() error { return nil }

// CleanupExpired removes every expired entry and returns how many were
// removed. Unreadable files are skipped.
func (fs *FileStore) CleanupExpired() (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	files, err := os.ReadDir(fs.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read cache directory: %w", err)
	}

	now := fs.now()
	removed := 0
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}
		path := filepath.Join(fs.baseDir, file.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var entry fileEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		if !now.Before(entry.ExpiresAt) {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

func (fs *FileStore) path(key string) string {
	return filepath.Join(fs.baseDir, fileName(key))
}

// fileName keeps keys readable on disk; the hash suffix separates keys that
// sanitize to the same name.
func fileName(key string) string {
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%s-%s.json", sanitizeFilename(key), hex.EncodeToString(sum[:4]))
}

// sanitizeFilename replaces characters that might be problematic in filenames
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-",
		"\\", "-",
		":", "-",
		"*", "-",
		"?", "-",
		"\"", "-",
		"<", "-",
		">", "-",
		"|", "-",
		" ", "_",
	)
	name = replacer.Replace(name)
	if len(name) > 120 {
		name = name[:120]
	}
	return name
}
