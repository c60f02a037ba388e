package backends

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/systmms/secretcache/pkg/secretcache"
)

// Store is a cache backend the CLI can construct, health-check and close.
type Store interface {
	secretcache.Backend

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases connections and background goroutines.
	Close() error
}

// Factory creates a Store from the inline options of a backend config block.
type Factory func(config map[string]interface{}) (Store, error)

// Registry maps backend type names to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates a registry with the built-in backends.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}

	r.RegisterFactory("memory", NewMemoryStoreFactory)
	r.RegisterFactory("redis", NewRedisStoreFactory)
	r.RegisterFactory("file", NewFileStoreFactory)
	r.RegisterFactory("postgres", NewSQLStoreFactory(DialectPostgres))
	r.RegisterFactory("mysql", NewSQLStoreFactory(DialectMySQL))

	return r
}

// RegisterFactory registers a factory for backendType.
func (r *Registry) RegisterFactory(backendType string, factory Factory) {
	r.factories[backendType] = factory
}

// Create builds the backend named by backendType.
func (r *Registry) Create(backendType string, config map[string]interface{}) (Store, error) {
	factory, ok := r.factories[backendType]
	if !ok {
		return nil, fmt.Errorf("unknown cache backend type: %s (supported: %s)",
			backendType, strings.Join(r.SupportedTypes(), ", "))
	}
	return factory(config)
}

// SupportedTypes returns the registered backend types, sorted.
func (r *Registry) SupportedTypes() []string {
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// New builds a backend from the default registry.
func New(backendType string, config map[string]interface{}) (Store, error) {
	return NewRegistry().Create(backendType, config)
}

// Option readers for YAML-decoded config maps.

func stringOption(config map[string]interface{}, key string) string {
	if v, ok := config[key].(string); ok {
		return v
	}
	return ""
}

func intOption(config map[string]interface{}, key string, def int) int {
	switch v := config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

func boolOption(config map[string]interface{}, key string) bool {
	v, _ := config[key].(bool)
	return v
}

func durationOption(config map[string]interface{}, key string, def time.Duration) (time.Duration, error) {
	raw, ok := config[key]
	if !ok {
		return def, nil
	}
	switch v := raw.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		return d, nil
	case int:
		return time.Duration(v) * time.Second, nil
	}
	return 0, fmt.Errorf("invalid %s: expected a duration string", key)
}

func stringSliceOption(config map[string]interface{}, key string) []string {
	raw, ok := config[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
