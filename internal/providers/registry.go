package providers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/systmms/secretcache/pkg/secretcache"
)

// RemoteStore is a secretcache.RemoteStore the CLI can name and validate.
type RemoteStore interface {
	secretcache.RemoteStore

	// Name returns the provider type, e.g. "aws-secretsmanager".
	Name() string

	// Validate checks credentials and connectivity without reading a secret.
	Validate(ctx context.Context) error
}

// ProviderFactory creates a remote store from the inline options of a
// remote config block.
type ProviderFactory func(config map[string]interface{}) (RemoteStore, error)

// Registry manages remote store creation
type Registry struct {
	factories map[string]ProviderFactory
}

// NewRegistry creates a new registry with the built-in remote stores
func NewRegistry() *Registry {
	registry := &Registry{
		factories: make(map[string]ProviderFactory),
	}

	registry.RegisterFactory(TypeAWSSecretsManager, NewAWSSecretsManagerProviderFactory)
	registry.RegisterFactory(TypeAWSSSM, NewAWSSSMProviderFactory)
	registry.RegisterFactory(TypeGCPSecretManager, NewGCPSecretManagerProviderFactory)

	return registry
}

// RegisterFactory registers a factory for a given type
func (r *Registry) RegisterFactory(providerType string, factory ProviderFactory) {
	r.factories[providerType] = factory
}

// CreateProvider creates a remote store from configuration
func (r *Registry) CreateProvider(providerType string, config map[string]interface{}) (RemoteStore, error) {
	if !r.IsSupported(providerType) {
		return nil, fmt.Errorf("unknown remote store type: %s (supported: %s)",
			providerType, strings.Join(r.GetSupportedTypes(), ", "))
	}
	return r.factories[providerType](config)
}

// GetSupportedTypes returns the registered types, sorted
func (r *Registry) GetSupportedTypes() []string {
	types := make([]string, 0, len(r.factories))
	for providerType := range r.factories {
		types = append(types, providerType)
	}
	sort.Strings(types)
	return types
}

// IsSupported checks if a type is supported
func (r *Registry) IsSupported(providerType string) bool {
	_, exists := r.factories[providerType]
	return exists
}

// New builds a remote store from the default registry.
func New(providerType string, config map[string]interface{}) (RemoteStore, error) {
	return NewRegistry().CreateProvider(providerType, config)
}

// Config map readers.

func stringOption(config map[string]interface{}, key string) string {
	if v, ok := config[key].(string); ok {
		return v
	}
	return ""
}

func boolOption(config map[string]interface{}, key string, def bool) bool {
	if v, ok := config[key].(bool); ok {
		return v
	}
	return def
}

func timeoutOption(config map[string]interface{}) time.Duration {
	switch v := config["timeout_ms"].(type) {
	case int:
		if v > 0 {
			return time.Duration(v) * time.Millisecond
		}
	case float64:
		if v > 0 {
			return time.Duration(v) * time.Millisecond
		}
	}
	return DefaultTimeout
}

// DefaultTimeout bounds client construction and validation calls.
const DefaultTimeout = 30 * time.Second
