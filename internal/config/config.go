package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	dserrors "github.com/systmms/secretcache/internal/errors"
	"github.com/systmms/secretcache/internal/logging"
	"github.com/systmms/secretcache/internal/secure"
	"github.com/systmms/secretcache/pkg/secretcache"
)

// DefaultPath is the configuration file read when --config is not given.
const DefaultPath = "secretcache.yaml"

// Environment variables that override file settings.
const (
	EnvTTLSeconds         = "SECRETCACHE_TTL_SECONDS"
	EnvRotationBufferDays = "SECRETCACHE_ROTATION_BUFFER_DAYS"
	EnvRegion             = "SECRETCACHE_REGION"
)

const maxTTLSeconds = int(secretcache.MaxTTL / time.Second)

const defaultTimeoutMs = 30000

// Config holds the runtime configuration
type Config struct {
	Path       string
	Logger     *logging.Logger
	Definition *Definition
}

// Definition represents the secretcache.yaml structure
type Definition struct {
	Version    int              `yaml:"version"`
	Cache      CacheConfig      `yaml:"cache"`
	Remote     StoreConfig      `yaml:"remote"`
	Backend    StoreConfig      `yaml:"backend"`
	Encryption EncryptionConfig `yaml:"encryption"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// CacheConfig holds the cache gate settings. Nil fields take defaults.
type CacheConfig struct {
	TTLSeconds         *int `yaml:"ttl_seconds,omitempty"`
	RotationBufferDays *int `yaml:"rotation_buffer_days,omitempty"`
}

// StoreConfig holds the type and type-specific options of the remote store
// or the cache backend.
type StoreConfig struct {
	Type      string                 `yaml:"type"`
	TimeoutMs int                    `yaml:"timeout_ms,omitempty"` // Timeout in milliseconds (default: 30000)
	Config    map[string]interface{} `yaml:",inline"`
}

// EncryptionConfig selects where the cache key comes from
type EncryptionConfig struct {
	KeySource      string `yaml:"key_source,omitempty"`
	Env            string `yaml:"env,omitempty"`
	Salt           string `yaml:"salt,omitempty"`
	KeyringService string `yaml:"keyring_service,omitempty"`
	KeyringUser    string `yaml:"keyring_user,omitempty"`
}

// MetricsConfig controls Prometheus metrics
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Textfile string `yaml:"textfile,omitempty"`
}

// Load reads, validates and parses the configuration file, then applies
// environment overrides and defaults.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return dserrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Create secretcache.yaml or pass --config with the path to your configuration",
			}
		}
		return dserrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	def, err := Parse(data)
	if err != nil {
		return err
	}

	if err := def.applyEnvOverrides(c.Logger); err != nil {
		return err
	}
	def.ApplyDefaults()
	if err := def.Validate(); err != nil {
		return err
	}

	c.Definition = def
	return nil
}

// Parse validates a raw document against the schema and decodes it. It does
// not apply environment overrides or defaults.
func Parse(data []byte) (*Definition, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, dserrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}
	if raw == nil {
		return nil, dserrors.ConfigError{
			Message:    "configuration file is empty",
			Suggestion: "Add at least a 'remote:' section with a 'type:'",
		}
	}

	if err := validateSchema(raw); err != nil {
		return nil, err
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, dserrors.ConfigError{
			Message:    "configuration does not match the expected structure",
			Suggestion: err.Error(),
		}
	}

	if def.Version != 0 && def.Version != 1 {
		return nil, dserrors.ConfigError{
			Field:      "version",
			Value:      def.Version,
			Message:    "unsupported configuration version",
			Suggestion: "Set 'version: 1' at the top of your secretcache.yaml file",
		}
	}

	return &def, nil
}

// ApplyDefaults fills unset fields
func (d *Definition) ApplyDefaults() {
	if d.Version == 0 {
		d.Version = 1
	}
	if d.Cache.TTLSeconds == nil {
		ttl := int(secretcache.DefaultTTL / time.Second)
		d.Cache.TTLSeconds = &ttl
	}
	if d.Cache.RotationBufferDays == nil {
		days := secretcache.DefaultRotationBufferDays
		d.Cache.RotationBufferDays = &days
	}
	if d.Backend.Type == "" {
		d.Backend.Type = "memory"
	}
	if d.Remote.Config == nil {
		d.Remote.Config = make(map[string]interface{})
	}
	if d.Backend.Config == nil {
		d.Backend.Config = make(map[string]interface{})
	}
	if d.Encryption.KeySource == "" {
		d.Encryption.KeySource = secure.SourceEnv
	}
}

// Validate checks constraints the schema cannot express
func (d *Definition) Validate() error {
	if d.Remote.Type == "" {
		return dserrors.ConfigError{
			Field:      "remote.type",
			Message:    "remote store type is required",
			Suggestion: "Set remote.type to aws-secretsmanager, aws-ssm or gcp-secretmanager",
		}
	}
	if d.Cache.TTLSeconds != nil && *d.Cache.TTLSeconds <= 0 {
		return dserrors.ConfigError{
			Field:      "cache.ttl_seconds",
			Value:      *d.Cache.TTLSeconds,
			Message:    "ttl must be positive",
			Suggestion: "Use a TTL of at least 1 second; 300 is the default",
		}
	}
	if d.Cache.TTLSeconds != nil && *d.Cache.TTLSeconds > maxTTLSeconds {
		return dserrors.ConfigError{
			Field:      "cache.ttl_seconds",
			Value:      *d.Cache.TTLSeconds,
			Message:    fmt.Sprintf("ttl cannot exceed %d seconds (30 days)", maxTTLSeconds),
			Suggestion: "Lower cache.ttl_seconds; rotation-aware entries are capped at 30 days anyway",
		}
	}
	if d.Cache.RotationBufferDays != nil && *d.Cache.RotationBufferDays < 0 {
		return dserrors.ConfigError{
			Field:      "cache.rotation_buffer_days",
			Value:      *d.Cache.RotationBufferDays,
			Message:    "rotation buffer cannot be negative",
			Suggestion: "Use 0 to disable the buffer; 7 is the default",
		}
	}
	if d.Cache.RotationBufferDays != nil && *d.Cache.RotationBufferDays > secretcache.MaxRotationBufferDays {
		return dserrors.ConfigError{
			Field:      "cache.rotation_buffer_days",
			Value:      *d.Cache.RotationBufferDays,
			Message:    fmt.Sprintf("rotation buffer cannot exceed %d days", secretcache.MaxRotationBufferDays),
			Suggestion: "Use a buffer shorter than the rotation period; 7 is the default",
		}
	}
	if d.Encryption.KeySource == secure.SourcePassphrase && d.Encryption.Salt == "" {
		return dserrors.ConfigError{
			Field:      "encryption.salt",
			Message:    "passphrase key source requires a salt",
			Suggestion: "Set encryption.salt to a random string that is the same on every host sharing the cache",
		}
	}
	return nil
}

// applyEnvOverrides lets deployments adjust settings without editing the
// file.
func (d *Definition) applyEnvOverrides(logger *logging.Logger) error {
	if v, ok := os.LookupEnv(EnvTTLSeconds); ok && v != "" {
		ttl, err := strconv.Atoi(v)
		if err != nil || ttl <= 0 {
			return dserrors.ConfigError{
				Field:      EnvTTLSeconds,
				Value:      v,
				Message:    "must be a positive integer",
				Suggestion: "Unset the variable or set it to a number of seconds",
			}
		}
		d.Cache.TTLSeconds = &ttl
		debugf(logger, "Using %s=%d from environment", EnvTTLSeconds, ttl)
	}

	if v, ok := os.LookupEnv(EnvRotationBufferDays); ok && v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 0 {
			return dserrors.ConfigError{
				Field:      EnvRotationBufferDays,
				Value:      v,
				Message:    "must be a non-negative integer",
				Suggestion: "Unset the variable or set it to a number of days",
			}
		}
		d.Cache.RotationBufferDays = &days
		debugf(logger, "Using %s=%d from environment", EnvRotationBufferDays, days)
	}

	if v := os.Getenv(EnvRegion); v != "" {
		if d.Remote.Config == nil {
			d.Remote.Config = make(map[string]interface{})
		}
		d.Remote.Config["region"] = v
		debugf(logger, "Using %s=%s from environment", EnvRegion, v)
	}
	return nil
}

func debugf(logger *logging.Logger, format string, args ...interface{}) {
	if logger != nil {
		logger.Debug(format, args...)
	}
}

// TTL returns the default cache TTL
func (d *Definition) TTL() time.Duration {
	if d.Cache.TTLSeconds == nil {
		return secretcache.DefaultTTL
	}
	return time.Duration(*d.Cache.TTLSeconds) * time.Second
}

// RotationBufferDays returns the rotation buffer window in days
func (d *Definition) RotationBufferDays() int {
	if d.Cache.RotationBufferDays == nil {
		return secretcache.DefaultRotationBufferDays
	}
	return *d.Cache.RotationBufferDays
}

// KeySource converts the encryption section for secure.LoadKey
func (d *Definition) KeySource() secure.KeySource {
	return secure.KeySource{
		Type:           d.Encryption.KeySource,
		Env:            d.Encryption.Env,
		Salt:           d.Encryption.Salt,
		KeyringService: d.Encryption.KeyringService,
		KeyringUser:    d.Encryption.KeyringUser,
	}
}

// GetTimeout returns the timeout in milliseconds
func (s StoreConfig) GetTimeout() int {
	if s.TimeoutMs <= 0 {
		return defaultTimeoutMs // Default 30 seconds
	}
	return s.TimeoutMs
}

// Options returns a copy of the type-specific options with timeout_ms set,
// ready for providers.New or backends.New.
func (s StoreConfig) Options() map[string]interface{} {
	opts := make(map[string]interface{}, len(s.Config)+1)
	for k, v := range s.Config {
		opts[k] = v
	}
	opts["timeout_ms"] = s.GetTimeout()
	return opts
}

// String describes the store for log lines without printing options, which
// may hold credentials.
func (s StoreConfig) String() string {
	return fmt.Sprintf("%s (timeout %dms)", s.Type, s.GetTimeout())
}
