package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretcache/internal/logging"
	"github.com/systmms/secretcache/internal/secure"
	"github.com/systmms/secretcache/pkg/secretcache"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secretcache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func load(t *testing.T, content string) (*Config, error) {
	t.Helper()
	cfg := &Config{
		Path:   writeConfig(t, content),
		Logger: logging.New(false, true),
	}
	return cfg, cfg.Load()
}

func TestLoadFullConfig(t *testing.T) {
	t.Parallel()

	cfg, err := load(t, `version: 1
cache:
  ttl_seconds: 120
  rotation_buffer_days: 3
remote:
  type: aws-secretsmanager
  region: eu-west-1
  timeout_ms: 5000
  assume_role: arn:aws:iam::123456789012:role/reader
backend:
  type: redis
  addr: localhost:6379
  key_prefix: "app:"
encryption:
  key_source: passphrase
  env: APP_CACHE_PASSPHRASE
  salt: team-salt
metrics:
  enabled: true
  textfile: /var/lib/node_exporter/secretcache.prom
`)
	require.NoError(t, err)

	def := cfg.Definition
	assert.Equal(t, 1, def.Version)
	assert.Equal(t, 120*time.Second, def.TTL())
	assert.Equal(t, 3, def.RotationBufferDays())

	assert.Equal(t, "aws-secretsmanager", def.Remote.Type)
	assert.Equal(t, "eu-west-1", def.Remote.Config["region"])
	assert.Equal(t, "arn:aws:iam::123456789012:role/reader", def.Remote.Config["assume_role"])
	assert.Equal(t, 5000, def.Remote.GetTimeout())
	assert.NotContains(t, def.Remote.Config, "type")

	assert.Equal(t, "redis", def.Backend.Type)
	assert.Equal(t, "app:", def.Backend.Config["key_prefix"])

	assert.Equal(t, secure.KeySource{
		Type: secure.SourcePassphrase,
		Env:  "APP_CACHE_PASSPHRASE",
		Salt: "team-salt",
	}, def.KeySource())

	assert.True(t, def.Metrics.Enabled)
	assert.Equal(t, "/var/lib/node_exporter/secretcache.prom", def.Metrics.Textfile)
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := load(t, `remote:
  type: aws-ssm
`)
	require.NoError(t, err)

	def := cfg.Definition
	assert.Equal(t, 1, def.Version)
	assert.Equal(t, 300*time.Second, def.TTL())
	assert.Equal(t, 7, def.RotationBufferDays())
	assert.Equal(t, "memory", def.Backend.Type)
	assert.Equal(t, secure.SourceEnv, def.Encryption.KeySource)
	assert.False(t, def.Metrics.Enabled)
	assert.Equal(t, 30000, def.Remote.GetTimeout())
}

func TestLoadZeroBufferIsKept(t *testing.T) {
	t.Parallel()

	cfg, err := load(t, `remote:
  type: aws-ssm
cache:
  rotation_buffer_days: 0
`)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Definition.RotationBufferDays())
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "invalid yaml",
			content: "remote:\n  type: aws-ssm\n  bad syntax here [[[\n",
			wantErr: "invalid YAML syntax",
		},
		{
			name:    "empty file",
			content: "",
			wantErr: "configuration file is empty",
		},
		{
			name:    "unsupported version",
			content: "version: 2\nremote:\n  type: aws-ssm\n",
			wantErr: "version",
		},
		{
			name:    "missing remote",
			content: "cache:\n  ttl_seconds: 60\n",
			wantErr: "remote is required",
		},
		{
			name:    "unknown remote type",
			content: "remote:\n  type: vault\n",
			wantErr: "remote.type",
		},
		{
			name:    "unknown backend type",
			content: "remote:\n  type: aws-ssm\nbackend:\n  type: memcached\n",
			wantErr: "backend.type",
		},
		{
			name:    "zero ttl",
			content: "remote:\n  type: aws-ssm\ncache:\n  ttl_seconds: 0\n",
			wantErr: "ttl_seconds",
		},
		{
			name:    "negative buffer",
			content: "remote:\n  type: aws-ssm\ncache:\n  rotation_buffer_days: -1\n",
			wantErr: "rotation_buffer_days",
		},
		{
			name:    "ttl above cap",
			content: "remote:\n  type: aws-ssm\ncache:\n  ttl_seconds: 2592001\n",
			wantErr: "ttl_seconds",
		},
		{
			name:    "buffer above cap",
			content: "remote:\n  type: aws-ssm\ncache:\n  rotation_buffer_days: 200000\n",
			wantErr: "rotation_buffer_days",
		},
		{
			name:    "unknown top-level section",
			content: "remote:\n  type: aws-ssm\nenvs:\n  dev: {}\n",
			wantErr: "envs",
		},
		{
			name:    "passphrase without salt",
			content: "remote:\n  type: aws-ssm\nencryption:\n  key_source: passphrase\n",
			wantErr: "requires a salt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := load(t, tt.content)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	cfg := &Config{Path: "/nonexistent/path/to/secretcache.yaml"}
	err := cfg.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration file not found")
	assert.Contains(t, err.Error(), "--config")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(EnvTTLSeconds, "45")
	t.Setenv(EnvRotationBufferDays, "2")
	t.Setenv(EnvRegion, "ap-southeast-2")

	var buf bytes.Buffer
	cfg := &Config{
		Path: writeConfig(t, `remote:
  type: aws-secretsmanager
  region: us-east-1
cache:
  ttl_seconds: 600
`),
		Logger: logging.NewWithWriter(&buf, true, true),
	}
	require.NoError(t, cfg.Load())

	assert.Equal(t, 45*time.Second, cfg.Definition.TTL())
	assert.Equal(t, 2, cfg.Definition.RotationBufferDays())
	assert.Equal(t, "ap-southeast-2", cfg.Definition.Remote.Config["region"])
	assert.Contains(t, buf.String(), EnvTTLSeconds)
}

func TestLoadInvalidEnvOverride(t *testing.T) {
	t.Setenv(EnvTTLSeconds, "soon")

	_, err := load(t, "remote:\n  type: aws-ssm\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvTTLSeconds)
}

func TestLoadEnvOverridesAboveCap(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		value   string
		wantErr string
	}{
		{name: "buffer", env: EnvRotationBufferDays, value: "200000", wantErr: "cannot exceed 3650 days"},
		{name: "ttl", env: EnvTTLSeconds, value: "99999999999", wantErr: "cannot exceed 2592000 seconds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)

			_, err := load(t, "remote:\n  type: aws-ssm\n")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateCaps(t *testing.T) {
	t.Parallel()

	days := secretcache.MaxRotationBufferDays
	ttl := int(secretcache.MaxTTL / time.Second)
	d := &Definition{Remote: StoreConfig{Type: "aws-ssm"}}
	d.Cache.RotationBufferDays = &days
	d.Cache.TTLSeconds = &ttl
	require.NoError(t, d.Validate())

	over := days + 1
	d.Cache.RotationBufferDays = &over
	assert.Error(t, d.Validate())
}

func TestStoreConfigOptions(t *testing.T) {
	t.Parallel()

	sc := StoreConfig{
		Type:      "redis",
		TimeoutMs: 1500,
		Config:    map[string]interface{}{"addr": "localhost:6379", "password": "hunter2"},
	}

	opts := sc.Options()
	assert.Equal(t, 1500, opts["timeout_ms"])
	assert.Equal(t, "localhost:6379", opts["addr"])

	opts["addr"] = "changed"
	assert.Equal(t, "localhost:6379", sc.Config["addr"])

	assert.Equal(t, "redis (timeout 1500ms)", sc.String())
	assert.NotContains(t, sc.String(), "hunter2")
}
