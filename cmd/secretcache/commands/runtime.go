package commands

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/systmms/secretcache/internal/backends"
	"github.com/systmms/secretcache/internal/config"
	dserrors "github.com/systmms/secretcache/internal/errors"
	"github.com/systmms/secretcache/internal/providers"
	"github.com/systmms/secretcache/internal/secure"
	"github.com/systmms/secretcache/pkg/secretcache"
)

// Runtime carries state shared by all commands: the configuration, the
// metrics registry and the constructors for the cache's collaborators.
type Runtime struct {
	Config      *config.Config
	MetricsFile string

	// Clock is the time source for the cache and the ttl command.
	Clock secretcache.Clock

	// NewRemote and NewBackend build collaborators from configuration.
	// Tests replace them with fakes.
	NewRemote  func(config.StoreConfig) (providers.RemoteStore, error)
	NewBackend func(config.StoreConfig) (backends.Store, error)

	registry *prometheus.Registry
	metrics  *secretcache.Metrics
}

// NewRuntime creates a Runtime using the built-in registries.
func NewRuntime(cfg *config.Config) *Runtime {
	return &Runtime{
		Config: cfg,
		Clock:  secretcache.SystemClock,
		NewRemote: func(sc config.StoreConfig) (providers.RemoteStore, error) {
			return providers.New(sc.Type, sc.Options())
		},
		NewBackend: func(sc config.StoreConfig) (backends.Store, error) {
			return backends.New(sc.Type, sc.Options())
		},
	}
}

// Session is an open cache with the collaborators it owns.
type Session struct {
	Cache      *secretcache.Cache
	Remote     providers.RemoteStore
	Backend    backends.Store
	Definition *config.Definition

	cipher *secure.Cipher
}

// Close destroys the key and releases the backend and the remote store.
// It is safe on a partially opened session.
func (s *Session) Close() {
	if s.cipher != nil {
		s.cipher.Destroy()
		s.cipher = nil
	}
	if s.Backend != nil {
		_ = s.Backend.Close()
		s.Backend = nil
	}
	if closer, ok := s.Remote.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	s.Remote = nil
}

// Open loads the configuration and builds the cache. On error everything
// created so far is released.
func (r *Runtime) Open(ctx context.Context) (*Session, error) {
	if err := r.Config.Load(); err != nil {
		return nil, err
	}
	def := r.Config.Definition
	logger := r.Config.Logger

	session := &Session{Definition: def}
	fail := func(err error) (*Session, error) {
		session.Close()
		return nil, err
	}

	remote, err := r.NewRemote(def.Remote)
	if err != nil {
		return fail(dserrors.ProviderError(def.Remote.Type, "initialization", err))
	}
	session.Remote = remote

	backend, err := r.NewBackend(def.Backend)
	if err != nil {
		return fail(dserrors.ProviderError(def.Backend.Type, "initialization", err))
	}
	session.Backend = backend

	key, err := secure.LoadKey(def.KeySource())
	if err != nil {
		return fail(dserrors.UserError{
			Message:    "Failed to load the cache encryption key",
			Details:    err.Error(),
			Suggestion: keySuggestion(def.KeySource()),
			Err:        err,
		})
	}
	cipher, err := secure.NewCipher(key)
	if err != nil {
		return fail(err)
	}
	session.cipher = cipher

	opts := []secretcache.Option{
		secretcache.WithDefaultTTL(def.TTL()),
		secretcache.WithRotationBufferDays(def.RotationBufferDays()),
		secretcache.WithClock(r.Clock),
	}
	if logger != nil {
		opts = append(opts, secretcache.WithLogger(logger))
	}

	metrics, err := r.ensureMetrics(def)
	if err != nil {
		return fail(err)
	}
	if metrics != nil {
		opts = append(opts, secretcache.WithMetrics(metrics))
	}

	cache, err := secretcache.New(remote, backend, cipher, opts...)
	if err != nil {
		return fail(err)
	}
	session.Cache = cache

	if logger != nil {
		logger.Debug("Opened cache: remote=%s backend=%s ttl=%s buffer=%dd",
			def.Remote, def.Backend, def.TTL(), def.RotationBufferDays())
	}
	return session, nil
}

// ensureMetrics registers the cache metrics once per process when metrics
// are enabled in config or a textfile was requested.
func (r *Runtime) ensureMetrics(def *config.Definition) (*secretcache.Metrics, error) {
	if r.metrics != nil {
		return r.metrics, nil
	}
	if !def.Metrics.Enabled && r.MetricsFile == "" {
		return nil, nil
	}
	if r.MetricsFile == "" {
		r.MetricsFile = def.Metrics.Textfile
	}

	r.registry = prometheus.NewRegistry()
	m, err := secretcache.NewMetrics(r.registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	r.metrics = m
	return m, nil
}

// WriteMetrics writes collected metrics to the textfile, if one is set and
// metrics were collected.
func (r *Runtime) WriteMetrics() error {
	if r.MetricsFile == "" || r.registry == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(r.MetricsFile, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", r.MetricsFile, err)
	}
	return nil
}

// Registry exposes the metrics registry, nil until a cache was opened with
// metrics enabled.
func (r *Runtime) Registry() *prometheus.Registry {
	return r.registry
}

func keySuggestion(src secure.KeySource) string {
	switch src.Type {
	case secure.SourcePassphrase:
		return "Export the passphrase variable named by encryption.env (default SECRETCACHE_PASSPHRASE)"
	case secure.SourceKeyring:
		return "Run 'secretcache keygen --keyring' to create a key in the OS keyring"
	default:
		return "Run 'secretcache keygen' and export the key as SECRETCACHE_KEY (or the variable named by encryption.env)"
	}
}
