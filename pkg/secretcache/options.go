package secretcache

import "time"

// Defaults for Options.
const (
	DefaultTTL                = 300 * time.Second
	DefaultRotationBufferDays = 7
)

type cacheOptions struct {
	defaultTTL         time.Duration
	rotationBufferDays int
	clock              Clock
	logger             Logger
	metrics            *Metrics
}

// Option configures a Cache.
type Option func(*cacheOptions)

// WithDefaultTTL sets the TTL used when no rotation schedule is known or the
// secret is inside its rotation buffer. Non-positive values are ignored and
// values above MaxTTL are capped.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(o *cacheOptions) {
		if ttl > 0 {
			o.defaultTTL = clampTTL(ttl)
		}
	}
}

// WithRotationBufferDays sets how many days before a rotation date the cache
// starts rechecking. Negative values are ignored and values above
// MaxRotationBufferDays are capped.
func WithRotationBufferDays(days int) Option {
	return func(o *cacheOptions) {
		if days >= 0 {
			o.rotationBufferDays = clampBufferDays(days)
		}
	}
}

// WithClock injects the time source.
func WithClock(clock Clock) Option {
	return func(o *cacheOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the logger for degraded paths. If logger is nil, logging
// is disabled.
func WithLogger(logger Logger) Option {
	return func(o *cacheOptions) {
		if logger == nil {
			logger = nopLogger{}
		}
		o.logger = logger
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *cacheOptions) {
		o.metrics = m
	}
}

func defaultOptions() *cacheOptions {
	return &cacheOptions{
		defaultTTL:         DefaultTTL,
		rotationBufferDays: DefaultRotationBufferDays,
		clock:              SystemClock,
		logger:             nopLogger{},
	}
}
