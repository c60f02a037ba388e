package secretcache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Gate outcomes recorded by Metrics.
const (
	outcomeHit      = "hit"
	outcomeMiss     = "miss"
	outcomeRefresh  = "refresh"
	outcomeSelfHeal = "self_heal"
)

// Metrics records cache activity as Prometheus metrics. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	requests    *prometheus.CounterVec
	remoteCalls *prometheus.CounterVec
	fetchErrors *prometheus.CounterVec
	cacheErrors *prometheus.CounterVec
	plannedTTL  prometheus.Histogram
}

// NewMetrics creates the cache metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secretcache_requests_total",
				Help: "GetSecret calls by gate outcome (hit, miss, refresh, self_heal)",
			},
			[]string{"outcome"},
		),
		remoteCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secretcache_remote_calls_total",
				Help: "Calls made to the remote secret store",
			},
			[]string{"operation", "status"},
		),
		fetchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secretcache_fetch_errors_total",
				Help: "Fetch errors surfaced to callers, by kind",
			},
			[]string{"kind"},
		),
		cacheErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secretcache_backend_errors_total",
				Help: "Cache backend or cipher failures that were degraded",
			},
			[]string{"operation"},
		),
		plannedTTL: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "secretcache_planned_ttl_seconds",
				Help:    "TTL chosen for refreshed entries",
				Buckets: []float64{60, 300, 3600, 86400, 7 * 86400, 30 * 86400},
			},
		),
	}

	for _, c := range []prometheus.Collector{m.requests, m.remoteCalls, m.fetchErrors, m.cacheErrors, m.plannedTTL} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) recordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) recordRemote(operation string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.remoteCalls.WithLabelValues(operation, status).Inc()
}

func (m *Metrics) recordFetchError(kind ErrorKind) {
	if m == nil {
		return
	}
	m.fetchErrors.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) recordBackendError(operation string) {
	if m == nil {
		return
	}
	m.cacheErrors.WithLabelValues(operation).Inc()
}

func (m *Metrics) recordTTL(seconds float64) {
	if m == nil {
		return
	}
	m.plannedTTL.Observe(seconds)
}
