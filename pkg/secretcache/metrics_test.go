package secretcache

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRemote struct {
	payload string
	next    *time.Time
	fetches int
}

func (s *stubRemote) FetchSecretValue(context.Context, string) (RemoteSecret, error) {
	s.fetches++
	return RemoteSecret{Payload: []byte(s.payload), Found: true}, nil
}

func (s *stubRemote) DescribeSecret(context.Context, string) (RemoteDescription, error) {
	return RemoteDescription{RotationEnabled: s.next != nil, NextRotation: s.next}, nil
}

type mapBackend map[string][]byte

func (m mapBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m mapBackend) Put(_ context.Context, key string, value []byte, _ time.Duration) error {
	m[key] = value
	return nil
}

func (m mapBackend) Delete(_ context.Context, key string) error {
	delete(m, key)
	return nil
}

type plainCipher struct{}

func (plainCipher) Encrypt(b []byte) ([]byte, error) { return b, nil }
func (plainCipher) Decrypt(b []byte) ([]byte, error) { return b, nil }

func TestMetricsRecordGateOutcomes(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	next := now.Add(60 * 24 * time.Hour)
	remote := &stubRemote{payload: `{"k":"v"}`, next: &next}
	backend := mapBackend{}

	c, err := New(remote, backend, plainCipher{},
		WithClock(ClockFunc(func() time.Time { return now })),
		WithMetrics(m),
	)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = c.GetSecret(ctx, "a")
	require.NoError(t, err)
	_, err = c.GetSecret(ctx, "a")
	require.NoError(t, err)
	_, err = c.GetSecret(ctx, "")
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(outcomeMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(outcomeHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.remoteCalls.WithLabelValues("fetch", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.remoteCalls.WithLabelValues("describe", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchErrors.WithLabelValues(string(KindInvalidID))))
	assert.Equal(t, 1, testutil.CollectAndCount(m.plannedTTL))
}

func TestMetricsSelfHealAndBackendErrors(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	remote := &stubRemote{payload: `{"k":"v"}`}
	backend := mapBackend{
		PayloadKey("a"):  []byte("not json at all"),
		MetadataKey("a"): []byte(`{"rotation_enabled":false}`),
	}

	c, err := New(remote, backend, plainCipher{}, WithMetrics(m))
	require.NoError(t, err)

	_, err = c.GetSecret(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(outcomeSelfHeal)))
	assert.Equal(t, 1, remote.fetches)
}

func TestNewMetricsDuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)
	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.NotPanics(t, func() {
		m.recordOutcome(outcomeHit)
		m.recordRemote("fetch", nil)
		m.recordFetchError(KindRemote)
		m.recordBackendError("put")
		m.recordTTL(1)
	})
}
