package apigateway

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hadivarp/apigateway/mock"
)

func TestMetricsRecordOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	tr := mock.NewTransport(
		mock.Timeout(),
		mock.JSON(http.StatusOK, `{}`),
		mock.JSON(http.StatusServiceUnavailable, `{}`),
	)
	sleeper := &recordingSleeper{}
	gw := New(
		WithHTTPClient(tr.Client()),
		WithClock(newFakeClock().Now),
		WithSleeper(sleeper.Sleep),
		WithMetrics(reg),
	)
	defer gw.Close()
	require.NoError(t, gw.Register("images", ProviderConfig{
		BaseURL:    "https://api.example.com",
		MaxRetries: 1,
		CacheTTL:   time.Minute,
		RateLimit:  &RateLimitPolicy{MaxRequests: 3, Window: time.Minute},
	}))
	ctx := context.Background()

	_, err := gw.Get(ctx, "images", "a", nil) // timeout, then success
	require.NoError(t, err)
	_, err = gw.Get(ctx, "images", "a", nil) // cache hit
	require.NoError(t, err)
	_, err = gw.Get(ctx, "images", "b", nil) // 503
	require.Error(t, err)
	_, err = gw.Get(ctx, "images", "c", nil) // over the limit
	require.Error(t, err)

	m := gw.metrics
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("images", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("images", OutcomeCacheHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("images", string(KindServiceUnavailable))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("images", string(KindRateLimit))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Retries.WithLabelValues("images")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheEntries))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestDuration))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.observeOutcome("p", OutcomeSuccess)
	m.observeDuration("p", time.Second)
	m.incRetries("p")
	m.setCacheEntries(3)
}

func TestMetricsLabelUnregisteredProvidersAsUnknown(t *testing.T) {
	reg := prometheus.NewRegistry()
	gw := New(WithHTTPClient(mock.NewTransport().Client()), WithMetrics(reg))
	defer gw.Close()
	require.NoError(t, gw.Register("off", ProviderConfig{BaseURL: "https://off.example.com", Disabled: true}))
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		_, err := gw.Get(ctx, name, "x", nil)
		require.Error(t, err)
	}
	_, err := gw.Get(ctx, "off", "x", nil)
	require.Error(t, err)

	m := gw.metrics
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Requests.WithLabelValues(unknownProvider, string(KindAPI))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("off", string(KindAPI))))
	assert.Equal(t, 2, testutil.CollectAndCount(m.Requests))
}
