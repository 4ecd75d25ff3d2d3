package apigateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for apigateway_requests_total besides the error kinds.
const (
	OutcomeSuccess  = "success"
	OutcomeCacheHit = "cache_hit"

	// unknownProvider labels calls naming no registered provider.
	unknownProvider = "unknown"
)

// Metrics are the gateway's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Retries         *prometheus.CounterVec
	CacheEntries    prometheus.Gauge
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "apigateway_requests_total",
			Help: "Gateway calls by provider and outcome",
		}, []string{"provider", "outcome"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "apigateway_request_duration_seconds",
			Help:    "Duration of calls that reached the network, retries included",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		Retries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "apigateway_retries_total",
			Help: "Attempts re-issued after a transport timeout",
		}, []string{"provider"}),
		CacheEntries: f.NewGauge(prometheus.GaugeOpts{
			Name: "apigateway_cache_entries",
			Help: "Responses currently held in the cache",
		}),
	}
}

func (m *Metrics) observeOutcome(provider, outcome string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) observeDuration(provider string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(provider).Observe(d.Seconds())
}

func (m *Metrics) incRetries(provider string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(provider).Inc()
}

func (m *Metrics) setCacheEntries(n int) {
	if m == nil {
		return
	}
	m.CacheEntries.Set(float64(n))
}

func outcomeOf(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	if k := KindOf(err); k != "" {
		return string(k)
	}
	return string(KindAPI)
}
