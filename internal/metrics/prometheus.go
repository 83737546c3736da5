package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics reports through a client_golang registry.
type PrometheusMetrics struct {
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	gateWait         *prometheus.HistogramVec
	cacheResults     *prometheus.CounterVec
}

var _ Metrics = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics registers the gateway's collectors against reg and
// returns a Metrics implementation backed by them.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_upstream_requests_total",
			Help: "Outbound requests to upstream explorer APIs.",
		}, []string{"provider", "chain", "status"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_upstream_request_duration_seconds",
			Help:    "Latency of outbound requests to upstream explorer APIs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider", "chain"}),
		gateWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_concurrency_gate_wait_seconds",
			Help:    "Time spent waiting to acquire a provider's concurrency gate.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		cacheResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_cache_results_total",
			Help: "Cache hits and misses by cache name.",
		}, []string{"cache", "result"}),
	}
	reg.MustRegister(m.upstreamRequests, m.upstreamLatency, m.gateWait, m.cacheResults)
	return m
}

func (m *PrometheusMetrics) UpstreamCall(provider, chainID string, status int, duration time.Duration) {
	m.upstreamRequests.WithLabelValues(provider, chainID, statusLabel(status)).Inc()
	m.upstreamLatency.WithLabelValues(provider, chainID).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) GateWait(provider string, duration time.Duration) {
	m.gateWait.WithLabelValues(provider).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) CacheResult(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheResults.WithLabelValues(cache, result).Inc()
}

func statusLabel(status int) string {
	if status == 0 {
		return "network_error"
	}
	return strconv.Itoa(status)
}
