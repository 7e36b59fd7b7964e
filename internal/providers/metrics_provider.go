package providers

import (
	"crewboard/internal/structures"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	IncUpstreamFailures(source string)
	ObserveUpstreamDuration(source string, duration time.Duration)
	IncPresenceReconnects()
	IncPresenceEvents(eventType string)
}

// SubscriptionCounter reports the number of live presence subscriptions.
type SubscriptionCounter interface {
	Len() int
}

type MetricsProvider struct {
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	upstreamFailures  *prometheus.CounterVec
	upstreamDuration  *prometheus.HistogramVec
	presenceReconnect prometheus.Counter
	presenceEvents    *prometheus.CounterVec
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) IncUpstreamFailures(source string) {
	m.upstreamFailures.WithLabelValues(source).Inc()
}

func (m *MetricsProvider) ObserveUpstreamDuration(source string, duration time.Duration) {
	m.upstreamDuration.WithLabelValues(source).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncPresenceReconnects() {
	m.presenceReconnect.Inc()
}

func (m *MetricsProvider) IncPresenceEvents(eventType string) {
	m.presenceEvents.WithLabelValues(eventType).Inc()
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config, subscriptions SubscriptionCounter) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	m := &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "crewboard_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crewboard_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "crewboard_stats_cache_hits_total",
			Help: "Total number of statistics cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "crewboard_stats_cache_misses_total",
			Help: "Total number of statistics cache misses",
		}),

		upstreamFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "crewboard_upstream_failures_total",
			Help: "Failed calls to upstream APIs",
		}, []string{"source"}),

		upstreamDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crewboard_upstream_duration_seconds",
			Help:    "Upstream API call duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),

		presenceReconnect: promauto.NewCounter(prometheus.CounterOpts{
			Name: "crewboard_presence_reconnects_total",
			Help: "Number of presence socket reconnect attempts",
		}),

		presenceEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "crewboard_presence_events_total",
			Help: "Presence dispatch events received, by type",
		}, []string{"type"}),
	}

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "crewboard_presence_subscriptions",
		Help: "Current number of registered presence subscriptions",
	}, func() float64 {
		return float64(subscriptions.Len())
	})

	return m
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                  {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration)  {}
func (n *noopMetrics) IncCacheHits()                                     {}
func (n *noopMetrics) IncCacheMisses()                                   {}
func (n *noopMetrics) IncUpstreamFailures(_ string)                      {}
func (n *noopMetrics) ObserveUpstreamDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncPresenceReconnects()                            {}
func (n *noopMetrics) IncPresenceEvents(_ string)                        {}
