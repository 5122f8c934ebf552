package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ConnectionsAccepted counts the connections handed to a worker
	ConnectionsAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webtainer_connections_accepted_total",
		Help: "The total number of connections accepted since daemon start",
	})

	// RequestsTotal counts the responses sent, by status code
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webtainer_requests_total",
		Help: "The total number of requests served, by response status code",
	}, []string{"status_code"})

	// RequestDuration records the time between accepting a connection and
	// closing it
	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "webtainer_request_duration_seconds",
		Help: "Time (in seconds) spent serving a single connection",
	}, []string{"status_code"})

	// ParseErrors counts requests rejected because of malformed syntax
	ParseErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webtainer_parse_errors_total",
		Help: "The total number of malformed requests, by kind",
	}, []string{"kind"})

	// ServletsRegistered is the number of servlets currently registered
	ServletsRegistered = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "webtainer_servlets_registered",
		Help: "The number of servlets registered in the container",
	})

	// ServletDestroyFailures counts servlets whose Destroy hook failed
	ServletDestroyFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webtainer_servlet_destroy_failures_total",
		Help: "The total number of servlet destroy hooks that failed",
	})

	// LimitListenerMaxConns is the maximum number of connections served at once
	LimitListenerMaxConns = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "webtainer_limit_listener_max_conns",
		Help: "The maximum number of concurrent connections allowed by the limit listener",
	})

	// LimitListenerConcurrentConns is the number of connections being served
	LimitListenerConcurrentConns = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "webtainer_limit_listener_concurrent_conns",
		Help: "The number of connections currently being served",
	})

	// LimitListenerWaitingConns is the number of accept calls waiting for a
	// free slot
	LimitListenerWaitingConns = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "webtainer_limit_listener_waiting_conns",
		Help: "The number of connections waiting for a free slot",
	})

	// RateLimitSourceIPBlockedCount counts connections rejected by the source IP rate limiter
	RateLimitSourceIPBlockedCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webtainer_rate_limit_source_ip_blocked_count",
		Help: "The number of connections rejected by the source IP rate limiter",
	}, []string{"enforced"})

	// RateLimitCachedEntries is the number of entries in the rate limiter caches
	RateLimitCachedEntries = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "webtainer_rate_limit_cached_entries",
		Help: "The number of entries in the rate limiter cache",
	}, []string{"op"})

	// RateLimitCacheRequests counts rate limiter cache lookups
	RateLimitCacheRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webtainer_rate_limit_cache_requests",
		Help: "The number of rate limiter cache lookups, by result",
	}, []string{"op", "cache"})
)

// MustRegister registers all metrics in reg
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		ConnectionsAccepted,
		RequestsTotal,
		RequestDuration,
		ParseErrors,
		ServletsRegistered,
		ServletDestroyFailures,
		LimitListenerMaxConns,
		LimitListenerConcurrentConns,
		LimitListenerWaitingConns,
		RateLimitSourceIPBlockedCount,
		RateLimitCachedEntries,
		RateLimitCacheRequests,
	)
}
