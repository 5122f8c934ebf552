package ratelimiter

import (
	"net"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"gitlab.com/deepdhamala/webtainer/internal/lru"
	"gitlab.com/deepdhamala/webtainer/metrics"
)

const (
	// DefaultSourceIPLimitPerSecond is the number of connections per second
	// a single source IP may open once its burst is spent
	DefaultSourceIPLimitPerSecond = 20.0
	// DefaultSourceIPBurstSize is the maximum burst allowed per source IP.
	// E.g. the first 100 connections within 1s succeed but the 101st fails.
	DefaultSourceIPBurstSize = 100

	defaultSourceIPItems              = 5000
	defaultSourceIPExpirationInterval = time.Minute
)

// Option function to configure a RateLimiter
type Option func(*RateLimiter)

// RateLimiter keeps a token bucket per source IP in an LRU cache.
// It also holds a now function that can be mocked in unit tests.
type RateLimiter struct {
	now                    func() time.Time
	enforce                bool
	sourceIPLimitPerSecond float64
	sourceIPBurstSize      int
	sourceIPBlockedCount   *prometheus.CounterVec
	sourceIPCache          *lru.Cache
}

// New creates a new RateLimiter with default values that can be configured
// via Option functions
func New(opts ...Option) *RateLimiter {
	rl := &RateLimiter{
		now:                    time.Now,
		enforce:                true,
		sourceIPLimitPerSecond: DefaultSourceIPLimitPerSecond,
		sourceIPBurstSize:      DefaultSourceIPBurstSize,
		sourceIPBlockedCount:   metrics.RateLimitSourceIPBlockedCount,
		sourceIPCache: lru.New(
			"source_ip",
			defaultSourceIPItems,
			defaultSourceIPExpirationInterval,
			metrics.RateLimitCachedEntries,
			metrics.RateLimitCacheRequests,
		),
	}

	for _, opt := range opts {
		opt(rl)
	}

	return rl
}

// WithNow replaces the RateLimiter now function
func WithNow(now func() time.Time) Option {
	return func(rl *RateLimiter) {
		rl.now = now
	}
}

// WithSourceIPLimitPerSecond configures the per source IP limit per second
func WithSourceIPLimitPerSecond(limit float64) Option {
	return func(rl *RateLimiter) {
		rl.sourceIPLimitPerSecond = limit
	}
}

// WithSourceIPBurstSize configures the burst per source IP
func WithSourceIPBurstSize(burst int) Option {
	return func(rl *RateLimiter) {
		rl.sourceIPBurstSize = burst
	}
}

// WithEnforce controls whether blocked source IPs are rejected. When false
// blocked connections are only counted.
func WithEnforce(enforce bool) Option {
	return func(rl *RateLimiter) {
		rl.enforce = enforce
	}
}

func (rl *RateLimiter) sourceIPLimiter(sourceIP string) *rate.Limiter {
	limiter := rl.sourceIPCache.FindOrCreate(sourceIP, func() interface{} {
		return rate.NewLimiter(rate.Limit(rl.sourceIPLimitPerSecond), rl.sourceIPBurstSize)
	})

	return limiter.(*rate.Limiter)
}

// SourceIPAllowed checks that sourceIP is allowed to open another connection
func (rl *RateLimiter) SourceIPAllowed(sourceIP string) bool {
	// AllowN allows us to use the rl.now function, so we can test this more easily.
	if rl.sourceIPLimiter(sourceIP).AllowN(rl.now(), 1) {
		return true
	}

	rl.sourceIPBlockedCount.WithLabelValues(strconv.FormatBool(rl.enforce)).Inc()

	return !rl.enforce
}

// AddrAllowed checks the IP part of a remote address. Addresses without a
// port are used as they are.
func (rl *RateLimiter) AddrAllowed(addr net.Addr) bool {
	return rl.SourceIPAllowed(SourceIP(addr))
}

// SourceIP returns the host part of addr
func SourceIP(addr net.Addr) string {
	if addr == nil {
		return ""
	}

	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}

	return host
}
