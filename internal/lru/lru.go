package lru

import (
	"time"

	"github.com/karlseguin/ccache/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// getsPerPromote is the number of gets after which an item is moved to the
// front of the LRU list
const getsPerPromote = 64

// itemsToPruneDiv prunes 1/16 of the items when the cache is full
const itemsToPruneDiv = 16

// Cache is a size bounded cache of values that expire after a fixed TTL.
// Hits, misses and the number of entries are reported to prometheus under
// the op label.
type Cache struct {
	op            string
	ttl           time.Duration
	cache         *ccache.Cache
	cachedEntries *prometheus.GaugeVec
	cacheRequests *prometheus.CounterVec
}

// New creates a Cache holding at most maxEntries values
func New(op string, maxEntries int64, ttl time.Duration, cachedEntries *prometheus.GaugeVec, cacheRequests *prometheus.CounterVec) *Cache {
	prune := uint32(maxEntries) / itemsToPruneDiv
	if prune == 0 {
		prune = 1
	}

	configuration := ccache.Configure().
		MaxSize(maxEntries).
		ItemsToPrune(prune).
		GetsPerPromote(getsPerPromote).
		OnDelete(func(*ccache.Item) {
			cachedEntries.WithLabelValues(op).Dec()
		})

	return &Cache{
		op:            op,
		ttl:           ttl,
		cache:         ccache.New(configuration),
		cachedEntries: cachedEntries,
		cacheRequests: cacheRequests,
	}
}

// FindOrCreate returns the live value stored under key, or stores and
// returns the result of create.
func (c *Cache) FindOrCreate(key string, create func() interface{}) interface{} {
	if item := c.cache.Get(key); item != nil && !item.Expired() {
		c.cacheRequests.WithLabelValues(c.op, "hit").Inc()
		return item.Value()
	}

	c.cacheRequests.WithLabelValues(c.op, "miss").Inc()
	c.cachedEntries.WithLabelValues(c.op).Inc()

	value := create()
	c.cache.Set(key, value, c.ttl)

	return value
}

// Stop stops the background worker of the cache
func (c *Cache) Stop() {
	c.cache.Stop()
}
