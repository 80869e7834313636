// Package lru provides an in-memory implementation of repochat.SearchCache
// backed by an expirable LRU.
package lru

import (
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/repochat"
	"github.com/fwojciec/repochat/metrics"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Defaults chosen for an interactive chat session: repeated questions
// within a few minutes hit the cache, everything else ages out.
const (
	DefaultSize = 128
	DefaultTTL  = 5 * time.Minute
)

// Ensure SearchCache implements repochat.SearchCache at compile time.
var _ repochat.SearchCache = (*SearchCache)(nil)

// SearchCache caches search results keyed by query and search type.
// Entries expire after the configured TTL. Safe for concurrent use.
type SearchCache struct {
	cache   *expirable.LRU[uint64, *repochat.SearchResult]
	metrics *metrics.Registry
}

// Option configures a SearchCache.
type Option func(*config)

type config struct {
	size    int
	ttl     time.Duration
	metrics *metrics.Registry
}

// WithSize caps the number of cached entries.
func WithSize(size int) Option {
	return func(c *config) {
		if size > 0 {
			c.size = size
		}
	}
}

// WithTTL sets how long an entry stays fresh.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMetrics sets the registry that receives hit/miss counters.
func WithMetrics(reg *metrics.Registry) Option {
	return func(c *config) {
		c.metrics = reg
	}
}

// NewSearchCache creates a cache with the given options.
func NewSearchCache(opts ...Option) *SearchCache {
	cfg := config{size: DefaultSize, ttl: DefaultTTL}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &SearchCache{
		cache:   expirable.NewLRU[uint64, *repochat.SearchResult](cfg.size, nil, cfg.ttl),
		metrics: cfg.metrics,
	}
}

// Get returns the cached result for the query, if present and fresh.
func (c *SearchCache) Get(query string, searchType repochat.SearchType) (*repochat.SearchResult, bool) {
	result, ok := c.cache.Get(cacheKey(query, searchType))
	if c.metrics != nil {
		if ok {
			c.metrics.Increment("cache.hits")
		} else {
			c.metrics.Increment("cache.misses")
		}
	}
	return result, ok
}

// Set stores a result for the query.
func (c *SearchCache) Set(query string, searchType repochat.SearchType, result *repochat.SearchResult) {
	c.cache.Add(cacheKey(query, searchType), result)
}

// Clear drops all cached entries.
func (c *SearchCache) Clear() {
	c.cache.Purge()
}

// Len returns the number of live entries.
func (c *SearchCache) Len() int {
	return c.cache.Len()
}

// cacheKey hashes the search type and query into a fixed-size key. The
// NUL separator keeps ("a", "bc") and ("ab", "c") style pairs distinct.
func cacheKey(query string, searchType repochat.SearchType) uint64 {
	h := xxhash.New()
	h.WriteString(string(searchType))
	h.WriteString("\x00")
	h.WriteString(query)
	return h.Sum64()
}
