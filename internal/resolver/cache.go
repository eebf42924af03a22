package resolver

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/floodcast/rainfall-resolver/internal/domain"
	"github.com/floodcast/rainfall-resolver/internal/observability"
)

// Cache is a thread-safe in-memory observation cache with per-entry TTL.
// Entries for fully elapsed windows can be given a longer (or infinite) TTL
// since historical rainfall never changes.
type Cache struct {
	ttl           time.Duration
	historicalTTL time.Duration // zero means never expire
	clock         clockwork.Clock
	metrics       *observability.Metrics

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	obs       domain.Observation
	expiresAt time.Time // zero time means no expiry
}

// NewCache creates an observation cache. ttl applies to windows that include
// today or the future; historicalTTL applies to fully elapsed windows, with
// zero meaning those entries never expire.
func NewCache(ttl, historicalTTL time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *Cache {
	return &Cache{
		ttl:           ttl,
		historicalTTL: historicalTTL,
		clock:         clock,
		metrics:       metrics,
		entries:       make(map[string]cacheEntry),
	}
}

// Key builds the cache key for a location and window. Coordinates are rounded
// inside Fingerprint so near-identical points share an entry.
func Key(loc domain.Location, w domain.DateWindow) string {
	return loc.Fingerprint() + "|" + w.Key()
}

// Get returns the cached observation for the key if present and not expired.
// Expired entries are removed on access.
func (c *Cache) Get(key string) (domain.Observation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.metrics.CacheLookups.WithLabelValues("miss").Inc()
		return domain.Observation{}, false
	}
	if !e.expiresAt.IsZero() && !c.clock.Now().Before(e.expiresAt) {
		delete(c.entries, key)
		c.metrics.CacheEntries.Set(float64(len(c.entries)))
		c.metrics.CacheLookups.WithLabelValues("expired").Inc()
		return domain.Observation{}, false
	}
	c.metrics.CacheLookups.WithLabelValues("hit").Inc()
	return e.obs, true
}

// Put stores an observation. Windows that ended before today get the
// historical TTL.
func (c *Cache) Put(key string, obs domain.Observation) {
	now := c.clock.Now().UTC()

	ttl := c.ttl
	if obs.Window.End.Before(domain.Midnight(now)) {
		ttl = c.historicalTTL
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = now.Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{obs: obs, expiresAt: expiresAt}
	c.metrics.CacheEntries.Set(float64(len(c.entries)))
}

// Len returns the number of entries currently held, including any that have
// expired but not yet been swept.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep removes all expired entries and returns how many were dropped.
func (c *Cache) Sweep() int {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := 0
	for key, e := range c.entries {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(c.entries, key)
			dropped++
		}
	}
	c.metrics.CacheEntries.Set(float64(len(c.entries)))
	return dropped
}

// RunSweeper periodically sweeps expired entries until ctx is cancelled.
func (c *Cache) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := c.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			c.Sweep()
		}
	}
}
