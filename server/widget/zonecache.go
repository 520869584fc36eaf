package widget

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type zoneEntry struct {
	zone       string
	resolvedAt time.Time
}

// ZoneCache maps rounded coordinate pairs to zone codes.
// Entries expire after a fixed TTL and the cache is bounded; once full, the
// oldest-inserted key is evicted. Refreshing an existing key keeps its
// insertion position.
//
// The cache is shared by all widgets and outlives any one of them, so it is
// safe for concurrent use. Concurrent lookups of the same key share one
// network call.
type ZoneCache struct {
	mu       sync.Mutex
	entries  map[string]zoneEntry
	order    []string
	ttl      time.Duration
	capacity int
	now      func() time.Time
	group    singleflight.Group
}

// NewZoneCache creates a zone cache with the standard TTL and capacity
func NewZoneCache() *ZoneCache {
	return &ZoneCache{
		entries:  make(map[string]zoneEntry),
		ttl:      ZoneCacheTTL,
		capacity: ZoneCacheSize,
		now:      time.Now,
	}
}

// CoordinateKey rounds a coordinate pair to 4 decimal places (about 11m)
func CoordinateKey(lat, lon float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lon)
}

// Get returns the cached zone for key if present and younger than the TTL
func (c *ZoneCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || c.now().Sub(entry.resolvedAt) >= c.ttl {
		return "", false
	}

	return entry.zone, true
}

// Put records a resolution, evicting the oldest-inserted key when over capacity
func (c *ZoneCache) Put(key, zone string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = zoneEntry{zone: zone, resolvedAt: c.now()}

	for len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// Len returns the number of entries, expired or not
func (c *ZoneCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Resolve returns the zone for a coordinate pair, calling lookup on a miss.
// A successful lookup is cached; failures are not.
//
// Callers resolving the same key share one lookup. It runs detached from any
// single caller, bounded by ZoneLookupTimeout, so a caller giving up does not
// fail the others; each caller only waits until its own ctx is done.
func (c *ZoneCache) Resolve(ctx context.Context, lat, lon float64, lookup func(ctx context.Context) (string, error)) (zone string, cached bool, err error) {
	key := CoordinateKey(lat, lon)
	if zone, ok := c.Get(key); ok {
		return zone, true, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ZoneLookupTimeout)
		defer cancel()

		zone, err := lookup(lookupCtx)
		if err != nil {
			return "", err
		}
		c.Put(key, zone)
		return zone, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", false, res.Err
		}
		return res.Val.(string), false, nil
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}
