package server

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/vergerhq/verger/roster"
	"github.com/vergerhq/verger/schedule"
)

// cacheEntry holds one memoized projection result.
type cacheEntry struct {
	events     []schedule.Event
	expiresAt  time.Time
	accessedAt time.Time
}

// ProjectionCache memoizes projection results on the consumer side. The
// key is a digest of the full rule snapshot plus the date range, so a
// stale entry can never be served after a rule changes: a changed snapshot
// simply hashes to a different key and the old entry ages out.
type ProjectionCache struct {
	entries         map[string]*cacheEntry
	mutex           sync.RWMutex
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
}

// CacheConfig holds configuration for the projection cache.
type CacheConfig struct {
	TTL             time.Duration // how long entries stay valid
	MaxEntries      int           // maximum entries before eviction
	CleanupInterval time.Duration // how often to sweep expired entries
}

// DefaultCacheConfig provides sensible defaults.
var DefaultCacheConfig = CacheConfig{
	TTL:             15 * time.Minute,
	MaxEntries:      1000,
	CleanupInterval: 5 * time.Minute,
}

// NewProjectionCache creates a cache and starts its cleanup goroutine.
// Call Close when done.
func NewProjectionCache(config CacheConfig) *ProjectionCache {
	c := &ProjectionCache{
		entries:         make(map[string]*cacheEntry),
		ttl:             config.TTL,
		maxEntries:      config.MaxEntries,
		cleanupInterval: config.CleanupInterval,
		stopCleanup:     make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Projector returns a memoizing drop-in for schedule.GenerateEvents.
func (c *ProjectionCache) Projector() roster.Projector {
	return func(rules []schedule.Rule, startDate, endDate string) []schedule.Event {
		key := cacheKey(rules, startDate, endDate)
		if events, ok := c.get(key); ok {
			return events
		}
		events := schedule.GenerateEvents(rules, startDate, endDate)
		c.set(key, events)
		return events
	}
}

func cacheKey(rules []schedule.Rule, startDate, endDate string) string {
	hasher := sha256.New()
	fmt.Fprintf(hasher, "%s\x00%s\x00", startDate, endDate)
	for _, r := range rules {
		wd, _ := r.Weekday.Get()
		date, _ := r.Date.Get()
		fmt.Fprintf(hasher, "%s\x00%s\x00%s\x00%d\x00%t\x00%s\x00%s\x00%t\x1e",
			r.ID, r.Title, r.Type, wd, r.Weekday.IsPresent(), date, r.Time, r.Active)
	}
	return fmt.Sprintf("%x", hasher.Sum(nil))
}

func (c *ProjectionCache) get(key string) ([]schedule.Event, bool) {
	c.mutex.RLock()
	entry, exists := c.entries[key]
	c.mutex.RUnlock()

	if !exists {
		return nil, false
	}

	now := time.Now()
	if now.After(entry.expiresAt) {
		c.mutex.Lock()
		delete(c.entries, key)
		c.mutex.Unlock()
		return nil, false
	}

	c.mutex.Lock()
	entry.accessedAt = now
	c.mutex.Unlock()
	return entry.events, true
}

func (c *ProjectionCache) set(key string, events []schedule.Event) {
	now := time.Now()
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = &cacheEntry{
		events:     events,
		expiresAt:  now.Add(c.ttl),
		accessedAt: now,
	}
	if len(c.entries) > c.maxEntries {
		c.evict()
	}
}

// evict removes expired entries and, if still over the limit, the least
// recently accessed ones. Caller holds the write lock.
func (c *ProjectionCache) evict() {
	now := time.Now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}

	for len(c.entries) > c.maxEntries {
		var (
			oldestKey string
			oldestAt  time.Time
		)
		for key, entry := range c.entries {
			if oldestKey == "" || entry.accessedAt.Before(oldestAt) {
				oldestKey = key
				oldestAt = entry.accessedAt
			}
		}
		delete(c.entries, oldestKey)
	}
}

func (c *ProjectionCache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mutex.Lock()
			c.evict()
			c.mutex.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

// Close stops the cleanup goroutine and clears the cache.
func (c *ProjectionCache) Close() {
	close(c.stopCleanup)
	c.mutex.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mutex.Unlock()
}

// Len reports the number of cached entries, expired or not.
func (c *ProjectionCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}
