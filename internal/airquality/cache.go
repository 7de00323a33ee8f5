package airquality

import (
	"strings"
	"sync"
	"time"
)

type cacheEntry struct {
	reading   *Reading
	expiresAt time.Time
}

// readingCache is a TTL cache of successful readings keyed by city, bounded
// by entry count. When full, the entry closest to expiry is evicted.
type readingCache struct {
	mu         sync.RWMutex
	entries    map[string]cacheEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

func newReadingCache(ttl time.Duration, maxEntries int) *readingCache {
	return &readingCache{
		entries:    make(map[string]cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// cacheKey normalizes a city name so "Delhi" and " delhi " share an entry.
func cacheKey(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

func (c *readingCache) get(key string) (*Reading, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		if current, still := c.entries[key]; still && current.expiresAt.Equal(entry.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return entry.reading, true
}

func (c *readingCache) put(key string, r *Reading) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	c.entries[key] = cacheEntry{
		reading:   r,
		expiresAt: c.now().Add(c.ttl),
	}
}

// evictOldest must be called with mu held.
func (c *readingCache) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.expiresAt.Before(oldest) {
			oldestKey = key
			oldest = entry.expiresAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func (c *readingCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

func (c *readingCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
