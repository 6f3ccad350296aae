package services

import (
	"strings"
	"sync"
	"time"
)

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

const reportCacheMaxEntries = 500

// ReportCache is a small TTL map keyed "prefix|partner|parts...". A zero TTL
// disables it.
type ReportCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

func NewReportCache(ttl time.Duration) *ReportCache {
	return &ReportCache{ttl: ttl, entries: map[string]cacheEntry{}, now: time.Now}
}

func cacheKey(prefix string, partnerID string, parts ...string) string {
	segments := make([]string, 0, 2+len(parts))
	segments = append(segments, prefix, partnerID)
	segments = append(segments, parts...)
	return strings.Join(segments, "|")
}

func (c *ReportCache) Get(key string) (any, bool) {
	if c == nil || c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

func (c *ReportCache) Set(key string, value any) {
	if c == nil || c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{value: value, expiresAt: c.now().Add(c.ttl)}
	if len(c.entries) > reportCacheMaxEntries {
		c.entries = map[string]cacheEntry{key: c.entries[key]}
	}
}

// InvalidatePartner drops every entry of partnerID and returns how many went.
func (c *ReportCache) InvalidatePartner(partnerID string) int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		parts := strings.SplitN(key, "|", 3)
		if len(parts) >= 2 && parts[1] == partnerID {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *ReportCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
