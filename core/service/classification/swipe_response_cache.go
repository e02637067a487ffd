package classification

import (
	"crypto/sha1"
	"encoding/hex"
	"sync"
	"time"

	"swipe_server/core/domain"
)

// =============================================================================
// Response Cache - content hash -> result, lazy TTL expiry
// =============================================================================

// DefaultResponseTTL is how long an enriched classification stays valid.
const DefaultResponseTTL = 15 * time.Minute

// ResponseCache stores successful classifications. Expired entries are dropped on lookup;
// there is no background eviction.
type ResponseCache struct {
	mu      sync.Mutex
	entries map[string]responseEntry
	ttl     time.Duration
	now     func() time.Time

	hits   int64
	misses int64
}

type responseEntry struct {
	result    domain.ClassificationResult
	expiresAt time.Time
}

// NewResponseCache creates a cache. Zero ttl uses DefaultResponseTTL; nil now uses time.Now.
func NewResponseCache(ttl time.Duration, now func() time.Time) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultResponseTTL
	}
	if now == nil {
		now = time.Now
	}
	return &ResponseCache{
		entries: make(map[string]responseEntry),
		ttl:     ttl,
		now:     now,
	}
}

// CacheKey hashes the inputs that determine a classification.
// The model and prompt version are part of the key so upgrades never serve stale results.
func CacheKey(model, promptVersion string, email *domain.NormalizedEmail) string {
	h := sha1.New()
	for i, part := range []string{model, promptVersion, email.ID, email.Subject, email.Body} {
		if i > 0 {
			h.Write([]byte{'|'})
		}
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a copy of the cached result when present and unexpired.
func (c *ResponseCache) Get(key string) (domain.ClassificationResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return domain.ClassificationResult{}, false
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		c.misses++
		return domain.ClassificationResult{}, false
	}
	c.hits++
	return entry.result.Clone(), true
}

// Set stores result with a fresh expiry.
func (c *ResponseCache) Set(key string, result domain.ClassificationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = responseEntry{
		result:    result.Clone(),
		expiresAt: c.now().Add(c.ttl),
	}
}

// Len returns the number of stored entries, expired or not.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// CacheStats is a snapshot of hit/miss counters.
type CacheStats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// Stats returns hit/miss counters.
func (c *ResponseCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Entries: len(c.entries)}
}
