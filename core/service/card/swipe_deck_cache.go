package card

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"swipe_server/core/domain"
)

// DefaultDeckTTL is how long a built deck is served before rebuilding.
const DefaultDeckTTL = 5 * time.Minute

// LoadFunc builds a fresh deck.
type LoadFunc func(ctx context.Context) ([]*domain.EventCard, error)

// DeckCache holds the shared deck. Concurrent misses share one load.
type DeckCache struct {
	mu        sync.RWMutex
	cards     []*domain.EventCard
	expiresAt time.Time
	ttl       time.Duration
	now       func() time.Time
	group     singleflight.Group
}

func NewDeckCache(ttl time.Duration, now func() time.Time) *DeckCache {
	if ttl <= 0 {
		ttl = DefaultDeckTTL
	}
	if now == nil {
		now = time.Now
	}
	return &DeckCache{ttl: ttl, now: now}
}

// Get returns the cached deck, calling load when it is missing or expired.
// A failed load leaves the previous state untouched.
func (c *DeckCache) Get(ctx context.Context, load LoadFunc) ([]*domain.EventCard, error) {
	if cards, ok := c.fresh(); ok {
		return cards, nil
	}

	v, err, _ := c.group.Do("deck", func() (any, error) {
		// another caller may have refreshed while we waited
		if cards, ok := c.fresh(); ok {
			return cards, nil
		}
		cards, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.store(cards)
		return cards, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*domain.EventCard), nil
}

// Refresh rebuilds the deck regardless of expiry.
func (c *DeckCache) Refresh(ctx context.Context, load LoadFunc) ([]*domain.EventCard, error) {
	v, err, _ := c.group.Do("deck", func() (any, error) {
		cards, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.store(cards)
		return cards, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*domain.EventCard), nil
}

// Invalidate drops the cached deck.
func (c *DeckCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cards = nil
	c.expiresAt = time.Time{}
}

func (c *DeckCache) fresh() ([]*domain.EventCard, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cards == nil || !c.now().Before(c.expiresAt) {
		return nil, false
	}
	return c.cards, true
}

func (c *DeckCache) store(cards []*domain.EventCard) {
	if cards == nil {
		cards = []*domain.EventCard{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cards = cards
	c.expiresAt = c.now().Add(c.ttl)
}
