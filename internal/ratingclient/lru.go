package ratingclient

import (
	"container/list"
	"sync"
	"time"
)

// lruCache is a process-wide, bounded rating cache: 10k entries, 30-minute
// TTL, compare-and-swap writes so a slower concurrent lookup can't clobber a
// fresher one. No LRU library appears in any reference repo, so this is
// built directly on container/list, the way the stdlib docs recommend.
type lruCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*list.Element
	order    *list.List
}

type cacheEntry struct {
	key       string
	rating    int
	expiresAt time.Time
}

func newLRUCache(capacity int, ttl time.Duration) *lruCache {
	return &lruCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns the cached rating for key, if present and unexpired.
func (c *lruCache) Get(key string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return 0, false
	}
	entry := el.Value.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.order.Remove(el)
		delete(c.items, key)
		return 0, false
	}
	c.order.MoveToFront(el)
	return entry.rating, true
}

// CompareAndSwap writes rating for key only if the cache holds no fresher
// value already (a concurrent writer wins by expiry, not by arrival order).
func (c *lruCache) CompareAndSwap(key string, rating int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if el, ok := c.items[key]; ok {
		entry := el.Value.(*cacheEntry)
		if entry.expiresAt.After(now) {
			return
		}
		entry.rating = rating
		entry.expiresAt = now.Add(c.ttl)
		c.order.MoveToFront(el)
		return
	}

	entry := &cacheEntry{key: key, rating: rating, expiresAt: now.Add(c.ttl)}
	el := c.order.PushFront(entry)
	c.items[key] = el

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheEntry).key)
		}
	}
}
