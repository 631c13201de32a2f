package cache

import (
	"container/list"
	"sync"
)

// MemoryCache implements an L1 in-memory cache with LRU eviction.
// Capacity is measured in bytes using the size reported for each value.
type MemoryCache[V any] struct {
	capacity int64 // Maximum size in bytes
	size     int64 // Current size in bytes

	// LRU implementation
	items    map[string]*list.Element
	eviction *list.List

	// Synchronization
	mu sync.Mutex

	// Metrics
	stats CacheStats
}

type memoryCacheEntry[V any] struct {
	key   string
	value V
	size  int64
}

// NewMemoryCache creates a new memory cache with the specified capacity in bytes.
func NewMemoryCache[V any](capacity int64) *MemoryCache[V] {
	return &MemoryCache[V]{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
		stats: CacheStats{
			Capacity: capacity,
		},
	}
}

// Get retrieves a value from the cache.
func (c *MemoryCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}

	// Move to front (most recently used)
	c.eviction.MoveToFront(elem)
	c.stats.Hits++
	return elem.Value.(*memoryCacheEntry[V]).value, true
}

// Put stores a value of the given size in the cache.
func (c *MemoryCache[V]) Put(key string, value V, size int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if size > c.capacity {
		// Drop any stale copy so Get never returns an outdated value.
		if elem, ok := c.items[key]; ok {
			c.removeElement(elem)
		}
		return ErrItemTooLarge
	}

	if elem, ok := c.items[key]; ok {
		c.eviction.MoveToFront(elem)
		entry := elem.Value.(*memoryCacheEntry[V])
		c.size += size - entry.size
		entry.value = value
		entry.size = size
	} else {
		elem := c.eviction.PushFront(&memoryCacheEntry[V]{
			key:   key,
			value: value,
			size:  size,
		})
		c.items[key] = elem
		c.size += size
	}

	// Evict until we fit, never evicting the entry just written
	for c.size > c.capacity && c.eviction.Len() > 1 {
		c.evictOldest()
	}

	c.stats.Size = c.size
	return nil
}

// Delete removes an entry from the cache.
func (c *MemoryCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// DeleteFunc removes every entry whose value matches fn.
func (c *MemoryCache[V]) DeleteFunc(fn func(V) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for elem := c.eviction.Front(); elem != nil; {
		next := elem.Next()
		if fn(elem.Value.(*memoryCacheEntry[V]).value) {
			c.removeElement(elem)
			removed++
		}
		elem = next
	}
	return removed
}

// Clear removes all entries from the cache.
func (c *MemoryCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.eviction.Init()
	c.size = 0
	c.stats.Size = 0
}

// Len returns the number of cached entries.
func (c *MemoryCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Contains checks if a key exists in the cache without updating LRU.
func (c *MemoryCache[V]) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.items[key]
	return ok
}

// Stats returns cache statistics.
func (c *MemoryCache[V]) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = c.size
	stats.ItemCount = int64(len(c.items))

	if stats.Hits+stats.Misses > 0 {
		stats.HitRate = float64(stats.Hits) / float64(stats.Hits+stats.Misses)
	}

	return stats
}

// evictOldest removes the least recently used item (must be called with lock held).
func (c *MemoryCache[V]) evictOldest() {
	if elem := c.eviction.Back(); elem != nil {
		c.removeElement(elem)
		c.stats.Evictions++
	}
}

// removeElement removes an element from the cache (must be called with lock held).
func (c *MemoryCache[V]) removeElement(elem *list.Element) {
	c.eviction.Remove(elem)
	entry := elem.Value.(*memoryCacheEntry[V])
	delete(c.items, entry.key)
	c.size -= entry.size
	c.stats.Size = c.size
}
