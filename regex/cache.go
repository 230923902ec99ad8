package regex

import (
	"container/list"
	"sync"
)

type cacheKey struct {
	pattern string
	flags   Flags
}

type cacheEntry struct {
	key cacheKey
	re  *Regex
}

// Cache holds compiled patterns keyed by pattern and flags and evicts the least
// recently used one when full. It is safe for concurrent use; the cached
// Regex values are shared, which is fine because they are never modified.
type Cache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	entries  map[cacheKey]*list.Element
}

// NewCache returns a cache holding at most capacity patterns, at least one.
func NewCache(capacity int) *Cache {
	return &Cache{
		capacity: max(capacity, 1),
		order:    list.New(),
		entries:  make(map[cacheKey]*list.Element),
	}
}

// Get returns the compiled pattern, compiling and caching it on a miss.
// Patterns that fail to compile are not cached.
func (c *Cache) Get(pattern string, flags Flags) (*Regex, error) {
	key := cacheKey{pattern: pattern, flags: flags}

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.order.MoveToFront(e)
		re := e.Value.(*cacheEntry).re
		c.mu.Unlock()
		return re, nil
	}
	c.mu.Unlock()

	// compile outside the lock; a concurrent miss on the same key compiles twice
	re, err := CompileFlags(pattern, flags)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.order.MoveToFront(e)
		return e.Value.(*cacheEntry).re, nil
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, re: re})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
	return re, nil
}

// Remove evicts one pattern and reports whether it was cached.
func (c *Cache) Remove(pattern string, flags Flags) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[cacheKey{pattern: pattern, flags: flags}]
	if !ok {
		return false
	}
	c.order.Remove(e)
	delete(c.entries, e.Value.(*cacheEntry).key)
	return true
}

// Purge evicts every pattern.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	clear(c.entries)
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
