package loader

import "sync"

// Cache keys of the three datasets.
const (
	KeyVerses     = "verses"
	KeyNarrations = "narrations"
	KeyFacts      = "facts"
)

// Cache holds loaded datasets by key. Every invalidation bumps the
// generation so dependents (search indices) can tell their data went stale.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]any
	generation uint64
}

// NewCache returns an empty cache at generation 0.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]any)}
}

// Get returns the value stored under key.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// setIfGeneration stores v only if no invalidation happened since gen was read.
func (c *Cache) setIfGeneration(key string, v any, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return false
	}
	c.entries[key] = v
	return true
}

// InvalidateAll drops every entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]any)
	c.generation++
	c.mu.Unlock()
}

// Generation returns the number of invalidations so far.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}
