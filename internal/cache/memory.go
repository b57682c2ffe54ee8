package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value      string
	expiryTime time.Time
}

// MemoryCache is the in-process fallback used when no Redis URL is set.
type MemoryCache struct {
	entries map[string]entry
	mutex   sync.RWMutex
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mutex.RLock()
	e, found := c.entries[key]
	c.mutex.RUnlock()

	if found && c.now().Before(e.expiryTime) {
		return e.value, true, nil
	}
	return "", false, nil
}

func (c *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mutex.Lock()
	c.entries[key] = entry{value: value, expiryTime: c.now().Add(ttl)}
	c.mutex.Unlock()
	return nil
}

// Clear removes expired entries.
func (c *MemoryCache) Clear() {
	now := c.now()
	c.mutex.Lock()
	for key, e := range c.entries {
		if now.After(e.expiryTime) {
			delete(c.entries, key)
		}
	}
	c.mutex.Unlock()
}

func (c *MemoryCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}

func (c *MemoryCache) Close() error {
	return nil
}
