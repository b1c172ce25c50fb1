package inmemcache

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/darasa/core"
)

// Cache is a process-local core.KVCache, meant for tests and DEV mode.
type Cache struct {
	mutex   sync.RWMutex
	entries map[string]core.CacheEntry

	NowFunc func() time.Time // swapped in tests
}

var _ core.KVCache = (*Cache)(nil)

func New() *Cache {
	return &Cache{
		entries: make(map[string]core.CacheEntry),
		NowFunc: time.Now,
	}
}

func (c *Cache) Get(_ context.Context, key string) (core.CacheEntry, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return core.CacheEntry{}, core.ErrCacheMiss
	}
	return entry, nil
}

func (c *Cache) Set(_ context.Context, key string, value []byte) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = core.CacheEntry{Value: value, Timestamp: c.NowFunc()}
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.entries, key)
	return nil
}
