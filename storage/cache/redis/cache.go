package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/darasa/core"
)

// Cache is a redis-backed core.KVCache. Entries carry their write timestamp;
// redis-side expiry is a safety net set to twice the caller's TTL so stale
// entries eventually vanish even if never re-read.
type Cache struct {
	client *redis.Client
	expiry time.Duration
}

var _ core.KVCache = (*Cache)(nil)

func New(conf *core.Config) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	return &Cache{
		client: client,
		expiry: 2 * conf.AssignmentCacheTTL,
	}
}

// Ping checks the connection; callers may treat failures as a degraded
// (cache-less) start rather than a fatal one.
func (c *Cache) Ping(ctx context.Context) error {
	return errors.Wrap(c.client.Ping(ctx).Err(), "pinging redis")
}

func (c *Cache) Get(ctx context.Context, key string) (core.CacheEntry, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return core.CacheEntry{}, core.ErrCacheMiss
		}
		return core.CacheEntry{}, errors.Wrap(err, "reading cache entry")
	}
	var entry core.CacheEntry
	if err = json.Unmarshal(raw, &entry); err != nil {
		return core.CacheEntry{}, errors.Wrap(err, "decoding cache entry")
	}
	return entry, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	raw, err := json.Marshal(core.CacheEntry{Value: value, Timestamp: time.Now().UTC()})
	if err != nil {
		return errors.Wrap(err, "encoding cache entry")
	}
	return errors.Wrap(c.client.Set(ctx, key, raw, c.expiry).Err(), "writing cache entry")
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	return errors.Wrap(c.client.Del(ctx, key).Err(), "deleting cache entry")
}
