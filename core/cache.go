package core

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var ErrCacheMiss = errors.New("cache: key not found")

// CacheEntry is a cached blob plus the instant it was written.
// Staleness decisions belong to the caller, not the store.
type CacheEntry struct {
	Value     []byte    `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// KVCache is a best-effort per-key blob store. Implementations must return
// ErrCacheMiss for absent keys; any other error means the transport failed
// and the caller should fall back to its upstream source.
type KVCache interface {
	Get(ctx context.Context, key string) (CacheEntry, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
