// Package ristretto implements the cache port on dgraph-io/ristretto, a
// size-bounded in-process cache with per-entry expiry.
package ristretto

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// bytesPerEntry is the expected average size of an encoded SEO payload.
const bytesPerEntry = 512

// Cache is a bounded L1 cache. Writes are buffered: a Set becomes visible to
// Get once ristretto has applied it, which Wait forces.
type Cache struct {
	c          *ristretto.Cache[string, []byte]
	defaultTTL time.Duration
}

// New creates a cache holding at most maxSizeMB megabytes of values.
// Entries written with a non-positive ttl live for defaultTTL.
func New(maxSizeMB int64, defaultTTL time.Duration) (*Cache, error) {
	if maxSizeMB < 1 {
		return nil, errors.New("ristretto: max size must be >= 1 MB")
	}
	maxCost := maxSizeMB << 20
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCost / bytesPerEntry * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c, defaultTTL: defaultTTL}, nil
}

// Get returns the value for key if present and unexpired.
func (c *Cache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	val, found := c.c.Get(key)
	if !found {
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores value with its length as cost. Ristretto may reject the write
// under memory pressure; a rejected write is a later miss, not an error.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.c.SetWithTTL(key, value, int64(len(value)), ttl)
	return nil
}

// Delete removes key.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.c.Del(key)
	return nil
}

// Wait blocks until buffered writes are applied.
func (c *Cache) Wait() {
	c.c.Wait()
}

// Close releases the cache's background goroutines.
func (c *Cache) Close() {
	c.c.Close()
}
