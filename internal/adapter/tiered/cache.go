// Package tiered layers a per-instance L1 cache over a shared L2 cache.
package tiered

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/Strob0t/ShopForge/internal/logger"
	"github.com/Strob0t/ShopForge/internal/port/cache"
)

// headerLen is the size of the expiry stamp written before every L2 value.
const headerLen = 8

// Cache reads L1 first and falls back to L2, copying L2 hits into L1.
// Writes and deletes go to both levels. L2 is best effort: its errors are
// logged and treated as a miss, so an unreachable L2 degrades to L1 only.
//
// L2 values carry the absolute expiry of the Set that wrote them. An L2
// entry past that instant is a miss, and a backfilled L1 copy lives only for
// what remains, so the ttl of a Set holds across instances even when the L2
// store keeps data longer.
type Cache struct {
	l1         cache.Cache
	l2         cache.Cache
	defaultTTL time.Duration
	now        func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a tiered cache. defaultTTL is the lifetime of writes made
// with ttl <= 0 and must match the L1 default.
func New(l1, l2 cache.Cache, defaultTTL time.Duration, opts ...Option) *Cache {
	c := &Cache{l1: l1, l2: l2, defaultTTL: defaultTTL, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get checks L1, then L2.
func (c *Cache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	val, found, err := c.l1.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found {
		return val, true, nil
	}

	raw, found, err := c.l2.Get(ctx, key)
	if err != nil {
		logger.From(ctx).Warn("l2 cache get failed", "key", key, "error", err)
		return nil, false, nil
	}
	if !found {
		return nil, false, nil
	}
	val, expires, ok := unwrap(raw)
	if !ok {
		logger.From(ctx).Warn("dropping malformed l2 entry", "key", key)
		return nil, false, nil
	}
	remaining := expires.Sub(c.now())
	if remaining < 0 {
		return nil, false, nil
	}
	if remaining > 0 {
		if err := c.l1.Set(ctx, key, val, remaining); err != nil {
			logger.From(ctx).Warn("l1 backfill failed", "key", key, "error", err)
		}
	}
	return val, true, nil
}

// Set writes L1, then L2.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.l1.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if err := c.l2.Set(ctx, key, wrap(value, c.now().Add(ttl)), ttl); err != nil {
		logger.From(ctx).Warn("l2 cache set failed", "key", key, "error", err)
	}
	return nil
}

// Delete removes key from both levels. An L2 failure is returned so callers
// invalidating stale data learn that other instances may still see it.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.l1.Delete(ctx, key); err != nil {
		return err
	}
	return c.l2.Delete(ctx, key)
}

// wrap prefixes value with its expiry in big-endian unix nanoseconds.
func wrap(value []byte, expires time.Time) []byte {
	out := make([]byte, headerLen+len(value))
	binary.BigEndian.PutUint64(out, uint64(expires.UnixNano()))
	copy(out[headerLen:], value)
	return out
}

func unwrap(raw []byte) (value []byte, expires time.Time, ok bool) {
	if len(raw) < headerLen {
		return nil, time.Time{}, false
	}
	ns := int64(binary.BigEndian.Uint64(raw[:headerLen]))
	return raw[headerLen:], time.Unix(0, ns), true
}
