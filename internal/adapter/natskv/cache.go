// Package natskv implements the cache port on a NATS JetStream key-value
// bucket, shared by every gateway instance.
package natskv

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// ErrInvalidKey is returned for keys the KV store cannot represent.
var ErrInvalidKey = errors.New("natskv: invalid key")

var validKey = regexp.MustCompile(`^[-/_=.a-zA-Z0-9]+$`)

// Cache wraps a JetStream KeyValue bucket. Expiry is configured once on the
// bucket, so the per-call ttl is ignored.
type Cache struct {
	kv jetstream.KeyValue
}

// New wraps an existing bucket.
func New(kv jetstream.KeyValue) *Cache {
	return &Cache{kv: kv}
}

// Get returns the value for key. A missing or purged key is a miss.
func (c *Cache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	if !validKey.MatchString(key) {
		return nil, false, nil
	}
	entry, err := c.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("kv get %s: %w", key, err)
	}
	return entry.Value(), true, nil
}

// Set writes value under key.
func (c *Cache) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	if !validKey.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if _, err := c.kv.Put(ctx, key, value); err != nil {
		return fmt.Errorf("kv put %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Missing keys are ignored.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !validKey.MatchString(key) {
		return nil
	}
	err := c.kv.Delete(ctx, key)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("kv delete %s: %w", key, err)
	}
	return nil
}
