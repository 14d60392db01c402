// Package service implements the gateway's business logic on top of ports.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Strob0t/ShopForge/internal/adapter/otel"
	"github.com/Strob0t/ShopForge/internal/domain/seo"
	"github.com/Strob0t/ShopForge/internal/logger"
	"github.com/Strob0t/ShopForge/internal/port/cache"
)

var errEmptyResult = errors.New("remote returned no result")

// Lookup reads JSON payloads through a cache. Concurrent misses for the same
// key share one remote fetch. A failed fetch leaves the cache untouched, and
// so does a fetch that was in flight when its key was invalidated.
type Lookup struct {
	cache   cache.Cache
	ttl     time.Duration
	group   singleflight.Group
	metrics *otel.Metrics

	mu  sync.Mutex
	gen map[string]uint64 // bumped by Invalidate
}

// NewLookup creates a Lookup writing entries with ttl (<= 0: cache default).
func NewLookup(c cache.Cache, ttl time.Duration) *Lookup {
	return &Lookup{cache: c, ttl: ttl, gen: make(map[string]uint64)}
}

func (l *Lookup) generation(key string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen[key]
}

// SetMetrics attaches hit/miss counters.
func (l *Lookup) SetMetrics(m *otel.Metrics) {
	l.metrics = m
}

// Invalidate deletes keys from the cache. Every key is attempted; the
// errors of failed deletes are joined.
func (l *Lookup) Invalidate(ctx context.Context, keys ...string) error {
	var errs []error
	l.mu.Lock()
	for _, k := range keys {
		l.gen[k]++
	}
	l.mu.Unlock()

	for _, k := range keys {
		l.group.Forget(k)
		if err := l.cache.Delete(ctx, k); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// fetchCached returns the value stored under key, or runs fetch and stores
// its result. The source reports whether the value came from the cache or
// the remote side. An entry that no longer decodes is dropped and refetched.
func fetchCached[T any](ctx context.Context, l *Lookup, key string, fetch func(context.Context) (*T, error)) (T, seo.Source, error) {
	var zero T
	kind := keyKind(key)
	log := logger.From(ctx)

	data, ok, err := l.cache.Get(ctx, key)
	if err != nil {
		log.Warn("cache get failed", "key", key, "error", err)
	}
	if ok {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			l.metrics.CacheHit(ctx, kind)
			return v, seo.SourceCache, nil
		}
		log.Warn("dropping undecodable cache entry", "key", key)
		_ = l.cache.Delete(ctx, key)
	}
	l.metrics.CacheMiss(ctx, kind)

	// The shared fetch must outlive any single caller's cancellation.
	shared := context.WithoutCancel(ctx)
	res, err, _ := l.group.Do(key, func() (any, error) {
		gen := l.generation(key)
		v, err := fetch(shared)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, errEmptyResult
		}
		if l.generation(key) != gen {
			log.Debug("key invalidated during fetch, not caching", "key", key)
			return *v, nil
		}
		if data, err := json.Marshal(v); err != nil {
			log.Warn("cache encode failed", "key", key, "error", err)
		} else if err := l.cache.Set(shared, key, data, l.ttl); err != nil {
			log.Warn("cache set failed", "key", key, "error", err)
		} else if l.generation(key) != gen {
			// Invalidated between the check and the write.
			_ = l.cache.Delete(shared, key)
		}
		return *v, nil
	})
	if err != nil {
		return zero, "", err
	}
	return res.(T), seo.SourceRemote, nil
}

// keyKind is the key prefix before the first underscore ("meta", "desc", ...).
func keyKind(key string) string {
	if i := strings.IndexByte(key, '_'); i > 0 {
		return key[:i]
	}
	return key
}
