package main

import (
	"context"
	"fmt"
	"log/slog"

	sfnats "github.com/Strob0t/ShopForge/internal/adapter/nats"
	"github.com/Strob0t/ShopForge/internal/adapter/natskv"
	"github.com/Strob0t/ShopForge/internal/adapter/ristretto"
	"github.com/Strob0t/ShopForge/internal/adapter/tiered"
	"github.com/Strob0t/ShopForge/internal/adapter/timed"
	"github.com/Strob0t/ShopForge/internal/config"
	"github.com/Strob0t/ShopForge/internal/port/cache"
)

// buildCache selects the L1 backend and, when NATS and an L2 bucket are
// configured, layers it over the shared KV bucket. The returned func releases
// background resources.
func buildCache(ctx context.Context, cfg *config.Cache, queue *sfnats.Queue) (cache.Cache, func(), error) {
	var (
		l1      cache.Cache
		release = func() {}
	)

	switch cfg.Backend {
	case "ristretto":
		rc, err := ristretto.New(cfg.L1MaxSizeMB, cfg.TTL)
		if err != nil {
			return nil, nil, err
		}
		l1, release = rc, rc.Close
	default:
		tc := timed.New(cfg.TTL)
		if cfg.SweepInterval > 0 {
			release = tc.StartSweep(cfg.SweepInterval)
		}
		l1 = tc
	}

	if queue == nil || cfg.L2Bucket == "" {
		return l1, release, nil
	}

	kv, err := queue.KeyValue(ctx, cfg.L2Bucket, cfg.L2TTL)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("l2: %w", err)
	}
	slog.Info("l2 cache enabled", "bucket", cfg.L2Bucket, "ttl", cfg.L2TTL)
	return tiered.New(l1, natskv.New(kv), cfg.TTL), release, nil
}

// cacheDescription names the cache stack for the health endpoint.
func cacheDescription(cfg *config.Cache, queue *sfnats.Queue) string {
	if queue != nil && cfg.L2Bucket != "" {
		return cfg.Backend + "+natskv"
	}
	return cfg.Backend
}
