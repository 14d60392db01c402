// Package database defines the persistence port for the optimization log.
package database

import (
	"context"

	"github.com/Strob0t/ShopForge/internal/domain/seo"
)

// OptimizationLog records every optimization attempt, single or batch.
type OptimizationLog interface {
	// RecordOptimization stores e, setting its ID and CreatedAt.
	RecordOptimization(ctx context.Context, e *seo.LogEntry) error

	// ListOptimizations returns the newest entries matching f.
	ListOptimizations(ctx context.Context, f seo.LogFilter) ([]seo.LogEntry, error)

	// OptimizationStats aggregates the log per product, counting each
	// product's latest attempt.
	OptimizationStats(ctx context.Context) (seo.LogStats, error)
}
