package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/ShopForge/internal/domain/seo"
)

// Store implements database.OptimizationLog using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const logColumns = `id, product_id, COALESCE(batch_id::text, ''), applied, score, source, message, created_at`

func (s *Store) RecordOptimization(ctx context.Context, e *seo.LogEntry) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO optimization_log (product_id, batch_id, applied, score, source, message)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		e.ProductID, nullIfEmpty(e.BatchID), e.Applied, e.Score, string(e.Source), e.Message,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("record optimization %s: %w", e.ProductID, err)
	}
	return nil
}

func (s *Store) ListOptimizations(ctx context.Context, f seo.LogFilter) ([]seo.LogEntry, error) {
	f.Normalize()
	query, args := buildListQuery(f)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list optimizations: %w", err)
	}
	defer rows.Close()

	var entries []seo.LogEntry
	for rows.Next() {
		e, err := scanLogEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list optimizations: %w", err)
	}
	return orEmpty(entries), nil
}

func (s *Store) OptimizationStats(ctx context.Context) (seo.LogStats, error) {
	var st seo.LogStats
	err := s.pool.QueryRow(ctx,
		`WITH latest AS (
		     SELECT DISTINCT ON (product_id) product_id, applied, score
		     FROM optimization_log
		     ORDER BY product_id, created_at DESC, id DESC
		 )
		 SELECT count(*),
		        count(*) FILTER (WHERE applied),
		        COALESCE(avg(score) FILTER (WHERE applied), 0)
		 FROM latest`,
	).Scan(&st.Products, &st.OptimizedProducts, &st.AverageScore)
	if err != nil {
		return seo.LogStats{}, fmt.Errorf("optimization stats: %w", err)
	}
	return st, nil
}

// buildListQuery renders the filtered listing query with positional args.
func buildListQuery(f seo.LogFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if f.ProductID != "" {
		args = append(args, f.ProductID)
		where = append(where, "product_id = $"+strconv.Itoa(len(args)))
	}
	if f.BatchID != "" {
		args = append(args, f.BatchID)
		where = append(where, "batch_id = $"+strconv.Itoa(len(args))+"::uuid")
	}

	var b strings.Builder
	b.WriteString("SELECT " + logColumns + " FROM optimization_log")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	args = append(args, f.Limit)
	b.WriteString(" ORDER BY created_at DESC, id DESC LIMIT $" + strconv.Itoa(len(args)))
	return b.String(), args
}

func scanLogEntry(row scannable) (seo.LogEntry, error) {
	var (
		e      seo.LogEntry
		source string
	)
	if err := row.Scan(&e.ID, &e.ProductID, &e.BatchID, &e.Applied, &e.Score, &source, &e.Message, &e.CreatedAt); err != nil {
		return seo.LogEntry{}, fmt.Errorf("scan optimization log: %w", err)
	}
	e.Source = seo.Source(source)
	return e, nil
}

// scannable is satisfied by pgx.Row and pgx.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// nullIfEmpty maps a single (non-batch) optimization to a NULL batch_id.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// orEmpty keeps the history endpoint answering [] rather than null.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
