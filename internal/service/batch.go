package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/ShopForge/internal/adapter/otel"
	"github.com/Strob0t/ShopForge/internal/adapter/ws"
	"github.com/Strob0t/ShopForge/internal/domain"
	"github.com/Strob0t/ShopForge/internal/domain/seo"
	"github.com/Strob0t/ShopForge/internal/logger"
	"github.com/Strob0t/ShopForge/internal/port/messagequeue"
	"github.com/Strob0t/ShopForge/internal/workpool"
)

// DefaultBatchRetention is how long finished jobs stay queryable.
const DefaultBatchRetention = time.Hour

var errBatchClosed = errors.New("batch service closed")

// BatchService runs batch optimizations in the background. Product ids are
// split into chunks that go through a shared worker pool; each chunk is one
// remote batch call.
type BatchService struct {
	client      SEOClient
	seo         *SEOService
	pool        *workpool.Pool
	chunkSize   int
	maxProducts int
	retention   time.Duration
	now         func() time.Time

	mu   sync.RWMutex
	jobs map[string]*seo.BatchJob

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBatchService creates a BatchService. Results are recorded, published and
// broadcast through seoSvc.
func NewBatchService(client SEOClient, seoSvc *SEOService, pool *workpool.Pool, chunkSize, maxProducts int) *BatchService {
	if chunkSize < 1 {
		chunkSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &BatchService{
		client:      client,
		seo:         seoSvc,
		pool:        pool,
		chunkSize:   chunkSize,
		maxProducts: maxProducts,
		retention:   DefaultBatchRetention,
		now:         time.Now,
		jobs:        make(map[string]*seo.BatchJob),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start validates req and launches the job. The returned snapshot is in the
// pending state; poll Get for progress.
func (s *BatchService) Start(ctx context.Context, req seo.BatchRequest) (seo.BatchJob, error) {
	if err := req.Validate(s.maxProducts); err != nil {
		return seo.BatchJob{}, err
	}
	if s.ctx.Err() != nil {
		return seo.BatchJob{}, errBatchClosed
	}

	job := &seo.BatchJob{
		ID:         uuid.New().String(),
		ProductIDs: dedupe(req.ProductIDs),
		Status:     seo.BatchPending,
		Results:    []seo.OptimizationResult{},
		CreatedAt:  s.now().UTC(),
	}

	s.mu.Lock()
	s.pruneLocked()
	s.jobs[job.ID] = job
	snap := snapshot(job)
	s.mu.Unlock()

	// The job outlives the request; keep its request id for log correlation.
	runCtx := logger.WithRequestID(s.ctx, logger.RequestID(ctx))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(runCtx, job)
	}()

	logger.From(ctx).Info("batch optimization started", "batch_id", job.ID, "products", len(job.ProductIDs))
	return snap, nil
}

// Get returns a snapshot of the job with the given id.
func (s *BatchService) Get(id string) (seo.BatchJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return seo.BatchJob{}, fmt.Errorf("batch %s: %w", id, domain.ErrNotFound)
	}
	return snapshot(job), nil
}

// Close cancels running jobs and waits for them to finish. Cancelled
// products are reported as not applied.
func (s *BatchService) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *BatchService) run(ctx context.Context, job *seo.BatchJob) {
	ctx, span := otel.StartBatchSpan(ctx, job.ID, len(job.ProductIDs))
	log := logger.From(ctx).With("batch_id", job.ID)

	s.mu.Lock()
	job.Status = seo.BatchRunning
	s.mu.Unlock()

	chunks := chunk(job.ProductIDs, s.chunkSize)
	results := make([][]seo.OptimizationResult, len(chunks))

	errs := s.pool.Each(ctx, len(chunks), func(ctx context.Context, i int) error {
		res, err := s.client.Batch(ctx, chunks[i])
		if err == nil && len(res) != len(chunks[i]) {
			err = fmt.Errorf("%w: %d results for %d products", domain.ErrUpstream, len(res), len(chunks[i]))
		}
		if err != nil {
			s.seo.fallingBack(ctx, "batch_optimize", err, "batch_id", job.ID, "chunk", i)
			res = fallbackResults(chunks[i], "optimization service unavailable")
		}
		results[i] = res
		s.progress(ctx, job, res)
		return nil
	})
	for i, err := range errs {
		if err != nil && results[i] == nil {
			results[i] = fallbackResults(chunks[i], "batch canceled")
			s.progress(ctx, job, results[i])
		}
	}

	ordered := slices.Concat(results...)
	var keys []string
	for _, r := range ordered {
		s.seo.record(ctx, job.ID, r)
		s.seo.metrics.BatchProduct(ctx, r.Applied)
		if r.Applied {
			keys = append(keys, seo.ProductKeys(r.ProductID)...)
		}
	}
	if len(keys) > 0 {
		keys = append(keys, seo.AnalyticsKey)
		if err := s.seo.lookup.Invalidate(ctx, keys...); err != nil {
			log.Warn("invalidate after batch failed", "error", err)
		}
	}

	finished := s.now().UTC()
	s.mu.Lock()
	job.Results = ordered
	job.Status = seo.BatchCompleted
	job.FinishedAt = &finished
	applied, failed := job.Applied, job.Failed
	s.mu.Unlock()

	s.seo.publish(ctx, messagequeue.SubjectBatchCompleted, messagequeue.BatchCompletedPayload{
		BatchID:    job.ID,
		ProductIDs: job.ProductIDs,
		Applied:    applied,
		Failed:     failed,
		Keys:       keys,
		Origin:     s.seo.instance,
		FinishedAt: finished,
	})
	s.seo.broadcast(ctx, ws.EventBatchCompleted, ws.BatchCompletedEvent{
		BatchID: job.ID,
		Total:   len(job.ProductIDs),
		Applied: applied,
		Failed:  failed,
	})

	var spanErr error
	if failed > 0 {
		spanErr = fmt.Errorf("%d of %d products not applied", failed, len(job.ProductIDs))
	}
	otel.EndSpan(span, spanErr)
	log.Info("batch optimization finished", "applied", applied, "failed", failed)
}

// progress folds one chunk's results into the job and tells the console.
func (s *BatchService) progress(ctx context.Context, job *seo.BatchJob, res []seo.OptimizationResult) {
	s.mu.Lock()
	job.Results = append(job.Results, res...)
	for _, r := range res {
		if r.Applied {
			job.Applied++
		} else {
			job.Failed++
		}
	}
	ev := ws.BatchProgressEvent{
		BatchID:   job.ID,
		Processed: len(job.Results),
		Total:     len(job.ProductIDs),
		Applied:   job.Applied,
		Failed:    job.Failed,
	}
	s.mu.Unlock()

	s.seo.broadcast(ctx, ws.EventBatchProgress, ev)
}

// pruneLocked drops finished jobs older than the retention window.
func (s *BatchService) pruneLocked() {
	cutoff := s.now().Add(-s.retention)
	for id, job := range s.jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			delete(s.jobs, id)
		}
	}
}

func snapshot(job *seo.BatchJob) seo.BatchJob {
	c := *job
	c.ProductIDs = slices.Clone(job.ProductIDs)
	c.Results = slices.Clone(job.Results)
	if job.FinishedAt != nil {
		t := *job.FinishedAt
		c.FinishedAt = &t
	}
	return c
}

func fallbackResults(ids []string, reason string) []seo.OptimizationResult {
	out := make([]seo.OptimizationResult, len(ids))
	for i, id := range ids {
		out[i] = seo.FallbackResult(id, reason)
	}
	return out
}

// dedupe drops repeated ids, keeping first occurrences in order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func chunk(ids []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(ids); start += size {
		out = append(out, ids[start:min(start+size, len(ids))])
	}
	return out
}
