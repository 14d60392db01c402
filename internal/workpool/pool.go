// Package workpool bounds how many remote optimization calls run at once.
package workpool

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Pool is a weighted semaphore shared by every batch job, so concurrent
// jobs together never exceed the configured parallelism.
type Pool struct {
	sem *semaphore.Weighted
}

// New creates a Pool that allows at most limit concurrent tasks.
func New(limit int) *Pool {
	if limit < 1 {
		limit = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(limit))}
}

// Run acquires a slot, runs fn, and releases the slot. It returns ctx.Err()
// if ctx ends while waiting. A nil pool runs fn directly.
func (p *Pool) Run(ctx context.Context, fn func() error) error {
	if p == nil || p.sem == nil {
		return fn()
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn()
}

// Each runs fn(i) for every i in [0, n) through the pool and waits for all
// of them. It returns one error slot per index; indexes never started
// because ctx ended carry ctx.Err().
func (p *Pool) Each(ctx context.Context, n int, fn func(ctx context.Context, i int) error) []error {
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = p.Run(ctx, func() error { return fn(ctx, i) })
		}()
	}
	wg.Wait()
	return errs
}
