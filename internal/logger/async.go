package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Closer allows flushing and stopping the async handler.
type Closer interface {
	Close()
}

// nopCloser is a no-op Closer for synchronous mode.
type nopCloser struct{}

func (nopCloser) Close() {}

// pending is a record waiting for a worker, with the handler that must
// write it so attributes added by With survive the hand-off.
type pending struct {
	h   slog.Handler
	rec slog.Record
}

// asyncQueue is shared by an AsyncHandler and every handler derived from it.
type asyncQueue struct {
	mu     sync.RWMutex
	closed bool
	ch     chan pending
	wg     sync.WaitGroup

	droppedInfo  atomic.Int64 // debug and info
	droppedWarn  atomic.Int64
	droppedError atomic.Int64
}

func (q *asyncQueue) drop(level slog.Level) {
	switch {
	case level >= slog.LevelError:
		q.droppedError.Add(1)
	case level >= slog.LevelWarn:
		q.droppedWarn.Add(1)
	default:
		q.droppedInfo.Add(1)
	}
}

func (q *asyncQueue) dropped() int64 {
	return q.droppedInfo.Load() + q.droppedWarn.Load() + q.droppedError.Load()
}

// AsyncHandler hands records to a fixed set of workers over a bounded
// buffer. Request handlers never block on log output: when the buffer is
// full, or after Close, the record is counted by level and dropped.
type AsyncHandler struct {
	inner slog.Handler
	q     *asyncQueue
}

// NewAsyncHandler creates an AsyncHandler with the given buffer capacity and worker count.
func NewAsyncHandler(inner slog.Handler, bufSize, workers int) *AsyncHandler {
	q := &asyncQueue{ch: make(chan pending, bufSize)}
	for range max(workers, 1) {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for p := range q.ch {
				_ = p.h.Handle(context.Background(), p.rec)
			}
		}()
	}
	return &AsyncHandler{inner: inner, q: q}
}

// Enabled delegates to the inner handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues a copy of the record.
func (h *AsyncHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	h.q.mu.RLock()
	defer h.q.mu.RUnlock()
	if h.q.closed {
		h.q.drop(rec.Level)
		return nil
	}
	select {
	case h.q.ch <- pending{h: h.inner, rec: rec.Clone()}:
	default:
		h.q.drop(rec.Level)
	}
	return nil
}

// WithAttrs returns a handler writing through the same queue.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithAttrs(attrs), q: h.q}
}

// WithGroup returns a handler writing through the same queue.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithGroup(name), q: h.q}
}

// DroppedCount returns the number of dropped records.
func (h *AsyncHandler) DroppedCount() int64 {
	return h.q.dropped()
}

// Close stops accepting records and waits for the buffer to drain. If
// records were dropped, one summary with per-level counts is written
// synchronously. Calling Close again does nothing.
func (h *AsyncHandler) Close() {
	h.q.mu.Lock()
	if h.q.closed {
		h.q.mu.Unlock()
		return
	}
	h.q.closed = true
	close(h.q.ch)
	h.q.mu.Unlock()
	h.q.wg.Wait()

	if n := h.q.dropped(); n > 0 {
		rec := slog.NewRecord(time.Now(), slog.LevelWarn, "async logger dropped records", 0)
		rec.AddAttrs(
			slog.Int64("dropped", n),
			slog.Int64("dropped_info", h.q.droppedInfo.Load()),
			slog.Int64("dropped_warn", h.q.droppedWarn.Load()),
			slog.Int64("dropped_error", h.q.droppedError.Load()),
		)
		_ = h.inner.Handle(context.Background(), rec)
	}
}
