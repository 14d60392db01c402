package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "shopforge"

// Metrics holds the gateway's instruments. A nil *Metrics records nothing.
type Metrics struct {
	CacheHits       metric.Int64Counter
	CacheMisses     metric.Int64Counter
	Fallbacks       metric.Int64Counter
	UpstreamLatency metric.Float64Histogram
	BatchProducts   metric.Int64Counter
}

// NewMetrics creates the instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.CacheHits, err = meter.Int64Counter("shopforge.cache.hits",
		metric.WithDescription("Cache lookups answered from the cache"))
	if err != nil {
		return nil, err
	}

	m.CacheMisses, err = meter.Int64Counter("shopforge.cache.misses",
		metric.WithDescription("Cache lookups that went to the remote service"))
	if err != nil {
		return nil, err
	}

	m.Fallbacks, err = meter.Int64Counter("shopforge.seo.fallbacks",
		metric.WithDescription("SEO responses replaced by a local fallback"))
	if err != nil {
		return nil, err
	}

	m.UpstreamLatency, err = meter.Float64Histogram("shopforge.upstream.duration_seconds",
		metric.WithDescription("Remote API call duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	m.BatchProducts, err = meter.Int64Counter("shopforge.batch.products",
		metric.WithDescription("Products processed by batch optimization"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// CacheHit counts a hit for the given key kind (meta, desc, page, ...).
func (m *Metrics) CacheHit(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.CacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// CacheMiss counts a miss for the given key kind.
func (m *Metrics) CacheMiss(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.CacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// Fallback counts an SEO operation answered by its fallback.
func (m *Metrics) Fallback(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.Fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

// Upstream records the duration of a remote call.
func (m *Metrics) Upstream(ctx context.Context, service, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.UpstreamLatency.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("operation", operation),
		attribute.Bool("error", err != nil),
	))
}

// BatchProduct counts one batch result.
func (m *Metrics) BatchProduct(ctx context.Context, applied bool) {
	if m == nil {
		return
	}
	m.BatchProducts.Add(ctx, 1, metric.WithAttributes(attribute.Bool("applied", applied)))
}
