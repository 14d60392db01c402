package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Strob0t/ShopForge/internal/adapter/otel"
	"github.com/Strob0t/ShopForge/internal/adapter/ws"
	"github.com/Strob0t/ShopForge/internal/domain"
	"github.com/Strob0t/ShopForge/internal/domain/catalog"
	"github.com/Strob0t/ShopForge/internal/domain/seo"
	"github.com/Strob0t/ShopForge/internal/logger"
	"github.com/Strob0t/ShopForge/internal/port/broadcast"
	"github.com/Strob0t/ShopForge/internal/port/database"
	"github.com/Strob0t/ShopForge/internal/port/messagequeue"
)

// SEOService serves AI-generated SEO payloads. Every read returns a value:
// when the remote API fails the error is logged and a deterministic
// fallback built from catalog data is returned instead, and nothing is cached.
type SEOService struct {
	client  SEOClient
	catalog *CatalogService
	lookup  *Lookup
	site    seo.Site

	log      database.OptimizationLog
	queue    messagequeue.Queue
	events   broadcast.Broadcaster
	metrics  *otel.Metrics
	instance string
}

// NewSEOService creates an SEOService. catalog supplies the product data
// fallbacks are built from.
func NewSEOService(client SEOClient, catalog *CatalogService, lookup *Lookup, site seo.Site) *SEOService {
	return &SEOService{client: client, catalog: catalog, lookup: lookup, site: site}
}

// SetOptimizationLog enables persisting optimization attempts.
func (s *SEOService) SetOptimizationLog(l database.OptimizationLog) { s.log = l }

// SetQueue enables cross-instance events. instance tags published events so
// an instance can ignore its own.
func (s *SEOService) SetQueue(q messagequeue.Queue, instance string) {
	s.queue = q
	s.instance = instance
}

// SetBroadcaster enables pushing admin events to WebSocket clients.
func (s *SEOService) SetBroadcaster(b broadcast.Broadcaster) { s.events = b }

// SetMetrics attaches fallback counters.
func (s *SEOService) SetMetrics(m *otel.Metrics) { s.metrics = m }

// ProductMeta returns meta tags for a product.
func (s *SEOService) ProductMeta(ctx context.Context, productID string) seo.MetaTags {
	m, src, err := fetchCached(ctx, s.lookup, seo.MetaKey(productID), func(ctx context.Context) (*seo.MetaTags, error) {
		return s.client.ProductMeta(ctx, productID)
	})
	if err != nil {
		s.fallingBack(ctx, "product_meta", err, "product_id", productID)
		return seo.FallbackMeta(s.site, s.productOrPlaceholder(ctx, productID))
	}
	m.Source = src
	return m
}

// EnhancedDescription returns an AI-enhanced description for a product.
func (s *SEOService) EnhancedDescription(ctx context.Context, productID string) seo.Description {
	d, src, err := fetchCached(ctx, s.lookup, seo.DescriptionKey(productID), func(ctx context.Context) (*seo.Description, error) {
		p, err := s.catalog.Product(ctx, productID)
		if err != nil {
			return nil, err
		}
		return s.client.EnhanceDescription(ctx, productID, seo.DescriptionRequest{
			Title:       p.Title,
			Description: p.Description,
			Category:    p.Category,
			Price:       p.Price,
		})
	})
	if err != nil {
		s.fallingBack(ctx, "enhance_description", err, "product_id", productID)
		fb := seo.FallbackDescription(s.productOrPlaceholder(ctx, productID))
		fb.ProductID = productID
		return fb
	}
	d.Source = src
	return d
}

// PageMeta returns metadata for a listing page. Only an unknown page type
// is an error.
func (s *SEOService) PageMeta(ctx context.Context, pageType, categoryID string) (seo.PageMeta, error) {
	if !seo.ValidPageType(pageType) {
		return seo.PageMeta{}, fmt.Errorf("%w: unknown page type %q", domain.ErrValidation, pageType)
	}

	m, src, err := fetchCached(ctx, s.lookup, seo.PageKey(pageType, categoryID), func(ctx context.Context) (*seo.PageMeta, error) {
		return s.client.PageMeta(ctx, pageType, categoryID)
	})
	if err != nil {
		s.fallingBack(ctx, "page_meta", err, "page_type", pageType, "category_id", categoryID)
		return seo.FallbackPageMeta(s.site, pageType, s.categoryOrPlaceholder(ctx, categoryID)), nil
	}
	m.Source = src
	return m, nil
}

// OptimizationStatus reports whether a product has been optimized. It is
// never cached, since the admin console polls it after applying.
func (s *SEOService) OptimizationStatus(ctx context.Context, productID string) seo.OptimizationStatus {
	st, err := s.client.Status(ctx, productID)
	if err != nil {
		s.fallingBack(ctx, "optimization_status", err, "product_id", productID)
		return seo.FallbackStatus(productID)
	}
	return *st
}

// ApplyOptimization applies the pending optimization for a product. On
// success the product's cached payloads and the analytics summary are
// invalidated here and, through the queue, on every other instance.
func (s *SEOService) ApplyOptimization(ctx context.Context, productID string) seo.OptimizationResult {
	res, err := s.client.Apply(ctx, productID)
	var r seo.OptimizationResult
	if err != nil {
		s.fallingBack(ctx, "apply_optimization", err, "product_id", productID)
		r = seo.FallbackResult(productID, "optimization service unavailable")
	} else {
		r = *res
	}

	s.record(ctx, "", r)

	var keys []string
	if r.Applied {
		keys = append(seo.ProductKeys(productID), seo.AnalyticsKey)
		if err := s.lookup.Invalidate(ctx, keys...); err != nil {
			logger.From(ctx).Warn("invalidate after apply failed", "product_id", productID, "error", err)
		}
	}

	s.publish(ctx, messagequeue.SubjectOptimizationApplied, messagequeue.OptimizationAppliedPayload{
		ProductID: productID,
		Applied:   r.Applied,
		Score:     r.Score,
		Keys:      keys,
		Origin:    s.instance,
		AppliedAt: time.Now().UTC(),
	})
	s.broadcast(ctx, ws.EventOptimizationApplied, ws.OptimizationAppliedEvent{
		ProductID: productID, Applied: r.Applied, Score: r.Score,
	})
	return r
}

// Analytics returns the catalog-wide optimization summary, falling back to
// counts from the local optimization log.
func (s *SEOService) Analytics(ctx context.Context) seo.Analytics {
	a, src, err := fetchCached(ctx, s.lookup, seo.AnalyticsKey, func(ctx context.Context) (*seo.Analytics, error) {
		return s.client.Analytics(ctx)
	})
	if err != nil {
		s.fallingBack(ctx, "analytics", err)
		var st seo.LogStats
		if s.log != nil {
			if st, err = s.log.OptimizationStats(ctx); err != nil {
				logger.From(ctx).Warn("optimization stats unavailable", "error", err)
			}
		}
		return seo.FallbackAnalytics(st.OptimizedProducts, st.Products, st.AverageScore)
	}
	a.Source = src
	return a
}

// EstimateROI projects the return of optimizing the catalog.
func (s *SEOService) EstimateROI(ctx context.Context, req seo.ROIRequest) (seo.ROIEstimate, error) {
	if err := req.Validate(); err != nil {
		return seo.ROIEstimate{}, err
	}
	est, err := s.client.ROI(ctx, req)
	if err != nil {
		s.fallingBack(ctx, "roi", err)
		return seo.FallbackROI(req), nil
	}
	return *est, nil
}

// InvalidateKey drops one cache entry here and on every other instance.
func (s *SEOService) InvalidateKey(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("%w: cache key is required", domain.ErrValidation)
	}
	if err := s.lookup.Invalidate(ctx, key); err != nil {
		return fmt.Errorf("invalidate %s: %w", key, err)
	}
	s.publish(ctx, messagequeue.SubjectCacheInvalidated, messagequeue.CacheInvalidatedPayload{
		Keys: []string{key}, Origin: s.instance,
	})
	return nil
}

// History lists recorded optimization attempts, newest first.
func (s *SEOService) History(ctx context.Context, f seo.LogFilter) ([]seo.LogEntry, error) {
	if s.log == nil {
		return []seo.LogEntry{}, nil
	}
	f.Normalize()
	return s.log.ListOptimizations(ctx, f)
}

// HandleInvalidation is the queue handler for events from other instances
// that carry cache keys to drop.
func (s *SEOService) HandleInvalidation(ctx context.Context, subject string, data []byte) error {
	var (
		keys   []string
		origin string
	)
	switch subject {
	case messagequeue.SubjectOptimizationApplied:
		var p messagequeue.OptimizationAppliedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decode %s: %w", subject, err)
		}
		keys, origin = p.Keys, p.Origin
	case messagequeue.SubjectBatchCompleted:
		var p messagequeue.BatchCompletedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decode %s: %w", subject, err)
		}
		keys, origin = p.Keys, p.Origin
	case messagequeue.SubjectCacheInvalidated:
		var p messagequeue.CacheInvalidatedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decode %s: %w", subject, err)
		}
		keys, origin = p.Keys, p.Origin
	default:
		return nil
	}

	if origin != "" && origin == s.instance {
		return nil
	}
	if len(keys) == 0 {
		return nil
	}
	logger.From(ctx).Debug("invalidating keys from peer", "subject", subject, "origin", origin, "keys", len(keys))
	return s.lookup.Invalidate(ctx, keys...)
}

// record persists one optimization attempt. Failures are logged only.
func (s *SEOService) record(ctx context.Context, batchID string, r seo.OptimizationResult) {
	if s.log == nil {
		return
	}
	e := &seo.LogEntry{
		ProductID: r.ProductID,
		BatchID:   batchID,
		Applied:   r.Applied,
		Score:     r.Score,
		Source:    r.Source,
		Message:   r.Message,
	}
	if err := s.log.RecordOptimization(ctx, e); err != nil {
		logger.From(ctx).Warn("record optimization failed", "product_id", r.ProductID, "error", err)
	}
}

func (s *SEOService) publish(ctx context.Context, subject string, payload any) {
	if s.queue == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		logger.From(ctx).Error("marshal event failed", "subject", subject, "error", err)
		return
	}
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		logger.From(ctx).Warn("publish event failed", "subject", subject, "error", err)
	}
}

func (s *SEOService) broadcast(ctx context.Context, eventType string, payload any) {
	if s.events != nil {
		s.events.BroadcastEvent(ctx, eventType, payload)
	}
}

// fallingBack logs a remote failure that is about to be replaced by a fallback.
func (s *SEOService) fallingBack(ctx context.Context, operation string, err error, attrs ...any) {
	s.metrics.Fallback(ctx, operation)
	args := append([]any{"operation", operation, "error", err}, attrs...)
	if errors.Is(err, context.Canceled) {
		logger.From(ctx).Debug("seo request canceled, using fallback", args...)
		return
	}
	logger.From(ctx).Warn("seo remote call failed, using fallback", args...)
}

// productOrPlaceholder loads the product for fallback copy, or a stand-in
// carrying only the id when the catalog is unavailable too.
func (s *SEOService) productOrPlaceholder(ctx context.Context, productID string) *catalog.Product {
	if p, err := s.catalog.Product(ctx, productID); err == nil {
		return p
	}
	n, _ := strconv.Atoi(productID)
	return &catalog.Product{ID: n, Title: "Product " + productID}
}

func (s *SEOService) categoryOrPlaceholder(ctx context.Context, slug string) *catalog.Category {
	if slug == "" {
		return nil
	}
	if c, err := s.catalog.Category(ctx, slug); err == nil {
		return c
	}
	return &catalog.Category{Slug: slug}
}
