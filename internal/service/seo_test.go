package service

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/Strob0t/ShopForge/internal/adapter/ws"
	"github.com/Strob0t/ShopForge/internal/domain"
	"github.com/Strob0t/ShopForge/internal/domain/seo"
	"github.com/Strob0t/ShopForge/internal/port/messagequeue"
)

func TestProductMeta_RemoteThenCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.seoSvc.ProductMeta(ctx, "42")
	if first.Source != seo.SourceRemote || first.Title != "AI title 42" {
		t.Fatalf("first call: got %+v", first)
	}
	second := env.seoSvc.ProductMeta(ctx, "42")
	if second.Source != seo.SourceCache || second.Title != first.Title {
		t.Fatalf("second call: got %+v", second)
	}
	if n := env.remote.metaCalls.Load(); n != 1 {
		t.Errorf("remote called %d times, want 1", n)
	}
}

func TestProductMeta_FailureReturnsFallbackAndCachesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.remote.setErr(errRemote)

	m := env.seoSvc.ProductMeta(context.Background(), "42")
	if m.Source != seo.SourceFallback {
		t.Fatalf("source = %s, want fallback", m.Source)
	}
	if !strings.HasPrefix(m.Title, "Essence Mascara") {
		t.Errorf("fallback title %q should come from the catalog product", m.Title)
	}
	if m.CanonicalURL != "https://shop.example/products/42" {
		t.Errorf("canonical = %q", m.CanonicalURL)
	}
	if env.cached(t, seo.MetaKey("42")) {
		t.Error("failed remote fetch must not populate the cache")
	}

	// Recovery: the next call reaches the remote again.
	env.remote.setErr(nil)
	if m := env.seoSvc.ProductMeta(context.Background(), "42"); m.Source != seo.SourceRemote {
		t.Errorf("after recovery source = %s, want remote", m.Source)
	}
}

func TestProductMeta_FallbackWithoutCatalog(t *testing.T) {
	env := newTestEnv(t)
	env.remote.setErr(errRemote)
	env.catalog.err = errRemote

	m := env.seoSvc.ProductMeta(context.Background(), "42")
	if m.Source != seo.SourceFallback {
		t.Fatalf("source = %s", m.Source)
	}
	if !strings.HasPrefix(m.Title, "Product 42") {
		t.Errorf("placeholder title = %q", m.Title)
	}
}

func TestEnhancedDescription_SendsCatalogCopy(t *testing.T) {
	env := newTestEnv(t)

	d := env.seoSvc.EnhancedDescription(context.Background(), "42")
	if d.Source != seo.SourceRemote || d.Text != "Enhanced: Essence Mascara" {
		t.Fatalf("got %+v", d)
	}
	if len(env.remote.descReqs) != 1 {
		t.Fatalf("got %d requests", len(env.remote.descReqs))
	}
	req := env.remote.descReqs[0]
	if req.Title != "Essence Mascara" || req.Price != 9.99 || req.Category != "beauty" {
		t.Errorf("request = %+v", req)
	}
}

func TestEnhancedDescription_Fallbacks(t *testing.T) {
	tests := []struct {
		name      string
		productID string
		remoteErr error
		wantText  string
	}{
		{"remote down", "42", errRemote, "Discover the Essence Mascara"},
		{"unknown product", "999", nil, "Discover the Product 999"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.remote.setErr(tt.remoteErr)

			d := env.seoSvc.EnhancedDescription(context.Background(), tt.productID)
			if d.Source != seo.SourceFallback {
				t.Fatalf("source = %s", d.Source)
			}
			if d.ProductID != tt.productID {
				t.Errorf("product id = %q, want %q", d.ProductID, tt.productID)
			}
			if !strings.HasPrefix(d.Text, tt.wantText) {
				t.Errorf("text = %q, want prefix %q", d.Text, tt.wantText)
			}
			if env.cached(t, seo.DescriptionKey(tt.productID)) {
				t.Error("fallback must not be cached")
			}
		})
	}
}

func TestPageMeta(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.seoSvc.PageMeta(ctx, "checkout", ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("unknown page type: got %v, want ErrValidation", err)
	}

	m, err := env.seoSvc.PageMeta(ctx, seo.PageCategory, "beauty")
	if err != nil {
		t.Fatal(err)
	}
	if m.Source != seo.SourceRemote {
		t.Errorf("source = %s", m.Source)
	}
	if !env.cached(t, seo.PageKey(seo.PageCategory, "beauty")) {
		t.Error("page meta should be cached")
	}
}

func TestPageMeta_Fallback(t *testing.T) {
	env := newTestEnv(t)
	env.remote.setErr(errRemote)
	ctx := context.Background()

	m, err := env.seoSvc.PageMeta(ctx, seo.PageCategory, "beauty")
	if err != nil {
		t.Fatalf("fallback must not error: %v", err)
	}
	if m.Source != seo.SourceFallback || m.Title != "Beauty | ShopForge" {
		t.Errorf("got %+v", m)
	}

	m, _ = env.seoSvc.PageMeta(ctx, seo.PageCategory, "garden-tools")
	if m.Title != "Garden Tools | ShopForge" {
		t.Errorf("unknown category title = %q", m.Title)
	}
}

func TestOptimizationStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	st := env.seoSvc.OptimizationStatus(ctx, "42")
	if !st.Optimized || st.Source != seo.SourceRemote {
		t.Errorf("got %+v", st)
	}

	env.remote.setErr(errRemote)
	st = env.seoSvc.OptimizationStatus(ctx, "42")
	if st.Optimized || st.Score != 0 || st.Source != seo.SourceFallback {
		t.Errorf("fallback = %+v", st)
	}
}

func TestApplyOptimization_InvalidatesRecordsAndPublishes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, k := range []string{seo.MetaKey("42"), seo.DescriptionKey("42"), seo.AnalyticsKey, seo.MetaKey("7")} {
		_ = env.cache.Set(ctx, k, []byte(`{}`), 0)
	}

	r := env.seoSvc.ApplyOptimization(ctx, "42")
	if !r.Applied || r.Score != 91 {
		t.Fatalf("got %+v", r)
	}

	for _, k := range []string{seo.MetaKey("42"), seo.DescriptionKey("42"), seo.AnalyticsKey} {
		if env.cached(t, k) {
			t.Errorf("%s should be invalidated", k)
		}
	}
	if !env.cached(t, seo.MetaKey("7")) {
		t.Error("unrelated key was invalidated")
	}

	entries := env.log.all()
	if len(entries) != 1 || entries[0].ProductID != "42" || !entries[0].Applied {
		t.Errorf("log entries = %+v", entries)
	}

	msgs := env.queue.messages()
	if len(msgs) != 1 || msgs[0].subject != messagequeue.SubjectOptimizationApplied {
		t.Fatalf("published = %+v", msgs)
	}
	var p messagequeue.OptimizationAppliedPayload
	if err := json.Unmarshal(msgs[0].data, &p); err != nil {
		t.Fatal(err)
	}
	if p.Origin != "instance-a" || !slices.Contains(p.Keys, seo.MetaKey("42")) {
		t.Errorf("payload = %+v", p)
	}
	if err := messagequeue.Validate(msgs[0].subject, msgs[0].data); err != nil {
		t.Errorf("published payload fails validation: %v", err)
	}

	if n := env.events.count(ws.EventOptimizationApplied); n != 1 {
		t.Errorf("got %d broadcast events, want 1", n)
	}
}

func TestApplyOptimization_FailureKeepsCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_ = env.cache.Set(ctx, seo.MetaKey("42"), []byte(`{}`), 0)
	env.remote.setErr(errRemote)

	r := env.seoSvc.ApplyOptimization(ctx, "42")
	if r.Applied || r.Source != seo.SourceFallback {
		t.Fatalf("got %+v", r)
	}
	if !env.cached(t, seo.MetaKey("42")) {
		t.Error("cache must survive a failed apply")
	}
	if entries := env.log.all(); len(entries) != 1 || entries[0].Applied {
		t.Errorf("failed attempt should still be logged: %+v", entries)
	}
}

func TestAnalytics(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.seoSvc.Analytics(ctx)
	if a.Source != seo.SourceRemote || a.TotalProducts != 100 {
		t.Fatalf("got %+v", a)
	}
	if a = env.seoSvc.Analytics(ctx); a.Source != seo.SourceCache {
		t.Errorf("second call source = %s", a.Source)
	}
}

func TestAnalytics_FallbackFromLog(t *testing.T) {
	env := newTestEnv(t)
	env.remote.setErr(errRemote)
	env.log.stats = seo.LogStats{Products: 10, OptimizedProducts: 4, AverageScore: 70.456}

	a := env.seoSvc.Analytics(context.Background())
	if a.Source != seo.SourceFallback {
		t.Fatalf("source = %s", a.Source)
	}
	if a.OptimizedProducts != 4 || a.TotalProducts != 10 || a.AverageScore != 70.46 {
		t.Errorf("got %+v", a)
	}
	if env.cached(t, seo.AnalyticsKey) {
		t.Error("fallback analytics must not be cached")
	}
}

func TestEstimateROI(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.seoSvc.EstimateROI(ctx, seo.ROIRequest{MonthlyRevenue: -1}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
	if n := env.remote.roiCalls.Load(); n != 0 {
		t.Errorf("invalid request reached the remote %d times", n)
	}

	req := seo.ROIRequest{MonthlyRevenue: 1000, ProductCount: 10, UpliftPct: 10, CostPerProduct: 5}
	est, err := env.seoSvc.EstimateROI(ctx, req)
	if err != nil || est.Source != seo.SourceRemote {
		t.Fatalf("got %+v, %v", est, err)
	}

	env.remote.setErr(errRemote)
	est, err = env.seoSvc.EstimateROI(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if est.Source != seo.SourceFallback || est.ROIPercent != 2300 {
		t.Errorf("fallback = %+v", est)
	}
}

func TestInvalidateKey(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_ = env.cache.Set(ctx, "meta_1", []byte(`{}`), 0)

	if err := env.seoSvc.InvalidateKey(ctx, ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("empty key: got %v", err)
	}
	if err := env.seoSvc.InvalidateKey(ctx, "meta_1"); err != nil {
		t.Fatal(err)
	}
	if env.cached(t, "meta_1") {
		t.Error("key still cached")
	}
	msgs := env.queue.messages()
	if len(msgs) != 1 || msgs[0].subject != messagequeue.SubjectCacheInvalidated {
		t.Errorf("published = %+v", msgs)
	}
}

func TestHandleInvalidation(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		payload any
		evicted bool
	}{
		{
			name:    "peer apply",
			subject: messagequeue.SubjectOptimizationApplied,
			payload: messagequeue.OptimizationAppliedPayload{ProductID: "1", Applied: true, Keys: []string{"meta_1"}, Origin: "instance-b"},
			evicted: true,
		},
		{
			name:    "own apply",
			subject: messagequeue.SubjectOptimizationApplied,
			payload: messagequeue.OptimizationAppliedPayload{ProductID: "1", Applied: true, Keys: []string{"meta_1"}, Origin: "instance-a"},
			evicted: false,
		},
		{
			name:    "peer batch",
			subject: messagequeue.SubjectBatchCompleted,
			payload: messagequeue.BatchCompletedPayload{BatchID: "b", Keys: []string{"meta_1"}, Origin: "instance-b"},
			evicted: true,
		},
		{
			name:    "peer invalidation",
			subject: messagequeue.SubjectCacheInvalidated,
			payload: messagequeue.CacheInvalidatedPayload{Keys: []string{"meta_1"}, Origin: "instance-b"},
			evicted: true,
		},
		{
			name:    "unrelated subject",
			subject: "seo.other",
			payload: map[string]any{"keys": []string{"meta_1"}},
			evicted: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			_ = env.cache.Set(ctx, "meta_1", []byte(`{}`), 0)

			data, _ := json.Marshal(tt.payload)
			if err := env.seoSvc.HandleInvalidation(ctx, tt.subject, data); err != nil {
				t.Fatal(err)
			}
			if got := !env.cached(t, "meta_1"); got != tt.evicted {
				t.Errorf("evicted = %v, want %v", got, tt.evicted)
			}
		})
	}
}

func TestHandleInvalidation_BadPayload(t *testing.T) {
	env := newTestEnv(t)
	if err := env.seoSvc.HandleInvalidation(context.Background(), messagequeue.SubjectCacheInvalidated, []byte("{")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seoSvc.ApplyOptimization(ctx, "42")

	entries, err := env.seoSvc.History(ctx, seo.LogFilter{ProductID: "42"})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d entries", len(entries))
	}
	if env.log.lastList.Limit != seo.DefaultLogLimit {
		t.Errorf("filter not normalized: %+v", env.log.lastList)
	}

	bare := NewSEOService(env.remote, env.catalogSvc, NewLookup(env.cache, 0), seo.Site{})
	entries, err = bare.History(ctx, seo.LogFilter{})
	if err != nil || entries == nil || len(entries) != 0 {
		t.Errorf("without a log: got %v, %v", entries, err)
	}
}
