package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	sfhttp "github.com/Strob0t/ShopForge/internal/adapter/http"
	"github.com/Strob0t/ShopForge/internal/adapter/timed"
	"github.com/Strob0t/ShopForge/internal/domain"
	"github.com/Strob0t/ShopForge/internal/domain/catalog"
	"github.com/Strob0t/ShopForge/internal/domain/seo"
	"github.com/Strob0t/ShopForge/internal/middleware"
	"github.com/Strob0t/ShopForge/internal/resilience"
	"github.com/Strob0t/ShopForge/internal/service"
	"github.com/Strob0t/ShopForge/internal/workpool"
)

const adminKey = "test-admin-key"

type fakeCatalog struct {
	err error
}

func (f *fakeCatalog) ListProducts(_ context.Context, category string, limit, skip int) (*catalog.ProductPage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &catalog.ProductPage{
		Products: []catalog.Product{{ID: 42, Title: "Essence Mascara", Category: "beauty"}},
		Total:    1, Limit: limit, Skip: skip,
	}, nil
}

func (f *fakeCatalog) GetProduct(_ context.Context, id string) (*catalog.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	if id != "42" {
		return nil, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	return &catalog.Product{ID: 42, Title: "Essence Mascara", Price: 9.99, Category: "beauty"}, nil
}

func (f *fakeCatalog) ListCategories(context.Context) ([]catalog.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []catalog.Category{{Slug: "beauty", Name: "Beauty"}}, nil
}

// fakeSEO fails every call when down is set.
type fakeSEO struct {
	down bool
}

var errDown = fmt.Errorf("seo api: %w", domain.ErrUpstream)

func (f *fakeSEO) ProductMeta(_ context.Context, id string) (*seo.MetaTags, error) {
	if f.down {
		return nil, errDown
	}
	return &seo.MetaTags{Title: "AI " + id}, nil
}

func (f *fakeSEO) EnhanceDescription(_ context.Context, id string, in seo.DescriptionRequest) (*seo.Description, error) {
	if f.down {
		return nil, errDown
	}
	return &seo.Description{ProductID: id, Text: "Better " + in.Title}, nil
}

func (f *fakeSEO) PageMeta(_ context.Context, pageType, cat string) (*seo.PageMeta, error) {
	if f.down {
		return nil, errDown
	}
	return &seo.PageMeta{PageType: pageType, CategoryID: cat, Title: "AI page"}, nil
}

func (f *fakeSEO) Status(_ context.Context, id string) (*seo.OptimizationStatus, error) {
	if f.down {
		return nil, errDown
	}
	return &seo.OptimizationStatus{ProductID: id, Optimized: true, Score: 90}, nil
}

func (f *fakeSEO) Apply(_ context.Context, id string) (*seo.OptimizationResult, error) {
	if f.down {
		return nil, errDown
	}
	return &seo.OptimizationResult{ProductID: id, Applied: true, Score: 90}, nil
}

func (f *fakeSEO) Batch(_ context.Context, ids []string) ([]seo.OptimizationResult, error) {
	if f.down {
		return nil, errDown
	}
	out := make([]seo.OptimizationResult, len(ids))
	for i, id := range ids {
		out[i] = seo.OptimizationResult{ProductID: id, Applied: true}
	}
	return out, nil
}

func (f *fakeSEO) Analytics(context.Context) (*seo.Analytics, error) {
	if f.down {
		return nil, errDown
	}
	return &seo.Analytics{OptimizedProducts: 3, TotalProducts: 10}, nil
}

func (f *fakeSEO) ROI(_ context.Context, req seo.ROIRequest) (*seo.ROIEstimate, error) {
	if f.down {
		return nil, errDown
	}
	return &seo.ROIEstimate{ProjectedRevenue: req.MonthlyRevenue}, nil
}

type testServer struct {
	router  chi.Router
	catalog *fakeCatalog
	seo     *fakeSEO
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(adminKey), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	cache := timed.New(24 * time.Hour)
	lookup := service.NewLookup(cache, 0)
	ts := &testServer{catalog: &fakeCatalog{}, seo: &fakeSEO{}}

	catalogSvc := service.NewCatalogService(ts.catalog, lookup)
	seoSvc := service.NewSEOService(ts.seo, catalogSvc, lookup, seo.Site{Name: "ShopForge"})
	batchSvc := service.NewBatchService(ts.seo, seoSvc, workpool.New(2), 10, 20)
	t.Cleanup(batchSvc.Close)

	r := chi.NewRouter()
	sfhttp.MountRoutes(r, &sfhttp.Handlers{
		Catalog:   catalogSvc,
		SEO:       seoSvc,
		Batch:     batchSvc,
		BodyLimit: 1 << 10,
	}, middleware.NewAdminAuth(string(hash)), middleware.Idempotency(cache, time.Hour))
	ts.router = r
	return ts
}

func (ts *testServer) do(method, path, body string, admin bool) *httptest.ResponseRecorder {
	var rdr *bytes.Reader
	if body != "" {
		rdr = bytes.NewReader([]byte(body))
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	if admin {
		req.Header.Set("X-API-Key", adminKey)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestStorefrontRoutes(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"product", "/api/v1/products/42", http.StatusOK},
		{"product bad id", "/api/v1/products/abc", http.StatusBadRequest},
		{"product missing", "/api/v1/products/999", http.StatusNotFound},
		{"list", "/api/v1/products?limit=5&skip=0", http.StatusOK},
		{"list bad limit", "/api/v1/products?limit=x", http.StatusBadRequest},
		{"categories", "/api/v1/categories", http.StatusOK},
		{"meta", "/api/v1/products/42/meta", http.StatusOK},
		{"description", "/api/v1/products/42/description", http.StatusOK},
		{"page meta", "/api/v1/pages/category/meta?category_id=beauty", http.StatusOK},
		{"page meta bad type", "/api/v1/pages/checkout/meta", http.StatusBadRequest},
		{"unknown route", "/api/v1/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodGet, tt.path, "", false)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
				t.Errorf("content type = %q", ct)
			}
		})
	}
}

func TestSEORoutesFallBackWhenRemoteIsDown(t *testing.T) {
	ts := newTestServer(t)
	ts.seo.down = true

	rec := ts.do(http.MethodGet, "/api/v1/products/42/meta", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	m := decode[seo.MetaTags](t, rec)
	if m.Source != seo.SourceFallback || !strings.HasPrefix(m.Title, "Essence Mascara") {
		t.Errorf("got %+v", m)
	}

	rec = ts.do(http.MethodGet, "/api/v1/pages/home/meta", "", false)
	if p := decode[seo.PageMeta](t, rec); rec.Code != http.StatusOK || p.Source != seo.SourceFallback {
		t.Errorf("page meta = %d %+v", rec.Code, p)
	}
}

func TestCatalogErrorsMapToGatewayStatuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"upstream", fmt.Errorf("commerce: %w", domain.ErrUpstream), http.StatusBadGateway},
		{"circuit open", fmt.Errorf("commerce: %w: %w", domain.ErrUpstream, resilience.ErrCircuitOpen), http.StatusServiceUnavailable},
		{"unexpected", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.catalog.err = tt.err
			if rec := ts.do(http.MethodGet, "/api/v1/products", "", false); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestAdminRoutesRequireKey(t *testing.T) {
	ts := newTestServer(t)
	if rec := ts.do(http.MethodGet, "/api/v1/admin/seo/analytics", "", false); rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if rec := ts.do(http.MethodGet, "/api/v1/admin/seo/analytics", "", true); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAdminRoutes(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"status", http.MethodGet, "/api/v1/admin/seo/products/42/status", "", http.StatusOK},
		{"apply", http.MethodPost, "/api/v1/admin/seo/products/42/apply", "", http.StatusOK},
		{"roi", http.MethodPost, "/api/v1/admin/seo/roi", `{"monthly_revenue":1000,"product_count":5,"uplift_pct":10}`, http.StatusOK},
		{"roi invalid", http.MethodPost, "/api/v1/admin/seo/roi", `{"monthly_revenue":-1}`, http.StatusBadRequest},
		{"roi malformed", http.MethodPost, "/api/v1/admin/seo/roi", `{`, http.StatusBadRequest},
		{"roi too large", http.MethodPost, "/api/v1/admin/seo/roi", `{"x":"` + strings.Repeat("a", 2048) + `"}`, http.StatusRequestEntityTooLarge},
		{"batch empty", http.MethodPost, "/api/v1/admin/seo/batch", `{"product_ids":[]}`, http.StatusBadRequest},
		{"batch unknown", http.MethodGet, "/api/v1/admin/seo/batch/nope", "", http.StatusNotFound},
		{"history", http.MethodGet, "/api/v1/admin/seo/history?limit=10", "", http.StatusOK},
		{"invalidate", http.MethodDelete, "/api/v1/admin/seo/cache/meta_42", "", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(tt.method, tt.path, tt.body, true)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestBatchLifecycle(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/v1/admin/seo/batch", `{"product_ids":["1","2","3"]}`, true)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	job := decode[seo.BatchJob](t, rec)
	if loc := rec.Header().Get("Location"); loc != "/api/v1/admin/seo/batch/"+job.ID {
		t.Errorf("location = %q", loc)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec = ts.do(http.MethodGet, "/api/v1/admin/seo/batch/"+job.ID, "", true)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		got := decode[seo.BatchJob](t, rec)
		if got.Status == seo.BatchCompleted {
			if got.Applied != 3 {
				t.Errorf("applied = %d, want 3", got.Applied)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("batch did not complete")
}

func TestHealth(t *testing.T) {
	b := resilience.NewBreaker("seoapi", 1, time.Minute)
	h := &sfhttp.Health{CacheBackend: "memory", Breakers: []*resilience.Breaker{b}}

	get := func() map[string]any {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		return decode[map[string]any](t, rec)
	}

	body := get()
	if body["status"] != "ok" || body["nats"] != "disabled" || body["postgres"] != "disabled" {
		t.Errorf("healthy body = %v", body)
	}

	_ = b.Execute(func() error { return fmt.Errorf("down") })
	body = get()
	if body["status"] != "degraded" {
		t.Errorf("status = %v, want degraded", body["status"])
	}
	if br, _ := body["breakers"].(map[string]any); br["seoapi"] != "open" {
		t.Errorf("breakers = %v", body["breakers"])
	}
}
