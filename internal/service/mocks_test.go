package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/Strob0t/ShopForge/internal/domain"
	"github.com/Strob0t/ShopForge/internal/domain/catalog"
	"github.com/Strob0t/ShopForge/internal/domain/seo"
	"github.com/Strob0t/ShopForge/internal/port/broadcast"
	"github.com/Strob0t/ShopForge/internal/port/database"
	"github.com/Strob0t/ShopForge/internal/port/messagequeue"
)

var (
	_ CatalogClient            = (*mockCatalog)(nil)
	_ SEOClient                = (*mockSEO)(nil)
	_ database.OptimizationLog = (*mockLog)(nil)
	_ messagequeue.Queue       = (*mockQueue)(nil)
	_ broadcast.Broadcaster    = (*mockBroadcaster)(nil)
)

var errRemote = errors.New("remote down")

// mockCatalog serves products from a map keyed by id.
type mockCatalog struct {
	products   map[string]catalog.Product
	categories []catalog.Category
	err        error
	gets       atomic.Int32
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		products: map[string]catalog.Product{
			"42": {ID: 42, Title: "Essence Mascara", Description: "Volumizing mascara. Lasts all day.", Price: 9.99, Category: "beauty", Brand: "Essence"},
			"7":  {ID: 7, Title: "Chanel Coco Noir", Price: 129.99, Category: "fragrances"},
		},
		categories: []catalog.Category{
			{Slug: "beauty", Name: "Beauty"},
			{Slug: "mens-shirts", Name: "Mens Shirts"},
		},
	}
}

func (m *mockCatalog) ListProducts(_ context.Context, category string, limit, skip int) (*catalog.ProductPage, error) {
	if m.err != nil {
		return nil, m.err
	}
	page := &catalog.ProductPage{Limit: limit, Skip: skip}
	for _, p := range m.products {
		if category == "" || p.Category == category {
			page.Products = append(page.Products, p)
		}
	}
	page.Total = len(page.Products)
	return page, nil
}

func (m *mockCatalog) GetProduct(_ context.Context, id string) (*catalog.Product, error) {
	m.gets.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *mockCatalog) ListCategories(context.Context) ([]catalog.Category, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.categories, nil
}

// mockSEO answers every call with fixed payloads unless err is set.
// batchFn overrides Batch when set.
type mockSEO struct {
	mu       sync.Mutex
	err      error
	descReqs []seo.DescriptionRequest
	batchFn  func(ids []string) ([]seo.OptimizationResult, error)

	metaCalls  atomic.Int32
	applyCalls atomic.Int32
	roiCalls   atomic.Int32
}

func (m *mockSEO) fail() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *mockSEO) setErr(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *mockSEO) ProductMeta(_ context.Context, id string) (*seo.MetaTags, error) {
	m.metaCalls.Add(1)
	if err := m.fail(); err != nil {
		return nil, err
	}
	return &seo.MetaTags{Title: "AI title " + id, Description: "AI description", Keywords: []string{"ai"}, Source: seo.SourceRemote}, nil
}

func (m *mockSEO) EnhanceDescription(_ context.Context, id string, in seo.DescriptionRequest) (*seo.Description, error) {
	m.mu.Lock()
	m.descReqs = append(m.descReqs, in)
	m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	return &seo.Description{ProductID: id, Text: "Enhanced: " + in.Title, Source: seo.SourceRemote}, nil
}

func (m *mockSEO) PageMeta(_ context.Context, pageType, categoryID string) (*seo.PageMeta, error) {
	if err := m.fail(); err != nil {
		return nil, err
	}
	return &seo.PageMeta{PageType: pageType, CategoryID: categoryID, Title: "AI page", Source: seo.SourceRemote}, nil
}

func (m *mockSEO) Status(_ context.Context, id string) (*seo.OptimizationStatus, error) {
	if err := m.fail(); err != nil {
		return nil, err
	}
	return &seo.OptimizationStatus{ProductID: id, Optimized: true, Score: 88, Source: seo.SourceRemote}, nil
}

func (m *mockSEO) Apply(_ context.Context, id string) (*seo.OptimizationResult, error) {
	m.applyCalls.Add(1)
	if err := m.fail(); err != nil {
		return nil, err
	}
	return &seo.OptimizationResult{ProductID: id, Applied: true, Score: 91, Source: seo.SourceRemote}, nil
}

func (m *mockSEO) Batch(_ context.Context, ids []string) ([]seo.OptimizationResult, error) {
	if m.batchFn != nil {
		return m.batchFn(ids)
	}
	if err := m.fail(); err != nil {
		return nil, err
	}
	out := make([]seo.OptimizationResult, len(ids))
	for i, id := range ids {
		out[i] = seo.OptimizationResult{ProductID: id, Applied: true, Score: 80, Source: seo.SourceRemote}
	}
	return out, nil
}

func (m *mockSEO) Analytics(context.Context) (*seo.Analytics, error) {
	if err := m.fail(); err != nil {
		return nil, err
	}
	return &seo.Analytics{OptimizedProducts: 12, TotalProducts: 100, AverageScore: 77.5, Source: seo.SourceRemote}, nil
}

func (m *mockSEO) ROI(_ context.Context, req seo.ROIRequest) (*seo.ROIEstimate, error) {
	m.roiCalls.Add(1)
	if err := m.fail(); err != nil {
		return nil, err
	}
	return &seo.ROIEstimate{ProjectedRevenue: req.MonthlyRevenue * 2, Source: seo.SourceRemote}, nil
}

// mockLog is an in-memory optimization log.
type mockLog struct {
	mu       sync.Mutex
	entries  []seo.LogEntry
	stats    seo.LogStats
	statsErr error
	lastList seo.LogFilter
}

func (m *mockLog) RecordOptimization(_ context.Context, e *seo.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, *e)
	return nil
}

func (m *mockLog) ListOptimizations(_ context.Context, f seo.LogFilter) ([]seo.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastList = f
	return append([]seo.LogEntry(nil), m.entries...), nil
}

func (m *mockLog) OptimizationStats(context.Context) (seo.LogStats, error) {
	return m.stats, m.statsErr
}

func (m *mockLog) all() []seo.LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]seo.LogEntry(nil), m.entries...)
}

type publishedMsg struct {
	subject string
	data    []byte
}

type mockQueue struct {
	mu         sync.Mutex
	published  []publishedMsg
	publishErr error
}

func (q *mockQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.publishErr != nil {
		return q.publishErr
	}
	q.published = append(q.published, publishedMsg{subject, data})
	return nil
}

func (q *mockQueue) Subscribe(context.Context, string, messagequeue.Handler) (func(), error) {
	return func() {}, nil
}
func (q *mockQueue) Close() error      { return nil }
func (q *mockQueue) IsConnected() bool { return true }

func (q *mockQueue) messages() []publishedMsg {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]publishedMsg(nil), q.published...)
}

type mockEvent struct {
	eventType string
	payload   any
}

type mockBroadcaster struct {
	mu     sync.Mutex
	events []mockEvent
}

func (m *mockBroadcaster) BroadcastEvent(_ context.Context, eventType string, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, mockEvent{eventType: eventType, payload: payload})
}

func (m *mockBroadcaster) count(eventType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.eventType == eventType {
			n++
		}
	}
	return n
}

func ids(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(i + 1)
	}
	return out
}
