package commerce_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Strob0t/ShopForge/internal/adapter/commerce"
	"github.com/Strob0t/ShopForge/internal/domain"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "2" || r.URL.Query().Get("skip") != "4" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"products":[{"id":5,"title":"Phone","price":10}],"total":100,"skip":4,"limit":2}`))
	})
	mux.HandleFunc("GET /products/category/{slug}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("slug") != "smartphones" {
			t.Errorf("unexpected slug %s", r.PathValue("slug"))
		}
		_, _ = w.Write([]byte(`{"products":[{"id":7,"title":"iPhone","category":"smartphones"}],"total":1,"skip":0,"limit":30}`))
	})
	mux.HandleFunc("GET /products/categories", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"slug":"beauty","name":"Beauty","url":"https://x/beauty"}]`))
	})
	mux.HandleFunc("GET /products/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "1" {
			http.Error(w, `{"message":"Product not found"}`, http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"id":1,"title":"Essence Mascara","price":9.99,"category":"beauty","stock":5}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestListProducts(t *testing.T) {
	c := commerce.NewClient(newTestServer(t).URL, 5*time.Second)

	page, err := c.ListProducts(context.Background(), "", 2, 4)
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if page.Total != 100 || len(page.Products) != 1 || page.Products[0].ID != 5 {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestListProductsByCategory(t *testing.T) {
	c := commerce.NewClient(newTestServer(t).URL, 5*time.Second)

	page, err := c.ListProducts(context.Background(), "smartphones", 30, 0)
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if len(page.Products) != 1 || page.Products[0].Category != "smartphones" {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestGetProduct(t *testing.T) {
	c := commerce.NewClient(newTestServer(t).URL, 5*time.Second)

	p, err := c.GetProduct(context.Background(), "1")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if p.Title != "Essence Mascara" || p.Price != 9.99 {
		t.Fatalf("unexpected product: %+v", p)
	}
}

func TestGetProductNotFound(t *testing.T) {
	c := commerce.NewClient(newTestServer(t).URL, 5*time.Second)

	_, err := c.GetProduct(context.Background(), "999")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListCategories(t *testing.T) {
	c := commerce.NewClient(newTestServer(t).URL, 5*time.Second)

	cats, err := c.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(cats) != 1 || cats[0].Slug != "beauty" {
		t.Fatalf("unexpected categories: %+v", cats)
	}
}
