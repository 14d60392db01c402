// Package commerce is a client for the storefront's product catalog API
// (DummyJSON-compatible).
package commerce

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Strob0t/ShopForge/internal/adapter/upstream"
	"github.com/Strob0t/ShopForge/internal/domain"
	"github.com/Strob0t/ShopForge/internal/domain/catalog"
)

// ServiceName identifies this client in logs, spans and breaker state.
const ServiceName = "commerce"

// Client reads products and categories.
type Client struct {
	*upstream.Client
}

// NewClient creates a catalog client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{Client: upstream.New(ServiceName, baseURL, "", timeout)}
}

// ListProducts returns one page of products, optionally limited to a category.
func (c *Client) ListProducts(ctx context.Context, category string, limit, skip int) (*catalog.ProductPage, error) {
	path := "/products"
	if category != "" {
		path += "/category/" + url.PathEscape(category)
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("skip", strconv.Itoa(skip))

	var page catalog.ProductPage
	if err := c.Do(ctx, "list_products", http.MethodGet, path+"?"+q.Encode(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetProduct returns one product. Unknown ids yield domain.ErrNotFound.
func (c *Client) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	var p catalog.Product
	if err := c.Do(ctx, "get_product", http.MethodGet, "/products/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, fmt.Errorf("commerce get_product %s: %w: empty product", id, domain.ErrUpstream)
	}
	return &p, nil
}

// ListCategories returns all product categories.
func (c *Client) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	var cats []catalog.Category
	if err := c.Do(ctx, "list_categories", http.MethodGet, "/products/categories", nil, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}
