package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Strob0t/ShopForge/internal/domain"
	"github.com/Strob0t/ShopForge/internal/domain/catalog"
	"github.com/Strob0t/ShopForge/internal/domain/seo"
)

// Listing bounds for ListProducts.
const (
	DefaultPageLimit = 30
	MaxPageLimit     = 100
)

// CatalogService proxies the commerce API. Product records are cached;
// listings are not. Unlike the SEO lookups, errors reach the caller.
type CatalogService struct {
	client CatalogClient
	lookup *Lookup
}

// NewCatalogService creates a CatalogService caching products through lookup.
func NewCatalogService(client CatalogClient, lookup *Lookup) *CatalogService {
	return &CatalogService{client: client, lookup: lookup}
}

// Product returns the product with the given id.
func (s *CatalogService) Product(ctx context.Context, id string) (*catalog.Product, error) {
	if err := validateProductID(id); err != nil {
		return nil, err
	}
	p, _, err := fetchCached(ctx, s.lookup, seo.ProductKey(id), func(ctx context.Context) (*catalog.Product, error) {
		return s.client.GetProduct(ctx, id)
	})
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", id, err)
	}
	return &p, nil
}

// Products returns one page of products, optionally filtered by category.
func (s *CatalogService) Products(ctx context.Context, category string, limit, skip int) (*catalog.ProductPage, error) {
	switch {
	case limit <= 0:
		limit = DefaultPageLimit
	case limit > MaxPageLimit:
		limit = MaxPageLimit
	}
	if skip < 0 {
		return nil, fmt.Errorf("%w: skip must be >= 0", domain.ErrValidation)
	}
	page, err := s.client.ListProducts(ctx, category, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if page.Products == nil {
		page.Products = []catalog.Product{}
	}
	return page, nil
}

// Categories returns every product category.
func (s *CatalogService) Categories(ctx context.Context) ([]catalog.Category, error) {
	cats, err := s.client.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if cats == nil {
		cats = []catalog.Category{}
	}
	return cats, nil
}

// Category returns the category with the given slug.
func (s *CatalogService) Category(ctx context.Context, slug string) (*catalog.Category, error) {
	cats, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}
	for i := range cats {
		if cats[i].Slug == slug {
			return &cats[i], nil
		}
	}
	return nil, fmt.Errorf("category %s: %w", slug, domain.ErrNotFound)
}

// validateProductID accepts positive integer ids, as the commerce API uses.
func validateProductID(id string) error {
	n, err := strconv.Atoi(id)
	if err != nil || n <= 0 {
		return fmt.Errorf("%w: invalid product id %q", domain.ErrValidation, id)
	}
	return nil
}
