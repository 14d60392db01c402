package service

import (
	"context"

	"github.com/Strob0t/ShopForge/internal/domain/catalog"
	"github.com/Strob0t/ShopForge/internal/domain/seo"
)

// CatalogClient reads the remote product catalog.
type CatalogClient interface {
	ListProducts(ctx context.Context, category string, limit, skip int) (*catalog.ProductPage, error)
	GetProduct(ctx context.Context, id string) (*catalog.Product, error)
	ListCategories(ctx context.Context) ([]catalog.Category, error)
}

// SEOClient calls the remote AI SEO API.
type SEOClient interface {
	ProductMeta(ctx context.Context, productID string) (*seo.MetaTags, error)
	EnhanceDescription(ctx context.Context, productID string, in seo.DescriptionRequest) (*seo.Description, error)
	PageMeta(ctx context.Context, pageType, categoryID string) (*seo.PageMeta, error)
	Status(ctx context.Context, productID string) (*seo.OptimizationStatus, error)
	Apply(ctx context.Context, productID string) (*seo.OptimizationResult, error)
	Batch(ctx context.Context, productIDs []string) ([]seo.OptimizationResult, error)
	Analytics(ctx context.Context) (*seo.Analytics, error)
	ROI(ctx context.Context, req seo.ROIRequest) (*seo.ROIEstimate, error)
}
