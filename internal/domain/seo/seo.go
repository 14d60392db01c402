// Package seo defines the SEO payloads exchanged with the remote AI
// optimization API, their cache keys, and the deterministic fallbacks used
// when that API is unavailable.
package seo

import (
	"fmt"
	"time"

	"github.com/Strob0t/ShopForge/internal/domain"
)

// Source tells the caller where a payload came from.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
)

// Page types accepted by PageMeta.
const (
	PageHome     = "home"
	PageCategory = "category"
	PageSearch   = "search"
	PageProduct  = "product"
)

// MetaTags are the head tags rendered for a product page.
type MetaTags struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Keywords     []string `json:"keywords"`
	CanonicalURL string   `json:"canonical_url,omitempty"`
	OGImage      string   `json:"og_image,omitempty"`
	Source       Source   `json:"source"`
}

// Description is an AI-enhanced product description.
type Description struct {
	ProductID string `json:"product_id"`
	Text      string `json:"text"`
	Source    Source `json:"source"`
}

// DescriptionRequest is the current product copy sent for enhancement.
type DescriptionRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category,omitempty"`
	Price       float64 `json:"price,omitempty"`
}

// PageMeta is the metadata for a listing page, optionally scoped to a category.
type PageMeta struct {
	PageType    string   `json:"page_type"`
	CategoryID  string   `json:"category_id,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Source      Source   `json:"source"`
}

// OptimizationStatus reports whether a product has been optimized.
type OptimizationStatus struct {
	ProductID       string     `json:"product_id"`
	Optimized       bool       `json:"optimized"`
	Score           float64    `json:"score"`
	LastOptimizedAt *time.Time `json:"last_optimized_at,omitempty"`
	Source          Source     `json:"source"`
}

// OptimizationResult is the outcome of applying an optimization to one product.
type OptimizationResult struct {
	ProductID string  `json:"product_id"`
	Applied   bool    `json:"applied"`
	Score     float64 `json:"score"`
	Message   string  `json:"message,omitempty"`
	Source    Source  `json:"source"`
}

// Analytics summarises optimization coverage across the catalog.
type Analytics struct {
	OptimizedProducts int     `json:"optimized_products"`
	TotalProducts     int     `json:"total_products"`
	AverageScore      float64 `json:"average_score"`
	TrafficChangePct  float64 `json:"traffic_change_pct"`
	Source            Source  `json:"source"`
}

// ROIRequest is the input of an ROI estimate.
type ROIRequest struct {
	MonthlyRevenue float64 `json:"monthly_revenue"`
	ProductCount   int     `json:"product_count"`
	UpliftPct      float64 `json:"uplift_pct"`
	CostPerProduct float64 `json:"cost_per_product"`
}

// Validate checks the request bounds.
func (r *ROIRequest) Validate() error {
	if r.MonthlyRevenue < 0 {
		return fmt.Errorf("%w: monthly_revenue must be >= 0", domain.ErrValidation)
	}
	if r.ProductCount < 0 {
		return fmt.Errorf("%w: product_count must be >= 0", domain.ErrValidation)
	}
	if r.UpliftPct < 0 || r.UpliftPct > 1000 {
		return fmt.Errorf("%w: uplift_pct must be between 0 and 1000", domain.ErrValidation)
	}
	if r.CostPerProduct < 0 {
		return fmt.Errorf("%w: cost_per_product must be >= 0", domain.ErrValidation)
	}
	return nil
}

// ROIEstimate is the projected return of optimizing the catalog.
type ROIEstimate struct {
	ProjectedRevenue float64 `json:"projected_revenue"`
	ProjectedGain    float64 `json:"projected_gain"`
	AnnualGain       float64 `json:"annual_gain"`
	TotalCost        float64 `json:"total_cost"`
	ROIPercent       float64 `json:"roi_percent"`
	Source           Source  `json:"source"`
}

// BatchRequest asks for a set of products to be optimized.
type BatchRequest struct {
	ProductIDs []string `json:"product_ids"`
}

// Validate rejects empty, oversized or blank-id requests.
func (r *BatchRequest) Validate(maxProducts int) error {
	if len(r.ProductIDs) == 0 {
		return fmt.Errorf("%w: product_ids is required", domain.ErrValidation)
	}
	if maxProducts > 0 && len(r.ProductIDs) > maxProducts {
		return fmt.Errorf("%w: at most %d products per batch", domain.ErrValidation, maxProducts)
	}
	for i, id := range r.ProductIDs {
		if id == "" {
			return fmt.Errorf("%w: product_ids[%d] is empty", domain.ErrValidation, i)
		}
	}
	return nil
}

// BatchStatus is the lifecycle state of a BatchJob.
type BatchStatus string

const (
	BatchPending   BatchStatus = "pending"
	BatchRunning   BatchStatus = "running"
	BatchCompleted BatchStatus = "completed"
)

// BatchJob tracks a batch optimization.
type BatchJob struct {
	ID         string               `json:"id"`
	ProductIDs []string             `json:"product_ids"`
	Status     BatchStatus          `json:"status"`
	Results    []OptimizationResult `json:"results"`
	Applied    int                  `json:"applied"`
	Failed     int                  `json:"failed"`
	CreatedAt  time.Time            `json:"created_at"`
	FinishedAt *time.Time           `json:"finished_at,omitempty"`
}

// LogEntry is one persisted optimization attempt.
type LogEntry struct {
	ID        int64     `json:"id"`
	ProductID string    `json:"product_id"`
	BatchID   string    `json:"batch_id,omitempty"`
	Applied   bool      `json:"applied"`
	Score     float64   `json:"score"`
	Source    Source    `json:"source"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidPageType reports whether t is a known page type.
func ValidPageType(t string) bool {
	switch t {
	case PageHome, PageCategory, PageSearch, PageProduct:
		return true
	}
	return false
}

// LogFilter narrows an optimization log listing.
type LogFilter struct {
	ProductID string
	BatchID   string
	Limit     int
}

// DefaultLogLimit and MaxLogLimit bound LogFilter.Limit.
const (
	DefaultLogLimit = 50
	MaxLogLimit     = 500
)

// Normalize clamps Limit into [1, MaxLogLimit], defaulting to DefaultLogLimit.
func (f *LogFilter) Normalize() {
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultLogLimit
	case f.Limit > MaxLogLimit:
		f.Limit = MaxLogLimit
	}
}

// LogStats aggregates the optimization log.
type LogStats struct {
	Products          int     `json:"products"`
	OptimizedProducts int     `json:"optimized_products"`
	AverageScore      float64 `json:"average_score"`
}
