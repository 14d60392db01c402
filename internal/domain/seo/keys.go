package seo

// Cache keys are derived from entity identifiers so that repeated lookups
// for the same entity reuse one slot.

const AnalyticsKey = "analytics_summary"

// MetaKey is the cache key for a product's meta tags.
func MetaKey(productID string) string { return "meta_" + productID }

// DescriptionKey is the cache key for a product's enhanced description.
func DescriptionKey(productID string) string { return "desc_" + productID }

// PageKey is the cache key for page metadata.
func PageKey(pageType, categoryID string) string { return "page_" + pageType + "_" + categoryID }

// ProductKey is the cache key for a catalog product record.
func ProductKey(productID string) string { return "product_" + productID }

// ProductKeys lists every per-product key that an optimization invalidates.
func ProductKeys(productID string) []string {
	return []string{MetaKey(productID), DescriptionKey(productID)}
}
