package messagequeue

import "time"

// OptimizationAppliedPayload is the schema for seo.optimization.applied.
// Receivers drop Keys from their local caches.
type OptimizationAppliedPayload struct {
	ProductID string    `json:"product_id"`
	Applied   bool      `json:"applied"`
	Score     float64   `json:"score"`
	Keys      []string  `json:"keys"`
	Origin    string    `json:"origin"`
	AppliedAt time.Time `json:"applied_at"`
}

// BatchCompletedPayload is the schema for seo.batch.completed.
type BatchCompletedPayload struct {
	BatchID    string    `json:"batch_id"`
	ProductIDs []string  `json:"product_ids"`
	Applied    int       `json:"applied"`
	Failed     int       `json:"failed"`
	Keys       []string  `json:"keys"`
	Origin     string    `json:"origin"`
	FinishedAt time.Time `json:"finished_at"`
}

// CacheInvalidatedPayload is the schema for seo.cache.invalidated.
type CacheInvalidatedPayload struct {
	Keys   []string `json:"keys"`
	Origin string   `json:"origin"`
}
