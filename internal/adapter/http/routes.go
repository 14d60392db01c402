package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/ShopForge/internal/middleware"
)

// MountRoutes registers the storefront and admin API on r. Admin routes
// require the admin key; idempotency, when non-nil, guards admin writes.
func MountRoutes(r chi.Router, h *Handlers, admin *middleware.AdminAuth, idempotency func(http.Handler) http.Handler) {
	r.Route("/api/v1", func(r chi.Router) {
		r.NotFound(notFound)

		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"1.0.0"}`))
		})

		// Storefront
		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", handleGet(h.Catalog.Product, "product not found"))
		r.Get("/products/{id}/meta", handleSEO(h.SEO.ProductMeta))
		r.Get("/products/{id}/description", handleSEO(h.SEO.EnhancedDescription))
		r.Get("/categories", handleList(h.Catalog.Categories))
		r.Get("/pages/{type}/meta", h.PageMeta)

		// Admin console
		r.Route("/admin/seo", func(r chi.Router) {
			r.Use(admin.Handler)
			if idempotency != nil {
				r.Use(idempotency)
			}

			r.Get("/products/{id}/status", handleSEO(h.SEO.OptimizationStatus))
			r.Post("/products/{id}/apply", h.ApplyOptimization)
			r.Post("/batch", h.StartBatch)
			r.Get("/batch/{id}", h.GetBatch)
			r.Get("/analytics", h.Analytics)
			r.Post("/roi", h.EstimateROI)
			r.Get("/history", h.History)
			r.Delete("/cache/{key}", h.InvalidateCache)
		})
	})
}
