package http

import (
	"context"
	"net/http"
)

// handleList creates a handler that lists resources and returns JSON.
// A nil list is written as [].
func handleList[T any](listFn func(ctx context.Context) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := listFn(r.Context())
		if err != nil {
			writeDomainError(w, r, err, "not found")
			return
		}
		if items == nil {
			items = []T{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// handleGet creates a handler that retrieves a single resource by URL param "id".
func handleGet[T any](getFn func(ctx context.Context, id string) (T, error), notFoundMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := getFn(r.Context(), urlParam(r, "id"))
		if err != nil {
			writeDomainError(w, r, err, notFoundMsg)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

// handleSEO creates a handler for a per-product SEO read. These never fail:
// the service substitutes a fallback, so the response is always 200.
func handleSEO[T any](fn func(ctx context.Context, productID string) T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, fn(r.Context(), urlParam(r, "id")))
	}
}
