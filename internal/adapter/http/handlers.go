package http

import (
	"context"
	"net/http"

	"github.com/Strob0t/ShopForge/internal/domain"
	"github.com/Strob0t/ShopForge/internal/domain/seo"
	"github.com/Strob0t/ShopForge/internal/service"
)

// Handlers holds the services the routes dispatch to.
type Handlers struct {
	Catalog   *service.CatalogService
	SEO       *service.SEOService
	Batch     *service.BatchService
	BodyLimit int64
}

// ListProducts serves one page of the catalog, optionally filtered by
// ?category=.
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", service.DefaultPageLimit)
	if !ok {
		return
	}
	skip, ok := queryInt(w, r, "skip", 0)
	if !ok {
		return
	}
	page, err := h.Catalog.Products(r.Context(), r.URL.Query().Get("category"), limit, skip)
	if err != nil {
		writeDomainError(w, r, err, "category not found")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// PageMeta serves metadata for a listing page. Only an unknown page type
// is rejected; remote failures yield fallback metadata.
func (h *Handlers) PageMeta(w http.ResponseWriter, r *http.Request) {
	m, err := h.SEO.PageMeta(r.Context(), urlParam(r, "type"), r.URL.Query().Get("category_id"))
	if err != nil {
		writeDomainError(w, r, err, "page not found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// ApplyOptimization applies the pending optimization for one product.
func (h *Handlers) ApplyOptimization(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.SEO.ApplyOptimization(r.Context(), urlParam(r, "id")))
}

// StartBatch starts a batch optimization and answers 202 with the job.
func (h *Handlers) StartBatch(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[seo.BatchRequest](w, r, h.BodyLimit)
	if !ok {
		return
	}
	job, err := h.Batch.Start(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err, "batch not found")
		return
	}
	w.Header().Set("Location", "/api/v1/admin/seo/batch/"+job.ID)
	writeJSON(w, http.StatusAccepted, job)
}

// GetBatch reports a batch job's progress.
func (h *Handlers) GetBatch(w http.ResponseWriter, r *http.Request) {
	handleGet(func(_ context.Context, id string) (seo.BatchJob, error) {
		return h.Batch.Get(id)
	}, "batch not found")(w, r)
}

// Analytics serves the catalog-wide optimization summary.
func (h *Handlers) Analytics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.SEO.Analytics(r.Context()))
}

// EstimateROI projects the return of optimizing the catalog.
func (h *Handlers) EstimateROI(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[seo.ROIRequest](w, r, h.BodyLimit)
	if !ok {
		return
	}
	est, err := h.SEO.EstimateROI(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err, "not found")
		return
	}
	writeJSON(w, http.StatusOK, est)
}

// History lists recorded optimization attempts, filtered by ?product_id=
// and ?batch_id=, newest first.
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", seo.DefaultLogLimit)
	if !ok {
		return
	}
	q := r.URL.Query()
	entries, err := h.SEO.History(r.Context(), seo.LogFilter{
		ProductID: q.Get("product_id"),
		BatchID:   q.Get("batch_id"),
		Limit:     limit,
	})
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	if entries == nil {
		entries = []seo.LogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// InvalidateCache drops one cache key on every instance.
func (h *Handlers) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	if err := h.SEO.InvalidateKey(r.Context(), urlParam(r, "key")); err != nil {
		writeDomainError(w, r, err, "key not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// notFound answers unknown API routes with a JSON error.
func notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, domain.ErrNotFound.Error())
}
