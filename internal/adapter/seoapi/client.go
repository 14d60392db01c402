// Package seoapi is a client for the remote AI SEO optimization API
// mounted under /admin/ai.
package seoapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Strob0t/ShopForge/internal/adapter/upstream"
	"github.com/Strob0t/ShopForge/internal/domain"
	"github.com/Strob0t/ShopForge/internal/domain/seo"
)

// ServiceName identifies this client in logs, spans and breaker state.
const ServiceName = "seoapi"

const prefix = "/admin/ai"

// Client calls the AI SEO API. Every successful result is tagged seo.SourceRemote.
type Client struct {
	*upstream.Client
}

// NewClient creates a client rooted at baseURL, sending token as a bearer
// credential when non-empty.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{Client: upstream.New(ServiceName, baseURL, token, timeout)}
}

// ProductMeta fetches generated meta tags for a product.
func (c *Client) ProductMeta(ctx context.Context, productID string) (*seo.MetaTags, error) {
	var m seo.MetaTags
	if err := c.Do(ctx, "product_meta", http.MethodGet, productPath(productID, "meta"), nil, &m); err != nil {
		return nil, err
	}
	if m.Title == "" {
		return nil, emptyField("product_meta", "title")
	}
	m.Source = seo.SourceRemote
	return &m, nil
}

// EnhanceDescription asks for an improved product description.
func (c *Client) EnhanceDescription(ctx context.Context, productID string, in seo.DescriptionRequest) (*seo.Description, error) {
	var d seo.Description
	if err := c.Do(ctx, "enhance_description", http.MethodPost, productPath(productID, "description"), in, &d); err != nil {
		return nil, err
	}
	if d.Text == "" {
		return nil, emptyField("enhance_description", "text")
	}
	d.ProductID = productID
	d.Source = seo.SourceRemote
	return &d, nil
}

// PageMeta fetches listing page metadata. An empty categoryID asks for the
// page type's catalog-wide metadata.
func (c *Client) PageMeta(ctx context.Context, pageType, categoryID string) (*seo.PageMeta, error) {
	var path string
	if categoryID != "" {
		q := url.Values{"page_type": {pageType}}
		path = prefix + "/categories/" + url.PathEscape(categoryID) + "/meta?" + q.Encode()
	} else {
		path = prefix + "/pages/" + url.PathEscape(pageType) + "/meta"
	}

	var m seo.PageMeta
	if err := c.Do(ctx, "page_meta", http.MethodGet, path, nil, &m); err != nil {
		return nil, err
	}
	if m.Title == "" {
		return nil, emptyField("page_meta", "title")
	}
	m.PageType = pageType
	m.CategoryID = categoryID
	m.Source = seo.SourceRemote
	return &m, nil
}

// Status reports a product's optimization state.
func (c *Client) Status(ctx context.Context, productID string) (*seo.OptimizationStatus, error) {
	var s seo.OptimizationStatus
	if err := c.Do(ctx, "optimization_status", http.MethodGet, productPath(productID, "status"), nil, &s); err != nil {
		return nil, err
	}
	s.ProductID = productID
	s.Source = seo.SourceRemote
	return &s, nil
}

// Apply applies the pending optimization to a product.
func (c *Client) Apply(ctx context.Context, productID string) (*seo.OptimizationResult, error) {
	var r seo.OptimizationResult
	if err := c.Do(ctx, "apply_optimization", http.MethodPost, productPath(productID, "apply"), struct{}{}, &r); err != nil {
		return nil, err
	}
	r.ProductID = productID
	r.Source = seo.SourceRemote
	return &r, nil
}

// Batch applies optimizations to several products in one call. The result
// has one entry per requested id, in request order; ids the remote side
// omitted are reported as not applied.
func (c *Client) Batch(ctx context.Context, productIDs []string) ([]seo.OptimizationResult, error) {
	req := struct {
		ProductIDs []string `json:"product_ids"`
	}{ProductIDs: productIDs}
	var resp struct {
		Results []seo.OptimizationResult `json:"results"`
	}
	if err := c.Do(ctx, "batch_optimize", http.MethodPost, prefix+"/batch", req, &resp); err != nil {
		return nil, err
	}

	byID := make(map[string]seo.OptimizationResult, len(resp.Results))
	for _, r := range resp.Results {
		byID[r.ProductID] = r
	}
	out := make([]seo.OptimizationResult, len(productIDs))
	for i, id := range productIDs {
		r, ok := byID[id]
		if !ok {
			r = seo.OptimizationResult{ProductID: id, Message: "missing from batch response"}
		}
		r.Source = seo.SourceRemote
		out[i] = r
	}
	return out, nil
}

// Analytics fetches the catalog-wide optimization summary.
func (c *Client) Analytics(ctx context.Context) (*seo.Analytics, error) {
	var a seo.Analytics
	if err := c.Do(ctx, "analytics", http.MethodGet, prefix+"/analytics", nil, &a); err != nil {
		return nil, err
	}
	a.Source = seo.SourceRemote
	return &a, nil
}

// ROI asks the remote side for a return-on-investment estimate.
func (c *Client) ROI(ctx context.Context, req seo.ROIRequest) (*seo.ROIEstimate, error) {
	var e seo.ROIEstimate
	if err := c.Do(ctx, "roi", http.MethodPost, prefix+"/roi", req, &e); err != nil {
		return nil, err
	}
	e.Source = seo.SourceRemote
	return &e, nil
}

func productPath(productID, action string) string {
	return prefix + "/products/" + url.PathEscape(productID) + "/" + action
}

func emptyField(operation, field string) error {
	return fmt.Errorf("%s %s: %w: response missing %s", ServiceName, operation, domain.ErrUpstream, field)
}
