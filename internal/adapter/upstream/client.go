// Package upstream is the JSON-over-HTTP transport shared by the commerce
// and SEO API clients: bearer auth, circuit breaker, tracing and latency metrics.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Strob0t/ShopForge/internal/adapter/otel"
	"github.com/Strob0t/ShopForge/internal/domain"
	"github.com/Strob0t/ShopForge/internal/resilience"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// StatusError is a non-2xx response from the remote service.
type StatusError struct {
	Service string
	Status  int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error %d: %s", e.Service, e.Status, e.Body)
}

// Unwrap maps 404 to domain.ErrNotFound and everything else to domain.ErrUpstream.
func (e *StatusError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return domain.ErrNotFound
	}
	return domain.ErrUpstream
}

// Client sends JSON requests to one remote service.
type Client struct {
	service    string
	baseURL    string
	token      func() string
	httpClient *http.Client
	breaker    *resilience.Breaker
	metrics    *otel.Metrics
}

// New creates a client for service rooted at baseURL. An empty token sends
// no Authorization header.
func New(service, baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		service: service,
		baseURL: baseURL,
		token:   func() string { return token },
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otel.Transport(nil),
		},
	}
}

// SetTokenSource replaces the static token with fn, read on every request
// so rotated credentials apply without a restart.
func (c *Client) SetTokenSource(fn func() string) {
	c.token = fn
}

// SetBreaker attaches a circuit breaker to all outgoing calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// SetMetrics attaches latency instruments.
func (c *Client) SetMetrics(m *otel.Metrics) {
	c.metrics = m
}

// Breaker returns the attached breaker, or nil.
func (c *Client) Breaker() *resilience.Breaker {
	return c.breaker
}

// IsFailure reports whether err indicates an unhealthy service. Not-found
// answers and caller cancellation do not.
func IsFailure(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, context.Canceled)
}

// Do sends in (if non-nil) as the JSON body and decodes the response into
// out (if non-nil). operation names the call in spans and metrics.
func (c *Client) Do(ctx context.Context, operation, method, path string, in, out any) (err error) {
	ctx, span := otel.StartUpstreamSpan(ctx, c.service, operation)
	start := time.Now()
	defer func() {
		c.metrics.Upstream(ctx, c.service, operation, time.Since(start), err)
		otel.EndSpan(span, err)
	}()

	var body []byte
	if in != nil {
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", operation, err)
		}
	}

	var data []byte
	call := func() error {
		var callErr error
		data, callErr = c.roundTrip(ctx, method, path, body)
		return callErr
	}

	if c.breaker != nil {
		err = c.breaker.Execute(call)
	} else {
		err = call()
	}
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return fmt.Errorf("%s %s: %w: %w", c.service, operation, domain.ErrUpstream, err)
		}
		return fmt.Errorf("%s %s: %w", c.service, operation, err)
	}

	if out == nil {
		return nil
	}
	if err = json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w: %w", c.service, operation, domain.ErrUpstream, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("http request: %w: %w", domain.ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w: %w", domain.ErrUpstream, err)
	}

	if resp.StatusCode >= 400 {
		return nil, &StatusError{Service: c.service, Status: resp.StatusCode, Body: truncate(string(data), 256)}
	}
	return data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
