package middleware_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Strob0t/ShopForge/internal/adapter/timed"
	"github.com/Strob0t/ShopForge/internal/middleware"
)

func newIdempotentHandler(status int) (http.Handler, *atomic.Int32) {
	var calls atomic.Int32
	h := middleware.Idempotency(timed.New(time.Hour), time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"call":%d}`, n)
	}))
	return h, &calls
}

func send(h http.Handler, method, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, http.NoBody)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdempotency_ReplaysResponse(t *testing.T) {
	h, calls := newIdempotentHandler(http.StatusAccepted)

	first := send(h, http.MethodPost, "/api/v1/admin/seo/batch", "k1")
	second := send(h, http.MethodPost, "/api/v1/admin/seo/batch", "k1")

	if calls.Load() != 1 {
		t.Errorf("handler ran %d times, want 1", calls.Load())
	}
	if second.Code != http.StatusAccepted || second.Body.String() != first.Body.String() {
		t.Errorf("replay = %d %q, want %d %q", second.Code, second.Body.String(), first.Code, first.Body.String())
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Error("replayed response should be marked")
	}
	if second.Header().Get("Content-Type") != "application/json" {
		t.Errorf("content type = %q", second.Header().Get("Content-Type"))
	}
}

func TestIdempotency_Scoping(t *testing.T) {
	h, calls := newIdempotentHandler(http.StatusOK)

	send(h, http.MethodPost, "/a", "k1")
	send(h, http.MethodPost, "/a", "k2")
	send(h, http.MethodPost, "/b", "k1")
	send(h, http.MethodPost, "/a", "")
	send(h, http.MethodPost, "/a", "")
	send(h, http.MethodGet, "/a", "k1")

	if calls.Load() != 6 {
		t.Errorf("handler ran %d times, want 6", calls.Load())
	}
}

func TestIdempotency_ServerErrorsNotStored(t *testing.T) {
	h, calls := newIdempotentHandler(http.StatusBadGateway)

	send(h, http.MethodPost, "/a", "k1")
	send(h, http.MethodPost, "/a", "k1")
	if calls.Load() != 2 {
		t.Errorf("handler ran %d times, want 2", calls.Load())
	}
}
