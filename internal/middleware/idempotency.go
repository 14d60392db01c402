package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Strob0t/ShopForge/internal/logger"
	"github.com/Strob0t/ShopForge/internal/port/cache"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"
	maxIdempotencyBody   = 1 << 20
)

// idempotencyEntry stores a replayable HTTP response.
type idempotencyEntry struct {
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type,omitempty"`
	Location    string `json:"location,omitempty"`
	Body        []byte `json:"body"`
}

// Idempotency returns middleware that replays the stored response of a
// mutating request carrying an Idempotency-Key already seen within ttl, so a
// retried "apply" or "start batch" does not run twice. Responses are stored
// through c, which spans instances when the tiered cache is configured.
// Server errors are not stored, so the request can be retried.
func Idempotency(c cache.Cache, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			key := r.Header.Get(headerIdempotencyKey)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			log := logger.From(ctx)
			slot := idempotencySlot(r.Method, r.URL.Path, key)

			if data, ok, err := c.Get(ctx, slot); err != nil {
				log.Warn("idempotency lookup failed", "error", err)
			} else if ok {
				var e idempotencyEntry
				if err := json.Unmarshal(data, &e); err == nil {
					if e.ContentType != "" {
						w.Header().Set("Content-Type", e.ContentType)
					}
					if e.Location != "" {
						w.Header().Set("Location", e.Location)
					}
					w.Header().Set(headerReplayed, "true")
					w.WriteHeader(e.StatusCode)
					_, _ = w.Write(e.Body)
					return
				}
				log.Warn("idempotency: corrupt entry", "slot", slot)
			}

			rec := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK, body: &bytes.Buffer{}}
			next.ServeHTTP(rec, r)

			if rec.statusCode >= http.StatusInternalServerError || rec.body.Len() > maxIdempotencyBody {
				return
			}
			data, err := json.Marshal(idempotencyEntry{
				StatusCode:  rec.statusCode,
				ContentType: w.Header().Get("Content-Type"),
				Location:    w.Header().Get("Location"),
				Body:        rec.body.Bytes(),
			})
			if err != nil {
				return
			}
			if err := c.Set(ctx, slot, data, ttl); err != nil {
				log.Warn("idempotency: failed to store response", "error", err)
			}
		})
	}
}

// idempotencySlot scopes a client key to the route it was sent to. The
// digest keeps arbitrary client keys within every cache backend's key rules.
func idempotencySlot(method, path, key string) string {
	sum := sha256.Sum256([]byte(method + " " + path + "\x00" + key))
	return "idem_" + hex.EncodeToString(sum[:])
}

// responseRecorder wraps http.ResponseWriter to capture the response.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
