package middleware

import (
	"crypto/sha256"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/Strob0t/ShopForge/internal/logger"
)

// AdminAuth checks the admin API key against a bcrypt hash. The key is read
// from X-API-Key or an Authorization bearer token; WebSocket upgrades, which
// browsers cannot send headers with, may pass it as ?api_key=.
type AdminAuth struct {
	// bcrypt is deliberately slow; accepted keys are remembered by digest
	// until the hash changes.
	mu       sync.RWMutex
	hash     []byte
	gen      uint64
	accepted map[[sha256.Size]byte]bool
}

// NewAdminAuth creates an AdminAuth. An empty hash disables authentication.
func NewAdminAuth(hash string) *AdminAuth {
	return &AdminAuth{hash: []byte(hash), accepted: make(map[[sha256.Size]byte]bool)}
}

// SetHash swaps in a new hash and forgets previously accepted keys.
func (a *AdminAuth) SetHash(hash string) {
	a.mu.Lock()
	a.hash = []byte(hash)
	a.gen++
	a.accepted = make(map[[sha256.Size]byte]bool)
	a.mu.Unlock()
}

// Enabled reports whether a key is required.
func (a *AdminAuth) Enabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.hash) > 0
}

// Verify reports whether key matches the configured hash.
func (a *AdminAuth) Verify(key string) bool {
	if !a.Enabled() {
		return true
	}
	if key == "" {
		return false
	}
	digest := sha256.Sum256([]byte(key))
	a.mu.RLock()
	ok := a.accepted[digest]
	hash := a.hash
	gen := a.gen
	a.mu.RUnlock()
	if ok {
		return true
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(key)) != nil {
		return false
	}
	a.mu.Lock()
	// Skip caching when SetHash ran during the compare.
	if a.gen == gen {
		a.accepted[digest] = true
	}
	a.mu.Unlock()
	return true
}

// Handler rejects requests without a valid admin key.
func (a *AdminAuth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		key, ok := APIKey(r)
		if !ok {
			writeAuthError(w, "authorization required")
			return
		}
		if !a.Verify(key) {
			logger.From(r.Context()).Warn("admin key rejected", "path", r.URL.Path)
			writeAuthError(w, "invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// APIKey extracts the admin key from r.
func APIKey(r *http.Request) (string, bool) {
	if k := r.Header.Get("X-API-Key"); k != "" {
		return k, true
	}
	if h := r.Header.Get("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok && tok != "" {
			return tok, true
		}
		return "", false
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		if k := r.URL.Query().Get("api_key"); k != "" {
			return k, true
		}
	}
	return "", false
}

func writeAuthError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="shopforge-admin"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
