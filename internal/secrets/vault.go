// Package secrets holds the credentials that can be rotated while the
// gateway runs: the SEO API token and the admin key hash.
package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"

	"github.com/Strob0t/ShopForge/internal/config"
)

// Vault keys.
const (
	SEOToken     = "seo_token"
	AdminKeyHash = "admin_key_hash"
)

// Loader retrieves the current secret values.
type Loader func() (map[string]string, error)

// ConfigLoader reads the rotatable fields from a fresh configuration load,
// so a reload honours the same YAML and environment precedence as startup.
func ConfigLoader(load func() (*config.Config, error)) Loader {
	return func() (map[string]string, error) {
		cfg, err := load()
		if err != nil {
			return nil, err
		}
		return map[string]string{
			SEOToken:     cfg.Upstream.SEOToken,
			AdminKeyHash: cfg.Admin.APIKeyHash,
		}, nil
	}
}

// Vault holds secret values in memory and supports atomic reloading.
type Vault struct {
	mu       sync.RWMutex
	values   map[string]string
	loader   Loader
	onReload []func(*Vault)
}

// NewVault creates a Vault, calling the loader once to populate initial values.
func NewVault(loader Loader) (*Vault, error) {
	vals, err := loader()
	if err != nil {
		return nil, fmt.Errorf("initial secret load: %w", err)
	}
	return &Vault{values: vals, loader: loader}, nil
}

// Get returns the secret for key, or an empty string if not found.
func (v *Vault) Get(key string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.values[key]
}

// Redacted returns the first two characters of a secret followed by ****.
// Secrets of four characters or fewer are fully masked.
func (v *Vault) Redacted(key string) string {
	s := v.Get(key)
	switch {
	case s == "":
		return ""
	case len(s) <= 4:
		return "****"
	default:
		return s[:2] + "****"
	}
}

// OnReload registers fn to run after every successful reload.
func (v *Vault) OnReload(fn func(*Vault)) {
	v.mu.Lock()
	v.onReload = append(v.onReload, fn)
	v.mu.Unlock()
}

// Reload calls the loader and swaps in the new values atomically.
// If the loader returns an error, existing values are preserved.
func (v *Vault) Reload() error {
	newVals, err := v.loader()
	if err != nil {
		return fmt.Errorf("reload secrets: %w", err)
	}
	v.mu.Lock()
	v.values = newVals
	hooks := v.onReload
	v.mu.Unlock()

	for _, fn := range hooks {
		fn(v)
	}
	return nil
}

// Watch reloads the vault whenever one of sigs arrives, until ctx is done.
func (v *Vault) Watch(ctx context.Context, sigs ...os.Signal) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	defer signal.Stop(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			if err := v.Reload(); err != nil {
				slog.Error("secret reload failed", "error", err)
				continue
			}
			slog.Info("secrets reloaded", "seo_token", v.Redacted(SEOToken))
		}
	}
}
