package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "shopforge.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML path can be overridden with SHOPFORGE_CONFIG; a missing file is not an error.
func Load() (*Config, error) {
	path := DefaultConfigFile
	if p := os.Getenv("SHOPFORGE_CONFIG"); p != "" {
		path = p
	}
	return LoadFrom(path)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from operator config
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "SHOPFORGE_PORT")
	setString(&cfg.Server.CORSOrigin, "SHOPFORGE_CORS_ORIGIN")
	setDuration(&cfg.Server.RequestTimeout, "SHOPFORGE_REQUEST_TIMEOUT")
	setInt64(&cfg.Server.MaxBodyBytes, "SHOPFORGE_MAX_BODY_BYTES")

	setString(&cfg.Upstream.CommerceURL, "SHOPFORGE_COMMERCE_URL")
	setString(&cfg.Upstream.SEOURL, "SHOPFORGE_SEO_URL")
	setString(&cfg.Upstream.SEOToken, "SHOPFORGE_SEO_TOKEN")
	setDuration(&cfg.Upstream.Timeout, "SHOPFORGE_UPSTREAM_TIMEOUT")

	// Cache
	setString(&cfg.Cache.Backend, "SHOPFORGE_CACHE_BACKEND")
	setDuration(&cfg.Cache.TTL, "SHOPFORGE_CACHE_TTL")
	setDuration(&cfg.Cache.CatalogTTL, "SHOPFORGE_CACHE_CATALOG_TTL")
	setDuration(&cfg.Cache.SweepInterval, "SHOPFORGE_CACHE_SWEEP_INTERVAL")
	setInt64(&cfg.Cache.L1MaxSizeMB, "SHOPFORGE_CACHE_L1_SIZE_MB")
	setString(&cfg.Cache.L2Bucket, "SHOPFORGE_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L2TTL, "SHOPFORGE_CACHE_L2_TTL")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "SHOPFORGE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "SHOPFORGE_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "SHOPFORGE_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "SHOPFORGE_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "SHOPFORGE_PG_HEALTH_CHECK")

	setString(&cfg.NATS.URL, "NATS_URL")

	setString(&cfg.Logging.Level, "SHOPFORGE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "SHOPFORGE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "SHOPFORGE_LOG_ASYNC")

	setInt(&cfg.Breaker.MaxFailures, "SHOPFORGE_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "SHOPFORGE_BREAKER_TIMEOUT")

	setFloat64(&cfg.Rate.RequestsPerSecond, "SHOPFORGE_RATE_RPS")
	setInt(&cfg.Rate.Burst, "SHOPFORGE_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "SHOPFORGE_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "SHOPFORGE_RATE_MAX_IDLE_TIME")

	setString(&cfg.Admin.APIKeyHash, "SHOPFORGE_ADMIN_KEY_HASH")

	setInt(&cfg.Batch.MaxParallel, "SHOPFORGE_BATCH_MAX_PARALLEL")
	setInt(&cfg.Batch.ChunkSize, "SHOPFORGE_BATCH_CHUNK_SIZE")
	setInt(&cfg.Batch.MaxProducts, "SHOPFORGE_BATCH_MAX_PRODUCTS")

	setString(&cfg.OTel.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.OTel.Insecure, "SHOPFORGE_OTEL_INSECURE")
	setString(&cfg.OTel.ServiceName, "OTEL_SERVICE_NAME")

	setBool(&cfg.MCP.Enabled, "SHOPFORGE_MCP_ENABLED")
	setString(&cfg.MCP.Path, "SHOPFORGE_MCP_PATH")

	setString(&cfg.Site.Name, "SHOPFORGE_SITE_NAME")
	setString(&cfg.Site.BaseURL, "SHOPFORGE_SITE_BASE_URL")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Upstream.CommerceURL == "" {
		return errors.New("upstream.commerce_url is required")
	}
	if cfg.Upstream.SEOURL == "" {
		return errors.New("upstream.seo_url is required")
	}
	switch cfg.Cache.Backend {
	case "memory", "ristretto":
	default:
		return fmt.Errorf("cache.backend must be memory or ristretto, got %q", cfg.Cache.Backend)
	}
	if cfg.Cache.TTL <= 0 {
		return errors.New("cache.ttl must be > 0")
	}
	if cfg.Cache.CatalogTTL <= 0 {
		return errors.New("cache.catalog_ttl must be > 0")
	}
	if cfg.Cache.SweepInterval < 0 {
		return errors.New("cache.sweep_interval must be >= 0")
	}
	if cfg.Cache.Backend == "ristretto" && cfg.Cache.L1MaxSizeMB < 1 {
		return errors.New("cache.l1_max_size_mb must be >= 1")
	}
	if cfg.Postgres.DSN != "" && cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Rate.CleanupInterval <= 0 {
		return errors.New("rate.cleanup_interval must be > 0")
	}
	if cfg.Batch.MaxParallel < 1 {
		return errors.New("batch.max_parallel must be >= 1")
	}
	if cfg.Batch.ChunkSize < 1 {
		return errors.New("batch.chunk_size must be >= 1")
	}
	if cfg.Site.Name == "" {
		return errors.New("site.name is required")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
