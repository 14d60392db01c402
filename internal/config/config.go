// Package config provides hierarchical configuration loading for ShopForge.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the ShopForge gateway.
type Config struct {
	Server   Server   `yaml:"server"`
	Upstream Upstream `yaml:"upstream"`
	Cache    Cache    `yaml:"cache"`
	Postgres Postgres `yaml:"postgres"`
	NATS     NATS     `yaml:"nats"`
	Logging  Logging  `yaml:"logging"`
	Breaker  Breaker  `yaml:"breaker"`
	Rate     Rate     `yaml:"rate"`
	Admin    Admin    `yaml:"admin"`
	Batch    Batch    `yaml:"batch"`
	OTel     OTel     `yaml:"otel"`
	MCP      MCP      `yaml:"mcp"`
	Site     Site     `yaml:"site"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port           string        `yaml:"port"`
	CORSOrigin     string        `yaml:"cors_origin"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
}

// Upstream holds the remote commerce and AI SEO API endpoints.
type Upstream struct {
	CommerceURL string        `yaml:"commerce_url"`
	SEOURL      string        `yaml:"seo_url"`
	SEOToken    string        `yaml:"seo_token"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Cache holds response cache configuration.
type Cache struct {
	Backend       string        `yaml:"backend"`        // "memory" | "ristretto"
	TTL           time.Duration `yaml:"ttl"`            // SEO payloads (default: 24h)
	CatalogTTL    time.Duration `yaml:"catalog_ttl"`    // product records (default: 10m)
	SweepInterval time.Duration `yaml:"sweep_interval"` // 0 disables the background sweep
	L1MaxSizeMB   int64         `yaml:"l1_max_size_mb"` // ristretto only
	L2Bucket      string        `yaml:"l2_bucket"`      // NATS KV bucket; empty disables L2
	L2TTL         time.Duration `yaml:"l2_ttl"`
}

// Postgres holds PostgreSQL connection configuration.
// An empty DSN disables the optimization log.
type Postgres struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	HealthCheck     time.Duration `yaml:"health_check"`
}

// NATS holds NATS JetStream configuration. An empty URL disables NATS.
type NATS struct {
	URL string `yaml:"url"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Breaker holds circuit breaker configuration.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Rate holds rate limiter configuration.
type Rate struct {
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"`
	MaxIdleTime       time.Duration `yaml:"max_idle_time"`
}

// Admin holds admin console authentication.
// An empty APIKeyHash disables admin authentication (local development).
type Admin struct {
	APIKeyHash string `yaml:"api_key_hash"`
}

// Batch holds batch optimization configuration.
type Batch struct {
	MaxParallel int `yaml:"max_parallel"`
	ChunkSize   int `yaml:"chunk_size"`
	MaxProducts int `yaml:"max_products"`
}

// OTel holds OpenTelemetry export configuration.
// An empty Endpoint keeps the no-op global providers.
type OTel struct {
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// MCP holds Model Context Protocol server configuration.
type MCP struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Site describes the storefront used when building fallback SEO metadata.
type Site struct {
	Name    string `yaml:"name"`
	BaseURL string `yaml:"base_url"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:           "8080",
			CORSOrigin:     "http://localhost:3000",
			RequestTimeout: 30 * time.Second,
			MaxBodyBytes:   1 << 20,
		},
		Upstream: Upstream{
			CommerceURL: "https://dummyjson.com",
			SEOURL:      "http://localhost:5000",
			Timeout:     10 * time.Second,
		},
		Cache: Cache{
			Backend:     "memory",
			TTL:         24 * time.Hour,
			CatalogTTL:  10 * time.Minute,
			L1MaxSizeMB: 64,
			L2TTL:       24 * time.Hour,
		},
		Postgres: Postgres{
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 10 * time.Minute,
			HealthCheck:     time.Minute,
		},
		Logging: Logging{
			Level:   "info",
			Service: "shopforge",
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Rate: Rate{
			RequestsPerSecond: 20,
			Burst:             100,
			CleanupInterval:   5 * time.Minute,
			MaxIdleTime:       10 * time.Minute,
		},
		Batch: Batch{
			MaxParallel: 4,
			ChunkSize:   10,
			MaxProducts: 500,
		},
		OTel: OTel{
			ServiceName: "shopforge",
		},
		MCP: MCP{
			Path: "/mcp",
		},
		Site: Site{
			Name:    "ShopForge",
			BaseURL: "http://localhost:3000",
		},
	}
}
