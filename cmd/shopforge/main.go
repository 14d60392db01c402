package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/ShopForge/internal/adapter/commerce"
	sfhttp "github.com/Strob0t/ShopForge/internal/adapter/http"
	sfmcp "github.com/Strob0t/ShopForge/internal/adapter/mcp"
	sfnats "github.com/Strob0t/ShopForge/internal/adapter/nats"
	"github.com/Strob0t/ShopForge/internal/adapter/otel"
	"github.com/Strob0t/ShopForge/internal/adapter/postgres"
	"github.com/Strob0t/ShopForge/internal/adapter/seoapi"
	"github.com/Strob0t/ShopForge/internal/adapter/ws"
	"github.com/Strob0t/ShopForge/internal/config"
	"github.com/Strob0t/ShopForge/internal/domain/seo"
	"github.com/Strob0t/ShopForge/internal/logger"
	"github.com/Strob0t/ShopForge/internal/middleware"
	"github.com/Strob0t/ShopForge/internal/port/messagequeue"
	"github.com/Strob0t/ShopForge/internal/resilience"
	"github.com/Strob0t/ShopForge/internal/secrets"
	"github.com/Strob0t/ShopForge/internal/service"
	"github.com/Strob0t/ShopForge/internal/workpool"
)

const version = "1.0.0"

// idempotencyTTL is how long a replayable admin response is kept.
const idempotencyTTL = 24 * time.Hour

func main() {
	var err error
	switch {
	case len(os.Args) > 1 && os.Args[1] == "admin":
		err = runAdmin(os.Args[2:])
	case len(os.Args) > 1 && os.Args[1] == "migrate":
		err = runMigrate(os.Args[2:])
	default:
		err = run()
	}
	if err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"cache_backend", cfg.Cache.Backend,
		"l2_bucket", cfg.Cache.L2Bucket,
		"nats", cfg.NATS.URL != "",
		"postgres", cfg.Postgres.DSN != "",
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability ---

	shutdownOTel, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(shutdownCtx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---

	var queue *sfnats.Queue
	if cfg.NATS.URL != "" {
		queue, err = sfnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = queue.Close() }()
	}

	respCache, closeCache, err := buildCache(ctx, &cfg.Cache, queue)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer closeCache()

	var pool *pgxpool.Pool
	if cfg.Postgres.DSN != "" {
		pool, err = postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		slog.Info("postgres connected")

		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		slog.Info("migrations applied")
	}

	// --- Upstream clients ---

	catalogClient := commerce.NewClient(cfg.Upstream.CommerceURL, cfg.Upstream.Timeout)
	catalogClient.SetBreaker(resilience.NewBreaker(commerce.ServiceName, cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))
	catalogClient.SetMetrics(metrics)

	// SIGHUP re-reads the SEO token and admin key hash.
	vault, err := secrets.NewVault(secrets.ConfigLoader(config.Load))
	if err != nil {
		return fmt.Errorf("secrets: %w", err)
	}
	go vault.Watch(ctx, syscall.SIGHUP)

	seoClient := seoapi.NewClient(cfg.Upstream.SEOURL, cfg.Upstream.SEOToken, cfg.Upstream.Timeout)
	seoClient.SetTokenSource(func() string { return vault.Get(secrets.SEOToken) })
	seoClient.SetBreaker(resilience.NewBreaker(seoapi.ServiceName, cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))
	seoClient.SetMetrics(metrics)

	// --- Services ---

	hub := ws.NewHub()
	defer hub.Close()

	catalogLookup := service.NewLookup(respCache, cfg.Cache.CatalogTTL)
	catalogLookup.SetMetrics(metrics)
	seoLookup := service.NewLookup(respCache, cfg.Cache.TTL)
	seoLookup.SetMetrics(metrics)

	catalogSvc := service.NewCatalogService(catalogClient, catalogLookup)
	seoSvc := service.NewSEOService(seoClient, catalogSvc, seoLookup, seo.Site{
		Name:    cfg.Site.Name,
		BaseURL: cfg.Site.BaseURL,
	})
	seoSvc.SetBroadcaster(hub)
	seoSvc.SetMetrics(metrics)
	if pool != nil {
		seoSvc.SetOptimizationLog(postgres.NewStore(pool))
	}
	if queue != nil {
		seoSvc.SetQueue(queue, uuid.NewString())
		for _, subject := range []string{
			messagequeue.SubjectOptimizationApplied,
			messagequeue.SubjectBatchCompleted,
			messagequeue.SubjectCacheInvalidated,
		} {
			cancel, err := queue.Subscribe(ctx, subject, seoSvc.HandleInvalidation)
			if err != nil {
				return fmt.Errorf("subscribe %s: %w", subject, err)
			}
			defer cancel()
		}
	}

	batchSvc := service.NewBatchService(seoClient, seoSvc, workpool.New(cfg.Batch.MaxParallel),
		cfg.Batch.ChunkSize, cfg.Batch.MaxProducts)
	defer batchSvc.Close()

	// --- HTTP ---

	handlers := &sfhttp.Handlers{
		Catalog:   catalogSvc,
		SEO:       seoSvc,
		Batch:     batchSvc,
		BodyLimit: cfg.Server.MaxBodyBytes,
	}

	admin := middleware.NewAdminAuth(vault.Get(secrets.AdminKeyHash))
	vault.OnReload(func(v *secrets.Vault) { admin.SetHash(v.Get(secrets.AdminKeyHash)) })
	if !admin.Enabled() {
		slog.Warn("admin authentication disabled, set admin.api_key_hash")
	}

	limiter := middleware.NewRateLimiter(cfg.Rate, "/health", "/ws")
	stopCleanup := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()

	health := &sfhttp.Health{
		CacheBackend: cacheDescription(&cfg.Cache, queue),
		Breakers:     []*resilience.Breaker{catalogClient.Breaker(), seoClient.Breaker()},
		WebSockets:   hub,
	}
	if queue != nil {
		health.Queue = queue
	}
	if pool != nil {
		health.DB = pool
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(otel.HTTPMiddleware(cfg.OTel.ServiceName))
	r.Use(sfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(sfhttp.Logger)
	r.Use(sfhttp.SecurityHeaders)
	r.Use(limiter.Handler)

	r.Method(http.MethodGet, "/health", health)
	r.With(admin.Handler).Get("/ws", hub.HandleWS)

	if cfg.MCP.Enabled {
		mcpServer := sfmcp.NewServer(sfmcp.ServerConfig{Name: "shopforge", Version: version}, sfmcp.ServerDeps{SEO: seoSvc})
		r.With(admin.Handler).Handle(cfg.MCP.Path, mcpServer.Handler())
		slog.Info("mcp enabled", "path", cfg.MCP.Path)
	}

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(cfg.Server.RequestTimeout))
		sfhttp.MountRoutes(r, handlers, admin, middleware.Idempotency(respCache, idempotencyTTL))
	})

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
