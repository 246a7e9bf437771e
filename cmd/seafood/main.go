package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/seafood-erp/seafood-erp/cmd/seafood/cli"
	"github.com/seafood-erp/seafood-erp/internal/app"
	"github.com/seafood-erp/seafood-erp/internal/catalog"
	"github.com/seafood-erp/seafood-erp/internal/dashboard"
	"github.com/seafood-erp/seafood-erp/internal/observability"
	"github.com/seafood-erp/seafood-erp/internal/orders"
	"github.com/seafood-erp/seafood-erp/internal/parties/customers"
	"github.com/seafood-erp/seafood-erp/internal/parties/suppliers"
	"github.com/seafood-erp/seafood-erp/internal/platform/cache"
	"github.com/seafood-erp/seafood-erp/internal/platform/db"
	"github.com/seafood-erp/seafood-erp/internal/quality"
	"github.com/seafood-erp/seafood-erp/internal/shared"
	"github.com/seafood-erp/seafood-erp/internal/view"
	"github.com/seafood-erp/seafood-erp/jobs"
	"github.com/seafood-erp/seafood-erp/report"
)

const usage = `usage: seafood [command]

commands:
  serve                         run the HTTP server (default)
  migrate [-list] [-json]       apply embedded database migrations
  jobs trigger [-json] <name>   enqueue low-stock, warmup or cleanup
  jobs stats [-scheduled N] [-json]  show default queue statistics
`

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func main() {
	if app.SkipStartup(nil, "seafood") {
		return
	}
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return 1
	}
	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}
	switch command {
	case "serve":
		if err := serve(ctx, cfg, logger); err != nil {
			logger.Error("serve", slog.Any("error", err))
			return 1
		}
		return 0
	case "migrate":
		return migrate(ctx, cfg, logger, args)
	case "jobs":
		return jobsCommand(ctx, cfg, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return 0
	default:
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
}

func migrate(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	list := fs.Bool("list", false, "list embedded migrations without applying them")
	jsonOut := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	opts := cli.MigrateOptions{List: *list, JSONOutput: *jsonOut}
	if *list {
		names, err := db.MigrationNames()
		if err != nil {
			logger.Error("list migrations", slog.Any("error", err))
			return 1
		}
		opts.Available = names
		return cli.MigrateCommand(ctx, nil, opts)
	}
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolConfig{MaxConns: 2})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return 1
	}
	defer pool.Close()
	return cli.MigrateCommand(ctx, func(ctx context.Context) ([]string, error) {
		return db.Migrate(ctx, pool, logger)
	}, opts)
}

func jobsCommand(ctx context.Context, cfg *app.Config, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	sub, args := args[0], args[1:]
	fs := flag.NewFlagSet("jobs "+sub, flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "print JSON")
	scheduled := fs.Int("scheduled", 0, "also list this many scheduled tasks")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	helper := cli.NewJobsCLI(cfg.RedisAddr)
	defer func() { _ = helper.Close() }()

	opts := cli.JobsOptions{JSONOutput: *jsonOut, Scheduled: *scheduled}
	switch sub {
	case "trigger":
		opts.Name = fs.Arg(0)
		return helper.TriggerCommand(ctx, opts)
	case "stats":
		return helper.StatsCommand(ctx, opts)
	default:
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolConfig{MaxConns: cfg.PGMaxConns})
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	if cfg.DBAutoMigrate {
		if _, err := db.Migrate(ctx, pool, logger); err != nil {
			return err
		}
	}

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Warn("redis unavailable, caches fall back to postgres", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	templates, err := view.NewEngine()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}
	metrics := observability.NewMetrics()

	auditLogger := shared.NewAuditLogger(pool)
	productCache := catalog.NewCache(redisClient, cfg.ProductCacheTTL, logger)
	retryPolicy := shared.RetryPolicy{Attempts: cfg.OrderMaxRetries, BaseDelay: cfg.OrderRetryBackoff}
	catalogService := catalog.NewService(catalog.NewRepository(pool), productCache, auditLogger, logger).WithRetry(retryPolicy)

	customerService := customers.NewService(customers.NewRepository(pool), auditLogger, logger)
	supplierService := suppliers.NewService(suppliers.NewRepository(pool), auditLogger, logger)

	dashboardCache := dashboard.NewCache(redisClient, cfg.CacheTTL, logger)
	if err := dashboardCache.ListenForInvalidation(ctx, dashboard.BumpChannel); err != nil {
		logger.Warn("dashboard invalidation listener", slog.Any("error", err))
	}
	dashboardService := dashboard.NewService(dashboard.NewRepository(pool), dashboardCache, dashboard.Config{
		LowStockThreshold: cfg.LowStockThreshold,
		Location:          loc,
	}, logger)

	orderService := orders.NewService(orders.NewRepository(pool), orders.Dependencies{
		Audit:       auditLogger,
		Idempotency: shared.NewIdempotencyStore(pool),
		Products:    productCache,
		Dashboard:   dashboardCache,
		Metrics:     observability.NewOrderMetrics(metrics.Registerer()),
		Logger:      logger,
	}, orders.ServiceConfig{Retry: retryPolicy})

	qualityService := quality.NewService(quality.NewRepository(pool), catalogService, auditLogger, logger)

	pdfClient := report.NewClient(cfg.GotenbergURL, cfg.GotenbergTimeout)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Metrics:          metrics,
		CatalogHandler:   catalog.NewHandler(logger, catalogService),
		CustomerHandler:  customers.NewHandler(logger, customerService),
		SupplierHandler:  suppliers.NewHandler(logger, supplierService),
		OrderHandler:     orders.NewHandler(logger, orderService),
		QualityHandler:   quality.NewHandler(logger, qualityService),
		DashboardHandler: dashboard.NewHandler(logger, dashboardService, templates, pdfClient, cfg.ExportsPerMinute),
		ReportHandler:    report.NewHandler(pdfClient, logger),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Checks: map[string]app.Pinger{
			"postgres": pool,
			"redis":    redisPinger{redisClient},
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	return nil
}
