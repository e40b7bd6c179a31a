package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/schoolshop/internal/config"
	"github.com/nikolayk812/schoolshop/internal/db"
	"github.com/nikolayk812/schoolshop/internal/domain"
	"github.com/nikolayk812/schoolshop/internal/handler"
	"github.com/nikolayk812/schoolshop/internal/idempotency"
	"github.com/nikolayk812/schoolshop/internal/observability"
	"github.com/nikolayk812/schoolshop/internal/port"
	"github.com/nikolayk812/schoolshop/internal/repository"
	"github.com/nikolayk812/schoolshop/internal/repository/memory"
	"github.com/nikolayk812/schoolshop/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load("config", os.Getenv("SCHOOLSHOP_ENV"))
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}

	logger, err := observability.NewLogger(cfg.App.LogLevel)
	if err != nil {
		return fmt.Errorf("observability.NewLogger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	pricing, err := cfg.PricingPolicy()
	if err != nil {
		return fmt.Errorf("cfg.PricingPolicy: %w", err)
	}

	orders, catalog, transactor, closeStorage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStorage()

	if cfg.Catalog.SeedFile != "" {
		if err := seedCatalog(ctx, catalog, cfg.Catalog.SeedFile, pricing, logger); err != nil {
			return err
		}
	}

	idem, closeIdem, err := openIdempotency(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeIdem()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	svc, err := service.NewOrderService(service.OrderServiceDeps{
		Orders:            orders,
		Transactor:        transactor,
		Pricing:           pricing,
		Logger:            logger,
		Metrics:           metrics,
		MaxUpdateAttempts: cfg.Orders.MaxUpdateAttempts,
	})
	if err != nil {
		return fmt.Errorf("service.NewOrderService: %w", err)
	}

	srv := &http.Server{
		Addr: cfg.App.HTTPAddr,
		Handler: handler.NewRouter(handler.RouterDeps{
			Orders:         handler.NewOrderHandler(svc, idem, time.Now, logger),
			Logger:         logger,
			Metrics:        metrics,
			Gatherer:       reg,
			RequestTimeout: cfg.HTTP.RequestTimeout,
		}),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening",
			zap.String("app", cfg.App.Name),
			zap.String("addr", cfg.App.HTTPAddr),
			zap.String("storage", cfg.App.Storage))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("srv.ListenAndServe: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("srv.Shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func openStorage(ctx context.Context, cfg config.Config, logger *zap.Logger) (port.OrderRepository, port.CatalogRepository, port.Transactor, func(), error) {
	if cfg.App.Storage == config.StorageMemory {
		logger.Warn("using in-memory storage, orders are lost on restart")
		store := memory.NewStore()
		return store.Orders(), store.Catalog(), store.Transactor(), func() {}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.DSN)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("pgxpool.ParseConfig: %w", err)
	}
	if cfg.Postgres.MaxConns > 0 {
		poolCfg.MaxConns = cfg.Postgres.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, nil, nil, fmt.Errorf("pool.Ping: %w", err)
	}

	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, nil, fmt.Errorf("db.Migrate: %w", err)
	}

	return repository.NewOrder(pool), repository.NewCatalog(pool), repository.NewTransactor(pool), pool.Close, nil
}

func openIdempotency(ctx context.Context, cfg config.Config, logger *zap.Logger) (idempotency.Store, func(), error) {
	if cfg.Redis.Addr == "" {
		logger.Info("idempotency keys kept in process memory")
		return idempotency.NewMemoryStore(cfg.Redis.IdempotencyTTL), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("rdb.Ping: %w", err)
	}

	return idempotency.NewRedisStore(rdb, cfg.Redis.IdempotencyTTL), func() { _ = rdb.Close() }, nil
}

func seedCatalog(ctx context.Context, catalog port.CatalogRepository, path string, pricing domain.PricingPolicy, logger *zap.Logger) error {
	items, err := config.LoadCatalogSeed(path, pricing.Currency)
	if err != nil {
		return fmt.Errorf("config.LoadCatalogSeed: %w", err)
	}

	for _, item := range items {
		if err := catalog.UpsertItem(ctx, item); err != nil {
			return fmt.Errorf("catalog.UpsertItem[%s]: %w", item.ID, err)
		}
	}

	logger.Info("catalog seeded", zap.String("file", path), zap.Int("items", len(items)))
	return nil
}
