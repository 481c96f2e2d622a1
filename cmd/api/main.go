package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/shopbridge/shopbridge-backend/api/routes"
	"github.com/shopbridge/shopbridge-backend/internal/memberships"
	"github.com/shopbridge/shopbridge-backend/internal/payments"
	product "github.com/shopbridge/shopbridge-backend/internal/products"
	"github.com/shopbridge/shopbridge-backend/internal/purchaseorders"
	"github.com/shopbridge/shopbridge-backend/internal/shops"
	"github.com/shopbridge/shopbridge-backend/internal/stocktransfers"
	"github.com/shopbridge/shopbridge-backend/pkg/config"
	"github.com/shopbridge/shopbridge-backend/pkg/db"
	"github.com/shopbridge/shopbridge-backend/pkg/env"
	"github.com/shopbridge/shopbridge-backend/pkg/logger"
	"github.com/shopbridge/shopbridge-backend/pkg/metrics"
	"github.com/shopbridge/shopbridge-backend/pkg/migrate"
	"github.com/shopbridge/shopbridge-backend/pkg/outbox"
	"github.com/shopbridge/shopbridge-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	opMetrics := metrics.NewOperationMetrics(registry)

	conn := dbClient.DB()
	oracle := memberships.NewOracle(memberships.NewRepository(conn))
	productRepo := product.NewRepository(conn)
	ordersRepo := purchaseorders.NewRepository(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	productService, err := product.NewService(productRepo, oracle)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	ordersService, err := purchaseorders.NewService(purchaseorders.ServiceParams{
		Tx:                dbClient,
		Auth:              oracle,
		Repo:              ordersRepo,
		Products:          productRepo,
		Shops:             shops.NewRepository(conn),
		Outbox:            emitter,
		Logger:            logg,
		Metrics:           opMetrics,
		Clock:             time.Now,
		ReferenceAttempts: cfg.Purchasing.ReferenceAttempts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create purchase order service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Tx:       dbClient,
		Auth:     oracle,
		Orders:   ordersRepo,
		Payments: payments.NewRepository(conn),
		Outbox:   emitter,
		Logger:   logg,
		Metrics:  opMetrics,
		Clock:    time.Now,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	transfersService, err := stocktransfers.NewService(stocktransfers.ServiceParams{
		Tx:        dbClient,
		Auth:      oracle,
		Orders:    ordersRepo,
		Products:  productRepo,
		Transfers: stocktransfers.NewRepository(conn),
		Outbox:    emitter,
		Logger:    logg,
		Metrics:   opMetrics,
		Clock:     time.Now,
		Policy:    cfg.Purchasing.Policy(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stock transfer service", err)
		os.Exit(1)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":             cfg.App.Env,
		"addr":            addr,
		"transfer_policy": string(cfg.Purchasing.Policy()),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, registry, ordersService, paymentsService, transfersService, productService),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
