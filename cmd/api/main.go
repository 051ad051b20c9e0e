package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ecopontos/ecopontos-backend/api/routes"
	"github.com/ecopontos/ecopontos-backend/internal/ledger"
	"github.com/ecopontos/ecopontos-backend/internal/points"
	"github.com/ecopontos/ecopontos-backend/pkg/config"
	"github.com/ecopontos/ecopontos-backend/pkg/db"
	"github.com/ecopontos/ecopontos-backend/pkg/logger"
	"github.com/ecopontos/ecopontos-backend/pkg/metrics"
	"github.com/ecopontos/ecopontos-backend/pkg/migrate"
	"github.com/ecopontos/ecopontos-backend/pkg/redis"
)

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
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	ledgerMetrics := metrics.NewLedgerMetrics(registry)

	params := ledger.ServiceParams{
		DB:         dbClient.DB(),
		Repo:       ledger.NewRepository(dbClient.DB()),
		Calculator: points.NewCalculator(points.DefaultCatalog()),
		Logger:     logg,
		Metrics:    ledgerMetrics,
		Config:     cfg.Ledger,
	}

	accrualService, err := ledger.NewAccrualService(params)
	if err != nil {
		logg.Error(context.Background(), "failed to create accrual service", err)
		os.Exit(1)
	}
	redemptionService, err := ledger.NewRedemptionService(params)
	if err != nil {
		logg.Error(context.Background(), "failed to create redemption service", err)
		os.Exit(1)
	}
	queryService, err := ledger.NewQueryService(params)
	if err != nil {
		logg.Error(context.Background(), "failed to create query service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:     cfg,
			Logger:     logg,
			DBPinger:   dbClient,
			Redis:      redisClient,
			Accrual:    accrualService,
			Redemption: redemptionService,
			Query:      queryService,
			Registry:   registry,
		}),
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-shutdown
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
