package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dejobratic/orderflow/internal/config"
	"github.com/dejobratic/orderflow/internal/database"
	"github.com/dejobratic/orderflow/internal/httpx"
	idempostgres "github.com/dejobratic/orderflow/internal/idempotency/postgres"
	"github.com/dejobratic/orderflow/internal/orders/adapters"
	"github.com/dejobratic/orderflow/internal/orders/adapters/cache"
	httpadapter "github.com/dejobratic/orderflow/internal/orders/adapters/http"
	orderspostgres "github.com/dejobratic/orderflow/internal/orders/adapters/postgres"
	ordersapp "github.com/dejobratic/orderflow/internal/orders/app"
	ordersmetrics "github.com/dejobratic/orderflow/internal/orders/metrics"
	"github.com/dejobratic/orderflow/internal/rabbitmq"
	"github.com/dejobratic/orderflow/internal/telemetry"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.LoadOrders()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		return 1
	}

	logger := telemetry.NewLogger(cfg.Service.Name, cfg.Telemetry.Level())
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		Environment:    cfg.Service.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTelEndpoint,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		logger.Error("failed to set up telemetry", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	meter := tel.Meter()
	httpMetrics, err := httpx.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create http metrics", slog.String("error", err.Error()))
		return 1
	}
	dbMetrics, err := database.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create database metrics", slog.String("error", err.Error()))
		return 1
	}
	brokerMetrics, err := rabbitmq.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create broker metrics", slog.String("error", err.Error()))
		return 1
	}
	orderMetrics, err := ordersmetrics.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create order metrics", slog.String("error", err.Error()))
		return 1
	}

	pool, err := database.NewPool(ctx, cfg.Database.URL, cfg.Database.ConnectTimeout)
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		return 1
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		logger.Info("running database migrations", slog.String("path", cfg.Database.MigrationsPath))
		version, err := database.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath)
		if err != nil {
			logger.Error("failed to run migrations", slog.String("error", err.Error()))
			return 1
		}
		logger.Info("migrations completed", slog.Uint64("version", uint64(version)))
	}

	publisher := rabbitmq.NewPublisher(rabbitmq.Config{
		URL:            cfg.RabbitMQ.URL,
		Exchange:       cfg.RabbitMQ.Exchange,
		ConnectTimeout: cfg.RabbitMQ.ConnectTimeout,
		ConnectionName: cfg.Service.Name,
	}, logger, rabbitmq.WithMetrics(brokerMetrics))
	if err := publisher.Connect(ctx); err != nil {
		logger.Error("failed to connect to broker", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		if err := publisher.Close(context.Background()); err != nil {
			logger.Error("failed to close broker connection", slog.String("error", err.Error()))
		}
	}()

	repo := adapters.NewObservableRepository(
		cache.NewRepository(orderspostgres.NewRepository(pool), cfg.Cache.Size, cfg.Cache.TTL),
		dbMetrics,
	)
	service := ordersapp.NewService(repo, publisher, idempostgres.NewStore(pool), logger, orderMetrics)

	router := httpadapter.NewRouter(httpadapter.NewHandler(service, logger), httpadapter.RouterConfig{
		ServiceName: cfg.Service.Name,
		Logger:      logger,
		Metrics:     httpMetrics,
		Checks: map[string]httpadapter.Check{
			"database": func(ctx context.Context) error { return database.CheckHealth(ctx, pool) },
			"broker":   publisher.Ping,
		},
	})

	if err := httpx.Serve(ctx, httpx.NewServer(cfg.HTTP.Port, router), logger, cfg.HTTP.ShutdownGrace); err != nil {
		logger.Error("http server failed", slog.String("error", err.Error()))
		return 1
	}
	return 0
}
