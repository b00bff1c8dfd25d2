package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dejobratic/orderflow/internal/config"
	"github.com/dejobratic/orderflow/internal/gateway"
	"github.com/dejobratic/orderflow/internal/httpx"
	"github.com/dejobratic/orderflow/internal/telemetry"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.LoadGateway()
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

	httpMetrics, err := httpx.NewMetrics(tel.Meter())
	if err != nil {
		logger.Error("failed to create http metrics", slog.String("error", err.Error()))
		return 1
	}
	proxyMetrics, err := gateway.NewMetrics(tel.Meter())
	if err != nil {
		logger.Error("failed to create gateway metrics", slog.String("error", err.Error()))
		return 1
	}

	orders := gateway.NewClient(gateway.Upstream{
		Name:        config.OrdersServiceName,
		DisplayName: "Order Service",
		BaseURL:     cfg.Upstream.OrderServiceURL,
	}, cfg.Upstream.Timeout)
	logger.Info("forwarding orders", slog.String("upstream", cfg.Upstream.OrderServiceURL))

	router := gateway.NewRouter(gateway.NewProxy(orders, logger, proxyMetrics), gateway.RouterConfig{
		ServiceName:   cfg.Service.Name,
		AllowedOrigin: cfg.CORS.AllowedOrigin,
		Logger:        logger,
		Metrics:       httpMetrics,
	})

	if err := httpx.Serve(ctx, httpx.NewServer(cfg.HTTP.Port, router), logger, cfg.HTTP.ShutdownGrace); err != nil {
		logger.Error("http server failed", slog.String("error", err.Error()))
		return 1
	}
	return 0
}
