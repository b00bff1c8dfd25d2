// Command event-simulator publishes one sample order.created event through
// the same publisher and exchange the order service uses.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dejobratic/orderflow/internal/config"
	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/rabbitmq"
	"github.com/dejobratic/orderflow/internal/telemetry"
	"github.com/shopspring/decimal"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.LoadSimulator()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		return 1
	}

	logger := telemetry.NewLogger("event-simulator", cfg.Telemetry.Level())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	publisher := rabbitmq.NewPublisher(rabbitmq.Config{
		URL:            cfg.RabbitMQ.URL,
		Exchange:       cfg.RabbitMQ.Exchange,
		ConnectTimeout: cfg.RabbitMQ.ConnectTimeout,
		ConnectionName: "event-simulator",
	}, logger)
	if err := publisher.Connect(ctx); err != nil {
		logger.Error("failed to connect to broker", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		if err := publisher.Close(context.Background()); err != nil {
			logger.Error("failed to close broker connection", slog.String("error", err.Error()))
		}
	}()

	order, err := domain.NewOrder("Simulated Customer", []domain.Item{
		{Name: "Margherita", Quantity: 2, Price: decimal.RequireFromString("9.50")},
		{Name: "Lemonade", Quantity: 1, Price: decimal.RequireFromString("3.00")},
	}, time.Now())
	if err != nil {
		logger.Error("failed to build sample order", slog.String("error", err.Error()))
		return 1
	}

	accepted, err := publisher.PublishEvent(ctx, domain.EventOrderCreated, domain.NewOrderCreated(order))
	if err != nil {
		logger.Error("failed to publish sample event", slog.String("error", err.Error()))
		return 1
	}
	if !accepted {
		logger.Warn("broker applied flow control to sample event", slog.String("order_id", order.ID))
	}

	logger.Info("published sample event",
		slog.String("routing_key", domain.EventOrderCreated),
		slog.String("exchange", cfg.RabbitMQ.Exchange),
		slog.String("order_id", order.ID),
	)
	return 0
}
