package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/metrics"
	"github.com/dejobratic/orderflow/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableCommandHandler struct {
	handler CommandHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableCommandHandler(handler CommandHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableCommandHandler {
	return &ObservableCommandHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableCommandHandler) Handle(ctx context.Context, cmd CreateOrderCommand) (order *domain.Order, err error) {
	ctx, span := telemetry.StartSpan(ctx, "CreateOrderCommand.Handle",
		attribute.Int("order.item_count", len(cmd.Items)),
	)
	start := time.Now()
	defer func() {
		o.metrics.RecordOrderCreated(ctx, err == nil, time.Since(start).Seconds())
		telemetry.EndSpan(span, err)
	}()

	o.logger.InfoContext(ctx, "creating order",
		slog.String("op", "create_order"),
		slog.String("customer_name", cmd.CustomerName),
		slog.Int("item_count", len(cmd.Items)),
	)

	order, err = o.handler.Handle(ctx, cmd)
	if err != nil {
		o.logger.ErrorContext(ctx, "failed to create order",
			slog.String("op", "create_order"),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.String("order.total_amount", order.TotalAmount.String()),
		attribute.String("order.status", string(order.Status)),
	)

	o.logger.InfoContext(ctx, "order created",
		slog.String("op", "create_order"),
		slog.String("order_id", order.ID),
		slog.String("total_amount", order.TotalAmount.String()),
	)

	return order, nil
}

type ObservableStatusHandler struct {
	handler StatusCommandHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableStatusHandler(handler StatusCommandHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableStatusHandler {
	return &ObservableStatusHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableStatusHandler) Handle(ctx context.Context, cmd UpdateOrderStatusCommand) (order *domain.Order, err error) {
	ctx, span := telemetry.StartSpan(ctx, "UpdateOrderStatusCommand.Handle",
		attribute.String("order.id", cmd.OrderID),
		attribute.String("order.new_status", cmd.Status),
	)
	defer func() {
		label := cmd.Status
		if !domain.OrderStatus(label).Valid() {
			label = "invalid"
		}
		o.metrics.RecordStatusUpdated(ctx, label, err == nil)
		telemetry.EndSpan(span, err)
	}()

	order, err = o.handler.Handle(ctx, cmd)
	if err != nil {
		o.logger.WarnContext(ctx, "failed to update order status",
			slog.String("op", "update_order_status"),
			slog.String("order_id", cmd.OrderID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	o.logger.InfoContext(ctx, "order status updated",
		slog.String("op", "update_order_status"),
		slog.String("order_id", order.ID),
		slog.String("status", string(order.Status)),
	)
	return order, nil
}
