package commands

import (
	"context"
	"log/slog"

	"github.com/dejobratic/orderflow/internal/orders/ports"
)

// announce publishes an event for a change that is already persisted.
// Failures are logged only.
func announce(ctx context.Context, logger *slog.Logger, events ports.EventPublisher, op, routingKey, orderID string, payload any) {
	accepted, err := events.PublishEvent(ctx, routingKey, payload)
	switch {
	case err != nil:
		logger.ErrorContext(ctx, "failed to publish order event",
			slog.String("op", op),
			slog.String("routing_key", routingKey),
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
	case !accepted:
		logger.WarnContext(ctx, "order event published under broker backpressure",
			slog.String("op", op),
			slog.String("routing_key", routingKey),
			slog.String("order_id", orderID),
		)
	}
}
