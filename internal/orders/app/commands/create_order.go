package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/ports"
)

type CreateOrderCommand struct {
	CustomerName string
	Items        []domain.Item
}

type CommandHandler interface {
	Handle(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error)
}

type CreateOrderCommandHandler struct {
	repo   ports.OrderRepository
	events ports.EventPublisher
	logger *slog.Logger
	now    func() time.Time
}

func NewCreateOrderCommandHandler(
	repo ports.OrderRepository,
	events ports.EventPublisher,
	logger *slog.Logger,
) *CreateOrderCommandHandler {
	return &CreateOrderCommandHandler{
		repo:   repo,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// Handle persists the order and then announces order.created. A failed
// announcement is logged and does not fail the command: the order exists.
func (h *CreateOrderCommandHandler) Handle(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error) {
	order, err := domain.NewOrder(cmd.CustomerName, cmd.Items, h.now())
	if err != nil {
		return nil, err
	}

	if err := h.repo.Create(ctx, order); err != nil {
		return nil, err
	}

	announce(ctx, h.logger, h.events, "create_order", domain.EventOrderCreated, order.ID, domain.NewOrderCreated(order))

	return &order, nil
}
