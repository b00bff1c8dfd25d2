package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/ports"
)

type UpdateOrderStatusCommand struct {
	OrderID string
	Status  string
}

func (c UpdateOrderStatusCommand) Validate() error {
	if strings.TrimSpace(c.OrderID) == "" {
		return fmt.Errorf("%w: orderId is required", domain.ErrInvalidOrder)
	}
	if strings.TrimSpace(c.Status) == "" {
		return fmt.Errorf("%w: status is required", domain.ErrInvalidStatus)
	}
	return nil
}

type StatusCommandHandler interface {
	Handle(ctx context.Context, cmd UpdateOrderStatusCommand) (*domain.Order, error)
}

// UpdateOrderStatusCommandHandler moves an order to any known status.
// Lifecycle rules are left to the caller.
type UpdateOrderStatusCommandHandler struct {
	repo   ports.OrderRepository
	events ports.EventPublisher
	logger *slog.Logger
	now    func() time.Time
}

func NewUpdateOrderStatusCommandHandler(
	repo ports.OrderRepository,
	events ports.EventPublisher,
	logger *slog.Logger,
) *UpdateOrderStatusCommandHandler {
	return &UpdateOrderStatusCommandHandler{
		repo:   repo,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

func (h *UpdateOrderStatusCommandHandler) Handle(ctx context.Context, cmd UpdateOrderStatusCommand) (*domain.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	status, err := domain.ParseStatus(cmd.Status)
	if err != nil {
		return nil, err
	}

	order, err := h.repo.GetByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}

	previous := order.Status
	updatedAt := h.now().UTC()
	if order.IsTerminal() && previous != status {
		h.logger.InfoContext(ctx, "order leaves a terminal status",
			slog.String("op", "update_order_status"),
			slog.String("order_id", order.ID),
			slog.String("from", string(previous)),
			slog.String("to", string(status)),
		)
	}

	if err := h.repo.UpdateStatus(ctx, order.ID, status, updatedAt); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	order.Status = status
	order.UpdatedAt = updatedAt

	announce(ctx, h.logger, h.events, "update_order_status", domain.EventOrderStatusUpdated, order.ID, domain.OrderStatusUpdated{
		OrderID:        order.ID,
		PreviousStatus: previous,
		Status:         status,
		UpdatedAt:      updatedAt,
	})

	return order, nil
}
