package queries

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/ports"
)

// ErrInvalidQuery marks a query rejected before reaching the repository.
var ErrInvalidQuery = errors.New("invalid query")

// GetOrderQuery represents a request to retrieve an order by its ID.
type GetOrderQuery struct {
	OrderID string
}

// Validate ensures the query has valid parameters.
func (q GetOrderQuery) Validate() error {
	if strings.TrimSpace(q.OrderID) == "" {
		return fmt.Errorf("%w: orderId is required", ErrInvalidQuery)
	}
	return nil
}

// GetOrderQueryHandler executes GetOrderQuery and returns the order if found.
type GetOrderQueryHandler struct {
	repo ports.OrderRepository
}

func NewGetOrderQueryHandler(repo ports.OrderRepository) *GetOrderQueryHandler {
	return &GetOrderQueryHandler{repo: repo}
}

func (h *GetOrderQueryHandler) Handle(ctx context.Context, query GetOrderQuery) (*domain.Order, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	return h.repo.GetByID(ctx, query.OrderID)
}

// OrderStatusView is the slim projection served by the status endpoint.
type OrderStatusView struct {
	OrderID   string             `json:"orderId"`
	Status    domain.OrderStatus `json:"status"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// GetOrderStatusQueryHandler returns only the status of an order.
type GetOrderStatusQueryHandler struct {
	orders *GetOrderQueryHandler
}

func NewGetOrderStatusQueryHandler(repo ports.OrderRepository) *GetOrderStatusQueryHandler {
	return &GetOrderStatusQueryHandler{orders: NewGetOrderQueryHandler(repo)}
}

func (h *GetOrderStatusQueryHandler) Handle(ctx context.Context, query GetOrderQuery) (*OrderStatusView, error) {
	order, err := h.orders.Handle(ctx, query)
	if err != nil {
		return nil, err
	}
	return &OrderStatusView{
		OrderID:   order.ID,
		Status:    order.Status,
		UpdatedAt: order.UpdatedAt,
	}, nil
}
