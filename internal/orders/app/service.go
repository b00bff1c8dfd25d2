package app

import (
	"context"
	"log/slog"

	"github.com/dejobratic/orderflow/internal/orders/app/commands"
	"github.com/dejobratic/orderflow/internal/orders/app/queries"
	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/metrics"
	"github.com/dejobratic/orderflow/internal/orders/ports"
	"github.com/shopspring/decimal"
)

// Service bundles use cases for handling orders via the API.
type Service struct {
	idemStore          ports.IdempotencyStore
	createOrderHandler commands.CommandHandler
	statusHandler      commands.StatusCommandHandler
	getOrderHandler    *queries.GetOrderQueryHandler
	getStatusHandler   *queries.GetOrderStatusQueryHandler
	listOrdersHandler  *queries.ListOrdersQueryHandler
}

// NewService wires required dependencies. metrics may be nil.
func NewService(
	repo ports.OrderRepository,
	events ports.EventPublisher,
	idem ports.IdempotencyStore,
	logger *slog.Logger,
	metrics *metrics.Metrics,
) *Service {
	createHandler := commands.NewCreateOrderCommandHandler(repo, events, logger)
	statusHandler := commands.NewUpdateOrderStatusCommandHandler(repo, events, logger)

	return &Service{
		idemStore:          idem,
		createOrderHandler: commands.NewObservableCommandHandler(createHandler, logger, metrics),
		statusHandler:      commands.NewObservableStatusHandler(statusHandler, logger, metrics),
		getOrderHandler:    queries.NewGetOrderQueryHandler(repo),
		getStatusHandler:   queries.NewGetOrderStatusQueryHandler(repo),
		listOrdersHandler:  queries.NewListOrdersQueryHandler(repo),
	}
}

type CreateOrderItem struct {
	Name     string          `json:"name" validate:"required"`
	Quantity int             `json:"quantity" validate:"gt=0"`
	Price    decimal.Decimal `json:"price"`
}

// CreateOrderInput captures payload for creating an order.
type CreateOrderInput struct {
	CustomerName string            `json:"customerName" validate:"required"`
	Items        []CreateOrderItem `json:"items" validate:"required,min=1,dive"`
}

// CreateOrder persists a new order and announces order.created.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	items := make([]domain.Item, len(input.Items))
	for i, item := range input.Items {
		items[i] = domain.Item{Name: item.Name, Quantity: item.Quantity, Price: item.Price}
	}
	return s.createOrderHandler.Handle(ctx, commands.CreateOrderCommand{
		CustomerName: input.CustomerName,
		Items:        items,
	})
}

// UpdateOrderStatus sets the status of an order and announces order.status_updated.
func (s *Service) UpdateOrderStatus(ctx context.Context, id, status string) (*domain.Order, error) {
	return s.statusHandler.Handle(ctx, commands.UpdateOrderStatusCommand{OrderID: id, Status: status})
}

// GetOrder retrieves an order by ID.
func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.getOrderHandler.Handle(ctx, queries.GetOrderQuery{OrderID: id})
}

func (s *Service) GetOrderStatus(ctx context.Context, id string) (*queries.OrderStatusView, error) {
	return s.getStatusHandler.Handle(ctx, queries.GetOrderQuery{OrderID: id})
}

func (s *Service) ListOrders(ctx context.Context, query queries.ListOrdersQuery) (*queries.ListOrdersResult, error) {
	return s.listOrdersHandler.Handle(ctx, query)
}

// SaveIdempotentResponse writes response details for a key.
func (s *Service) SaveIdempotentResponse(ctx context.Context, key string, response ports.StoredResponse) error {
	return s.idemStore.Save(ctx, key, response)
}

// GetIdempotentResponse retrieves previously stored response data.
func (s *Service) GetIdempotentResponse(ctx context.Context, key string) (*ports.StoredResponse, error) {
	return s.idemStore.Get(ctx, key)
}
