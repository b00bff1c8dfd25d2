package adapters

import (
	"context"
	"errors"
	"time"

	"github.com/dejobratic/orderflow/internal/database"
	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/ports"
	"github.com/dejobratic/orderflow/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableRepository struct {
	repo    ports.OrderRepository
	metrics *database.Metrics
}

func NewObservableRepository(repo ports.OrderRepository, metrics *database.Metrics) *ObservableRepository {
	return &ObservableRepository{
		repo:    repo,
		metrics: metrics,
	}
}

// observe times op and records it. Not-found is an answer, not a failure.
func (r *ObservableRepository) observe(ctx context.Context, op string, attrs []attribute.KeyValue, fn func(context.Context) error) error {
	ctx, span := telemetry.StartSpan(ctx, "OrderRepository."+op, append(attrs, attribute.String("db.operation", op))...)

	start := time.Now()
	err := fn(ctx)

	failure := err
	if errors.Is(err, ports.ErrNotFound) {
		failure = nil
	}
	r.metrics.RecordQuery(ctx, op, time.Since(start).Seconds(), failure)
	telemetry.EndSpan(span, failure)

	return err
}

func (r *ObservableRepository) Create(ctx context.Context, order domain.Order) error {
	return r.observe(ctx, "create_order", []attribute.KeyValue{attribute.String("order.id", order.ID)}, func(ctx context.Context) error {
		return r.repo.Create(ctx, order)
	})
}

func (r *ObservableRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var order *domain.Order
	err := r.observe(ctx, "get_order_by_id", []attribute.KeyValue{attribute.String("order.id", id)}, func(ctx context.Context) error {
		var err error
		order, err = r.repo.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *ObservableRepository) List(ctx context.Context, filter ports.ListFilter) ([]domain.Order, error) {
	var orders []domain.Order
	attrs := []attribute.KeyValue{
		attribute.Int("limit", filter.Limit),
		attribute.Int("skip", filter.Skip),
	}
	err := r.observe(ctx, "list_orders", attrs, func(ctx context.Context) error {
		var err error
		orders, err = r.repo.List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *ObservableRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, updatedAt time.Time) error {
	attrs := []attribute.KeyValue{
		attribute.String("order.id", id),
		attribute.String("order.new_status", string(status)),
	}
	return r.observe(ctx, "update_order_status", attrs, func(ctx context.Context) error {
		return r.repo.UpdateStatus(ctx, id, status, updatedAt)
	})
}
