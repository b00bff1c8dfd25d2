package queries

import (
	"context"
	"fmt"

	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/ports"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ListOrdersQuery pages through orders, newest first. A zero Limit means
// DefaultLimit; larger values are capped at MaxLimit.
type ListOrdersQuery struct {
	Limit int
	Skip  int
}

func (q ListOrdersQuery) Validate() error {
	if q.Limit < 0 {
		return fmt.Errorf("%w: limit must be positive", ErrInvalidQuery)
	}
	if q.Skip < 0 {
		return fmt.Errorf("%w: skip must not be negative", ErrInvalidQuery)
	}
	return nil
}

func (q ListOrdersQuery) normalized() ListOrdersQuery {
	switch {
	case q.Limit == 0:
		q.Limit = DefaultLimit
	case q.Limit > MaxLimit:
		q.Limit = MaxLimit
	}
	return q
}

type ListOrdersResult struct {
	Orders []domain.Order `json:"orders"`
	Limit  int            `json:"limit"`
	Skip   int            `json:"skip"`
	Count  int            `json:"count"`
}

type ListOrdersQueryHandler struct {
	repo ports.OrderRepository
}

func NewListOrdersQueryHandler(repo ports.OrderRepository) *ListOrdersQueryHandler {
	return &ListOrdersQueryHandler{repo: repo}
}

func (h *ListOrdersQueryHandler) Handle(ctx context.Context, query ListOrdersQuery) (*ListOrdersResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	query = query.normalized()

	orders, err := h.repo.List(ctx, ports.ListFilter{Limit: query.Limit, Skip: query.Skip})
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}

	return &ListOrdersResult{
		Orders: orders,
		Limit:  query.Limit,
		Skip:   query.Skip,
		Count:  len(orders),
	}, nil
}
