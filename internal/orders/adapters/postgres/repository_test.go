//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dejobratic/orderflow/internal/database/dbtest"
	"github.com/dejobratic/orderflow/internal/orders/adapters/postgres"
	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/ports"
	"github.com/shopspring/decimal"
)

func newOrder(t *testing.T, createdAt time.Time) domain.Order {
	t.Helper()
	order, err := domain.NewOrder("Ana", []domain.Item{
		{Name: "Pizza", Quantity: 2, Price: decimal.RequireFromString("12.50")},
		{Name: "Cola", Quantity: 1, Price: decimal.RequireFromString("2.99")},
	}, createdAt)
	if err != nil {
		t.Fatalf("failed to build order: %v", err)
	}
	return order
}

func TestRepositoryCreate(t *testing.T) {
	repo := postgres.NewRepository(dbtest.NewPool(t))
	ctx := context.Background()

	order := newOrder(t, time.Now().Truncate(time.Microsecond))
	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("failed to create order: %v", err)
	}

	retrieved, err := repo.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("failed to retrieve order: %v", err)
	}

	if retrieved.CustomerName != order.CustomerName {
		t.Errorf("expected customer %s, got %s", order.CustomerName, retrieved.CustomerName)
	}
	if !retrieved.TotalAmount.Equal(decimal.RequireFromString("27.99")) {
		t.Errorf("expected total 27.99, got %s", retrieved.TotalAmount)
	}
	if len(retrieved.Items) != 2 || !retrieved.Items[1].Price.Equal(order.Items[1].Price) {
		t.Errorf("items did not round trip: %+v", retrieved.Items)
	}
	if retrieved.Status != domain.StatusCreated {
		t.Errorf("expected status created, got %s", retrieved.Status)
	}
	if !retrieved.CreatedAt.Equal(order.CreatedAt) {
		t.Errorf("expected created_at %v, got %v", order.CreatedAt, retrieved.CreatedAt)
	}
}

func TestRepositoryGetByID_NotFound(t *testing.T) {
	repo := postgres.NewRepository(dbtest.NewPool(t))

	_, err := repo.GetByID(context.Background(), "ORD-missing")
	if !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRepositoryList(t *testing.T) {
	repo := postgres.NewRepository(dbtest.NewPool(t))
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	var ids []string
	for i := 0; i < 3; i++ {
		order := newOrder(t, base.Add(time.Duration(i)*time.Second))
		if err := repo.Create(ctx, order); err != nil {
			t.Fatalf("failed to create order: %v", err)
		}
		ids = append(ids, order.ID)
	}

	tests := []struct {
		filter  ports.ListFilter
		wantIDs []string
	}{
		{ports.ListFilter{Limit: 20}, []string{ids[2], ids[1], ids[0]}},
		{ports.ListFilter{Limit: 2}, []string{ids[2], ids[1]}},
		{ports.ListFilter{Limit: 2, Skip: 2}, []string{ids[0]}},
		{ports.ListFilter{Limit: 2, Skip: 5}, []string{}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("limit=%d skip=%d", tt.filter.Limit, tt.filter.Skip), func(t *testing.T) {
			result, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("failed to list orders: %v", err)
			}
			if len(result) != len(tt.wantIDs) {
				t.Fatalf("expected %d orders, got %d", len(tt.wantIDs), len(result))
			}
			for i, id := range tt.wantIDs {
				if result[i].ID != id {
					t.Errorf("position %d: expected %s, got %s", i, id, result[i].ID)
				}
			}
		})
	}
}

func TestRepositoryUpdateStatus(t *testing.T) {
	repo := postgres.NewRepository(dbtest.NewPool(t))
	ctx := context.Background()

	order := newOrder(t, time.Now())
	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("failed to create order: %v", err)
	}

	updatedAt := order.UpdatedAt.Add(time.Minute).Truncate(time.Microsecond)
	if err := repo.UpdateStatus(ctx, order.ID, domain.StatusInProgress, updatedAt); err != nil {
		t.Fatalf("failed to update status: %v", err)
	}

	updated, err := repo.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("failed to retrieve order: %v", err)
	}
	if updated.Status != domain.StatusInProgress {
		t.Errorf("expected status in_progress, got %s", updated.Status)
	}
	if !updated.UpdatedAt.Equal(updatedAt) {
		t.Errorf("expected updated_at %v, got %v", updatedAt, updated.UpdatedAt)
	}

	err = repo.UpdateStatus(ctx, "ORD-missing", domain.StatusReady, updatedAt)
	if !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
