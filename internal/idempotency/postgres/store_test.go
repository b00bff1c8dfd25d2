//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dejobratic/orderflow/internal/database/dbtest"
	"github.com/dejobratic/orderflow/internal/idempotency/postgres"
	"github.com/dejobratic/orderflow/internal/orders/ports"
)

func TestStoreSaveAndGet(t *testing.T) {
	store := postgres.NewStore(dbtest.NewPool(t))
	ctx := context.Background()

	response := ports.StoredResponse{
		RequestHash: "3f5a",
		StatusCode:  201,
		Body:        []byte(`{"orderId":"ORD-1"}`),
		OrderID:     "ORD-1",
	}

	if err := store.Save(ctx, "key-1", response); err != nil {
		t.Fatalf("failed to save idempotency key: %v", err)
	}

	retrieved, err := store.Get(ctx, "key-1")
	if err != nil {
		t.Fatalf("failed to get idempotency key: %v", err)
	}
	if retrieved == nil {
		t.Fatal("expected response, got nil")
	}

	if retrieved.RequestHash != response.RequestHash ||
		retrieved.StatusCode != response.StatusCode ||
		string(retrieved.Body) != string(response.Body) ||
		retrieved.OrderID != response.OrderID {
		t.Errorf("expected %+v, got %+v", response, *retrieved)
	}
}

func TestStoreGet_NotFound(t *testing.T) {
	store := postgres.NewStore(dbtest.NewPool(t))

	retrieved, err := store.Get(context.Background(), "nonexistent-key")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if retrieved != nil {
		t.Errorf("expected nil response, got %v", retrieved)
	}
}

func TestStoreSave_Conflict(t *testing.T) {
	store := postgres.NewStore(dbtest.NewPool(t))
	ctx := context.Background()

	first := ports.StoredResponse{RequestHash: "a", StatusCode: 201, Body: []byte(`{}`), OrderID: "ORD-1"}
	second := ports.StoredResponse{RequestHash: "b", StatusCode: 201, Body: []byte(`{}`), OrderID: "ORD-2"}

	if err := store.Save(ctx, "key-conflict", first); err != nil {
		t.Fatalf("failed to save first response: %v", err)
	}
	if err := store.Save(ctx, "key-conflict", first); err != nil {
		t.Fatalf("expected repeated save of the same request to succeed, got %v", err)
	}
	if err := store.Save(ctx, "key-conflict", second); !errors.Is(err, ports.ErrIdempotencyKeyReused) {
		t.Fatalf("expected ErrIdempotencyKeyReused, got %v", err)
	}

	retrieved, err := store.Get(ctx, "key-conflict")
	if err != nil {
		t.Fatalf("failed to get response: %v", err)
	}
	if retrieved.OrderID != first.OrderID {
		t.Errorf("expected first response to be preserved, got order ID %s", retrieved.OrderID)
	}
}
