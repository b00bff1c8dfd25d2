// Package postgres keeps idempotent create responses in the idempotency_keys table.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dejobratic/orderflow/internal/orders/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	selectResponseSQL = `
		SELECT request_hash, status_code, body, order_id
		FROM idempotency_keys
		WHERE key = $1`

	insertResponseSQL = `
		INSERT INTO idempotency_keys (key, request_hash, status_code, body, order_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO NOTHING`
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Get(ctx context.Context, key string) (*ports.StoredResponse, error) {
	var resp ports.StoredResponse
	err := s.pool.QueryRow(ctx, selectResponseSQL, key).Scan(&resp.RequestHash, &resp.StatusCode, &resp.Body, &resp.OrderID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("select idempotency key %q: %w", key, err)
	}
	return &resp, nil
}

// Save keeps the first response stored for key. Saving again for the same
// request is a no-op; saving a different request under the key returns
// ports.ErrIdempotencyKeyReused and leaves the stored response untouched.
func (s *Store) Save(ctx context.Context, key string, response ports.StoredResponse) error {
	tag, err := s.pool.Exec(ctx, insertResponseSQL, key, response.RequestHash, response.StatusCode, response.Body, response.OrderID)
	if err != nil {
		return fmt.Errorf("insert idempotency key %q: %w", key, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	existing, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if existing != nil && existing.RequestHash != response.RequestHash {
		return fmt.Errorf("%w: key %q", ports.ErrIdempotencyKeyReused, key)
	}
	return nil
}
