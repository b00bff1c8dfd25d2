package ports

import (
	"context"
	"errors"
)

// ErrIdempotencyKeyReused is returned when a key is replayed with a different request body.
var ErrIdempotencyKeyReused = errors.New("idempotency key reused with a different request")

// StoredResponse is the create response kept for an Idempotency-Key.
type StoredResponse struct {
	RequestHash string
	StatusCode  int
	Body        []byte
	OrderID     string
}

// IdempotencyStore lets clients retry order creation safely.
// Get returns nil, nil for an unknown key.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*StoredResponse, error)
	Save(ctx context.Context, key string, response StoredResponse) error
}
