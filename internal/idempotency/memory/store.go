package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dejobratic/orderflow/internal/orders/ports"
)

// Store keeps create responses per Idempotency-Key in process memory.
// The first response saved for a key wins, matching the Postgres store.
type Store struct {
	mu    sync.RWMutex
	items map[string]ports.StoredResponse
}

func NewStore() *Store {
	return &Store{items: make(map[string]ports.StoredResponse)}
}

// Get returns the stored response for key, or nil when the key is unknown.
func (s *Store) Get(_ context.Context, key string) (*ports.StoredResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.items[key]
	if !ok {
		return nil, nil
	}
	value.Body = slices.Clone(value.Body)
	return &value, nil
}

// Save rejects a different request under a known key with
// ports.ErrIdempotencyKeyReused.
func (s *Store) Save(_ context.Context, key string, response ports.StoredResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.items[key]; ok {
		if existing.RequestHash != response.RequestHash {
			return fmt.Errorf("%w: key %q", ports.ErrIdempotencyKeyReused, key)
		}
		return nil
	}
	response.Body = slices.Clone(response.Body)
	s.items[key] = response
	return nil
}
