// Package cache adds a read-through LRU in front of an order repository.
package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/ports"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

type Repository struct {
	next  ports.OrderRepository
	cache *expirable.LRU[string, domain.Order]

	// generation changes on every status update. A read only fills the cache
	// when no update finished while it was fetching from the store.
	mu         sync.Mutex
	generation uint64
}

// NewRepository caches up to size orders fetched by id for ttl.
func NewRepository(next ports.OrderRepository, size int, ttl time.Duration) *Repository {
	return &Repository{
		next:  next,
		cache: expirable.NewLRU[string, domain.Order](size, nil, ttl),
	}
}

func (r *Repository) Create(ctx context.Context, order domain.Order) error {
	return r.next.Create(ctx, order)
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if order, ok := r.cache.Get(id); ok {
		order.Items = slices.Clone(order.Items)
		return &order, nil
	}

	r.mu.Lock()
	generation := r.generation
	r.mu.Unlock()

	order, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	cached := *order
	cached.Items = slices.Clone(order.Items)

	r.mu.Lock()
	if r.generation == generation {
		r.cache.Add(id, cached)
	}
	r.mu.Unlock()
	return order, nil
}

func (r *Repository) List(ctx context.Context, filter ports.ListFilter) ([]domain.Order, error) {
	return r.next.List(ctx, filter)
}

// UpdateStatus evicts the order even when the update fails so the next read
// goes to the store. Reads already in flight will not cache what they fetched.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, updatedAt time.Time) error {
	defer r.invalidate(id)
	return r.next.UpdateStatus(ctx, id, status, updatedAt)
}

func (r *Repository) invalidate(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	r.cache.Remove(id)
}
