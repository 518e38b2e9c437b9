package category

import (
	"context"
	"sort"
	"sync"

	"github.com/wichananm65/priceflo-storefront/internal/upstream"
)

// Repository provides access to category counts.
type Repository interface {
	List(ctx context.Context) ([]Item, error)
}

// APIRepository reads categories from the backend.
type APIRepository struct {
	client *upstream.Client
}

func NewAPIRepository(c *upstream.Client) *APIRepository {
	return &APIRepository{client: c}
}

func (r *APIRepository) List(ctx context.Context) ([]Item, error) {
	return r.client.Categories(ctx)
}

// InMemoryRepository counts categories of an in-memory product set. Used in
// tests and for local development without a backend.
type InMemoryRepository struct {
	mu     sync.RWMutex
	counts map[string]int
	err    error
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{counts: map[string]int{}}
}

func (r *InMemoryRepository) Add(category string, n int) {
	r.mu.Lock()
	r.counts[category] += n
	r.mu.Unlock()
}

// Fail makes every List call return err until reset with nil.
func (r *InMemoryRepository) Fail(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func (r *InMemoryRepository) List(ctx context.Context) ([]Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]Item, 0, len(r.counts))
	for name, n := range r.counts {
		out = append(out, Item{Category: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}
