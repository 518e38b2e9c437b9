package product

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/wichananm65/priceflo-storefront/internal/upstream"
)

var (
	ErrNotFound = errors.New("product not found")
)

type Repository interface {
	Products(ctx context.Context, q upstream.ProductQuery) (upstream.ProductPage, error)
	Prices(ctx context.Context, productID int, maxAgeHours int) ([]Price, error)
	History(ctx context.Context, productID int, days int) ([]upstream.HistoryPoint, error)
	Search(ctx context.Context, term string, limit int) ([]Product, error)
	ReportNotFound(ctx context.Context, term string) error
	TrackClick(ctx context.Context, click upstream.Click) error
}

// APIRepository serves products from the backend API.
type APIRepository struct {
	*upstream.Client
}

func NewAPIRepository(c *upstream.Client) *APIRepository {
	return &APIRepository{Client: c}
}

// InMemoryRepository is a simple in-memory implementation useful for tests and
// local development without a backend.
type InMemoryRepository struct {
	mu         sync.RWMutex
	products   []Product
	prices     map[int][]Price
	history    map[int][]upstream.HistoryPoint
	priceErrs  map[int]error
	listErr    error
	reported   []string
	clicks     []upstream.Click
	priceCalls int
	searches   int
}

func NewInMemoryRepository(seed []Product) *InMemoryRepository {
	r := &InMemoryRepository{
		products:  make([]Product, 0, len(seed)),
		prices:    map[int][]Price{},
		history:   map[int][]upstream.HistoryPoint{},
		priceErrs: map[int]error{},
	}
	r.products = append(r.products, seed...)
	return r
}

func (r *InMemoryRepository) SetPrices(productID int, prices ...Price) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prices[productID] = prices
}

func (r *InMemoryRepository) SetHistory(productID int, points ...upstream.HistoryPoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history[productID] = points
}

// FailPrices makes Prices fail for one product.
func (r *InMemoryRepository) FailPrices(productID int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.priceErrs[productID] = err
}

// FailListing makes Products and Search fail.
func (r *InMemoryRepository) FailListing(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listErr = err
}

func (r *InMemoryRepository) Reported() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.reported...)
}

func (r *InMemoryRepository) Clicks() []upstream.Click {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]upstream.Click(nil), r.clicks...)
}

func (r *InMemoryRepository) PriceCalls() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.priceCalls
}

func (r *InMemoryRepository) Searches() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.searches
}

func (r *InMemoryRepository) Products(ctx context.Context, q upstream.ProductQuery) (upstream.ProductPage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.listErr != nil {
		return upstream.ProductPage{}, r.listErr
	}

	matched := make([]Product, 0, len(r.products))
	for _, p := range r.products {
		if q.Category == "" || p.CategoryName() == q.Category {
			matched = append(matched, p)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	page, size := q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	items := paginate(matched, page, size)
	return upstream.ProductPage{
		Items:      items,
		Total:      len(matched),
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages(len(matched), size),
	}, nil
}

func (r *InMemoryRepository) Prices(ctx context.Context, productID int, maxAgeHours int) ([]Price, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.priceCalls++
	if err := r.priceErrs[productID]; err != nil {
		return nil, err
	}
	return append([]Price{}, r.prices[productID]...), nil
}

func (r *InMemoryRepository) History(ctx context.Context, productID int, days int) ([]upstream.HistoryPoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	points, ok := r.history[productID]
	if !ok {
		return nil, &upstream.Error{Kind: upstream.KindNotFound, Status: 404, Op: "history", Err: ErrNotFound}
	}
	return append([]upstream.HistoryPoint{}, points...), nil
}

func (r *InMemoryRepository) Search(ctx context.Context, term string, limit int) ([]Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.searches++
	if r.listErr != nil {
		return nil, r.listErr
	}
	needle := strings.ToLower(term)
	out := []Product{}
	for _, p := range r.products {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			out = append(out, p)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *InMemoryRepository) ReportNotFound(ctx context.Context, term string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reported = append(r.reported, term)
	return nil
}

func (r *InMemoryRepository) TrackClick(ctx context.Context, click upstream.Click) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clicks = append(r.clicks, click)
	return nil
}

func paginate[T any](items []T, page, size int) []T {
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func totalPages(total, size int) int {
	if total == 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}
