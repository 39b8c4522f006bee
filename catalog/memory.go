package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps products in a map guarded by a mutex. It backs the
// demo configuration and the unit tests; the mutex plays the role the row
// lock plays in the Postgres implementation.
type MemoryRepository struct {
	mu       sync.Mutex
	products map[string]Product
	now      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		products: make(map[string]Product),
		now:      time.Now,
	}
}

// WithClock overrides the timestamp source, for tests.
func (r *MemoryRepository) WithClock(now func() time.Time) *MemoryRepository {
	r.now = now
	return r
}

// Seed inserts a product as-is, bypassing validation. Test helper.
func (r *MemoryRepository) Seed(p Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	r.products[p.ID] = p
}

func (r *MemoryRepository) Create(_ context.Context, params CreateParams) (Product, error) {
	if params.StoreID == "" || params.Name == "" || params.PriceCents <= 0 {
		return Product{}, ErrUnavailable
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.products {
		if params.SKU != "" && p.SKU == params.SKU {
			return Product{}, ErrDuplicateSKU
		}
	}

	now := r.now()
	p := Product{
		ID:                 uuid.NewString(),
		SKU:                params.SKU,
		StoreID:            params.StoreID,
		Name:               params.Name,
		Description:        params.Description,
		PriceCents:         params.PriceCents,
		OriginalPriceCents: params.OriginalPriceCents,
		Status:             StatusDraft,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	r.products[p.ID] = p
	return p, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepository) List(_ context.Context, filters Filters) ([]Product, int, error) {
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.PageSize <= 0 || filters.PageSize > 100 {
		filters.PageSize = 20
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]Product, 0, len(r.products))
	for _, p := range r.products {
		if filters.StoreID != "" && p.StoreID != filters.StoreID {
			continue
		}
		if filters.Status != "" && p.Status != filters.Status {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := (filters.Page - 1) * filters.PageSize
	if start >= total {
		return []Product{}, total, nil
	}
	end := start + filters.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *MemoryRepository) Publish(_ context.Context, id string) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	if p.Status != StatusDraft {
		return Product{}, ErrUnavailable
	}
	p.Status = StatusActive
	p.UpdatedAt = r.now()
	r.products[id] = p
	return p, nil
}

func (r *MemoryRepository) Reserve(_ context.Context, id, userID string, until, now time.Time) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	if !p.AvailableAt(now) && !p.ReservedByAt(userID, now) {
		return Product{}, ErrUnavailable
	}

	p.Status = StatusReserved
	p.ReservedBy = &userID
	p.ReservedUntil = &until
	p.UpdatedAt = r.now()
	r.products[id] = p
	return p, nil
}

func (r *MemoryRepository) Release(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return ErrNotFound
	}
	if p.Status != StatusReserved {
		return nil
	}
	p.Status = StatusActive
	p.ReservedBy = nil
	p.ReservedUntil = nil
	p.UpdatedAt = r.now()
	r.products[id] = p
	return nil
}

func (r *MemoryRepository) MarkSold(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return ErrNotFound
	}
	switch p.Status {
	case StatusSold:
		return nil
	case StatusActive, StatusReserved:
		p.Status = StatusSold
		p.ReservedBy = nil
		p.ReservedUntil = nil
		p.UpdatedAt = r.now()
		r.products[id] = p
		return nil
	default:
		return ErrUnavailable
	}
}
