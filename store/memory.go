package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps store profiles in a map guarded by a mutex.
type MemoryRepository struct {
	mu     sync.Mutex
	stores map[string]Profile
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{stores: make(map[string]Profile)}
}

// Seed inserts a profile as-is. Test helper.
func (r *MemoryRepository) Seed(p Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	r.stores[p.ID] = p
}

func (r *MemoryRepository) Create(_ context.Context, ownerUserID, name, slug string) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.stores {
		if p.Slug == slug {
			return Profile{}, ErrDuplicateSlug
		}
	}
	p := Profile{
		ID:          uuid.NewString(),
		OwnerUserID: ownerUserID,
		Name:        name,
		Slug:        slug,
		CreatedAt:   time.Now(),
	}
	r.stores[p.ID] = p
	return p, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.stores[id]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepository) GetBySlug(_ context.Context, slug string) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.stores {
		if p.Slug == slug {
			return p, nil
		}
	}
	return Profile{}, ErrNotFound
}

func (r *MemoryRepository) GetByOwner(_ context.Context, ownerUserID string) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.stores {
		if p.OwnerUserID == ownerUserID {
			return p, nil
		}
	}
	return Profile{}, ErrNotFound
}

func (r *MemoryRepository) List(_ context.Context, limit int) ([]Profile, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Profile, 0, len(r.stores))
	for _, p := range r.stores {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
