package alert

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps alerts in a map guarded by a mutex.
type MemoryRepository struct {
	mu     sync.Mutex
	alerts map[string]PriceAlert
	now    func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		alerts: make(map[string]PriceAlert),
		now:    time.Now,
	}
}

// WithClock overrides the timestamp source, for tests.
func (r *MemoryRepository) WithClock(now func() time.Time) *MemoryRepository {
	r.now = now
	return r
}

func (r *MemoryRepository) Upsert(_ context.Context, userID, productID string, targetCents int64) (PriceAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, a := range r.alerts {
		if a.UserID == userID && a.ProductID == productID && a.IsActive {
			a.TargetPriceCents = targetCents
			a.UpdatedAt = now
			r.alerts[id] = a
			return a, nil
		}
	}

	a := PriceAlert{
		ID:               uuid.NewString(),
		UserID:           userID,
		ProductID:        productID,
		TargetPriceCents: targetCents,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	r.alerts[a.ID] = a
	return a, nil
}

func (r *MemoryRepository) ListByUser(_ context.Context, userID string) ([]PriceAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]PriceAlert, 0, 4)
	for _, a := range r.alerts {
		if a.UserID == userID && a.IsActive {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepository) Deactivate(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.alerts[id]
	if !ok || !a.IsActive || a.UserID != userID {
		return ErrNotFound
	}
	a.IsActive = false
	a.UpdatedAt = r.now()
	r.alerts[id] = a
	return nil
}

func (r *MemoryRepository) DeactivateByProduct(_ context.Context, userID, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, a := range r.alerts {
		if a.UserID == userID && a.ProductID == productID && a.IsActive {
			a.IsActive = false
			a.UpdatedAt = r.now()
			r.alerts[id] = a
			return nil
		}
	}
	return ErrNotFound
}
