package payout

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"luxeflow/order"
)

// DisputeChecker reports whether an order has a live dispute.
type DisputeChecker interface {
	HasOpen(ctx context.Context, orderID string) (bool, error)
}

// MemorySource derives payout candidates from the in-memory order store,
// applying the same delivered-past-cutoff and no-live-dispute rules as
// the SQL query.
type MemorySource struct {
	Orders   *order.MemoryRepository
	Disputes DisputeChecker
}

func (s *MemorySource) Eligible(ctx context.Context, cutoff time.Time) ([]Candidate, error) {
	all := s.Orders.All()
	out := make([]Candidate, 0, len(all))
	for _, o := range all {
		if o.Status != order.StatusDelivered || o.DeliveredAt == nil || !o.DeliveredAt.Before(cutoff) {
			continue
		}
		if s.Disputes != nil {
			open, err := s.Disputes.HasOpen(ctx, o.ID)
			if err != nil {
				return nil, err
			}
			if open {
				continue
			}
		}
		out = append(out, Candidate{
			OrderID:          o.ID,
			StoreID:          o.StoreID,
			TotalCents:       o.TotalCents,
			PlatformFeeCents: o.PlatformFeeCents,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StoreID < out[j].StoreID })
	return out, nil
}

// MemoryRecorder keeps payout records in a map guarded by a mutex.
type MemoryRecorder struct {
	mu      sync.Mutex
	payouts map[string]StorePayout
	now     func() time.Time
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{
		payouts: make(map[string]StorePayout),
		now:     time.Now,
	}
}

// WithClock overrides the timestamp source, for tests.
func (r *MemoryRecorder) WithClock(now func() time.Time) *MemoryRecorder {
	r.now = now
	return r
}

func (r *MemoryRecorder) Create(_ context.Context, p StorePayout) (StorePayout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = r.now()
	r.payouts[p.ID] = p
	return p, nil
}

func (r *MemoryRecorder) ListByStore(_ context.Context, storeID string) ([]StorePayout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]StorePayout, 0, 4)
	for _, p := range r.payouts {
		if p.StoreID == storeID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
