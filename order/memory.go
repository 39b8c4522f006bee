package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps orders in a map guarded by a mutex. Transition
// checks its precondition under the lock, matching the guarded UPDATE of
// the Postgres implementation.
type MemoryRepository struct {
	mu     sync.Mutex
	orders map[string]Order
	now    func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		orders: make(map[string]Order),
		now:    time.Now,
	}
}

// WithClock overrides the timestamp source, for tests.
func (r *MemoryRepository) WithClock(now func() time.Time) *MemoryRepository {
	r.now = now
	return r
}

// Seed inserts an order as-is. Test helper.
func (r *MemoryRepository) Seed(o Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	r.orders[o.ID] = o
}

// All returns a snapshot of every order. Used by the in-memory payout
// candidate source and by tests.
func (r *MemoryRepository) All() []Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Order, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, o)
	}
	return out
}

func (r *MemoryRepository) Create(_ context.Context, o Order) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.Status = StatusPending
	o.PaymentStatus = PaymentPending
	o.CreatedAt = now
	o.UpdatedAt = now
	r.orders[o.ID] = o
	return o, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (r *MemoryRepository) GetBySessionID(_ context.Context, sessionID string) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.PaymentSessionID != "" && o.PaymentSessionID == sessionID {
			return o, nil
		}
	}
	return Order{}, ErrNotFound
}

func (r *MemoryRepository) ListByBuyer(_ context.Context, buyerID string) ([]Order, error) {
	return r.list(func(o Order) bool { return o.BuyerID == buyerID }), nil
}

func (r *MemoryRepository) ListByStore(_ context.Context, storeID string) ([]Order, error) {
	return r.list(func(o Order) bool { return o.StoreID == storeID }), nil
}

func (r *MemoryRepository) list(match func(Order) bool) []Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Order, 0, 8)
	for _, o := range r.orders {
		if match(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *MemoryRepository) Transition(_ context.Context, params TransitionParams) (Order, error) {
	if err := checkEdges(params.From, params.To); err != nil {
		return Order{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[params.OrderID]
	if !ok {
		return Order{}, ErrNotFound
	}

	allowed := false
	for _, from := range params.From {
		if o.Status == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return Order{}, ErrInvalidTransition
	}

	o.Status = params.To
	u := params.Updates
	if u.PaymentStatus != nil {
		o.PaymentStatus = *u.PaymentStatus
	}
	if u.PaymentSessionID != nil {
		o.PaymentSessionID = *u.PaymentSessionID
	}
	if u.PaymentIntentID != nil {
		o.PaymentIntentID = *u.PaymentIntentID
	}
	if u.Carrier != nil {
		o.Carrier = *u.Carrier
	}
	if u.TrackingNumber != nil {
		o.TrackingNumber = *u.TrackingNumber
	}
	if u.ShippedAt != nil {
		o.ShippedAt = u.ShippedAt
	}
	if u.DeliveredAt != nil {
		o.DeliveredAt = u.DeliveredAt
	}
	if u.DisputeDeadline != nil {
		o.DisputeDeadline = u.DisputeDeadline
	}
	o.UpdatedAt = r.now()
	r.orders[o.ID] = o
	return o, nil
}

func (r *MemoryRepository) SetPaymentStatus(_ context.Context, orderID string, ps PaymentStatus) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return Order{}, ErrNotFound
	}
	o.PaymentStatus = ps
	o.UpdatedAt = r.now()
	r.orders[orderID] = o
	return o, nil
}
