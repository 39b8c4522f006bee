package dispute

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps disputes in a map guarded by a mutex. Status
// moves check their precondition under the lock, matching the guarded
// UPDATEs of the Postgres implementation.
type MemoryRepository struct {
	mu       sync.Mutex
	disputes map[string]Record
	now      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		disputes: make(map[string]Record),
		now:      time.Now,
	}
}

// WithClock overrides the timestamp source, for tests.
func (r *MemoryRepository) WithClock(now func() time.Time) *MemoryRepository {
	r.now = now
	return r
}

// Seed inserts a dispute as-is. Test helper.
func (r *MemoryRepository) Seed(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	r.disputes[rec.ID] = rec
}

func (r *MemoryRepository) Create(_ context.Context, rec Record) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.disputes {
		if existing.OrderID == rec.OrderID && !Terminal(existing.Status) {
			return Record{}, ErrDuplicate
		}
	}

	now := r.now()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.Status = StatusOpen
	rec.Resolution = nil
	rec.ResolvedAt = nil
	rec.CreatedAt = now
	rec.UpdatedAt = now
	r.disputes[rec.ID] = rec
	return rec, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.disputes[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return clone(rec), nil
}

func (r *MemoryRepository) List(_ context.Context, filters Filters) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Record, 0, 4)
	for _, rec := range r.disputes {
		if filters.BuyerID != "" && rec.BuyerID != filters.BuyerID {
			continue
		}
		if filters.StoreID != "" && rec.StoreID != filters.StoreID {
			continue
		}
		if filters.OrderID != "" && rec.OrderID != filters.OrderID {
			continue
		}
		out = append(out, clone(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepository) AddMessage(_ context.Context, msg Message) (Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.disputes[msg.DisputeID]
	if !ok {
		return Message{}, ErrNotFound
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.CreatedAt = r.now()
	rec.Messages = append(rec.Messages, msg)
	rec.UpdatedAt = msg.CreatedAt
	r.disputes[rec.ID] = rec
	return msg, nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, id string, from []Status, to Status) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.disputes[id]
	if !ok {
		return Record{}, ErrNotFound
	}

	allowed := false
	for _, s := range from {
		if rec.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return Record{}, ErrBadStatus
	}

	rec.Status = to
	rec.UpdatedAt = r.now()
	r.disputes[id] = rec
	return clone(rec), nil
}

func (r *MemoryRepository) Resolve(_ context.Context, id string, resolution Resolution, notes string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.disputes[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	if Terminal(rec.Status) {
		return Record{}, ErrBadStatus
	}

	now := r.now()
	rec.Status = StatusResolved
	rec.Resolution = &resolution
	rec.ResolutionNotes = notes
	rec.ResolvedAt = &now
	rec.UpdatedAt = now
	r.disputes[id] = rec
	return clone(rec), nil
}

func (r *MemoryRepository) HasOpen(_ context.Context, orderID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.disputes {
		if rec.OrderID == orderID && !Terminal(rec.Status) {
			return true, nil
		}
	}
	return false, nil
}

func clone(rec Record) Record {
	out := rec
	if len(rec.Messages) > 0 {
		out.Messages = append([]Message(nil), rec.Messages...)
	}
	return out
}
