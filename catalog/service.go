package catalog

import (
	"context"
	"log/slog"
	"time"
)

// Service exposes catalog operations and owns the reservation policy. The
// repository enforces the write preconditions; the service supplies the TTL
// and the clock.
type Service struct {
	repo   Repository
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

func NewService(repo Repository, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

// WithClock overrides the clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Create(ctx context.Context, params CreateParams) (Product, error) {
	return s.repo.Create(ctx, params)
}

func (s *Service) Publish(ctx context.Context, id string) (Product, error) {
	return s.repo.Publish(ctx, id)
}

// Get returns the product with its reservation normalized: an expired hold
// reads as active so callers never act on a stale reservation.
func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Product{}, err
	}
	return normalize(p, s.now()), nil
}

func (s *Service) List(ctx context.Context, filters Filters) ([]Product, int, error) {
	items, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, 0, err
	}
	now := s.now()
	for i := range items {
		items[i] = normalize(items[i], now)
	}
	return items, total, nil
}

// Reserve places a timed hold for the buyer. A hold by another buyer that
// has already expired is reclaimed in the same call.
func (s *Service) Reserve(ctx context.Context, productID, userID string) (Product, error) {
	now := s.now()
	p, err := s.repo.Reserve(ctx, productID, userID, now.Add(s.ttl), now)
	if err != nil {
		return Product{}, err
	}
	s.logger.Debug("product reserved",
		slog.String("product_id", productID),
		slog.String("user_id", userID),
		slog.Time("reserved_until", *p.ReservedUntil),
	)
	return p, nil
}

// Release clears a reservation. Safe to call regardless of current state.
func (s *Service) Release(ctx context.Context, productID string) error {
	return s.repo.Release(ctx, productID)
}

// MarkSold finalizes the product after payment capture.
func (s *Service) MarkSold(ctx context.Context, productID string) error {
	return s.repo.MarkSold(ctx, productID)
}

func normalize(p Product, now time.Time) Product {
	if p.Status == StatusReserved && (p.ReservedUntil == nil || !p.ReservedUntil.After(now)) {
		p.Status = StatusActive
		p.ReservedBy = nil
		p.ReservedUntil = nil
	}
	return p
}
