package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"luxeflow/catalog"
)

var (
	// ErrBadTarget signals a zero or negative target price.
	ErrBadTarget = errors.New("alert: target price must be positive")
	// ErrTargetNotBelowPrice signals a target at or above the product's
	// current price.
	ErrTargetNotBelowPrice = errors.New("alert: target must be below current price")
	// ErrProductNotFound signals an alert request for an unknown product.
	ErrProductNotFound = errors.New("alert: product not found")
)

// ProductReader is the slice of the catalog the alert service needs to
// validate targets against current pricing.
type ProductReader interface {
	GetByID(ctx context.Context, id string) (catalog.Product, error)
}

// Service owns price-alert rules: targets must undercut the current
// price, and each (user, product) pair holds at most one active alert.
type Service struct {
	repo     Repository
	products ProductReader
	logger   *slog.Logger
}

func NewService(repo Repository, products ProductReader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, products: products, logger: logger}
}

// Create registers an alert, or retargets the user's existing active
// alert for the same product.
func (s *Service) Create(ctx context.Context, userID, productID string, targetCents int64) (PriceAlert, error) {
	if targetCents <= 0 {
		return PriceAlert{}, ErrBadTarget
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return PriceAlert{}, ErrProductNotFound
		}
		return PriceAlert{}, fmt.Errorf("alert: load product: %w", err)
	}
	if targetCents >= p.PriceCents {
		return PriceAlert{}, ErrTargetNotBelowPrice
	}

	a, err := s.repo.Upsert(ctx, userID, productID, targetCents)
	if err != nil {
		return PriceAlert{}, err
	}
	s.logger.Info("price alert set",
		"alert_id", a.ID, "product_id", productID, "target_cents", targetCents)
	return a, nil
}

// List returns the user's active alerts, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]PriceAlert, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Delete soft-deletes one of the user's alerts by alert id.
func (s *Service) Delete(ctx context.Context, userID, alertID string) error {
	return s.repo.Deactivate(ctx, alertID, userID)
}

// DeleteByProduct soft-deletes the user's active alert for a product.
func (s *Service) DeleteByProduct(ctx context.Context, userID, productID string) error {
	return s.repo.DeactivateByProduct(ctx, userID, productID)
}
