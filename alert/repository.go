package alert

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("alert: not found")

// Repository stores price alerts. Upsert enforces the one-active-alert
// per (user, product) rule: a second create for the same pair updates
// the existing alert's target instead of adding a row.
type Repository interface {
	Upsert(ctx context.Context, userID, productID string, targetCents int64) (PriceAlert, error)
	ListByUser(ctx context.Context, userID string) ([]PriceAlert, error)
	// Deactivate soft-deletes one alert, guarded on ownership.
	Deactivate(ctx context.Context, id, userID string) error
	// DeactivateByProduct soft-deletes the user's active alert for a product.
	DeactivateByProduct(ctx context.Context, userID, productID string) error
}
