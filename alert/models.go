package alert

import "time"

// PriceAlert asks to be notified when a product drops to or below a
// target price. Alerts are soft-deleted: IsActive false rather than a
// row delete, so history survives.
type PriceAlert struct {
	ID               string
	UserID           string
	ProductID        string
	TargetPriceCents int64
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
