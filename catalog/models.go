package catalog

import "time"

// Status represents the lifecycle of a product listing.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusReserved Status = "reserved"
	StatusSold     Status = "sold"
	StatusArchived Status = "archived"
)

// Product is the domain representation of a consigned listing. It mirrors
// the products table and carries no JSON annotations so it can be reused by
// different presentation layers.
type Product struct {
	ID                 string
	SKU                string
	StoreID            string
	Name               string
	Description        string
	PriceCents         int64
	OriginalPriceCents int64
	Status             Status
	ReservedBy         *string
	ReservedUntil      *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// AvailableAt reports whether the product can be reserved at the given
// instant. A reservation whose expiry has passed counts as released even if
// the row still says reserved; readers normalize lazily instead of relying
// on a background sweep.
func (p Product) AvailableAt(now time.Time) bool {
	switch p.Status {
	case StatusActive:
		return true
	case StatusReserved:
		return p.ReservedUntil == nil || !p.ReservedUntil.After(now)
	default:
		return false
	}
}

// ReservedByAt reports whether the product holds an unexpired reservation
// for the given user.
func (p Product) ReservedByAt(userID string, now time.Time) bool {
	return p.Status == StatusReserved &&
		p.ReservedBy != nil && *p.ReservedBy == userID &&
		p.ReservedUntil != nil && p.ReservedUntil.After(now)
}

// CreateParams enumerates the fields a seller supplies for a new listing.
type CreateParams struct {
	StoreID            string
	SKU                string
	Name               string
	Description        string
	PriceCents         int64
	OriginalPriceCents int64
}

// Filters narrows List results.
type Filters struct {
	StoreID  string
	Status   Status
	Page     int
	PageSize int
}
