package store

import "time"

// Profile captures the subset of store data exposed via the public API layer.
type Profile struct {
	ID          string
	OwnerUserID string
	Name        string
	Slug        string
	Verified    bool
	CreatedAt   time.Time
}
