package catalog

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound signals the requested product does not exist.
	ErrNotFound = errors.New("catalog: product not found")
	// ErrUnavailable signals the product cannot be reserved right now,
	// either because another buyer holds an unexpired reservation or the
	// listing is not purchasable.
	ErrUnavailable = errors.New("catalog: product unavailable")
	// ErrDuplicateSKU signals a listing with the same SKU already exists.
	ErrDuplicateSKU = errors.New("catalog: duplicate sku")
)

// Repository is the storage capability set the services need. Two
// implementations exist, Postgres and in-memory, and the reservation
// semantics must not diverge between them: every conditional write takes
// effect only if its precondition still holds at write time.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (Product, error)
	GetByID(ctx context.Context, id string) (Product, error)
	List(ctx context.Context, filters Filters) ([]Product, int, error)
	Publish(ctx context.Context, id string) (Product, error)

	// Reserve places a hold until the given instant. It succeeds when the
	// product is active, when the same user already holds the reservation
	// (extending it), or when a previous reservation has expired.
	Reserve(ctx context.Context, id, userID string, until, now time.Time) (Product, error)
	// Release idempotently clears reservation fields and restores the
	// product to active unless it has been sold.
	Release(ctx context.Context, id string) error
	// MarkSold finalizes the listing. Re-marking a sold product is a no-op.
	MarkSold(ctx context.Context, id string) error
}
