package dispute

import (
	"context"
	"errors"
)

var (
	ErrNotFound  = errors.New("dispute: not found")
	ErrForbidden = errors.New("dispute: forbidden")
	ErrBadStatus = errors.New("dispute: invalid status transition")
	// ErrDuplicate signals the order already has a non-terminal dispute.
	ErrDuplicate = errors.New("dispute: order already disputed")
)

// Repository is the storage capability set for disputes. Status moves are
// compare-and-set: they apply only if the current status is one of the
// allowed sources, in both backends.
type Repository interface {
	Create(ctx context.Context, rec Record) (Record, error)
	GetByID(ctx context.Context, id string) (Record, error)
	List(ctx context.Context, filters Filters) ([]Record, error)
	AddMessage(ctx context.Context, msg Message) (Message, error)
	UpdateStatus(ctx context.Context, id string, from []Status, to Status) (Record, error)
	Resolve(ctx context.Context, id string, resolution Resolution, notes string) (Record, error)
	// HasOpen reports whether the order carries a dispute in a
	// non-terminal status. The payout job uses this gate.
	HasOpen(ctx context.Context, orderID string) (bool, error)
}
