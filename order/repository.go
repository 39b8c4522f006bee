package order

import (
	"context"
	"errors"
)

var (
	// ErrNotFound signals the requested order does not exist.
	ErrNotFound = errors.New("order: not found")
	// ErrInvalidTransition signals the requested edge is not allowed from
	// the order's current status. State is left unchanged.
	ErrInvalidTransition = errors.New("order: invalid status transition")
)

// Repository is the storage capability set for orders. The Postgres and
// in-memory implementations must agree on Transition semantics: the write
// happens only when the current status matches one of params.From, so
// out-of-order webhook deliveries cannot clobber a newer state.
type Repository interface {
	Create(ctx context.Context, o Order) (Order, error)
	GetByID(ctx context.Context, id string) (Order, error)
	GetBySessionID(ctx context.Context, sessionID string) (Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]Order, error)
	ListByStore(ctx context.Context, storeID string) ([]Order, error)
	Transition(ctx context.Context, params TransitionParams) (Order, error)
	// SetPaymentStatus updates only the payment side, leaving fulfillment
	// status untouched.
	SetPaymentStatus(ctx context.Context, orderID string, ps PaymentStatus) (Order, error)
}
