package order

import "fmt"

// Status tracks the fulfillment side of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

// PaymentStatus tracks the money side. It evolves independently of Status
// but the two stay correlated: confirmed implies captured.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentCaptured PaymentStatus = "captured"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed:  {StatusProcessing: true, StatusShipped: true, StatusCancelled: true},
	StatusProcessing: {StatusShipped: true},
	StatusShipped:    {StatusDelivered: true},
	StatusDelivered:  {StatusRefunded: true},
	StatusCancelled:  {},
	StatusRefunded:   {},
}

// CanTransition reports whether the directed edge from -> to exists.
func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Terminal reports whether no further fulfillment transition is possible.
func Terminal(s Status) bool {
	return len(validNext[s]) == 0
}

// checkEdges rejects a requested move whose edge is missing from the
// transition table, so validNext stays authoritative no matter what From
// list a caller passes. A from equal to to is a column-only update, not
// a move.
func checkEdges(from []Status, to Status) error {
	for _, f := range from {
		if f == to {
			continue
		}
		if Terminal(f) {
			return fmt.Errorf("order: %s is terminal: %w", f, ErrInvalidTransition)
		}
		if !CanTransition(f, to) {
			return fmt.Errorf("order: %s -> %s: %w", f, to, ErrInvalidTransition)
		}
	}
	return nil
}
