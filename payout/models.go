package payout

import "time"

// Status tracks a payout record's progress with the transfer provider.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
)

// StorePayout is one store's aggregated payout for one batch run.
type StorePayout struct {
	ID          string
	StoreID     string
	AmountCents int64
	OrderCount  int
	Status      Status
	CreatedAt   time.Time
}

// Candidate is a delivered order that cleared the hold window and has no
// live dispute. The net amount owed to the seller is total minus the
// platform fee.
type Candidate struct {
	OrderID          string
	StoreID          string
	TotalCents       int64
	PlatformFeeCents int64
}

// Net is the seller's share of the candidate order.
func (c Candidate) Net() int64 {
	return c.TotalCents - c.PlatformFeeCents
}

// Summary reports one batch run's outcome.
type Summary struct {
	RunAt       time.Time
	Stores      int
	Orders      int
	AmountCents int64
	Failures    int
}
