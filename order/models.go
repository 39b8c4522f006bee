package order

import "time"

// Address is the shipping destination captured at checkout.
type Address struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// Order mirrors the orders table. Exactly one product per order; the
// marketplace sells unique consigned pieces, not stock.
type Order struct {
	ID     string
	Number string

	BuyerID   string
	StoreID   string
	ProductID string

	SubtotalCents    int64
	ShippingCents    int64
	TaxCents         int64
	TotalCents       int64
	PlatformFeeCents int64

	Status        Status
	PaymentStatus PaymentStatus

	PaymentSessionID string
	PaymentIntentID  string

	ShippingAddress Address
	Carrier         string
	TrackingNumber  string
	ShippedAt       *time.Time
	DeliveredAt     *time.Time
	DisputeDeadline *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateParams enumerates the fields the checkout orchestrator supplies.
type CreateParams struct {
	BuyerID   string
	StoreID   string
	ProductID string

	SubtotalCents    int64
	ShippingCents    int64
	TaxCents         int64
	TotalCents       int64
	PlatformFeeCents int64

	ShippingAddress Address
}

// Updates carries the optional column writes applied alongside a status
// transition. Nil fields are left untouched.
type Updates struct {
	PaymentStatus    *PaymentStatus
	PaymentSessionID *string
	PaymentIntentID  *string
	Carrier          *string
	TrackingNumber   *string
	ShippedAt        *time.Time
	DeliveredAt      *time.Time
	DisputeDeadline  *time.Time
}

// TransitionParams describes a compare-and-set status move: the write takes
// effect only if the current status is one of From at write time.
type TransitionParams struct {
	OrderID string
	From    []Status
	To      Status
	Updates Updates
}
