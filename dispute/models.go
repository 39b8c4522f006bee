package dispute

import "time"

// Status represents the lifecycle of a dispute record.
type Status string

const (
	StatusOpen           Status = "open"
	StatusSellerResponse Status = "seller_response"
	StatusUnderReview    Status = "under_review"
	StatusResolved       Status = "resolved"
	StatusClosed         Status = "closed"
)

// Terminal reports whether the dispute no longer blocks payout.
func Terminal(s Status) bool {
	return s == StatusResolved || s == StatusClosed
}

// Reason is the buyer's stated grounds for the dispute.
type Reason string

const (
	ReasonNotReceived    Reason = "not_received"
	ReasonNotAsDescribed Reason = "not_as_described"
	ReasonDamaged        Reason = "damaged"
	ReasonCounterfeit    Reason = "counterfeit"
	ReasonOther          Reason = "other"
)

// ValidReason reports whether the reason is one of the known enum values.
func ValidReason(r Reason) bool {
	switch r {
	case ReasonNotReceived, ReasonNotAsDescribed, ReasonDamaged, ReasonCounterfeit, ReasonOther:
		return true
	default:
		return false
	}
}

// Resolution is the admin's final call on a resolved dispute.
type Resolution string

const (
	ResolutionRefundBuyer   Resolution = "refund_buyer"
	ResolutionReleaseSeller Resolution = "release_seller"
	ResolutionPartialRefund Resolution = "partial_refund"
)

// ValidResolution reports whether the resolution is a known enum value.
func ValidResolution(r Resolution) bool {
	switch r {
	case ResolutionRefundBuyer, ResolutionReleaseSeller, ResolutionPartialRefund:
		return true
	default:
		return false
	}
}

// Message is one entry in a dispute's ordered conversation.
type Message struct {
	ID         string
	DisputeID  string
	SenderID   string
	SenderRole string
	Body       string
	CreatedAt  time.Time
}

// Record mirrors the disputes table plus its messages.
type Record struct {
	ID      string
	OrderID string
	BuyerID string
	StoreID string

	Reason          Reason
	Status          Status
	Resolution      *Resolution
	ResolutionNotes string

	Messages []Message

	CreatedAt  time.Time
	UpdatedAt  time.Time
	ResolvedAt *time.Time
}

// Filters narrows List results to one party's view.
type Filters struct {
	BuyerID string
	StoreID string
	OrderID string
}
