package payout

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("payout: not found")

// CandidateSource finds orders eligible for payout: delivered before the
// cutoff with no dispute in a non-terminal status. Both backends apply
// the dispute gate inside the source so a run sees one consistent rule.
type CandidateSource interface {
	Eligible(ctx context.Context, cutoff time.Time) ([]Candidate, error)
}

// Recorder persists payout records.
type Recorder interface {
	Create(ctx context.Context, p StorePayout) (StorePayout, error)
	ListByStore(ctx context.Context, storeID string) ([]StorePayout, error)
}
