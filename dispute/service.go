package dispute

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"luxeflow/order"
)

var (
	// ErrNotEligible signals the order is not in a disputable state.
	ErrNotEligible = errors.New("dispute: order not eligible for dispute")
	// ErrWindowClosed signals the dispute deadline has passed.
	ErrWindowClosed = errors.New("dispute: dispute window closed")
	// ErrBadReason signals an unknown reason enum value.
	ErrBadReason = errors.New("dispute: unknown reason")
	// ErrBadResolution signals an unknown resolution enum value.
	ErrBadResolution = errors.New("dispute: unknown resolution")
	// ErrEmptyMessage signals a blank message body.
	ErrEmptyMessage = errors.New("dispute: message body required")
)

// OrderReader is the slice of the order store the dispute service needs
// to check eligibility and ownership.
type OrderReader interface {
	GetByID(ctx context.Context, id string) (order.Order, error)
}

// Actor identifies who is calling and in what capacity. StoreID is set
// only for sellers.
type Actor struct {
	UserID  string
	Role    string
	StoreID string
}

// OpenParams carries a buyer's request to dispute a delivered order.
type OpenParams struct {
	OrderID string
	Reason  Reason
	Body    string
}

// ResolveParams is the admin's final ruling on a dispute.
type ResolveParams struct {
	DisputeID  string
	Resolution Resolution
	Notes      string
}

// Service owns dispute rules: who may open one, who may speak on it, and
// who may close it. Only admins resolve; an unresolved dispute blocks the
// order's payout eligibility via HasOpen.
type Service struct {
	repo   Repository
	orders OrderReader
	now    func() time.Time
	logger *slog.Logger
}

func NewService(repo Repository, orders OrderReader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		orders: orders,
		now:    time.Now,
		logger: logger,
	}
}

// WithClock overrides the clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Open files a dispute on a delivered order. Only the order's buyer may
// open one, only while the dispute window is still running, and only if
// the order has no other live dispute.
func (s *Service) Open(ctx context.Context, actor Actor, params OpenParams) (Record, error) {
	if !ValidReason(params.Reason) {
		return Record{}, ErrBadReason
	}

	o, err := s.orders.GetByID(ctx, params.OrderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("dispute: load order: %w", err)
	}
	if o.BuyerID != actor.UserID {
		return Record{}, ErrForbidden
	}
	if o.Status != order.StatusDelivered {
		return Record{}, ErrNotEligible
	}
	if o.DisputeDeadline != nil && s.now().After(*o.DisputeDeadline) {
		return Record{}, ErrWindowClosed
	}

	rec, err := s.repo.Create(ctx, Record{
		OrderID: o.ID,
		BuyerID: o.BuyerID,
		StoreID: o.StoreID,
		Reason:  params.Reason,
	})
	if err != nil {
		return Record{}, err
	}

	if body := strings.TrimSpace(params.Body); body != "" {
		msg, err := s.repo.AddMessage(ctx, Message{
			DisputeID:  rec.ID,
			SenderID:   actor.UserID,
			SenderRole: "buyer",
			Body:       body,
		})
		if err != nil {
			return Record{}, fmt.Errorf("dispute: record opening message: %w", err)
		}
		rec.Messages = append(rec.Messages, msg)
	}

	s.logger.Info("dispute opened",
		"dispute_id", rec.ID, "order_id", o.ID, "reason", string(params.Reason))
	return rec, nil
}

// Get returns a dispute scoped to the caller: admins see everything,
// buyers and sellers only their own side.
func (s *Service) Get(ctx context.Context, actor Actor, disputeID string) (Record, error) {
	rec, err := s.repo.GetByID(ctx, disputeID)
	if err != nil {
		return Record{}, err
	}
	if err := s.authorize(actor, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// List returns the caller's disputes. Admins get the unfiltered set.
func (s *Service) List(ctx context.Context, actor Actor) ([]Record, error) {
	var filters Filters
	switch actor.Role {
	case "admin":
	case "seller":
		if actor.StoreID == "" {
			return nil, ErrForbidden
		}
		filters.StoreID = actor.StoreID
	default:
		filters.BuyerID = actor.UserID
	}
	return s.repo.List(ctx, filters)
}

// AddMessage appends to the dispute's conversation. A seller's first
// reply moves the dispute from open to seller_response.
func (s *Service) AddMessage(ctx context.Context, actor Actor, disputeID, body string) (Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return Message{}, ErrEmptyMessage
	}

	rec, err := s.repo.GetByID(ctx, disputeID)
	if err != nil {
		return Message{}, err
	}
	if err := s.authorize(actor, rec); err != nil {
		return Message{}, err
	}
	if Terminal(rec.Status) {
		return Message{}, ErrBadStatus
	}

	msg, err := s.repo.AddMessage(ctx, Message{
		DisputeID:  disputeID,
		SenderID:   actor.UserID,
		SenderRole: actor.Role,
		Body:       body,
	})
	if err != nil {
		return Message{}, err
	}

	if actor.Role == "seller" && rec.Status == StatusOpen {
		if _, err := s.repo.UpdateStatus(ctx, disputeID, []Status{StatusOpen}, StatusSellerResponse); err != nil && !errors.Is(err, ErrBadStatus) {
			return Message{}, err
		}
	}
	return msg, nil
}

// Review moves a dispute under admin review. Admin only.
func (s *Service) Review(ctx context.Context, actor Actor, disputeID string) (Record, error) {
	if actor.Role != "admin" {
		return Record{}, ErrForbidden
	}
	return s.repo.UpdateStatus(ctx, disputeID,
		[]Status{StatusOpen, StatusSellerResponse}, StatusUnderReview)
}

// Resolve records the admin's ruling and closes the dispute to further
// messages. Admin only; the order becomes payout-eligible again from the
// next batch run.
func (s *Service) Resolve(ctx context.Context, actor Actor, params ResolveParams) (Record, error) {
	if actor.Role != "admin" {
		return Record{}, ErrForbidden
	}
	if !ValidResolution(params.Resolution) {
		return Record{}, ErrBadResolution
	}

	rec, err := s.repo.Resolve(ctx, params.DisputeID, params.Resolution, strings.TrimSpace(params.Notes))
	if err != nil {
		return Record{}, err
	}
	s.logger.Info("dispute resolved",
		"dispute_id", rec.ID, "order_id", rec.OrderID, "resolution", string(params.Resolution))
	return rec, nil
}

// Close withdraws a dispute. The buyer may close their own; admins may
// close any.
func (s *Service) Close(ctx context.Context, actor Actor, disputeID string) (Record, error) {
	rec, err := s.repo.GetByID(ctx, disputeID)
	if err != nil {
		return Record{}, err
	}
	if actor.Role != "admin" && rec.BuyerID != actor.UserID {
		return Record{}, ErrForbidden
	}
	return s.repo.UpdateStatus(ctx, disputeID,
		[]Status{StatusOpen, StatusSellerResponse, StatusUnderReview}, StatusClosed)
}

// HasOpen reports whether the order carries a live dispute.
func (s *Service) HasOpen(ctx context.Context, orderID string) (bool, error) {
	return s.repo.HasOpen(ctx, orderID)
}

func (s *Service) authorize(actor Actor, rec Record) error {
	switch actor.Role {
	case "admin":
		return nil
	case "seller":
		if actor.StoreID != "" && rec.StoreID == actor.StoreID {
			return nil
		}
	default:
		if rec.BuyerID == actor.UserID {
			return nil
		}
	}
	return ErrForbidden
}
