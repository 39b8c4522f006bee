package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrForbidden signals the actor does not own the order side they are
	// trying to act on.
	ErrForbidden = errors.New("order: forbidden")
	// ErrTrackingRequired signals a shipping action without a tracking number.
	ErrTrackingRequired = errors.New("order: carrier and tracking number required")
)

// Service owns order lifecycle rules. Fulfillment moves (ship, deliver)
// come from the seller; payment-driven moves (confirm, cancel, refund) come
// from the webhook processor. Every move is a compare-and-set against the
// repository so concurrent deliveries settle deterministically.
type Service struct {
	repo        Repository
	holdWindow  time.Duration
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

func NewService(repo Repository, holdDays int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		holdWindow:  time.Duration(holdDays) * 24 * time.Hour,
		idGenerator: func() string { return uuid.NewString() },
		now:         time.Now,
		logger:      logger,
	}
}

// WithClock overrides the clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithIDGenerator overrides id generation, for tests.
func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGenerator = gen
	return s
}

// Create inserts a pending order with a fresh human-readable number.
func (s *Service) Create(ctx context.Context, params CreateParams) (Order, error) {
	if params.BuyerID == "" || params.StoreID == "" || params.ProductID == "" {
		return Order{}, fmt.Errorf("order: buyer, store and product ids required")
	}
	if params.TotalCents <= 0 {
		return Order{}, fmt.Errorf("order: invalid total")
	}

	id := s.idGenerator()
	o := Order{
		ID:               id,
		Number:           s.number(id),
		BuyerID:          params.BuyerID,
		StoreID:          params.StoreID,
		ProductID:        params.ProductID,
		SubtotalCents:    params.SubtotalCents,
		ShippingCents:    params.ShippingCents,
		TaxCents:         params.TaxCents,
		TotalCents:       params.TotalCents,
		PlatformFeeCents: params.PlatformFeeCents,
		ShippingAddress:  params.ShippingAddress,
	}
	return s.repo.Create(ctx, o)
}

func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetBySessionID(ctx context.Context, sessionID string) (Order, error) {
	return s.repo.GetBySessionID(ctx, sessionID)
}

func (s *Service) ListByBuyer(ctx context.Context, buyerID string) ([]Order, error) {
	return s.repo.ListByBuyer(ctx, buyerID)
}

func (s *Service) ListByStore(ctx context.Context, storeID string) ([]Order, error) {
	return s.repo.ListByStore(ctx, storeID)
}

// AttachSession records the external payment session on a pending order.
func (s *Service) AttachSession(ctx context.Context, orderID, sessionID string) (Order, error) {
	return s.repo.Transition(ctx, TransitionParams{
		OrderID: orderID,
		From:    []Status{StatusPending},
		To:      StatusPending,
		Updates: Updates{PaymentSessionID: &sessionID},
	})
}

// Confirm marks the order paid. Replays on an already confirmed order are
// reported as ErrInvalidTransition, which callers treat as a safe no-op.
func (s *Service) Confirm(ctx context.Context, orderID, paymentIntentID string) (Order, error) {
	captured := PaymentCaptured
	return s.repo.Transition(ctx, TransitionParams{
		OrderID: orderID,
		From:    []Status{StatusPending},
		To:      StatusConfirmed,
		Updates: Updates{
			PaymentStatus:   &captured,
			PaymentIntentID: &paymentIntentID,
		},
	})
}

// CancelExpired cancels an order whose payment session expired. It only
// fires while the order is still pending so it can never undo a concurrent
// confirmation.
func (s *Service) CancelExpired(ctx context.Context, orderID string) (Order, error) {
	failed := PaymentFailed
	return s.repo.Transition(ctx, TransitionParams{
		OrderID: orderID,
		From:    []Status{StatusPending},
		To:      StatusCancelled,
		Updates: Updates{PaymentStatus: &failed},
	})
}

// MarkPaymentFailed flips the payment side only; the confirmation path owns
// fulfillment status.
func (s *Service) MarkPaymentFailed(ctx context.Context, orderID string) (Order, error) {
	return s.repo.SetPaymentStatus(ctx, orderID, PaymentFailed)
}

// Refund moves a delivered order to refunded after the provider reports the
// charge reversed.
func (s *Service) Refund(ctx context.Context, orderID string) (Order, error) {
	refunded := PaymentRefunded
	return s.repo.Transition(ctx, TransitionParams{
		OrderID: orderID,
		From:    []Status{StatusDelivered},
		To:      StatusRefunded,
		Updates: Updates{PaymentStatus: &refunded},
	})
}

// StartProcessing lets the seller acknowledge a confirmed order.
func (s *Service) StartProcessing(ctx context.Context, orderID, storeID string) (Order, error) {
	if err := s.ensureStore(ctx, orderID, storeID); err != nil {
		return Order{}, err
	}
	return s.repo.Transition(ctx, TransitionParams{
		OrderID: orderID,
		From:    []Status{StatusConfirmed},
		To:      StatusProcessing,
	})
}

// ShipParams carries the seller's shipping action.
type ShipParams struct {
	OrderID        string
	StoreID        string
	Carrier        string
	TrackingNumber string
}

// Ship records carrier and tracking and moves the order to shipped. Valid
// only from confirmed or processing.
func (s *Service) Ship(ctx context.Context, params ShipParams) (Order, error) {
	if strings.TrimSpace(params.Carrier) == "" || strings.TrimSpace(params.TrackingNumber) == "" {
		return Order{}, ErrTrackingRequired
	}
	if err := s.ensureStore(ctx, params.OrderID, params.StoreID); err != nil {
		return Order{}, err
	}

	shippedAt := s.now()
	o, err := s.repo.Transition(ctx, TransitionParams{
		OrderID: params.OrderID,
		From:    []Status{StatusConfirmed, StatusProcessing},
		To:      StatusShipped,
		Updates: Updates{
			Carrier:        &params.Carrier,
			TrackingNumber: &params.TrackingNumber,
			ShippedAt:      &shippedAt,
		},
	})
	if err != nil {
		return Order{}, err
	}
	s.logger.Info("order shipped",
		slog.String("order_id", o.ID),
		slog.String("carrier", o.Carrier),
	)
	return o, nil
}

// MarkDelivered is the seller's explicit delivery confirmation. It stamps
// the dispute deadline that gates payout eligibility.
func (s *Service) MarkDelivered(ctx context.Context, orderID, storeID string) (Order, error) {
	if err := s.ensureStore(ctx, orderID, storeID); err != nil {
		return Order{}, err
	}

	deliveredAt := s.now()
	deadline := deliveredAt.Add(s.holdWindow)
	return s.repo.Transition(ctx, TransitionParams{
		OrderID: orderID,
		From:    []Status{StatusShipped},
		To:      StatusDelivered,
		Updates: Updates{
			DeliveredAt:     &deliveredAt,
			DisputeDeadline: &deadline,
		},
	})
}

func (s *Service) ensureStore(ctx context.Context, orderID, storeID string) error {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if storeID == "" || o.StoreID != storeID {
		return ErrForbidden
	}
	return nil
}

func (s *Service) number(id string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(suffix) > 6 {
		suffix = suffix[:6]
	}
	return fmt.Sprintf("LX-%s-%s", s.now().UTC().Format("20060102"), suffix)
}
