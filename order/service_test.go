package order

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestService(repo *MemoryRepository, now time.Time) *Service {
	return NewService(repo, 7, nil).WithClock(func() time.Time { return now })
}

func seedOrder(repo *MemoryRepository, id string, status Status) {
	repo.Seed(Order{
		ID:            id,
		Number:        "LX-20260301-ABC123",
		BuyerID:       "buyer-1",
		StoreID:       "store-1",
		ProductID:     "prod-1",
		TotalCents:    212500,
		PlatformFeeCents: 40000,
		Status:        status,
		PaymentStatus: PaymentPending,
	})
}

func TestConfirm_FromPendingOnly(t *testing.T) {
	repo := NewMemoryRepository()
	seedOrder(repo, "o1", StatusPending)
	svc := newTestService(repo, time.Now())

	o, err := svc.Confirm(context.Background(), "o1", "pi_123")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if o.Status != StatusConfirmed || o.PaymentStatus != PaymentCaptured {
		t.Fatalf("unexpected state: %s/%s", o.Status, o.PaymentStatus)
	}
	if o.PaymentIntentID != "pi_123" {
		t.Fatalf("expected intent recorded, got %q", o.PaymentIntentID)
	}

	// Replay: precondition no longer holds, state untouched.
	if _, err := svc.Confirm(context.Background(), "o1", "pi_123"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on replay, got %v", err)
	}
	got, _ := svc.Get(context.Background(), "o1")
	if got.Status != StatusConfirmed {
		t.Fatalf("replay must not change state, got %s", got.Status)
	}
}

func TestCancelExpired_DoesNotClobberConfirmed(t *testing.T) {
	repo := NewMemoryRepository()
	seedOrder(repo, "o1", StatusPending)
	svc := newTestService(repo, time.Now())

	if _, err := svc.Confirm(context.Background(), "o1", "pi_123"); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// The expired event lost the race; it must not cancel a paid order.
	if _, err := svc.CancelExpired(context.Background(), "o1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	got, _ := svc.Get(context.Background(), "o1")
	if got.Status != StatusConfirmed || got.PaymentStatus != PaymentCaptured {
		t.Fatalf("confirmed order was clobbered: %s/%s", got.Status, got.PaymentStatus)
	}
}

func TestShip_RequiresTracking(t *testing.T) {
	repo := NewMemoryRepository()
	seedOrder(repo, "o1", StatusConfirmed)
	svc := newTestService(repo, time.Now())

	_, err := svc.Ship(context.Background(), ShipParams{
		OrderID: "o1",
		StoreID: "store-1",
		Carrier: "DHL",
	})
	if !errors.Is(err, ErrTrackingRequired) {
		t.Fatalf("expected ErrTrackingRequired, got %v", err)
	}

	_, err = svc.Ship(context.Background(), ShipParams{
		OrderID:        "o1",
		StoreID:        "store-1",
		Carrier:        "  ",
		TrackingNumber: "TRK-1",
	})
	if !errors.Is(err, ErrTrackingRequired) {
		t.Fatalf("expected ErrTrackingRequired for blank carrier, got %v", err)
	}
}

func TestShip_FromConfirmedAndProcessing(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for _, start := range []Status{StatusConfirmed, StatusProcessing} {
		repo := NewMemoryRepository()
		seedOrder(repo, "o1", start)
		svc := newTestService(repo, now)

		o, err := svc.Ship(context.Background(), ShipParams{
			OrderID:        "o1",
			StoreID:        "store-1",
			Carrier:        "FedEx",
			TrackingNumber: "TRK-99",
		})
		if err != nil {
			t.Fatalf("ship from %s: %v", start, err)
		}
		if o.Status != StatusShipped || o.ShippedAt == nil || !o.ShippedAt.Equal(now) {
			t.Fatalf("unexpected shipped state from %s: %+v", start, o)
		}
	}
}

func TestShip_InvalidFromShippedOrTerminal(t *testing.T) {
	for _, start := range []Status{StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded} {
		repo := NewMemoryRepository()
		seedOrder(repo, "o1", start)
		svc := newTestService(repo, time.Now())

		_, err := svc.Ship(context.Background(), ShipParams{
			OrderID:        "o1",
			StoreID:        "store-1",
			Carrier:        "UPS",
			TrackingNumber: "TRK-1",
		})
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition from %s, got %v", start, err)
		}
		got, _ := svc.Get(context.Background(), "o1")
		if got.Status != start {
			t.Fatalf("state changed on invalid edge: %s -> %s", start, got.Status)
		}
	}
}

func TestShip_WrongStoreForbidden(t *testing.T) {
	repo := NewMemoryRepository()
	seedOrder(repo, "o1", StatusConfirmed)
	svc := newTestService(repo, time.Now())

	_, err := svc.Ship(context.Background(), ShipParams{
		OrderID:        "o1",
		StoreID:        "store-other",
		Carrier:        "UPS",
		TrackingNumber: "TRK-1",
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestMarkDelivered_StampsDisputeDeadline(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := NewMemoryRepository()
	seedOrder(repo, "o1", StatusShipped)
	svc := newTestService(repo, now)

	o, err := svc.MarkDelivered(context.Background(), "o1", "store-1")
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if o.Status != StatusDelivered {
		t.Fatalf("expected delivered, got %s", o.Status)
	}
	if o.DeliveredAt == nil || !o.DeliveredAt.Equal(now) {
		t.Fatalf("unexpected delivered_at: %v", o.DeliveredAt)
	}
	wantDeadline := now.Add(7 * 24 * time.Hour)
	if o.DisputeDeadline == nil || !o.DisputeDeadline.Equal(wantDeadline) {
		t.Fatalf("expected dispute deadline %v, got %v", wantDeadline, o.DisputeDeadline)
	}
}

func TestRefund_OnlyFromDelivered(t *testing.T) {
	repo := NewMemoryRepository()
	seedOrder(repo, "o1", StatusDelivered)
	svc := newTestService(repo, time.Now())

	o, err := svc.Refund(context.Background(), "o1")
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if o.Status != StatusRefunded || o.PaymentStatus != PaymentRefunded {
		t.Fatalf("unexpected state: %s/%s", o.Status, o.PaymentStatus)
	}

	repo2 := NewMemoryRepository()
	seedOrder(repo2, "o2", StatusConfirmed)
	svc2 := newTestService(repo2, time.Now())
	if _, err := svc2.Refund(context.Background(), "o2"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestMarkPaymentFailed_LeavesStatusAlone(t *testing.T) {
	repo := NewMemoryRepository()
	seedOrder(repo, "o1", StatusPending)
	svc := newTestService(repo, time.Now())

	o, err := svc.MarkPaymentFailed(context.Background(), "o1")
	if err != nil {
		t.Fatalf("mark payment failed: %v", err)
	}
	if o.Status != StatusPending {
		t.Fatalf("fulfillment status must not change, got %s", o.Status)
	}
	if o.PaymentStatus != PaymentFailed {
		t.Fatalf("expected failed payment, got %s", o.PaymentStatus)
	}
}

func TestCreate_GeneratesNumber(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := NewMemoryRepository()
	svc := newTestService(repo, now).WithIDGenerator(func() string { return "abcdef12-3456" })

	o, err := svc.Create(context.Background(), CreateParams{
		BuyerID:    "buyer-1",
		StoreID:    "store-1",
		ProductID:  "prod-1",
		TotalCents: 212500,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.Number != "LX-20260301-ABCDEF" {
		t.Fatalf("unexpected order number %q", o.Number)
	}
	if o.Status != StatusPending || o.PaymentStatus != PaymentPending {
		t.Fatalf("unexpected initial state: %s/%s", o.Status, o.PaymentStatus)
	}
}

func TestTransition_TableIsAuthoritative(t *testing.T) {
	repo := NewMemoryRepository()
	seedOrder(repo, "o1", StatusDelivered)

	// The edge delivered -> confirmed does not exist; a From list that
	// matches the current status must not smuggle it through.
	if _, err := repo.Transition(context.Background(), TransitionParams{
		OrderID: "o1",
		From:    []Status{StatusDelivered},
		To:      StatusConfirmed,
	}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	got, _ := repo.GetByID(context.Background(), "o1")
	if got.Status != StatusDelivered {
		t.Fatalf("state must be untouched, got %s", got.Status)
	}

	// A terminal source can go nowhere.
	seedOrder(repo, "o2", StatusCancelled)
	if _, err := repo.Transition(context.Background(), TransitionParams{
		OrderID: "o2",
		From:    []Status{StatusCancelled},
		To:      StatusShipped,
	}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition from terminal, got %v", err)
	}

	// Same-status writes stay allowed: attaching a session keeps pending.
	seedOrder(repo, "o3", StatusPending)
	sess := "cs_1"
	o, err := repo.Transition(context.Background(), TransitionParams{
		OrderID: "o3",
		From:    []Status{StatusPending},
		To:      StatusPending,
		Updates: Updates{PaymentSessionID: &sess},
	})
	if err != nil {
		t.Fatalf("column-only update: %v", err)
	}
	if o.Status != StatusPending || o.PaymentSessionID != "cs_1" {
		t.Fatalf("unexpected state: %+v", o)
	}
}
