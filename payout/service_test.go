package payout

import (
	"context"
	"errors"
	"testing"
	"time"

	"luxeflow/dispute"
	"luxeflow/order"
)

var frozen = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	orders   *order.MemoryRepository
	disputes *dispute.MemoryRepository
	recorder *MemoryRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	orders := order.NewMemoryRepository()
	disputes := dispute.NewMemoryRepository()
	recorder := NewMemoryRecorder().WithClock(func() time.Time { return frozen })
	source := &MemorySource{Orders: orders, Disputes: disputes}
	svc := NewService(source, recorder, nil, 7, nil).WithClock(func() time.Time { return frozen })
	return &fixture{svc: svc, orders: orders, disputes: disputes, recorder: recorder}
}

func (f *fixture) seedDelivered(id, storeID string, deliveredDaysAgo int, total, fee int64) {
	delivered := frozen.Add(-time.Duration(deliveredDaysAgo) * 24 * time.Hour)
	f.orders.Seed(order.Order{
		ID:               id,
		BuyerID:          "buyer-1",
		StoreID:          storeID,
		ProductID:        "prod-" + id,
		TotalCents:       total,
		PlatformFeeCents: fee,
		Status:           order.StatusDelivered,
		DeliveredAt:      &delivered,
	})
}

func TestRunPaysDeliveredOrderPastHoldWindow(t *testing.T) {
	f := newFixture(t)
	f.seedDelivered("ord-1", "store-1", 8, 220000, 40000)

	sum, err := f.svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Stores != 1 || sum.Orders != 1 || sum.Failures != 0 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.AmountCents != 180000 {
		t.Fatalf("amount = %d, want total minus platform fee = 180000", sum.AmountCents)
	}

	payouts, err := f.svc.ListByStore(context.Background(), "store-1")
	if err != nil || len(payouts) != 1 {
		t.Fatalf("payouts = %v, err %v", payouts, err)
	}
	p := payouts[0]
	if p.Status != StatusProcessing || p.AmountCents != 180000 || p.OrderCount != 1 {
		t.Fatalf("payout = %+v", p)
	}
}

func TestRunExcludesOrderWithOpenDispute(t *testing.T) {
	f := newFixture(t)
	f.seedDelivered("ord-1", "store-1", 8, 220000, 40000)
	f.disputes.Seed(dispute.Record{
		OrderID: "ord-1", BuyerID: "buyer-1", StoreID: "store-1",
		Reason: dispute.ReasonDamaged, Status: dispute.StatusOpen,
	})

	sum, err := f.svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Stores != 0 || sum.Orders != 0 || sum.AmountCents != 0 {
		t.Fatalf("summary = %+v, want empty run", sum)
	}
}

func TestRunIncludesOrderAfterDisputeResolves(t *testing.T) {
	f := newFixture(t)
	f.seedDelivered("ord-1", "store-1", 10, 100000, 20000)
	f.disputes.Seed(dispute.Record{
		ID: "dsp-1", OrderID: "ord-1", BuyerID: "buyer-1", StoreID: "store-1",
		Reason: dispute.ReasonNotAsDescribed, Status: dispute.StatusOpen,
	})

	sum, _ := f.svc.Run(context.Background())
	if sum.Orders != 0 {
		t.Fatalf("pre-resolution run paid %d orders, want 0", sum.Orders)
	}

	if _, err := f.disputes.Resolve(context.Background(), "dsp-1", dispute.ResolutionReleaseSeller, ""); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	sum, _ = f.svc.Run(context.Background())
	if sum.Orders != 1 || sum.AmountCents != 80000 {
		t.Fatalf("post-resolution summary = %+v", sum)
	}
}

func TestRunSkipsOrdersInsideHoldWindow(t *testing.T) {
	f := newFixture(t)
	f.seedDelivered("ord-recent", "store-1", 3, 100000, 20000)
	f.seedDelivered("ord-old", "store-1", 9, 50000, 10000)

	sum, err := f.svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Orders != 1 || sum.AmountCents != 40000 {
		t.Fatalf("summary = %+v, want only the 9-day-old order", sum)
	}
}

func TestRunGroupsPerStore(t *testing.T) {
	f := newFixture(t)
	f.seedDelivered("ord-1", "store-1", 8, 100000, 20000)
	f.seedDelivered("ord-2", "store-1", 9, 60000, 12000)
	f.seedDelivered("ord-3", "store-2", 8, 30000, 6000)

	sum, err := f.svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Stores != 2 || sum.Orders != 3 {
		t.Fatalf("summary = %+v", sum)
	}

	p1, _ := f.svc.ListByStore(context.Background(), "store-1")
	if len(p1) != 1 || p1[0].AmountCents != 128000 || p1[0].OrderCount != 2 {
		t.Fatalf("store-1 payout = %+v", p1)
	}
	p2, _ := f.svc.ListByStore(context.Background(), "store-2")
	if len(p2) != 1 || p2[0].AmountCents != 24000 {
		t.Fatalf("store-2 payout = %+v", p2)
	}
}

// failingRecorder rejects one store's payout to exercise failure isolation.
type failingRecorder struct {
	*MemoryRecorder
	failStore string
}

func (r *failingRecorder) Create(ctx context.Context, p StorePayout) (StorePayout, error) {
	if p.StoreID == r.failStore {
		return StorePayout{}, errors.New("insert refused")
	}
	return r.MemoryRecorder.Create(ctx, p)
}

func TestRunIsolatesPerStoreFailures(t *testing.T) {
	orders := order.NewMemoryRepository()
	recorder := &failingRecorder{MemoryRecorder: NewMemoryRecorder(), failStore: "store-bad"}
	source := &MemorySource{Orders: orders, Disputes: dispute.NewMemoryRepository()}
	svc := NewService(source, recorder, nil, 7, nil).WithClock(func() time.Time { return frozen })

	delivered := frozen.Add(-8 * 24 * time.Hour)
	for _, storeID := range []string{"store-bad", "store-good"} {
		orders.Seed(order.Order{
			ID: "ord-" + storeID, BuyerID: "buyer-1", StoreID: storeID,
			TotalCents: 100000, PlatformFeeCents: 20000,
			Status: order.StatusDelivered, DeliveredAt: &delivered,
		})
	}

	sum, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Failures != 1 || sum.Stores != 1 || sum.AmountCents != 80000 {
		t.Fatalf("summary = %+v, want one failure and one paid store", sum)
	}
	good, _ := recorder.ListByStore(context.Background(), "store-good")
	if len(good) != 1 {
		t.Fatalf("store-good payouts = %d, want 1", len(good))
	}
}

func TestRunWithNoCandidates(t *testing.T) {
	f := newFixture(t)
	sum, err := f.svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Stores != 0 || sum.Orders != 0 || sum.AmountCents != 0 || sum.Failures != 0 {
		t.Fatalf("summary = %+v, want zeroes", sum)
	}
}
