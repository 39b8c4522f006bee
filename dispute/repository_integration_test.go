package dispute

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TestDisputeUniqueness_Integration verifies the one-live-dispute-per-order
// rule and the guarded status moves against a live PostgreSQL.
func TestDisputeUniqueness_Integration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL is empty; set it to a live PostgreSQL to run integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect pool: %v", err)
	}
	defer pool.Close()

	var exists bool
	if err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = 'disputes')`).Scan(&exists); err != nil {
		t.Fatalf("check schema: %v", err)
	}
	if !exists {
		t.Skip("database schema missing; apply the files under migrations/ first")
	}

	nonce := time.Now().UnixNano()
	var buyerID, sellerID, storeID, productID, orderID string
	if err := pool.QueryRow(ctx, `INSERT INTO users (email, full_name, password_hash, role) VALUES ($1,'Buyer','x','buyer') RETURNING id`,
		fmt.Sprintf("itest-buyer-%d@example.com", nonce)).Scan(&buyerID); err != nil {
		t.Fatalf("seed buyer: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO users (email, full_name, password_hash, role) VALUES ($1,'Seller','x','seller') RETURNING id`,
		fmt.Sprintf("itest-seller-%d@example.com", nonce)).Scan(&sellerID); err != nil {
		t.Fatalf("seed seller: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO stores (owner_user_id, name, slug) VALUES ($1,'Dispute Atelier',$2) RETURNING id`,
		sellerID, fmt.Sprintf("itest-d-%d", nonce)).Scan(&storeID); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO products (sku, store_id, name, price_cents, status) VALUES ($1,$2,'Disputed Piece',100000,'sold') RETURNING id`,
		fmt.Sprintf("ITEST-D-%d", nonce), storeID).Scan(&productID); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	if err := pool.QueryRow(ctx, `
		INSERT INTO orders (number, buyer_id, store_id, product_id,
			subtotal_cents, total_cents, status, payment_status,
			delivered_at, dispute_deadline)
		VALUES ($1,$2,$3,$4,100000,100000,'delivered','captured', now(), now() + interval '72 hours')
		RETURNING id`,
		fmt.Sprintf("LX-ITEST-%d", nonce), buyerID, storeID, productID).Scan(&orderID); err != nil {
		t.Fatalf("seed order: %v", err)
	}

	t.Cleanup(func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel2()
		pool.Exec(ctx2, `DELETE FROM dispute_messages WHERE dispute_id IN (SELECT id FROM disputes WHERE order_id = $1)`, orderID)
		pool.Exec(ctx2, `DELETE FROM disputes WHERE order_id = $1`, orderID)
		pool.Exec(ctx2, `DELETE FROM orders WHERE id = $1`, orderID)
		pool.Exec(ctx2, `DELETE FROM products WHERE id = $1`, productID)
		pool.Exec(ctx2, `DELETE FROM stores WHERE id = $1`, storeID)
		pool.Exec(ctx2, `DELETE FROM users WHERE id IN ($1, $2)`, buyerID, sellerID)
	})

	repo := NewPGRepository(pool)

	rec, err := repo.Create(ctx, Record{
		OrderID: orderID,
		BuyerID: buyerID,
		StoreID: storeID,
		Reason:  ReasonNotAsDescribed,
	})
	if err != nil {
		t.Fatalf("create dispute: %v", err)
	}
	if rec.Status != StatusOpen {
		t.Fatalf("status = %s, want open", rec.Status)
	}

	// The partial unique index rejects a second live dispute.
	if _, err := repo.Create(ctx, Record{
		OrderID: orderID, BuyerID: buyerID, StoreID: storeID, Reason: ReasonDamaged,
	}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate create: got %v, want ErrDuplicate", err)
	}

	// Guarded move from the wrong precondition reports the status miss.
	if _, err := repo.UpdateStatus(ctx, rec.ID, []Status{StatusSellerResponse}, StatusUnderReview); !errors.Is(err, ErrBadStatus) {
		t.Fatalf("bad cas: got %v, want ErrBadStatus", err)
	}
	if _, err := repo.UpdateStatus(ctx, rec.ID, []Status{StatusOpen}, StatusUnderReview); err != nil {
		t.Fatalf("cas open->under_review: %v", err)
	}

	resolved, err := repo.Resolve(ctx, rec.ID, ResolutionRefundBuyer, "integration resolution")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Resolution == nil || *resolved.Resolution != ResolutionRefundBuyer || resolved.ResolvedAt == nil {
		t.Fatalf("resolved = %+v", resolved)
	}

	open, err := repo.HasOpen(ctx, orderID)
	if err != nil {
		t.Fatalf("has open: %v", err)
	}
	if open {
		t.Fatal("expected no live dispute after resolution")
	}

	// A resolved dispute no longer blocks a fresh one.
	if _, err := repo.Create(ctx, Record{
		OrderID: orderID, BuyerID: buyerID, StoreID: storeID, Reason: ReasonOther,
	}); err != nil {
		t.Fatalf("create after resolve: %v", err)
	}
}
