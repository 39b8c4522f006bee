package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TestReservation_Integration connects to a real PostgreSQL via DATABASE_URL
// and verifies the row-locked reservation path against a live schema.
func TestReservation_Integration(t *testing.T) {
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

	if !tableExists(ctx, t, pool, "products") || !tableExists(ctx, t, pool, "stores") {
		t.Skip("database schema missing; apply the files under migrations/ first")
	}

	nonce := time.Now().UnixNano()
	var buyerA, buyerB, sellerID, storeID string
	if err := pool.QueryRow(ctx, `INSERT INTO users (email, full_name, password_hash, role) VALUES ($1,'Buyer A','x','buyer') RETURNING id`,
		fmt.Sprintf("itest-a-%d@example.com", nonce)).Scan(&buyerA); err != nil {
		t.Fatalf("seed buyer a: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO users (email, full_name, password_hash, role) VALUES ($1,'Buyer B','x','buyer') RETURNING id`,
		fmt.Sprintf("itest-b-%d@example.com", nonce)).Scan(&buyerB); err != nil {
		t.Fatalf("seed buyer b: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO users (email, full_name, password_hash, role) VALUES ($1,'Seller','x','seller') RETURNING id`,
		fmt.Sprintf("itest-s-%d@example.com", nonce)).Scan(&sellerID); err != nil {
		t.Fatalf("seed seller: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO stores (owner_user_id, name, slug) VALUES ($1,'Integration Atelier',$2) RETURNING id`,
		sellerID, fmt.Sprintf("itest-%d", nonce)).Scan(&storeID); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	repo := NewPGRepository(pool)

	p, err := repo.Create(ctx, CreateParams{
		StoreID:    storeID,
		SKU:        fmt.Sprintf("ITEST-%d", nonce),
		Name:       "Integration Piece",
		PriceCents: 150000,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	t.Cleanup(func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel2()
		pool.Exec(ctx2, `DELETE FROM products WHERE id = $1`, p.ID)
		pool.Exec(ctx2, `DELETE FROM stores WHERE id = $1`, storeID)
		pool.Exec(ctx2, `DELETE FROM users WHERE id IN ($1, $2, $3)`, buyerA, buyerB, sellerID)
	})

	// Draft products cannot be reserved.
	now := time.Now()
	if _, err := repo.Reserve(ctx, p.ID, buyerA, now.Add(15*time.Minute), now); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("reserve draft: got %v, want ErrUnavailable", err)
	}

	if _, err := repo.Publish(ctx, p.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}

	got, err := repo.Reserve(ctx, p.ID, buyerA, now.Add(15*time.Minute), now)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if got.Status != StatusReserved {
		t.Fatalf("status = %s, want reserved", got.Status)
	}

	// Another buyer loses while the hold is live.
	if _, err := repo.Reserve(ctx, p.ID, buyerB, now.Add(15*time.Minute), now); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("rival reserve: got %v, want ErrUnavailable", err)
	}

	// The holder may extend their own reservation.
	if _, err := repo.Reserve(ctx, p.ID, buyerA, now.Add(30*time.Minute), now); err != nil {
		t.Fatalf("extend reserve: %v", err)
	}

	// Release frees the piece for the rival.
	if err := repo.Release(ctx, p.ID); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := repo.Reserve(ctx, p.ID, buyerB, now.Add(15*time.Minute), now); err != nil {
		t.Fatalf("reserve after release: %v", err)
	}

	// Sold is terminal for reservation purposes.
	if err := repo.MarkSold(ctx, p.ID); err != nil {
		t.Fatalf("mark sold: %v", err)
	}
	if _, err := repo.Reserve(ctx, p.ID, buyerA, now.Add(15*time.Minute), now); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("reserve sold: got %v, want ErrUnavailable", err)
	}
}

func tableExists(ctx context.Context, t *testing.T, pool *pgxpool.Pool, name string) bool {
	t.Helper()
	var exists bool
	err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)`, name).Scan(&exists)
	if err != nil {
		t.Fatalf("check table %s: %v", name, err)
	}
	return exists
}
