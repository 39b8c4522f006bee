package payout

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const payoutColumns = `id, store_id::text, amount_cents, order_count, status::text, created_at`

// PGRepository backs both the candidate query and the payout records.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Eligible returns delivered orders past the hold cutoff with no live
// dispute. The dispute gate is part of the query so a dispute resolved
// before the run makes its order eligible again without extra bookkeeping.
func (r *PGRepository) Eligible(ctx context.Context, cutoff time.Time) ([]Candidate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT o.id, o.store_id::text, o.total_cents, o.platform_fee_cents
		FROM orders o
		WHERE o.status = 'delivered'
		  AND o.delivered_at < $1
		  AND NOT EXISTS (
			SELECT 1 FROM disputes d
			WHERE d.order_id = o.id AND d.status NOT IN ('resolved', 'closed')
		  )
		ORDER BY o.store_id, o.delivered_at`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("payout: query eligible: %w", err)
	}
	defer rows.Close()

	out := make([]Candidate, 0, 16)
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.OrderID, &c.StoreID, &c.TotalCents, &c.PlatformFeeCents); err != nil {
			return nil, fmt.Errorf("payout: scan candidate: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("payout: iterate candidates: %w", err)
	}
	return out, nil
}

func scanPayout(row pgx.Row) (StorePayout, error) {
	var p StorePayout
	err := row.Scan(&p.ID, &p.StoreID, &p.AmountCents, &p.OrderCount, &p.Status, &p.CreatedAt)
	if err != nil {
		return StorePayout{}, err
	}
	return p, nil
}

func (r *PGRepository) Create(ctx context.Context, p StorePayout) (StorePayout, error) {
	created, err := scanPayout(r.pool.QueryRow(ctx, `
		INSERT INTO store_payouts (store_id, amount_cents, order_count, status)
		VALUES ($1, $2, $3, $4::payout_status)
		RETURNING `+payoutColumns, p.StoreID, p.AmountCents, p.OrderCount, string(p.Status)))
	if err != nil {
		return StorePayout{}, fmt.Errorf("payout: insert: %w", err)
	}
	return created, nil
}

func (r *PGRepository) ListByStore(ctx context.Context, storeID string) ([]StorePayout, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+payoutColumns+` FROM store_payouts
		WHERE store_id = $1
		ORDER BY created_at DESC`, storeID)
	if err != nil {
		return nil, fmt.Errorf("payout: list: %w", err)
	}
	defer rows.Close()

	out := make([]StorePayout, 0, 8)
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, fmt.Errorf("payout: scan: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("payout: iterate: %w", err)
	}
	return out, nil
}
