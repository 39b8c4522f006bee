package alert

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const alertColumns = `id, user_id::text, product_id::text, target_price_cents, is_active, created_at, updated_at`

// PGRepository is the Postgres-backed alert store. A partial unique
// index on (user_id, product_id) where is_active carries the upsert.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func scanAlert(row pgx.Row) (PriceAlert, error) {
	var a PriceAlert
	err := row.Scan(&a.ID, &a.UserID, &a.ProductID, &a.TargetPriceCents, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return PriceAlert{}, err
	}
	return a, nil
}

func (r *PGRepository) Upsert(ctx context.Context, userID, productID string, targetCents int64) (PriceAlert, error) {
	// Update-first keeps the original row (and created_at) when the user
	// adjusts an existing alert's target.
	a, err := scanAlert(r.pool.QueryRow(ctx, `
		UPDATE price_alerts
		SET target_price_cents = $3, updated_at = now()
		WHERE user_id = $1 AND product_id = $2 AND is_active
		RETURNING `+alertColumns, userID, productID, targetCents))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return PriceAlert{}, fmt.Errorf("alert: update: %w", err)
	}

	a, err = scanAlert(r.pool.QueryRow(ctx, `
		INSERT INTO price_alerts (user_id, product_id, target_price_cents, is_active)
		VALUES ($1, $2, $3, true)
		RETURNING `+alertColumns, userID, productID, targetCents))
	if err != nil {
		return PriceAlert{}, fmt.Errorf("alert: insert: %w", err)
	}
	return a, nil
}

func (r *PGRepository) ListByUser(ctx context.Context, userID string) ([]PriceAlert, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+alertColumns+` FROM price_alerts
		WHERE user_id = $1 AND is_active
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("alert: list: %w", err)
	}
	defer rows.Close()

	out := make([]PriceAlert, 0, 4)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("alert: scan: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("alert: iterate: %w", err)
	}
	return out, nil
}

func (r *PGRepository) Deactivate(ctx context.Context, id, userID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE price_alerts
		SET is_active = false, updated_at = now()
		WHERE id = $1 AND user_id = $2 AND is_active`, id, userID)
	if err != nil {
		return fmt.Errorf("alert: deactivate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) DeactivateByProduct(ctx context.Context, userID, productID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE price_alerts
		SET is_active = false, updated_at = now()
		WHERE user_id = $1 AND product_id = $2 AND is_active`, userID, productID)
	if err != nil {
		return fmt.Errorf("alert: deactivate by product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
