package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const productColumns = `id, sku, store_id, name, description, price_cents, original_price_cents, status::text, reserved_by::text, reserved_until, created_at, updated_at`

// PGRepository is the Postgres-backed product store.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.SKU, &p.StoreID, &p.Name, &p.Description,
		&p.PriceCents, &p.OriginalPriceCents, &p.Status,
		&p.ReservedBy, &p.ReservedUntil, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func (r *PGRepository) Create(ctx context.Context, params CreateParams) (Product, error) {
	if params.StoreID == "" {
		return Product{}, fmt.Errorf("catalog: store id required")
	}
	if params.Name == "" {
		return Product{}, fmt.Errorf("catalog: name required")
	}
	if params.PriceCents <= 0 {
		return Product{}, fmt.Errorf("catalog: invalid price")
	}

	query := `
		INSERT INTO products (sku, store_id, name, description, price_cents, original_price_cents, status)
		VALUES ($1,$2,$3,$4,$5,$6,'draft')
		RETURNING ` + productColumns

	p, err := scanProduct(r.pool.QueryRow(ctx, query,
		params.SKU, params.StoreID, params.Name, params.Description,
		params.PriceCents, params.OriginalPriceCents,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Product{}, ErrDuplicateSKU
		}
		return Product{}, fmt.Errorf("catalog: insert product: %w", err)
	}
	return p, nil
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("catalog: query by id: %w", err)
	}
	return p, nil
}

func (r *PGRepository) List(ctx context.Context, filters Filters) ([]Product, int, error) {
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.PageSize <= 0 || filters.PageSize > 100 {
		filters.PageSize = 20
	}

	where := ` WHERE 1=1`
	args := []any{}
	if filters.StoreID != "" {
		args = append(args, filters.StoreID)
		where += fmt.Sprintf(" AND store_id = $%d", len(args))
	}
	if filters.Status != "" {
		args = append(args, string(filters.Status))
		where += fmt.Sprintf(" AND status = $%d::product_status", len(args))
	}

	query := `SELECT ` + productColumns + ` FROM products` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	listArgs := append(args, filters.PageSize, (filters.Page-1)*filters.PageSize)

	rows, err := r.pool.Query(ctx, query, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: list: %w", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("catalog: scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("catalog: iterate products: %w", err)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("catalog: count: %w", err)
	}
	return products, total, nil
}

func (r *PGRepository) Publish(ctx context.Context, id string) (Product, error) {
	query := `
		UPDATE products
		SET status = 'active', updated_at = now()
		WHERE id = $1 AND status = 'draft'
		RETURNING ` + productColumns

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("catalog: publish: %w", err)
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return Product{}, err
	}
	return Product{}, ErrUnavailable
}

// Reserve takes the row lock, re-checks availability under it, and writes
// the hold. The precondition check and the write share one transaction so
// two concurrent checkouts cannot both win.
func (r *PGRepository) Reserve(ctx context.Context, id, userID string, until, now time.Time) (Product, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Product{}, fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := scanProduct(tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("catalog: lock product: %w", err)
	}

	if !p.AvailableAt(now) && !p.ReservedByAt(userID, now) {
		return Product{}, ErrUnavailable
	}

	p, err = scanProduct(tx.QueryRow(ctx, `
		UPDATE products
		SET status = 'reserved', reserved_by = $2::uuid, reserved_until = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns, id, userID, until))
	if err != nil {
		return Product{}, fmt.Errorf("catalog: write reservation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Product{}, fmt.Errorf("catalog: commit reservation: %w", err)
	}
	return p, nil
}

func (r *PGRepository) Release(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE products
		SET status = 'active', reserved_by = NULL, reserved_until = NULL, updated_at = now()
		WHERE id = $1 AND status = 'reserved'
	`, id)
	if err != nil {
		return fmt.Errorf("catalog: release: %w", err)
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	// Already active, sold or archived: release is a no-op, but a missing
	// row is still reported.
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return nil
}

func (r *PGRepository) MarkSold(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE products
		SET status = 'sold', reserved_by = NULL, reserved_until = NULL, updated_at = now()
		WHERE id = $1 AND status IN ('active','reserved','sold')
	`, id)
	if err != nil {
		return fmt.Errorf("catalog: mark sold: %w", err)
	}
	if ct.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrUnavailable
	}
	return nil
}
