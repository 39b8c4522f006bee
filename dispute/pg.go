package dispute

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const disputeColumns = `id, order_id::text, buyer_id::text, store_id::text,
reason::text, status::text, resolution, resolution_notes,
created_at, updated_at, resolved_at`

const messageColumns = `id, dispute_id::text, sender_id::text, sender_role, body, created_at`

// PGRepository is the Postgres-backed dispute store. A partial unique
// index on order_id (where status is non-terminal) enforces the
// one-open-dispute-per-order rule at the database level.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func scanDispute(row pgx.Row) (Record, error) {
	var (
		rec        Record
		resolution *string
		notes      *string
	)
	err := row.Scan(
		&rec.ID, &rec.OrderID, &rec.BuyerID, &rec.StoreID,
		&rec.Reason, &rec.Status, &resolution, &notes,
		&rec.CreatedAt, &rec.UpdatedAt, &rec.ResolvedAt,
	)
	if err != nil {
		return Record{}, err
	}
	if resolution != nil {
		r := Resolution(*resolution)
		rec.Resolution = &r
	}
	if notes != nil {
		rec.ResolutionNotes = *notes
	}
	return rec, nil
}

func (r *PGRepository) Create(ctx context.Context, rec Record) (Record, error) {
	if rec.OrderID == "" || rec.BuyerID == "" || rec.StoreID == "" {
		return Record{}, fmt.Errorf("dispute: order, buyer and store ids required")
	}

	query := `
		INSERT INTO disputes (order_id, buyer_id, store_id, reason, status)
		VALUES ($1, $2, $3, $4::dispute_reason, 'open')
		RETURNING ` + disputeColumns

	created, err := scanDispute(r.pool.QueryRow(ctx, query,
		rec.OrderID, rec.BuyerID, rec.StoreID, string(rec.Reason)))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Record{}, ErrDuplicate
		}
		return Record{}, fmt.Errorf("dispute: insert: %w", err)
	}
	return created, nil
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (Record, error) {
	rec, err := scanDispute(r.pool.QueryRow(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("dispute: query by id: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM dispute_messages WHERE dispute_id = $1 ORDER BY created_at ASC`, id)
	if err != nil {
		return Record{}, fmt.Errorf("dispute: query messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.DisputeID, &m.SenderID, &m.SenderRole, &m.Body, &m.CreatedAt); err != nil {
			return Record{}, fmt.Errorf("dispute: scan message: %w", err)
		}
		rec.Messages = append(rec.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return Record{}, fmt.Errorf("dispute: iterate messages: %w", err)
	}
	return rec, nil
}

func (r *PGRepository) List(ctx context.Context, filters Filters) ([]Record, error) {
	where := `1=1`
	args := []any{}
	add := func(clause string, v any) {
		args = append(args, v)
		where += fmt.Sprintf(" AND %s = $%d", clause, len(args))
	}
	if filters.BuyerID != "" {
		add("buyer_id", filters.BuyerID)
	}
	if filters.StoreID != "" {
		add("store_id", filters.StoreID)
	}
	if filters.OrderID != "" {
		add("order_id", filters.OrderID)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+disputeColumns+` FROM disputes WHERE `+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("dispute: list: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0, 4)
	for rows.Next() {
		rec, err := scanDispute(rows)
		if err != nil {
			return nil, fmt.Errorf("dispute: scan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dispute: iterate: %w", err)
	}
	return out, nil
}

func (r *PGRepository) AddMessage(ctx context.Context, msg Message) (Message, error) {
	query := `
		INSERT INTO dispute_messages (dispute_id, sender_id, sender_role, body)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + messageColumns

	var out Message
	err := r.pool.QueryRow(ctx, query, msg.DisputeID, msg.SenderID, msg.SenderRole, msg.Body).
		Scan(&out.ID, &out.DisputeID, &out.SenderID, &out.SenderRole, &out.Body, &out.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("dispute: insert message: %w", err)
	}
	return out, nil
}

// UpdateStatus applies a compare-and-set status move, guarded on the
// current status being one of the allowed sources.
func (r *PGRepository) UpdateStatus(ctx context.Context, id string, from []Status, to Status) (Record, error) {
	if len(from) == 0 {
		return Record{}, fmt.Errorf("dispute: update requires allowed source statuses")
	}
	src := make([]string, len(from))
	for i, s := range from {
		src[i] = string(s)
	}

	rec, err := scanDispute(r.pool.QueryRow(ctx, `
		UPDATE disputes
		SET status = $2::dispute_status, updated_at = now()
		WHERE id = $1 AND status = ANY($3::dispute_status[])
		RETURNING `+disputeColumns, id, string(to), src))
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Record{}, fmt.Errorf("dispute: update status: %w", err)
	}

	// Distinguish a missing row from a precondition miss.
	if _, err := r.GetByID(ctx, id); err != nil {
		return Record{}, err
	}
	return Record{}, ErrBadStatus
}

func (r *PGRepository) Resolve(ctx context.Context, id string, resolution Resolution, notes string) (Record, error) {
	rec, err := scanDispute(r.pool.QueryRow(ctx, `
		UPDATE disputes
		SET status = 'resolved', resolution = $2::dispute_resolution,
		    resolution_notes = NULLIF($3, ''), resolved_at = now(), updated_at = now()
		WHERE id = $1 AND status IN ('open', 'seller_response', 'under_review')
		RETURNING `+disputeColumns, id, string(resolution), notes))
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Record{}, fmt.Errorf("dispute: resolve: %w", err)
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return Record{}, err
	}
	return Record{}, ErrBadStatus
}

func (r *PGRepository) HasOpen(ctx context.Context, orderID string) (bool, error) {
	var open bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM disputes
			WHERE order_id = $1 AND status NOT IN ('resolved', 'closed')
		)`, orderID).Scan(&open)
	if err != nil {
		return false, fmt.Errorf("dispute: has open: %w", err)
	}
	return open, nil
}
