package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const orderColumns = `id, number, buyer_id::text, store_id::text, product_id::text,
subtotal_cents, shipping_cents, tax_cents, total_cents, platform_fee_cents,
status::text, payment_status::text, payment_session_id, payment_intent_id,
shipping_address, carrier, tracking_number, shipped_at, delivered_at, dispute_deadline,
created_at, updated_at`

// PGRepository is the Postgres-backed order store.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o       Order
		addr    []byte
		session *string
		intent  *string
		carrier *string
		trackNo *string
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.BuyerID, &o.StoreID, &o.ProductID,
		&o.SubtotalCents, &o.ShippingCents, &o.TaxCents, &o.TotalCents, &o.PlatformFeeCents,
		&o.Status, &o.PaymentStatus, &session, &intent,
		&addr, &carrier, &trackNo, &o.ShippedAt, &o.DeliveredAt, &o.DisputeDeadline,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return Order{}, err
	}
	if session != nil {
		o.PaymentSessionID = *session
	}
	if intent != nil {
		o.PaymentIntentID = *intent
	}
	if carrier != nil {
		o.Carrier = *carrier
	}
	if trackNo != nil {
		o.TrackingNumber = *trackNo
	}
	if len(addr) > 0 {
		if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
			return Order{}, fmt.Errorf("order: decode shipping address: %w", err)
		}
	}
	return o, nil
}

func (r *PGRepository) Create(ctx context.Context, o Order) (Order, error) {
	if o.BuyerID == "" || o.StoreID == "" || o.ProductID == "" {
		return Order{}, fmt.Errorf("order: buyer, store and product ids required")
	}
	addr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return Order{}, fmt.Errorf("order: encode shipping address: %w", err)
	}

	query := `
		INSERT INTO orders (
			number, buyer_id, store_id, product_id,
			subtotal_cents, shipping_cents, tax_cents, total_cents, platform_fee_cents,
			status, payment_status, payment_session_id, shipping_address
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,'pending','pending',NULLIF($10,''),$11::jsonb)
		RETURNING ` + orderColumns

	created, err := scanOrder(r.pool.QueryRow(ctx, query,
		o.Number, o.BuyerID, o.StoreID, o.ProductID,
		o.SubtotalCents, o.ShippingCents, o.TaxCents, o.TotalCents, o.PlatformFeeCents,
		o.PaymentSessionID, addr,
	))
	if err != nil {
		return Order{}, fmt.Errorf("order: insert: %w", err)
	}
	return created, nil
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("order: query by id: %w", err)
	}
	return o, nil
}

func (r *PGRepository) GetBySessionID(ctx context.Context, sessionID string) (Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_session_id = $1`, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("order: query by session: %w", err)
	}
	return o, nil
}

func (r *PGRepository) ListByBuyer(ctx context.Context, buyerID string) ([]Order, error) {
	return r.list(ctx, `buyer_id = $1`, buyerID)
}

func (r *PGRepository) ListByStore(ctx context.Context, storeID string) ([]Order, error) {
	return r.list(ctx, `store_id = $1`, storeID)
}

func (r *PGRepository) list(ctx context.Context, where string, arg any) ([]Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+where+` ORDER BY created_at DESC`, arg)
	if err != nil {
		return nil, fmt.Errorf("order: list: %w", err)
	}
	defer rows.Close()

	out := make([]Order, 0, 8)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("order: scan: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("order: iterate: %w", err)
	}
	return out, nil
}

// Transition applies a compare-and-set status move. The UPDATE is guarded
// on the current status, so a row already moved past params.From is left
// untouched and the caller gets ErrInvalidTransition.
func (r *PGRepository) Transition(ctx context.Context, params TransitionParams) (Order, error) {
	if len(params.From) == 0 {
		return Order{}, fmt.Errorf("order: transition requires allowed source statuses")
	}
	if err := checkEdges(params.From, params.To); err != nil {
		return Order{}, err
	}

	from := make([]string, len(params.From))
	for i, s := range params.From {
		from[i] = string(s)
	}

	set := `status = $2::order_status, updated_at = now()`
	args := []any{params.OrderID, string(params.To)}
	add := func(clause string, v any) {
		args = append(args, v)
		set += fmt.Sprintf(", %s = $%d", clause, len(args))
	}

	u := params.Updates
	if u.PaymentStatus != nil {
		args = append(args, string(*u.PaymentStatus))
		set += fmt.Sprintf(", payment_status = $%d::payment_status", len(args))
	}
	if u.PaymentSessionID != nil {
		add("payment_session_id", *u.PaymentSessionID)
	}
	if u.PaymentIntentID != nil {
		add("payment_intent_id", *u.PaymentIntentID)
	}
	if u.Carrier != nil {
		add("carrier", *u.Carrier)
	}
	if u.TrackingNumber != nil {
		add("tracking_number", *u.TrackingNumber)
	}
	if u.ShippedAt != nil {
		add("shipped_at", *u.ShippedAt)
	}
	if u.DeliveredAt != nil {
		add("delivered_at", *u.DeliveredAt)
	}
	if u.DisputeDeadline != nil {
		add("dispute_deadline", *u.DisputeDeadline)
	}

	args = append(args, from)
	query := fmt.Sprintf(`UPDATE orders SET %s WHERE id = $1 AND status = ANY($%d::order_status[]) RETURNING %s`,
		set, len(args), orderColumns)

	o, err := scanOrder(r.pool.QueryRow(ctx, query, args...))
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("order: transition: %w", err)
	}

	// Distinguish a missing row from a precondition miss.
	if _, err := r.GetByID(ctx, params.OrderID); err != nil {
		return Order{}, err
	}
	return Order{}, ErrInvalidTransition
}

func (r *PGRepository) SetPaymentStatus(ctx context.Context, orderID string, ps PaymentStatus) (Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `
		UPDATE orders
		SET payment_status = $2::payment_status, updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns, orderID, string(ps)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("order: set payment status: %w", err)
	}
	return o, nil
}
