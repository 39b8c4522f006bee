package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"luxeflow/notify"
	"luxeflow/order"
)

// OrderTransitions is the slice of the order service the processor needs.
type OrderTransitions interface {
	Get(ctx context.Context, id string) (order.Order, error)
	GetBySessionID(ctx context.Context, sessionID string) (order.Order, error)
	Confirm(ctx context.Context, orderID, paymentIntentID string) (order.Order, error)
	CancelExpired(ctx context.Context, orderID string) (order.Order, error)
	MarkPaymentFailed(ctx context.Context, orderID string) (order.Order, error)
	Refund(ctx context.Context, orderID string) (order.Order, error)
}

// ProductMarks is the slice of the catalog service the processor needs.
type ProductMarks interface {
	MarkSold(ctx context.Context, productID string) error
	Release(ctx context.Context, productID string) error
}

// Deduper is an optional fast-path replay filter in front of the durable
// idempotency ledger (Redis-backed in production). Best effort: an error
// here only skips the shortcut.
type Deduper interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// EventSink publishes domain events for downstream consumers.
type EventSink interface {
	Emit(ctx context.Context, topic string, payload map[string]any) error
}

// Processor applies verified provider events to orders and products. Every
// handler re-reads current state before mutating (the transition CAS), so
// out-of-order and replayed deliveries settle as no-ops instead of
// clobbering newer state.
type Processor struct {
	orders   OrderTransitions
	products ProductMarks
	notifier notify.Notifier
	idem     IdempotencyStore
	dedup    Deduper
	events   EventSink
	logger   *slog.Logger
}

func NewProcessor(orders OrderTransitions, products ProductMarks, notifier notify.Notifier, idem IdempotencyStore, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		orders:   orders,
		products: products,
		notifier: notifier,
		idem:     idem,
		logger:   logger,
	}
}

// WithDeduper attaches the optional replay filter.
func (p *Processor) WithDeduper(d Deduper) *Processor {
	p.dedup = d
	return p
}

// WithEventSink attaches the optional outbox sink.
func (p *Processor) WithEventSink(sink EventSink) *Processor {
	p.events = sink
	return p
}

// Process applies one event. The returned error is for logging only: the
// HTTP layer acknowledges regardless, because the provider would otherwise
// retry the batch forever. Handlers are idempotent for exactly that reason.
func (p *Processor) Process(ctx context.Context, ev Event) error {
	log := p.logger.With(slog.String("event_id", ev.ID), slog.String("event_type", ev.Type))

	if p.dedup != nil {
		if seen, err := p.dedup.Seen(ctx, ev.ID); err == nil && seen {
			log.Debug("event already seen, skipping")
			return nil
		}
	}

	if err := p.idem.Insert(ctx, ev.ID); err != nil {
		if errors.Is(err, ErrDuplicateEvent) {
			log.Debug("event replay, skipping")
			return nil
		}
		return err
	}

	var err error
	switch ev.Type {
	case EventCheckoutCompleted:
		err = p.handleCheckoutCompleted(ctx, ev, log)
	case EventCheckoutExpired:
		err = p.handleCheckoutExpired(ctx, ev, log)
	case EventPaymentFailed:
		err = p.handlePaymentFailed(ctx, ev, log)
	case EventChargeRefunded:
		err = p.handleChargeRefunded(ctx, ev, log)
	default:
		log.Info("unhandled event type, acknowledging")
	}

	if err != nil {
		// Give the provider's retry a chance to reprocess.
		if delErr := p.idem.Delete(ctx, ev.ID); delErr != nil {
			log.Error("failed to release idempotency key", slog.String("error", delErr.Error()))
		}
		return err
	}

	if p.dedup != nil {
		if err := p.dedup.Mark(ctx, ev.ID); err != nil {
			log.Debug("dedup mark failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

// findOrder resolves the event's order via metadata, falling back to the
// session id. A missing order is not an error: the event is logged and
// dropped so one stray delivery can't poison the webhook endpoint.
func (p *Processor) findOrder(ctx context.Context, obj EventObject) (order.Order, bool, error) {
	if id := obj.OrderID(); id != "" {
		o, err := p.orders.Get(ctx, id)
		if err == nil {
			return o, true, nil
		}
		if !errors.Is(err, order.ErrNotFound) {
			return order.Order{}, false, err
		}
	}
	if obj.ID != "" {
		o, err := p.orders.GetBySessionID(ctx, obj.ID)
		if err == nil {
			return o, true, nil
		}
		if !errors.Is(err, order.ErrNotFound) {
			return order.Order{}, false, err
		}
	}
	return order.Order{}, false, nil
}

func (p *Processor) handleCheckoutCompleted(ctx context.Context, ev Event, log *slog.Logger) error {
	obj, err := ev.Object()
	if err != nil {
		return err
	}
	o, found, err := p.findOrder(ctx, obj)
	if err != nil {
		return err
	}
	if !found {
		log.Warn("no order for completed checkout", slog.String("session_id", obj.ID))
		return nil
	}

	confirmed, err := p.orders.Confirm(ctx, o.ID, obj.PaymentIntent)
	if err != nil {
		if errors.Is(err, order.ErrInvalidTransition) {
			log.Debug("order already confirmed", slog.String("order_id", o.ID))
			return nil
		}
		return fmt.Errorf("payment: confirm order %s: %w", o.ID, err)
	}

	if err := p.products.MarkSold(ctx, confirmed.ProductID); err != nil {
		return fmt.Errorf("payment: mark product sold: %w", err)
	}

	// Notification failures must not fail the webhook.
	if p.notifier != nil {
		if err := p.notifier.OrderConfirmed(ctx, confirmed); err != nil {
			log.Error("buyer confirmation failed", slog.String("error", err.Error()))
		}
		if err := p.notifier.SaleMade(ctx, confirmed); err != nil {
			log.Error("seller notification failed", slog.String("error", err.Error()))
		}
	}

	p.emit(ctx, "order.confirmed", map[string]any{
		"order_id":   confirmed.ID,
		"product_id": confirmed.ProductID,
		"store_id":   confirmed.StoreID,
	}, log)

	log.Info("order confirmed", slog.String("order_id", confirmed.ID))
	return nil
}

func (p *Processor) handleCheckoutExpired(ctx context.Context, ev Event, log *slog.Logger) error {
	obj, err := ev.Object()
	if err != nil {
		return err
	}
	o, found, err := p.findOrder(ctx, obj)
	if err != nil {
		return err
	}
	if !found {
		log.Warn("no order for expired checkout", slog.String("session_id", obj.ID))
		return nil
	}

	cancelled, err := p.orders.CancelExpired(ctx, o.ID)
	if err != nil {
		if errors.Is(err, order.ErrInvalidTransition) {
			// The completed event won the race; nothing to undo.
			log.Debug("order no longer pending, expiry ignored", slog.String("order_id", o.ID))
			return nil
		}
		return fmt.Errorf("payment: cancel order %s: %w", o.ID, err)
	}

	if err := p.products.Release(ctx, cancelled.ProductID); err != nil {
		return fmt.Errorf("payment: release product: %w", err)
	}

	if p.notifier != nil {
		if err := p.notifier.OrderCancelled(ctx, cancelled); err != nil {
			log.Error("cancellation notice failed", slog.String("error", err.Error()))
		}
	}

	p.emit(ctx, "order.cancelled", map[string]any{
		"order_id":   cancelled.ID,
		"product_id": cancelled.ProductID,
	}, log)

	log.Info("order cancelled on session expiry", slog.String("order_id", cancelled.ID))
	return nil
}

func (p *Processor) handlePaymentFailed(ctx context.Context, ev Event, log *slog.Logger) error {
	obj, err := ev.Object()
	if err != nil {
		return err
	}
	o, found, err := p.findOrder(ctx, obj)
	if err != nil {
		return err
	}
	if !found {
		log.Warn("no order for failed payment")
		return nil
	}

	updated, err := p.orders.MarkPaymentFailed(ctx, o.ID)
	if err != nil {
		return fmt.Errorf("payment: mark failed %s: %w", o.ID, err)
	}
	if err := p.products.Release(ctx, updated.ProductID); err != nil {
		return fmt.Errorf("payment: release product: %w", err)
	}

	log.Info("payment failed recorded", slog.String("order_id", updated.ID))
	return nil
}

func (p *Processor) handleChargeRefunded(ctx context.Context, ev Event, log *slog.Logger) error {
	obj, err := ev.Object()
	if err != nil {
		return err
	}
	o, found, err := p.findOrder(ctx, obj)
	if err != nil {
		return err
	}
	if !found {
		log.Warn("no order for refunded charge")
		return nil
	}

	refunded, err := p.orders.Refund(ctx, o.ID)
	if err != nil {
		if errors.Is(err, order.ErrInvalidTransition) {
			log.Debug("order not refundable from current status", slog.String("order_id", o.ID))
			return nil
		}
		return fmt.Errorf("payment: refund order %s: %w", o.ID, err)
	}

	p.emit(ctx, "order.refunded", map[string]any{
		"order_id": refunded.ID,
		"store_id": refunded.StoreID,
	}, log)

	log.Info("order refunded", slog.String("order_id", refunded.ID))
	return nil
}

func (p *Processor) emit(ctx context.Context, topic string, payload map[string]any, log *slog.Logger) {
	if p.events == nil {
		return
	}
	if err := p.events.Emit(ctx, topic, payload); err != nil {
		log.Error("event emit failed", slog.String("topic", topic), slog.String("error", err.Error()))
	}
}
