package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"luxeflow/catalog"
	"luxeflow/order"
	"luxeflow/payment"
)

var (
	// ErrItemUnavailable surfaces a lost reservation race as "this item is
	// no longer available" rather than a generic failure.
	ErrItemUnavailable = errors.New("checkout: item no longer available")
	// ErrInvalidAddress signals a shipping address missing required fields.
	ErrInvalidAddress = errors.New("checkout: invalid shipping address")
)

// ProductReserver is the slice of the catalog service checkout needs.
type ProductReserver interface {
	Reserve(ctx context.Context, productID, userID string) (catalog.Product, error)
}

// OrderCreator is the slice of the order service checkout needs.
type OrderCreator interface {
	Create(ctx context.Context, params order.CreateParams) (order.Order, error)
	AttachSession(ctx context.Context, orderID, sessionID string) (order.Order, error)
}

// EventSink publishes domain events for downstream consumers.
type EventSink interface {
	Emit(ctx context.Context, topic string, payload map[string]any) error
}

// Pricing carries the marketplace's fee schedule in basis points plus the
// flat shipping rate.
type Pricing struct {
	ShippingCents  int64
	TaxBps         int
	PlatformFeeBps int
}

// Service orchestrates checkout: it re-verifies the reservation at session
// creation time (closing the race between cart view and checkout submit),
// prices the order, and hands off to the payment provider.
type Service struct {
	products ProductReserver
	orders   OrderCreator
	provider payment.Provider
	pricing  Pricing
	events   EventSink
	logger   *slog.Logger

	successURL string
	cancelURL  string
}

// StartParams is the buyer's checkout submission.
type StartParams struct {
	BuyerID         string
	ProductID       string
	ShippingAddress order.Address
}

// Result bundles the created order and the redirect target. CheckoutURL is
// the provider's hosted page, or the internal success page when the demo
// provider is configured; callers must handle both.
type Result struct {
	Order       order.Order
	CheckoutURL string
}

func NewService(products ProductReserver, orders OrderCreator, provider payment.Provider, pricing Pricing, baseURL string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		products:   products,
		orders:     orders,
		provider:   provider,
		pricing:    pricing,
		events:     nil,
		logger:     logger,
		successURL: strings.TrimRight(baseURL, "/") + "/checkout/success",
		cancelURL:  strings.TrimRight(baseURL, "/") + "/checkout/cancel",
	}
}

// WithEventSink attaches the optional outbox sink.
func (s *Service) WithEventSink(sink EventSink) *Service {
	s.events = sink
	return s
}

func (s *Service) Start(ctx context.Context, params StartParams) (Result, error) {
	if params.BuyerID == "" {
		return Result{}, fmt.Errorf("checkout: buyer id required")
	}
	if params.ProductID == "" {
		return Result{}, fmt.Errorf("checkout: product id required")
	}
	if err := validateAddress(params.ShippingAddress); err != nil {
		return Result{}, err
	}

	// Reserve (or extend the buyer's existing hold) atomically. This is
	// the availability re-check: if another buyer got here first, the
	// compare-and-set below loses and we surface the conflict.
	p, err := s.products.Reserve(ctx, params.ProductID, params.BuyerID)
	if err != nil {
		if errors.Is(err, catalog.ErrUnavailable) {
			return Result{}, ErrItemUnavailable
		}
		return Result{}, err
	}

	subtotal := p.PriceCents
	tax := subtotal * int64(s.pricing.TaxBps) / 10000
	fee := subtotal * int64(s.pricing.PlatformFeeBps) / 10000
	total := subtotal + s.pricing.ShippingCents + tax

	o, err := s.orders.Create(ctx, order.CreateParams{
		BuyerID:          params.BuyerID,
		StoreID:          p.StoreID,
		ProductID:        p.ID,
		SubtotalCents:    subtotal,
		ShippingCents:    s.pricing.ShippingCents,
		TaxCents:         tax,
		TotalCents:       total,
		PlatformFeeCents: fee,
		ShippingAddress:  params.ShippingAddress,
	})
	if err != nil {
		return Result{}, fmt.Errorf("checkout: create order: %w", err)
	}

	sess, err := s.provider.CreateSession(ctx, payment.SessionParams{
		OrderID:     o.ID,
		ProductID:   p.ID,
		ProductName: p.Name,
		AmountCents: total,
		SuccessURL:  s.successURL,
		CancelURL:   s.cancelURL,
	})
	if err != nil {
		// The reservation TTL and the provider's own expiry handle
		// abandonment; nothing to roll back here.
		return Result{}, fmt.Errorf("checkout: create payment session: %w", err)
	}

	o, err = s.orders.AttachSession(ctx, o.ID, sess.ID)
	if err != nil {
		return Result{}, fmt.Errorf("checkout: attach session: %w", err)
	}

	if s.events != nil {
		if err := s.events.Emit(ctx, "order.created", map[string]any{
			"order_id":   o.ID,
			"product_id": p.ID,
			"store_id":   p.StoreID,
			"total":      total,
			"demo":       s.provider.Demo(),
		}); err != nil {
			s.logger.Error("order.created emit failed", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("checkout started",
		slog.String("order_id", o.ID),
		slog.String("product_id", p.ID),
		slog.Bool("demo", s.provider.Demo()),
	)

	return Result{Order: o, CheckoutURL: sess.URL}, nil
}

func validateAddress(a order.Address) error {
	for _, field := range []string{a.Name, a.Line1, a.City, a.PostalCode, a.Country} {
		if strings.TrimSpace(field) == "" {
			return ErrInvalidAddress
		}
	}
	return nil
}
