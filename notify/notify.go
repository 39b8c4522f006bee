package notify

import (
	"context"
	"log/slog"

	"luxeflow/order"
)

// Notifier delivers buyer and seller notifications. Failures here are
// always non-fatal to the caller: a lost email must never fail a webhook.
type Notifier interface {
	OrderConfirmed(ctx context.Context, o order.Order) error
	SaleMade(ctx context.Context, o order.Order) error
	OrderCancelled(ctx context.Context, o order.Order) error
}

// LogNotifier writes notifications to the structured log. Real delivery is
// an external collaborator; this keeps the call sites honest without one.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) OrderConfirmed(_ context.Context, o order.Order) error {
	n.logger.Info("notify buyer: order confirmed",
		slog.String("order_id", o.ID),
		slog.String("order_number", o.Number),
		slog.String("buyer_id", o.BuyerID),
	)
	return nil
}

func (n *LogNotifier) SaleMade(_ context.Context, o order.Order) error {
	n.logger.Info("notify seller: sale made",
		slog.String("order_id", o.ID),
		slog.String("store_id", o.StoreID),
		slog.Int64("total_cents", o.TotalCents),
	)
	return nil
}

func (n *LogNotifier) OrderCancelled(_ context.Context, o order.Order) error {
	n.logger.Info("notify buyer: order cancelled",
		slog.String("order_id", o.ID),
		slog.String("buyer_id", o.BuyerID),
	)
	return nil
}
