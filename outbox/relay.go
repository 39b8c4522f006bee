package outbox

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

const drainBatch = 100

// Relay moves pending outbox rows to the broker on a fixed interval.
type Relay struct {
	queue     Queue
	publisher Publisher
	interval  time.Duration
	logger    *slog.Logger
}

func NewRelay(queue Queue, publisher Publisher, interval time.Duration, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Relay{queue: queue, publisher: publisher, interval: interval, logger: logger}
}

// Run polls until the context is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sent, err := r.queue.Drain(ctx, drainBatch, r.publish)
			if err != nil {
				r.logger.Error("outbox drain failed", "error", err)
				continue
			}
			if sent > 0 {
				r.logger.Info("outbox drained", "sent", sent)
			}
		}
	}
}

// DrainOnce runs a single drain pass. Used by tests and the payout CLI.
func (r *Relay) DrainOnce(ctx context.Context) (int, error) {
	return r.queue.Drain(ctx, drainBatch, r.publish)
}

func (r *Relay) publish(ctx context.Context, m Message) error {
	if err := r.publisher.Publish(ctx, m.Topic, partitionKey(m.Payload), m.Payload); err != nil {
		r.logger.Error("outbox publish failed", "topic", m.Topic, "id", m.ID, "error", err)
		return err
	}
	return nil
}

// partitionKey pins every event about one order to the same partition.
func partitionKey(payload []byte) []byte {
	var probe struct {
		OrderID string `json:"order_id"`
	}
	if err := json.Unmarshal(payload, &probe); err == nil && probe.OrderID != "" {
		return []byte(probe.OrderID)
	}
	return nil
}
