package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Webhook event replay filter: dedup:webhook:{event_id}
	keyWebhookDedup = "dedup:webhook:%s"

	// Order status read cache: order_status:{order_id}
	keyOrderStatus = "order_status:%s"
)

var (
	ttlDedup       = 48 * time.Hour
	ttlOrderStatus = 5 * time.Minute
)

// New dials Redis and verifies the connection.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: ping redis: %w", err)
	}
	return rdb, nil
}

// WebhookDeduper is the Redis fast path in front of the durable
// idempotency table. A nil client disables the fast path; every method
// then reports "not seen" and the database key does the real work.
type WebhookDeduper struct {
	rdb *redis.Client
}

func NewWebhookDeduper(rdb *redis.Client) *WebhookDeduper {
	return &WebhookDeduper{rdb: rdb}
}

func (d *WebhookDeduper) Seen(ctx context.Context, eventID string) (bool, error) {
	if d == nil || d.rdb == nil {
		return false, nil
	}
	n, err := d.rdb.Exists(ctx, fmt.Sprintf(keyWebhookDedup, eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("cache: dedup lookup: %w", err)
	}
	return n > 0, nil
}

func (d *WebhookDeduper) Mark(ctx context.Context, eventID string) error {
	if d == nil || d.rdb == nil {
		return nil
	}
	if err := d.rdb.Set(ctx, fmt.Sprintf(keyWebhookDedup, eventID), "1", ttlDedup).Err(); err != nil {
		return fmt.Errorf("cache: dedup mark: %w", err)
	}
	return nil
}

// OrderStatusCache keeps the latest known order status for cheap polling
// reads. Best effort: a nil client turns every call into a miss.
type OrderStatusCache struct {
	rdb *redis.Client
}

func NewOrderStatusCache(rdb *redis.Client) *OrderStatusCache {
	return &OrderStatusCache{rdb: rdb}
}

func (c *OrderStatusCache) Get(ctx context.Context, orderID string) (string, bool) {
	if c == nil || c.rdb == nil {
		return "", false
	}
	v, err := c.rdb.Get(ctx, fmt.Sprintf(keyOrderStatus, orderID)).Result()
	if err != nil {
		return "", false
	}
	return v, true
}

func (c *OrderStatusCache) Set(ctx context.Context, orderID, status string) {
	if c == nil || c.rdb == nil {
		return
	}
	_ = c.rdb.Set(ctx, fmt.Sprintf(keyOrderStatus, orderID), status, ttlOrderStatus).Err()
}

func (c *OrderStatusCache) Invalidate(ctx context.Context, orderID string) {
	if c == nil || c.rdb == nil {
		return
	}
	_ = c.rdb.Del(ctx, fmt.Sprintf(keyOrderStatus, orderID)).Err()
}
