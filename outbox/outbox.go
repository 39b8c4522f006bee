package outbox

import (
	"context"
	"time"
)

// Message is one pending domain event awaiting publication.
type Message struct {
	ID        int64
	Topic     string
	Payload   []byte
	CreatedAt time.Time
	SentAt    *time.Time
}

// Queue drains pending messages. Drain hands each message to publish and
// marks it sent only when publish succeeds, so delivery is at-least-once.
type Queue interface {
	Drain(ctx context.Context, limit int, publish func(context.Context, Message) error) (int, error)
}

// Publisher delivers a drained message to the broker.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}
