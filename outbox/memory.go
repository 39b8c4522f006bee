package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemoryOutbox is the in-process queue used in demo mode and tests.
type MemoryOutbox struct {
	mu     sync.Mutex
	nextID int64
	queue  []Message
}

func NewMemoryOutbox() *MemoryOutbox {
	return &MemoryOutbox{}
}

func (o *MemoryOutbox) Emit(_ context.Context, topic string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("outbox: marshal payload: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextID++
	o.queue = append(o.queue, Message{
		ID:        o.nextID,
		Topic:     topic,
		Payload:   body,
		CreatedAt: time.Now(),
	})
	return nil
}

func (o *MemoryOutbox) Drain(ctx context.Context, limit int, publish func(context.Context, Message) error) (int, error) {
	o.mu.Lock()
	pending := make([]Message, 0, limit)
	for _, m := range o.queue {
		if m.SentAt == nil {
			pending = append(pending, m)
			if len(pending) == limit {
				break
			}
		}
	}
	o.mu.Unlock()

	sent := 0
	for _, m := range pending {
		if err := publish(ctx, m); err != nil {
			break
		}
		o.markSent(m.ID)
		sent++
	}
	return sent, nil
}

// Pending returns the count of unsent messages. Test helper.
func (o *MemoryOutbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, m := range o.queue {
		if m.SentAt == nil {
			n++
		}
	}
	return n
}

func (o *MemoryOutbox) markSent(id int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.queue {
		if o.queue[i].ID == id {
			now := time.Now()
			o.queue[i].SentAt = &now
			return
		}
	}
}
