package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakePublisher struct {
	mu       sync.Mutex
	messages []struct {
		Topic string
		Key   string
		Value string
	}
	failTopic string
}

func (p *fakePublisher) Publish(_ context.Context, topic string, key, value []byte) error {
	if topic == p.failTopic {
		return errors.New("broker unavailable")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, struct {
		Topic string
		Key   string
		Value string
	}{topic, string(key), string(value)})
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}

func TestDrainPublishesPendingMessages(t *testing.T) {
	box := NewMemoryOutbox()
	pub := &fakePublisher{}
	relay := NewRelay(box, pub, time.Second, nil)

	if err := box.Emit(context.Background(), "order.confirmed", map[string]any{"order_id": "ord-1"}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if err := box.Emit(context.Background(), "order.cancelled", map[string]any{"order_id": "ord-2"}); err != nil {
		t.Fatalf("emit: %v", err)
	}

	sent, err := relay.DrainOnce(context.Background())
	if err != nil || sent != 2 {
		t.Fatalf("drain = %d, %v; want 2", sent, err)
	}
	if box.Pending() != 0 {
		t.Fatalf("pending = %d after drain, want 0", box.Pending())
	}
	if pub.messages[0].Topic != "order.confirmed" || pub.messages[0].Key != "ord-1" {
		t.Fatalf("first message = %+v", pub.messages[0])
	}
}

func TestDrainIsIdempotentOnEmptyQueue(t *testing.T) {
	relay := NewRelay(NewMemoryOutbox(), &fakePublisher{}, time.Second, nil)
	for i := 0; i < 2; i++ {
		if sent, err := relay.DrainOnce(context.Background()); err != nil || sent != 0 {
			t.Fatalf("drain = %d, %v; want 0", sent, err)
		}
	}
}

func TestPublishFailureLeavesMessagePending(t *testing.T) {
	box := NewMemoryOutbox()
	pub := &fakePublisher{failTopic: "order.confirmed"}
	relay := NewRelay(box, pub, time.Second, nil)

	box.Emit(context.Background(), "order.confirmed", map[string]any{"order_id": "ord-1"})

	sent, err := relay.DrainOnce(context.Background())
	if err != nil || sent != 0 {
		t.Fatalf("drain = %d, %v; want 0 sent and no error", sent, err)
	}
	if box.Pending() != 1 {
		t.Fatalf("pending = %d, want 1 kept for retry", box.Pending())
	}

	// Broker recovers, the next pass delivers it.
	pub.failTopic = ""
	sent, _ = relay.DrainOnce(context.Background())
	if sent != 1 || box.Pending() != 0 {
		t.Fatalf("retry drain = %d sent, %d pending", sent, box.Pending())
	}
}

func TestRunExitsOnCancel(t *testing.T) {
	relay := NewRelay(NewMemoryOutbox(), &fakePublisher{}, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop after cancel")
	}
}

func TestRunDrainsOnTicks(t *testing.T) {
	box := NewMemoryOutbox()
	pub := &fakePublisher{}
	relay := NewRelay(box, pub, 5*time.Millisecond, nil)

	box.Emit(context.Background(), "order.confirmed", map[string]any{"order_id": "ord-1"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go relay.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for pub.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("relay never published the pending message")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
