package payment

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types this system reacts to. Anything else is acknowledged without
// action so the provider never retries types we don't handle yet.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
	EventPaymentFailed     = "payment_intent.payment_failed"
	EventChargeRefunded    = "charge.refunded"
)

// Event is a verified webhook notification from the payment provider.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
	Data      json.RawMessage `json:"data"`
}

// EventObject is the session/intent/charge carried in the event body. Only
// the correlation fields matter here; everything else the provider sends is
// ignored.
type EventObject struct {
	ID            string            `json:"id"`
	PaymentIntent string            `json:"payment_intent,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// ParseEvent decodes a raw webhook body after signature verification.
func ParseEvent(body []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return Event{}, fmt.Errorf("payment: decode event: %w", err)
	}
	if ev.ID == "" || ev.Type == "" {
		return Event{}, fmt.Errorf("payment: event missing id or type")
	}
	return ev, nil
}

// Object decodes the event payload.
func (e Event) Object() (EventObject, error) {
	var obj EventObject
	if len(e.Data) == 0 {
		return obj, nil
	}
	if err := json.Unmarshal(e.Data, &obj); err != nil {
		return EventObject{}, fmt.Errorf("payment: decode event object: %w", err)
	}
	return obj, nil
}

// OrderID returns the correlated order id from metadata.
func (o EventObject) OrderID() string {
	return o.Metadata["order_id"]
}
