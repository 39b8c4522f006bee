package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Session is the provider-side checkout session the buyer is redirected to.
type Session struct {
	ID  string
	URL string
}

// SessionParams carries what the provider needs to host the payment page.
// OrderID and ProductID travel as opaque metadata and come back on webhook
// events for correlation.
type SessionParams struct {
	OrderID     string
	ProductID   string
	ProductName string
	AmountCents int64
	Currency    string
	SuccessURL  string
	CancelURL   string
}

// Provider creates hosted checkout sessions. The demo implementation
// short-circuits the external page, so callers must never assume the
// redirect actually leaves the site.
type Provider interface {
	CreateSession(ctx context.Context, params SessionParams) (Session, error)
	Demo() bool
}

// DemoProvider acknowledges checkouts immediately: the returned URL is the
// internal success page and no external session exists.
type DemoProvider struct {
	successURL string
}

func NewDemoProvider(successURL string) *DemoProvider {
	return &DemoProvider{successURL: successURL}
}

func (p *DemoProvider) CreateSession(_ context.Context, params SessionParams) (Session, error) {
	if params.OrderID == "" {
		return Session{}, fmt.Errorf("payment: order id required")
	}
	return Session{
		ID:  "demo_" + uuid.NewString(),
		URL: p.successURL + "?order=" + params.OrderID,
	}, nil
}

func (p *DemoProvider) Demo() bool { return true }

// HostedProvider talks to the external payment processor's REST API.
type HostedProvider struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

func NewHostedProvider(baseURL, secretKey string) *HostedProvider {
	return &HostedProvider{
		baseURL:   baseURL,
		secretKey: secretKey,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *HostedProvider) CreateSession(ctx context.Context, params SessionParams) (Session, error) {
	if params.OrderID == "" {
		return Session{}, fmt.Errorf("payment: order id required")
	}
	currency := params.Currency
	if currency == "" {
		currency = "usd"
	}

	body, err := json.Marshal(map[string]any{
		"amount":      params.AmountCents,
		"currency":    currency,
		"name":        params.ProductName,
		"success_url": params.SuccessURL,
		"cancel_url":  params.CancelURL,
		"metadata": map[string]string{
			"order_id":   params.OrderID,
			"product_id": params.ProductID,
		},
	})
	if err != nil {
		return Session{}, fmt.Errorf("payment: encode session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return Session{}, fmt.Errorf("payment: build session request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("payment: create session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Session{}, fmt.Errorf("payment: create session: provider returned %d", resp.StatusCode)
	}

	var decoded struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Session{}, fmt.Errorf("payment: decode session response: %w", err)
	}
	if decoded.ID == "" || decoded.URL == "" {
		return Session{}, fmt.Errorf("payment: provider response missing id or url")
	}
	return Session{ID: decoded.ID, URL: decoded.URL}, nil
}

func (p *HostedProvider) Demo() bool { return false }
