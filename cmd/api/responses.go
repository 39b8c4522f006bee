package main

import (
	"time"

	"luxeflow/alert"
	"luxeflow/auth"
	"luxeflow/catalog"
	"luxeflow/dispute"
	"luxeflow/order"
	"luxeflow/payout"
	"luxeflow/store"
)

type userResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
	StoreID  string `json:"storeId,omitempty"`
}

func toUserResponse(u auth.User) userResponse {
	resp := userResponse{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		Role:     string(u.Role),
	}
	if u.StoreID != nil {
		resp.StoreID = *u.StoreID
	}
	return resp
}

type productResponse struct {
	ID                 string `json:"id"`
	SKU                string `json:"sku"`
	StoreID            string `json:"storeId"`
	Name               string `json:"name"`
	Description        string `json:"description,omitempty"`
	PriceCents         int64  `json:"priceCents"`
	OriginalPriceCents int64  `json:"originalPriceCents,omitempty"`
	Status             string `json:"status"`
	ReservedUntil      string `json:"reservedUntil,omitempty"`
	CreatedAt          string `json:"createdAt"`
}

func toProductResponse(p catalog.Product) productResponse {
	resp := productResponse{
		ID:                 p.ID,
		SKU:                p.SKU,
		StoreID:            p.StoreID,
		Name:               p.Name,
		Description:        p.Description,
		PriceCents:         p.PriceCents,
		OriginalPriceCents: p.OriginalPriceCents,
		Status:             string(p.Status),
		CreatedAt:          p.CreatedAt.Format(time.RFC3339),
	}
	if p.ReservedUntil != nil {
		resp.ReservedUntil = p.ReservedUntil.Format(time.RFC3339)
	}
	return resp
}

type storeResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Verified  bool   `json:"verified"`
	CreatedAt string `json:"createdAt"`
}

func toStoreResponse(p store.Profile) storeResponse {
	return storeResponse{
		ID:        p.ID,
		Name:      p.Name,
		Slug:      p.Slug,
		Verified:  p.Verified,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

type orderResponse struct {
	ID               string         `json:"id"`
	Number           string         `json:"number"`
	BuyerID          string         `json:"buyerId"`
	StoreID          string         `json:"storeId"`
	ProductID        string         `json:"productId"`
	SubtotalCents    int64          `json:"subtotalCents"`
	ShippingCents    int64          `json:"shippingCents"`
	TaxCents         int64          `json:"taxCents"`
	TotalCents       int64          `json:"totalCents"`
	PlatformFeeCents int64          `json:"platformFeeCents"`
	Status           string         `json:"status"`
	PaymentStatus    string         `json:"paymentStatus"`
	ShippingAddress  order.Address  `json:"shippingAddress"`
	Carrier          string         `json:"carrier,omitempty"`
	TrackingNumber   string         `json:"trackingNumber,omitempty"`
	ShippedAt        string         `json:"shippedAt,omitempty"`
	DeliveredAt      string         `json:"deliveredAt,omitempty"`
	DisputeDeadline  string         `json:"disputeDeadline,omitempty"`
	CreatedAt        string         `json:"createdAt"`
}

func toOrderResponse(o order.Order) orderResponse {
	resp := orderResponse{
		ID:               o.ID,
		Number:           o.Number,
		BuyerID:          o.BuyerID,
		StoreID:          o.StoreID,
		ProductID:        o.ProductID,
		SubtotalCents:    o.SubtotalCents,
		ShippingCents:    o.ShippingCents,
		TaxCents:         o.TaxCents,
		TotalCents:       o.TotalCents,
		PlatformFeeCents: o.PlatformFeeCents,
		Status:           string(o.Status),
		PaymentStatus:    string(o.PaymentStatus),
		ShippingAddress:  o.ShippingAddress,
		Carrier:          o.Carrier,
		TrackingNumber:   o.TrackingNumber,
		CreatedAt:        o.CreatedAt.Format(time.RFC3339),
	}
	if o.ShippedAt != nil {
		resp.ShippedAt = o.ShippedAt.Format(time.RFC3339)
	}
	if o.DeliveredAt != nil {
		resp.DeliveredAt = o.DeliveredAt.Format(time.RFC3339)
	}
	if o.DisputeDeadline != nil {
		resp.DisputeDeadline = o.DisputeDeadline.Format(time.RFC3339)
	}
	return resp
}

type disputeMessageResponse struct {
	ID         string `json:"id"`
	SenderID   string `json:"senderId"`
	SenderRole string `json:"senderRole"`
	Body       string `json:"body"`
	CreatedAt  string `json:"createdAt"`
}

type disputeResponse struct {
	ID              string                   `json:"id"`
	OrderID         string                   `json:"orderId"`
	BuyerID         string                   `json:"buyerId"`
	StoreID         string                   `json:"storeId"`
	Reason          string                   `json:"reason"`
	Status          string                   `json:"status"`
	Resolution      string                   `json:"resolution,omitempty"`
	ResolutionNotes string                   `json:"resolutionNotes,omitempty"`
	Messages        []disputeMessageResponse `json:"messages,omitempty"`
	CreatedAt       string                   `json:"createdAt"`
	ResolvedAt      string                   `json:"resolvedAt,omitempty"`
}

func toDisputeResponse(rec dispute.Record) disputeResponse {
	resp := disputeResponse{
		ID:              rec.ID,
		OrderID:         rec.OrderID,
		BuyerID:         rec.BuyerID,
		StoreID:         rec.StoreID,
		Reason:          string(rec.Reason),
		Status:          string(rec.Status),
		ResolutionNotes: rec.ResolutionNotes,
		CreatedAt:       rec.CreatedAt.Format(time.RFC3339),
	}
	if rec.Resolution != nil {
		resp.Resolution = string(*rec.Resolution)
	}
	if rec.ResolvedAt != nil {
		resp.ResolvedAt = rec.ResolvedAt.Format(time.RFC3339)
	}
	for _, m := range rec.Messages {
		resp.Messages = append(resp.Messages, disputeMessageResponse{
			ID:         m.ID,
			SenderID:   m.SenderID,
			SenderRole: m.SenderRole,
			Body:       m.Body,
			CreatedAt:  m.CreatedAt.Format(time.RFC3339),
		})
	}
	return resp
}

type alertResponse struct {
	ID               string `json:"id"`
	ProductID        string `json:"productId"`
	TargetPriceCents int64  `json:"targetPriceCents"`
	CreatedAt        string `json:"createdAt"`
}

func toAlertResponse(a alert.PriceAlert) alertResponse {
	return alertResponse{
		ID:               a.ID,
		ProductID:        a.ProductID,
		TargetPriceCents: a.TargetPriceCents,
		CreatedAt:        a.CreatedAt.Format(time.RFC3339),
	}
}

type payoutSummaryResponse struct {
	RunAt       string `json:"runAt"`
	Stores      int    `json:"stores"`
	Orders      int    `json:"orders"`
	AmountCents int64  `json:"amountCents"`
	Failures    int    `json:"failures"`
}

func toPayoutSummaryResponse(s payout.Summary) payoutSummaryResponse {
	return payoutSummaryResponse{
		RunAt:       s.RunAt.Format(time.RFC3339),
		Stores:      s.Stores,
		Orders:      s.Orders,
		AmountCents: s.AmountCents,
		Failures:    s.Failures,
	}
}
