package main

import (
	"crypto/hmac"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"luxeflow/auth"
	"luxeflow/catalog"
	"luxeflow/checkout"
	"luxeflow/dispute"
	"luxeflow/order"
	"luxeflow/payment"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}

	user, err := s.authService.Register(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toUserResponse(*user))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}

	result, err := s.authService.Login(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    result.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.writeJSON(w, http.StatusOK, map[string]any{
		"token": result.Token,
		"user":  toUserResponse(result.User),
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.authService.GetUserByID(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toUserResponse(*user))
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := catalog.Filters{
		StoreID: q.Get("store_id"),
		Status:  catalog.Status(q.Get("status")),
	}
	if filters.Status == "" {
		filters.Status = catalog.StatusActive
	}
	filters.Page, _ = strconv.Atoi(q.Get("page"))
	filters.PageSize, _ = strconv.Atoi(q.Get("page_size"))

	products, total, err := s.catalogService.List(r.Context(), filters)
	if err != nil {
		s.writeError(w, err)
		return
	}

	items := make([]productResponse, 0, len(products))
	for _, p := range products {
		items = append(items, toProductResponse(p))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": total,
	})
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.catalogService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toProductResponse(p))
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SKU                string `json:"sku"`
		Name               string `json:"name"`
		Description        string `json:"description"`
		PriceCents         int64  `json:"priceCents"`
		OriginalPriceCents int64  `json:"originalPriceCents"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	storeID := auth.UserStoreID(r.Context())
	if storeID == "" {
		s.badRequest(w, "seller has no store; onboard first")
		return
	}

	p, err := s.catalogService.Create(r.Context(), catalog.CreateParams{
		StoreID:            storeID,
		SKU:                req.SKU,
		Name:               req.Name,
		Description:        req.Description,
		PriceCents:         req.PriceCents,
		OriginalPriceCents: req.OriginalPriceCents,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toProductResponse(p))
}

func (s *Server) handlePublishProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := s.catalogService.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if p.StoreID != auth.UserStoreID(r.Context()) {
		s.writeError(w, order.ErrForbidden)
		return
	}

	p, err = s.catalogService.Publish(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toProductResponse(p))
}

func (s *Server) handleStores(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	profiles, err := s.storeService.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	items := make([]storeResponse, 0, len(profiles))
	for _, p := range profiles {
		items = append(items, toStoreResponse(p))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := s.storeService.GetByID(r.Context(), id)
	if err != nil {
		// Fall back to slug lookup so storefront URLs work.
		p, err = s.storeService.GetBySlug(r.Context(), id)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toStoreResponse(p))
}

func (s *Server) handleOnboardStore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}

	userID := auth.UserID(r.Context())
	profile, err := s.storeService.Onboard(r.Context(), userID, req.Name, req.Slug)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if _, err := s.authService.AttachStore(r.Context(), userID, profile.ID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toStoreResponse(profile))
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID       string        `json:"productId"`
		ShippingAddress order.Address `json:"shippingAddress"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}

	result, err := s.checkoutService.Start(r.Context(), checkout.StartParams{
		BuyerID:         auth.UserID(r.Context()),
		ProductID:       req.ProductID,
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"order":       toOrderResponse(result.Order),
		"checkoutUrl": result.CheckoutURL,
	})
}

// handleWebhook verifies the provider signature and applies the event. A
// bad signature is the only rejection; processing failures are logged and
// acknowledged so the provider does not retry forever.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	// An empty secret would let anyone forge events signed with the
	// empty-string key, so an unconfigured endpoint accepts nothing.
	if s.webhookSecret == "" {
		s.log().Error("webhook rejected: PAYMENT_WEBHOOK_SECRET not configured")
		s.writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: errorBody{
			Type: "validation", Message: "webhook endpoint not configured", Code: http.StatusBadRequest,
		}})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		s.badRequest(w, "unreadable body")
		return
	}

	if err := payment.VerifySignature(body, r.Header.Get("Payment-Signature"), s.webhookSecret, s.webhookSkew, s.clock()); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: errorBody{
			Type: "validation", Message: "invalid signature", Code: http.StatusBadRequest,
		}})
		return
	}

	ev, err := payment.ParseEvent(body)
	if err != nil {
		s.log().Warn("webhook body unparseable", "error", err)
		s.writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	if err := s.processor.Process(r.Context(), ev); err != nil {
		s.log().Error("webhook processing failed", "event_id", ev.ID, "type", ev.Type, "error", err)
	} else if obj, objErr := ev.Object(); objErr == nil && obj.OrderID() != "" && s.statusCache != nil {
		s.statusCache.Invalidate(r.Context(), obj.OrderID())
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		orders []order.Order
		err    error
	)
	if auth.UserRole(ctx) == auth.RoleSeller && auth.UserStoreID(ctx) != "" {
		orders, err = s.orderService.ListByStore(ctx, auth.UserStoreID(ctx))
	} else {
		orders, err = s.orderService.ListByBuyer(ctx, auth.UserID(ctx))
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	items := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		items = append(items, toOrderResponse(o))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	o, err := s.orderService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !s.canSeeOrder(r, o) {
		s.writeError(w, order.ErrForbidden)
		return
	}
	s.cacheStatus(r, o)
	s.writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// handleOrderStatus is the cheap polling read. A cache hit answers
// without touching the order store; a miss fills the cache on the way
// out.
func (s *Server) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.statusCache != nil {
		if st, ok := s.statusCache.Get(r.Context(), id); ok {
			s.writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": st})
			return
		}
	}

	o, err := s.orderService.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !s.canSeeOrder(r, o) {
		s.writeError(w, order.ErrForbidden)
		return
	}
	s.cacheStatus(r, o)
	s.writeJSON(w, http.StatusOK, map[string]string{"id": o.ID, "status": string(o.Status)})
}

func (s *Server) cacheStatus(r *http.Request, o order.Order) {
	if s.statusCache != nil {
		s.statusCache.Set(r.Context(), o.ID, string(o.Status))
	}
}

func (s *Server) canSeeOrder(r *http.Request, o order.Order) bool {
	ctx := r.Context()
	switch auth.UserRole(ctx) {
	case auth.RoleAdmin:
		return true
	case auth.RoleSeller:
		return o.StoreID == auth.UserStoreID(ctx)
	default:
		return o.BuyerID == auth.UserID(ctx)
	}
}

func (s *Server) handleShipOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Carrier        string `json:"carrier"`
		TrackingNumber string `json:"trackingNumber"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}

	o, err := s.orderService.Ship(r.Context(), order.ShipParams{
		OrderID:        chi.URLParam(r, "id"),
		StoreID:        auth.UserStoreID(r.Context()),
		Carrier:        req.Carrier,
		TrackingNumber: req.TrackingNumber,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.cacheStatus(r, o)
	s.writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (s *Server) handleDeliverOrder(w http.ResponseWriter, r *http.Request) {
	o, err := s.orderService.MarkDelivered(r.Context(), chi.URLParam(r, "id"), auth.UserStoreID(r.Context()))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.cacheStatus(r, o)
	s.writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (s *Server) handleDisputes(w http.ResponseWriter, r *http.Request) {
	records, err := s.disputeService.List(r.Context(), actor(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	items := make([]disputeResponse, 0, len(records))
	for _, rec := range records {
		items = append(items, toDisputeResponse(rec))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleOpenDispute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID string `json:"orderId"`
		Reason  string `json:"reason"`
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}

	rec, err := s.disputeService.Open(r.Context(), actor(r), dispute.OpenParams{
		OrderID: req.OrderID,
		Reason:  dispute.Reason(req.Reason),
		Body:    req.Message,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toDisputeResponse(rec))
}

func (s *Server) handleDispute(w http.ResponseWriter, r *http.Request) {
	rec, err := s.disputeService.Get(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toDisputeResponse(rec))
}

func (s *Server) handleDisputeMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Body string `json:"body"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}

	msg, err := s.disputeService.AddMessage(r.Context(), actor(r), chi.URLParam(r, "id"), req.Body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, disputeMessageResponse{
		ID:         msg.ID,
		SenderID:   msg.SenderID,
		SenderRole: msg.SenderRole,
		Body:       msg.Body,
		CreatedAt:  msg.CreatedAt.Format(time.RFC3339),
	})
}

// handleUpdateDispute routes the PATCH body: a resolution resolves
// (admin), status "under_review" escalates (admin), status "closed"
// withdraws (buyer or admin).
func (s *Server) handleUpdateDispute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status     string `json:"status"`
		Resolution string `json:"resolution"`
		Notes      string `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}

	id := chi.URLParam(r, "id")
	var (
		rec dispute.Record
		err error
	)
	switch {
	case req.Resolution != "":
		rec, err = s.disputeService.Resolve(r.Context(), actor(r), dispute.ResolveParams{
			DisputeID:  id,
			Resolution: dispute.Resolution(req.Resolution),
			Notes:      req.Notes,
		})
	case req.Status == string(dispute.StatusUnderReview):
		rec, err = s.disputeService.Review(r.Context(), actor(r), id)
	case req.Status == string(dispute.StatusClosed):
		rec, err = s.disputeService.Close(r.Context(), actor(r), id)
	default:
		s.badRequest(w, "expected a resolution or a status of under_review or closed")
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toDisputeResponse(rec))
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.alertService.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		s.writeError(w, err)
		return
	}
	items := make([]alertResponse, 0, len(alerts))
	for _, a := range alerts {
		items = append(items, toAlertResponse(a))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID        string `json:"productId"`
		TargetPriceCents int64  `json:"targetPriceCents"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}

	a, err := s.alertService.Create(r.Context(), auth.UserID(r.Context()), req.ProductID, req.TargetPriceCents)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toAlertResponse(a))
}

func (s *Server) handleDeleteAlert(w http.ResponseWriter, r *http.Request) {
	if err := s.alertService.Delete(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteAlertByProduct(w http.ResponseWriter, r *http.Request) {
	productID := r.URL.Query().Get("product_id")
	if productID == "" {
		s.badRequest(w, "product_id query parameter required")
		return
	}
	if err := s.alertService.DeleteByProduct(r.Context(), auth.UserID(r.Context()), productID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleProcessPayouts triggers one payout sweep. Guarded by the cron
// secret header rather than user auth so schedulers can call it.
func (s *Server) handleProcessPayouts(w http.ResponseWriter, r *http.Request) {
	got := r.Header.Get("X-Cron-Secret")
	if s.cronSecret == "" || !hmac.Equal([]byte(got), []byte(s.cronSecret)) {
		s.writeJSON(w, http.StatusUnauthorized, errorEnvelope{Error: errorBody{
			Type: "unauthorized", Message: "invalid cron secret", Code: http.StatusUnauthorized,
		}})
		return
	}

	summary, err := s.payoutService.Run(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toPayoutSummaryResponse(summary))
}
