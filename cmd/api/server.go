package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"luxeflow/alert"
	"luxeflow/auth"
	"luxeflow/catalog"
	"luxeflow/checkout"
	"luxeflow/dispute"
	"luxeflow/order"
	"luxeflow/payment"
	"luxeflow/payout"
	"luxeflow/store"
)

// orderStatusCache is the polling read path in front of the order store.
// *cache.OrderStatusCache satisfies it; a nil field disables caching.
type orderStatusCache interface {
	Get(ctx context.Context, orderID string) (string, bool)
	Set(ctx context.Context, orderID, status string)
	Invalidate(ctx context.Context, orderID string)
}

// Server holds the wired services behind the HTTP surface.
type Server struct {
	authService     *auth.Service
	storeService    *store.Service
	catalogService  *catalog.Service
	checkoutService *checkout.Service
	orderService    *order.Service
	disputeService  *dispute.Service
	alertService    *alert.Service
	payoutService   *payout.Service
	processor       *payment.Processor

	statusCache   orderStatusCache
	webhookSecret string
	webhookSkew   time.Duration
	cronSecret    string
	logger        *slog.Logger
	now           func() time.Time
}

func (s *Server) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *Server) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// routes assembles the chi router.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.log()))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(s.authService))

		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.With(auth.RequireAuth).Get("/auth/me", s.handleMe)

		r.Get("/products", s.handleProducts)
		r.Get("/products/{id}", s.handleProduct)
		r.With(auth.RequireRole(auth.RoleSeller)).Post("/products", s.handleCreateProduct)
		r.With(auth.RequireRole(auth.RoleSeller)).Post("/products/{id}/publish", s.handlePublishProduct)

		r.Get("/stores", s.handleStores)
		r.Get("/stores/{id}", s.handleStore)
		r.With(auth.RequireRole(auth.RoleSeller)).Post("/stores", s.handleOnboardStore)

		r.With(auth.RequireAuth).Post("/checkout", s.handleCheckout)

		r.Post("/webhooks/payment", s.handleWebhook)

		r.Route("/alerts/price", func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Get("/", s.handleListAlerts)
			r.Post("/", s.handleCreateAlert)
			r.Delete("/", s.handleDeleteAlertByProduct)
			r.Delete("/{id}", s.handleDeleteAlert)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Get("/", s.handleOrders)
			r.Get("/{id}", s.handleOrder)
			r.Get("/{id}/status", s.handleOrderStatus)
			r.With(auth.RequireRole(auth.RoleSeller)).Post("/{id}/ship", s.handleShipOrder)
			r.With(auth.RequireRole(auth.RoleSeller)).Post("/{id}/deliver", s.handleDeliverOrder)
		})

		r.Route("/disputes", func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Get("/", s.handleDisputes)
			r.Post("/", s.handleOpenDispute)
			r.Get("/{id}", s.handleDispute)
			r.Post("/{id}/messages", s.handleDisputeMessage)
			r.Patch("/{id}", s.handleUpdateDispute)
		})

		r.Get("/cron/process-payouts", s.handleProcessPayouts)
		r.Post("/cron/process-payouts", s.handleProcessPayouts)
	})

	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log().Error("encode response", "error", err)
	}
}

type errorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// writeError maps domain sentinels onto the error envelope. Anything
// unmapped is a 500 with the detail kept out of the response body.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, typ := classifyError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log().Error("request failed", "error", err)
		msg = "internal error"
	}
	s.writeJSON(w, status, errorEnvelope{Error: errorBody{Type: typ, Message: msg, Code: status}})
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, order.ErrTrackingRequired),
		errors.Is(err, checkout.ErrInvalidAddress),
		errors.Is(err, dispute.ErrBadReason),
		errors.Is(err, dispute.ErrBadResolution),
		errors.Is(err, dispute.ErrEmptyMessage),
		errors.Is(err, dispute.ErrNotEligible),
		errors.Is(err, dispute.ErrWindowClosed),
		errors.Is(err, alert.ErrBadTarget),
		errors.Is(err, alert.ErrTargetNotBelowPrice),
		errors.Is(err, store.ErrBadSlug),
		errors.Is(err, auth.ErrWeakPassword):
		return http.StatusBadRequest, "validation"

	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "unauthorized"

	case errors.Is(err, order.ErrForbidden),
		errors.Is(err, dispute.ErrForbidden):
		return http.StatusForbidden, "forbidden"

	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, dispute.ErrNotFound),
		errors.Is(err, alert.ErrNotFound),
		errors.Is(err, alert.ErrProductNotFound),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound, "not_found"

	case errors.Is(err, checkout.ErrItemUnavailable),
		errors.Is(err, catalog.ErrUnavailable),
		errors.Is(err, catalog.ErrDuplicateSKU),
		errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, dispute.ErrDuplicate),
		errors.Is(err, dispute.ErrBadStatus),
		errors.Is(err, auth.ErrDuplicateEmail),
		errors.Is(err, store.ErrDuplicateSlug):
		return http.StatusConflict, "conflict"
	}
	return http.StatusInternalServerError, "internal"
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (s *Server) badRequest(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: errorBody{
		Type: "validation", Message: msg, Code: http.StatusBadRequest,
	}})
}

// actor derives the dispute-facing identity from the request context.
func actor(r *http.Request) dispute.Actor {
	return dispute.Actor{
		UserID:  auth.UserID(r.Context()),
		Role:    string(auth.UserRole(r.Context())),
		StoreID: auth.UserStoreID(r.Context()),
	}
}
