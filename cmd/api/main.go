package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"luxeflow/alert"
	"luxeflow/auth"
	"luxeflow/cache"
	"luxeflow/catalog"
	"luxeflow/checkout"
	"luxeflow/config"
	"luxeflow/db"
	"luxeflow/dispute"
	"luxeflow/notify"
	"luxeflow/order"
	"luxeflow/outbox"
	"luxeflow/payment"
	"luxeflow/payout"
	"luxeflow/store"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage. Without DATABASE_URL everything runs in memory, which is
	// enough for demo mode and local development.
	var (
		catalogRepo    catalog.Repository
		orderRepo      order.Repository
		disputeRepo    dispute.Repository
		alertRepo      alert.Repository
		authRepo       auth.Repository
		storeRepo      store.ProfileStore
		idemStore      payment.IdempotencyStore
		eventQueue     outbox.Queue
		eventSink      checkout.EventSink
		payoutSource   payout.CandidateSource
		payoutRecorder payout.Recorder
	)

	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("bootstrap database pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		catalogRepo = catalog.NewPGRepository(pool)
		orderRepo = order.NewPGRepository(pool)
		disputeRepo = dispute.NewPGRepository(pool)
		alertRepo = alert.NewPGRepository(pool)
		authRepo = auth.NewRepository(pool)
		storeRepo = store.NewRepository(pool)
		idemStore = payment.NewPGIdempotencyStore(pool)
		pgBox := outbox.NewPGOutbox(pool)
		eventQueue, eventSink = pgBox, pgBox
		pgPayouts := payout.NewPGRepository(pool)
		payoutSource, payoutRecorder = pgPayouts, pgPayouts
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
		memOrders := order.NewMemoryRepository()
		memDisputes := dispute.NewMemoryRepository()
		catalogRepo = catalog.NewMemoryRepository()
		orderRepo = memOrders
		disputeRepo = memDisputes
		alertRepo = alert.NewMemoryRepository()
		authRepo = auth.NewMemoryRepository()
		storeRepo = store.NewMemoryRepository()
		idemStore = payment.NewMemoryIdempotencyStore()
		memBox := outbox.NewMemoryOutbox()
		eventQueue, eventSink = memBox, memBox
		payoutSource = &payout.MemorySource{Orders: memOrders, Disputes: memDisputes}
		payoutRecorder = payout.NewMemoryRecorder()
	}

	// Redis is optional; nil clients degrade to cache misses.
	var deduper *cache.WebhookDeduper
	var statusCache *cache.OrderStatusCache
	if cfg.RedisAddr != "" {
		rdb, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		deduper = cache.NewWebhookDeduper(rdb)
		statusCache = cache.NewOrderStatusCache(rdb)
	}

	var provider payment.Provider
	if cfg.DemoMode {
		provider = payment.NewDemoProvider(cfg.PublicBaseURL + "/checkout/success")
	} else {
		provider = payment.NewHostedProvider(cfg.PaymentAPIBase, cfg.PaymentSecretKey)
	}

	catalogService := catalog.NewService(catalogRepo, cfg.ReservationTTL, logger)
	orderService := order.NewService(orderRepo, cfg.PayoutHoldDays, logger)
	storeService := store.NewService(storeRepo)
	authService := auth.NewService(authRepo, cfg.JWTSecret)
	disputeService := dispute.NewService(disputeRepo, orderRepo, logger)
	alertService := alert.NewService(alertRepo, catalogRepo, logger)

	checkoutService := checkout.NewService(catalogService, orderService, provider, checkout.Pricing{
		ShippingCents:  cfg.ShippingCents,
		TaxBps:         cfg.TaxBps,
		PlatformFeeBps: cfg.PlatformFeeBps,
	}, cfg.PublicBaseURL, logger).WithEventSink(eventSink)

	processor := payment.NewProcessor(orderService, catalogService, notify.NewLogNotifier(logger), idemStore, logger).
		WithEventSink(eventSink)
	if deduper != nil {
		processor = processor.WithDeduper(deduper)
	}

	payoutService := payout.NewService(payoutSource, payoutRecorder, nil, cfg.PayoutHoldDays, logger)

	// Outbox relay: only with a broker to publish to.
	if len(cfg.KafkaBrokers) > 0 {
		publisher := outbox.NewKafkaPublisher(cfg.KafkaBrokers)
		defer publisher.Close()
		relay := outbox.NewRelay(eventQueue, publisher, cfg.OutboxInterval, logger)
		go relay.Run(ctx)
	}

	server := &Server{
		authService:     authService,
		storeService:    storeService,
		catalogService:  catalogService,
		checkoutService: checkoutService,
		orderService:    orderService,
		disputeService:  disputeService,
		alertService:    alertService,
		payoutService:   payoutService,
		processor:       processor,
		statusCache:     statusCache,
		webhookSecret:   cfg.PaymentWebhookSecret,
		webhookSkew:     cfg.WebhookSkewMax,
		cronSecret:      cfg.CronSecret,
		logger:          logger,
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}()

	logger.Info("listening", "addr", cfg.HTTPAddr, "demo_mode", cfg.DemoMode)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("serve", "error", err)
		os.Exit(1)
	}
}
