package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"luxeflow/config"
	"luxeflow/db"
	"luxeflow/payout"
)

// Runs one payout eligibility sweep and exits. Meant for cron or a
// one-off operator invocation; the API exposes the same sweep behind
// /api/cron/process-payouts.
func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", "luxeflow-payouts")
	slog.SetDefault(logger)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL required for the payout batch")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("bootstrap database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	repo := payout.NewPGRepository(pool)
	svc := payout.NewService(repo, repo, nil, cfg.PayoutHoldDays, logger)

	summary, err := svc.Run(ctx)
	if err != nil {
		logger.Error("payout run failed", "error", err)
		os.Exit(1)
	}
	logger.Info("payout batch finished",
		"stores", summary.Stores,
		"orders", summary.Orders,
		"amount_cents", summary.AmountCents,
		"failures", summary.Failures,
	)
	if summary.Failures > 0 {
		os.Exit(2)
	}
}
