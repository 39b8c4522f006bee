package payout

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Transferer moves money to a store's account. The demo implementation
// only logs the would-be transfer.
type Transferer interface {
	Transfer(ctx context.Context, storeID string, amountCents int64) error
}

// LogTransferer is the demo/no-provider transfer backend.
type LogTransferer struct {
	Logger *slog.Logger
}

func (t *LogTransferer) Transfer(_ context.Context, storeID string, amountCents int64) error {
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("demo payout, no transfer created",
		"store_id", storeID, "amount_cents", amountCents)
	return nil
}

// Service runs the payout eligibility sweep. Each run selects delivered
// orders past the hold window with no live dispute, groups them per
// store, and records one StorePayout per store. A failure on one store
// never aborts the others; it is counted in the summary.
type Service struct {
	source   CandidateSource
	recorder Recorder
	transfer Transferer
	holdDays int
	now      func() time.Time
	logger   *slog.Logger
}

func NewService(source CandidateSource, recorder Recorder, transfer Transferer, holdDays int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if transfer == nil {
		transfer = &LogTransferer{Logger: logger}
	}
	return &Service{
		source:   source,
		recorder: recorder,
		transfer: transfer,
		holdDays: holdDays,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock overrides the clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Run executes one batch sweep and reports what it did.
func (s *Service) Run(ctx context.Context) (Summary, error) {
	runAt := s.now()
	cutoff := runAt.Add(-time.Duration(s.holdDays) * 24 * time.Hour)

	candidates, err := s.source.Eligible(ctx, cutoff)
	if err != nil {
		return Summary{}, err
	}

	byStore := make(map[string][]Candidate)
	for _, c := range candidates {
		byStore[c.StoreID] = append(byStore[c.StoreID], c)
	}
	storeIDs := make([]string, 0, len(byStore))
	for id := range byStore {
		storeIDs = append(storeIDs, id)
	}
	sort.Strings(storeIDs)

	summary := Summary{RunAt: runAt}
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(4)

	for _, storeID := range storeIDs {
		orders := byStore[storeID]
		g.Go(func() error {
			var net int64
			for _, c := range orders {
				net += c.Net()
			}

			err := s.payStore(ctx, storeID, net, len(orders))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Error("store payout failed",
					"store_id", storeID, "amount_cents", net, "error", err)
				summary.Failures++
				return nil
			}
			summary.Stores++
			summary.Orders += len(orders)
			summary.AmountCents += net
			return nil
		})
	}
	// Goroutines report failures through the summary, never an error.
	_ = g.Wait()

	s.logger.Info("payout run complete",
		"stores", summary.Stores, "orders", summary.Orders,
		"amount_cents", summary.AmountCents, "failures", summary.Failures)
	return summary, nil
}

func (s *Service) payStore(ctx context.Context, storeID string, net int64, orderCount int) error {
	if _, err := s.recorder.Create(ctx, StorePayout{
		StoreID:     storeID,
		AmountCents: net,
		OrderCount:  orderCount,
		Status:      StatusProcessing,
	}); err != nil {
		return err
	}
	return s.transfer.Transfer(ctx, storeID, net)
}

// ListByStore returns a store's payout history, newest first.
func (s *Service) ListByStore(ctx context.Context, storeID string) ([]StorePayout, error) {
	return s.recorder.ListByStore(ctx, storeID)
}
