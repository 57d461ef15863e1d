// Package reconciler is the top-level run orchestrator: clear the prior
// matches, load from the store, drive the matching pipeline, persist the
// result in one atomic write, and report counts back to the caller. The
// clear and the write are separate store calls, not one transaction. It has no
// scoring logic of its own; that lives in internal/scoring and
// internal/matcher.
//
// Grounded on reconciliationService.Reconcile in the teacher repo (a
// service struct wrapping repositories and an engine, with a single
// orchestration entrypoint logging start/finish and translating failures).
package reconciler

import (
	"context"
	"fmt"
	"time"

	"recon-engine/internal/config"
	"recon-engine/internal/domain"
	"recon-engine/internal/matcher"
	"recon-engine/internal/store"
	"recon-engine/pkg/logger"
)

// Service drives reconciliation runs against a Store.
type Service struct {
	store store.Store
	cfg   config.Matching
}

// New builds a Service bound to a store and the matching configuration.
func New(s store.Store, cfg config.Matching) *Service {
	return &Service{store: s, cfg: cfg}
}

// Summary is the result of one reconciliation run, returned to the
// POST /api/v1/reconcile handler.
type Summary struct {
	Matched               int           `json:"matched"`
	UnmatchedTransactions int           `json:"unmatched_transactions"`
	UnmatchedSettlements  int           `json:"unmatched_settlements"`
	UnmatchedAdjustments  int           `json:"unmatched_adjustments"`
	AmountMismatches      int           `json:"amount_mismatches"`
	ProcessingTimeMS      int64         `json:"processing_time_ms"`
}

// Window optionally bounds the run by the record's own date field (spec
// §4.2): transaction timestamp, settlement date, adjustment date.
type Window struct {
	From *time.Time
	To   *time.Time
}

// Run executes one full reconciliation: clear the prior match set, load a
// fresh snapshot, run the five-phase pipeline, and persist the new match
// set atomically. now is injected so callers can pin "start time" for
// processing-time measurement without touching the wall clock directly.
func (s *Service) Run(ctx context.Context, window Window, now func() time.Time) (Summary, error) {
	start := now()

	captured := domain.StatusCaptured
	dateRange := store.DateRange{From: window.From, To: window.To}
	txnFilter := store.TransactionFilter{
		DateRange: dateRange,
		Status:    &captured,
	}
	allTxnFilter := store.TransactionFilter{DateRange: dateRange}

	if err := s.store.ClearMatches(ctx); err != nil {
		return Summary{}, fmt.Errorf("clear previous matches: %w", err)
	}

	transactions, err := s.store.LoadTransactions(ctx, txnFilter)
	if err != nil {
		return Summary{}, fmt.Errorf("load transactions: %w", err)
	}

	// Phase 5 matches refunds and chargebacks against a transaction
	// regardless of its current status, so it needs every transaction, not
	// just the captured set phases 1-4 work with.
	allTransactions, err := s.store.LoadTransactions(ctx, allTxnFilter)
	if err != nil {
		return Summary{}, fmt.Errorf("load all transactions: %w", err)
	}

	settlements, err := s.store.LoadSettlements(ctx, store.DateRange{From: window.From, To: window.To})
	if err != nil {
		return Summary{}, fmt.Errorf("load settlements: %w", err)
	}

	adjustments, err := s.store.LoadAdjustments(ctx, store.DateRange{From: window.From, To: window.To})
	if err != nil {
		return Summary{}, fmt.Errorf("load adjustments: %w", err)
	}

	pipeline := matcher.New(s.cfg)
	result := pipeline.Run(transactions, allTransactions, settlements, adjustments)

	if err := s.store.PersistMatches(ctx, result.Matches); err != nil {
		return Summary{}, fmt.Errorf("persist matches: %w", err)
	}

	elapsed := now().Sub(start)

	summary := Summary{
		Matched:               len(result.Matches),
		UnmatchedTransactions: result.UnmatchedTransactions,
		UnmatchedSettlements:  result.UnmatchedSettlements,
		UnmatchedAdjustments:  result.UnmatchedAdjustments,
		AmountMismatches:      result.AmountMismatches,
		ProcessingTimeMS:      elapsed.Milliseconds(),
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"matched":            summary.Matched,
		"processing_time_ms": summary.ProcessingTimeMS,
	}).Info("reconciliation summary")

	return summary, nil
}
