// Package store defines the abstract data-access port the core consumes.
// It is deliberately not a concrete database layer (spec §4.3): the core
// only ever imports this interface, never a specific driver. A Postgres
// implementation lives in internal/postgres.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"recon-engine/internal/domain"
)

// Sentinel errors the port may raise. The core surfaces these as run-level
// failure (spec §4.3, §7); callers should use errors.Is against these.
var (
	ErrStoreUnavailable   = errors.New("store: unavailable")
	ErrConflictOnWrite    = errors.New("store: conflict on write")
	ErrConstraintViolation = errors.New("store: constraint violation")
	ErrNotFound           = errors.New("store: record not found")
)

// DateRange bounds a query by inclusive civil dates. A nil bound is
// unconstrained on that side.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// TransactionFilter additionally restricts by status; used by the pipeline
// to load only captured transactions for phases 1-4 and every status for
// phase 5.
type TransactionFilter struct {
	DateRange
	Status *domain.TransactionStatus
}

// UnmatchedFilter narrows the discrepancy/suggestion queries used by
// reporting.
type UnmatchedFilter struct {
	Currency  string
	MinAmount *decimal.Decimal
}

// AmountMismatch is a matched pair whose settlement amount disagrees with
// its transaction amount, denormalized with the fields the discrepancy
// report needs so reporting never has to fan out a second lookup per row.
type AmountMismatch struct {
	Match                domain.MatchResult
	TransactionBusinessID string
	SettlementReference  string
	TransactionAmount    decimal.Decimal
	SettlementAmount     decimal.Decimal
	Currency             string
}

// MatchFilter narrows GET /matches listing.
type MatchFilter struct {
	ConfidenceMin *int
	Status        *domain.MatchStatus
	MatchType     *domain.MatchType
	Limit         int
	Offset        int
}

// Store is the port the matching engine and reporting consume. Every method
// takes a context so a run is cancellable at any suspension point (spec §5).
type Store interface {
	LoadTransactions(ctx context.Context, filter TransactionFilter) ([]domain.Transaction, error)
	LoadSettlements(ctx context.Context, filter DateRange) ([]domain.Settlement, error)
	LoadAdjustments(ctx context.Context, filter DateRange) ([]domain.Adjustment, error)

	// ClearMatches and PersistMatches are invoked as a pair by the
	// orchestrator: clear first, persist last. They are separate calls,
	// each atomic on its own; no transaction spans both, so between them
	// the match table is empty, and a run that fails after ClearMatches
	// leaves it empty.
	ClearMatches(ctx context.Context) error
	PersistMatches(ctx context.Context, matches []domain.MatchResult) error

	FetchUnmatchedTransactions(ctx context.Context, filter UnmatchedFilter) ([]domain.Transaction, error)
	FetchUnmatchedSettlements(ctx context.Context, filter UnmatchedFilter) ([]domain.Settlement, error)
	FetchUnmatchedAdjustments(ctx context.Context, filter UnmatchedFilter) ([]domain.Adjustment, error)
	FetchAmountMismatches(ctx context.Context, filter UnmatchedFilter) ([]AmountMismatch, error)

	ListMatches(ctx context.Context, filter MatchFilter) ([]domain.MatchResult, int, error)
	GetMatchByTransactionID(ctx context.Context, transactionID string) (*domain.MatchResult, error)

	CountTransactions(ctx context.Context) (int, error)
	CountSettlements(ctx context.Context) (int, error)
	CountAdjustments(ctx context.Context) (int, error)
	CountChargebacks(ctx context.Context) (int, error)
	LastMatchCreatedAt(ctx context.Context) (*time.Time, error)

	// InsertTransaction/InsertSettlement/InsertAdjustment back the
	// peripheral ingestion endpoints (spec §6); duplicate-key conditions
	// are reported via ErrConflictOnWrite and are record-level, not
	// batch-aborting (spec §7).
	InsertTransaction(ctx context.Context, t domain.Transaction) error
	InsertSettlement(ctx context.Context, s domain.Settlement) error
	InsertAdjustment(ctx context.Context, a domain.Adjustment) error
}
