package reconciler

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recon-engine/internal/config"
	"recon-engine/internal/domain"
	"recon-engine/internal/store"
)

// fakeStore is a minimal in-memory store.Store for exercising Service.Run
// without a database; LoadTransactions records every filter it receives so
// tests can assert both the captured-only and all-statuses queries happen.
type fakeStore struct {
	transactions  []domain.Transaction
	settlements   []domain.Settlement
	adjustments   []domain.Adjustment
	loadedFilters []store.TransactionFilter
	persisted     []domain.MatchResult
}

func (f *fakeStore) LoadTransactions(_ context.Context, filter store.TransactionFilter) ([]domain.Transaction, error) {
	f.loadedFilters = append(f.loadedFilters, filter)
	if filter.Status == nil {
		return f.transactions, nil
	}
	var out []domain.Transaction
	for _, t := range f.transactions {
		if t.Status == *filter.Status {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) LoadSettlements(context.Context, store.DateRange) ([]domain.Settlement, error) {
	return f.settlements, nil
}

func (f *fakeStore) LoadAdjustments(context.Context, store.DateRange) ([]domain.Adjustment, error) {
	return f.adjustments, nil
}

func (f *fakeStore) ClearMatches(context.Context) error { return nil }

func (f *fakeStore) PersistMatches(_ context.Context, matches []domain.MatchResult) error {
	f.persisted = matches
	return nil
}

func (f *fakeStore) FetchUnmatchedTransactions(context.Context, store.UnmatchedFilter) ([]domain.Transaction, error) {
	return nil, nil
}
func (f *fakeStore) FetchUnmatchedSettlements(context.Context, store.UnmatchedFilter) ([]domain.Settlement, error) {
	return nil, nil
}
func (f *fakeStore) FetchUnmatchedAdjustments(context.Context, store.UnmatchedFilter) ([]domain.Adjustment, error) {
	return nil, nil
}
func (f *fakeStore) FetchAmountMismatches(context.Context, store.UnmatchedFilter) ([]store.AmountMismatch, error) {
	return nil, nil
}
func (f *fakeStore) ListMatches(context.Context, store.MatchFilter) ([]domain.MatchResult, int, error) {
	return nil, 0, nil
}
func (f *fakeStore) GetMatchByTransactionID(context.Context, string) (*domain.MatchResult, error) {
	return nil, store.ErrNotFound
}
func (f *fakeStore) CountTransactions(context.Context) (int, error) { return len(f.transactions), nil }
func (f *fakeStore) CountSettlements(context.Context) (int, error)  { return len(f.settlements), nil }
func (f *fakeStore) CountAdjustments(context.Context) (int, error)  { return len(f.adjustments), nil }
func (f *fakeStore) CountChargebacks(context.Context) (int, error)  { return 0, nil }
func (f *fakeStore) LastMatchCreatedAt(context.Context) (*time.Time, error) { return nil, nil }
func (f *fakeStore) InsertTransaction(_ context.Context, t domain.Transaction) error {
	f.transactions = append(f.transactions, t)
	return nil
}
func (f *fakeStore) InsertSettlement(_ context.Context, s domain.Settlement) error {
	f.settlements = append(f.settlements, s)
	return nil
}
func (f *fakeStore) InsertAdjustment(_ context.Context, a domain.Adjustment) error {
	f.adjustments = append(f.adjustments, a)
	return nil
}

func testCfg() config.Matching {
	return config.Matching{
		AmountTolerancePercent:     decimal.NewFromFloat(5.0),
		SettlementWindowHours:      72,
		ChargebackWindowDays:       90,
		RefundWindowDays:           30,
		MinConfidenceForAutoMatch:  80,
		CurrencyFXTolerancePercent: decimal.NewFromFloat(10.0),
		OrphanThresholdDays:        7,
	}
}

func mustTime(value string) time.Time {
	parsed, _ := time.Parse(time.RFC3339, value)
	return parsed
}

func mustDate(value string) time.Time {
	parsed, _ := time.Parse("2006-01-02", value)
	return parsed
}

// A failed transaction is invisible to phases 1-4 but must still be
// reachable by phase 5: Run has to load transactions twice, once scoped to
// captured status and once unscoped, and feed the unscoped set to phase 5.
func TestRun_LoadsBothTransactionSetsAndMatchesNonCapturedRefund(t *testing.T) {
	fs := &fakeStore{
		transactions: []domain.Transaction{
			{ID: "t1", TransactionID: "txn_fail", Amount: decimal.NewFromFloat(250), Currency: "USD", Timestamp: mustTime("2024-01-10T10:00:00Z"), Status: domain.StatusFailed},
		},
		adjustments: []domain.Adjustment{
			{ID: "a1", AdjustmentID: "adj_900", TransactionReference: "txn_fail", Amount: decimal.NewFromFloat(250), Currency: "USD", Type: domain.AdjustmentRefund, Date: mustDate("2024-01-12")},
		},
	}
	svc := New(fs, testCfg())

	summary, err := svc.Run(context.Background(), Window{}, func() time.Time { return mustTime("2024-02-01T00:00:00Z") })
	require.NoError(t, err)

	require.Len(t, fs.loadedFilters, 2, "expected a captured-only load and an all-statuses load")
	assert.NotNil(t, fs.loadedFilters[0].Status)
	assert.Nil(t, fs.loadedFilters[1].Status)

	assert.Equal(t, 1, summary.Matched)
	assert.Equal(t, 0, summary.UnmatchedAdjustments)
	require.Len(t, fs.persisted, 1)
	assert.Equal(t, "t1", fs.persisted[0].TransactionID)
}
