package reporting

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

// fakeStore is a hand-written in-memory store.Store used only by this
// package's tests; it implements just enough behavior to drive the
// reporting service's queries.
type fakeStore struct {
	transactions []domain.Transaction
	settlements  []domain.Settlement
	adjustments  []domain.Adjustment
	matches      []domain.MatchResult
	mismatches   []store.AmountMismatch
}

func (f *fakeStore) LoadTransactions(_ context.Context, filter store.TransactionFilter) ([]domain.Transaction, error) {
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

func (f *fakeStore) ClearMatches(context.Context) error { f.matches = nil; return nil }

func (f *fakeStore) PersistMatches(_ context.Context, matches []domain.MatchResult) error {
	f.matches = append(f.matches, matches...)
	return nil
}

func (f *fakeStore) FetchUnmatchedTransactions(context.Context, store.UnmatchedFilter) ([]domain.Transaction, error) {
	return f.transactions, nil
}

func (f *fakeStore) FetchUnmatchedSettlements(context.Context, store.UnmatchedFilter) ([]domain.Settlement, error) {
	return f.settlements, nil
}

func (f *fakeStore) FetchUnmatchedAdjustments(context.Context, store.UnmatchedFilter) ([]domain.Adjustment, error) {
	return f.adjustments, nil
}

func (f *fakeStore) FetchAmountMismatches(context.Context, store.UnmatchedFilter) ([]store.AmountMismatch, error) {
	return f.mismatches, nil
}

func (f *fakeStore) ListMatches(_ context.Context, filter store.MatchFilter) ([]domain.MatchResult, int, error) {
	var out []domain.MatchResult
	for _, m := range f.matches {
		if filter.Status != nil && m.Status != *filter.Status {
			continue
		}
		if filter.MatchType != nil && m.MatchType != *filter.MatchType {
			continue
		}
		out = append(out, m)
	}
	return out, len(out), nil
}

func (f *fakeStore) GetMatchByTransactionID(_ context.Context, transactionID string) (*domain.MatchResult, error) {
	for _, m := range f.matches {
		if m.TransactionID == transactionID {
			return &m, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) CountTransactions(context.Context) (int, error) { return len(f.transactions), nil }
func (f *fakeStore) CountSettlements(context.Context) (int, error)  { return len(f.settlements), nil }
func (f *fakeStore) CountAdjustments(context.Context) (int, error)  { return len(f.adjustments), nil }

func (f *fakeStore) CountChargebacks(context.Context) (int, error) {
	count := 0
	for _, a := range f.adjustments {
		if a.Type == domain.AdjustmentChargeback {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) LastMatchCreatedAt(context.Context) (*time.Time, error) {
	if len(f.matches) == 0 {
		return nil, nil
	}
	last := f.matches[0].CreatedAt
	return &last, nil
}

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

func fixedNow() time.Time {
	parsed, _ := time.Parse(time.RFC3339, "2024-02-01T00:00:00Z")
	return parsed
}

// S5's unmatched refund: a high-priority unmatched_adjustment discrepancy.
func TestGetDiscrepancies_UnmatchedAdjustmentIsHighPriority(t *testing.T) {
	adjDate, _ := time.Parse("2006-01-02", "2024-01-10")
	fs := &fakeStore{
		adjustments: []domain.Adjustment{
			{ID: "a1", AdjustmentID: "adj_005", Amount: decimal.NewFromFloat(200), Currency: "USD", Type: domain.AdjustmentRefund, Date: adjDate},
		},
	}
	svc := New(fs, testCfg(), fixedNow)

	report, err := svc.GetDiscrepancies(context.Background(), Filter{Type: TypeUnmatchedAdjustment})
	require.NoError(t, err)
	require.Len(t, report.Discrepancies, 1)
	assert.Equal(t, PriorityHigh, report.Discrepancies[0].Priority)
	assert.Equal(t, 1, report.Summary.ByType[TypeUnmatchedAdjustment])
}

func TestGetDiscrepancies_PriorityThresholdsForTransactions(t *testing.T) {
	recent, _ := time.Parse(time.RFC3339, "2024-01-31T00:00:00Z")
	old, _ := time.Parse(time.RFC3339, "2024-01-01T00:00:00Z")
	fs := &fakeStore{
		transactions: []domain.Transaction{
			{ID: "t1", TransactionID: "small_recent", Amount: decimal.NewFromFloat(10), Currency: "USD", Timestamp: recent, Status: domain.StatusCaptured},
			{ID: "t2", TransactionID: "large_old", Amount: decimal.NewFromFloat(5000), Currency: "USD", Timestamp: old, Status: domain.StatusCaptured},
		},
	}
	svc := New(fs, testCfg(), fixedNow)

	report, err := svc.GetDiscrepancies(context.Background(), Filter{Type: TypeUnmatchedTransaction})
	require.NoError(t, err)
	require.Len(t, report.Discrepancies, 2)

	byID := map[string]string{}
	for _, d := range report.Discrepancies {
		txn := d.Record.(domain.Transaction)
		byID[txn.TransactionID] = d.Priority
	}
	assert.Equal(t, PriorityLow, byID["small_recent"])
	assert.Equal(t, PriorityHigh, byID["large_old"])
}

func TestGetSummary_AggregatesUnmatchedValue(t *testing.T) {
	ts, _ := time.Parse(time.RFC3339, "2024-01-01T00:00:00Z")
	fs := &fakeStore{
		transactions: []domain.Transaction{
			{ID: "t1", TransactionID: "txn_1", Amount: decimal.NewFromFloat(100), Currency: "USD", Timestamp: ts, Status: domain.StatusCaptured},
		},
		settlements: []domain.Settlement{
			{ID: "s1", Amount: decimal.NewFromFloat(50), Currency: "USD", SettlementDate: ts},
		},
	}
	svc := New(fs, testCfg(), fixedNow)

	summary, err := svc.GetSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 150.0, summary.TotalUnmatchedValueUSD)
	assert.Equal(t, 150.0, summary.UnmatchedByCurrency["USD"])
	assert.Nil(t, summary.AvgSettlementTimeHours, "no matched transaction_settlement rows")
}

func TestGetStatus_ComputesMatchRateFromTotalNotPageSize(t *testing.T) {
	matched := domain.StatusMatched
	fs := &fakeStore{
		transactions: []domain.Transaction{{ID: "t1"}, {ID: "t2"}, {ID: "t3"}, {ID: "t4"}},
		matches: []domain.MatchResult{
			{TransactionID: "t1", Status: matched},
			{TransactionID: "t2", Status: matched},
		},
	}
	svc := New(fs, testCfg(), fixedNow)

	status, err := svc.GetStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, status.TotalRecords)
	assert.Equal(t, 0.5, status.MatchRate)
}

func TestPaginate(t *testing.T) {
	items := make([]Discrepancy, 5)
	for i := range items {
		items[i] = Discrepancy{Type: TypeUnmatchedTransaction}
	}

	assert.Len(t, paginate(items, 0, 2), 2)
	assert.Len(t, paginate(items, 4, 2), 1)
	assert.Len(t, paginate(items, 10, 2), 0)
}
