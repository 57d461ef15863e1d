package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"recon-engine/internal/domain"
	"recon-engine/internal/store"
)

// recordingStore accepts every insert except for ids listed in reject, so
// tests can exercise the per-record (not batch-aborting) error path.
type recordingStore struct {
	store.Store
	reject       map[string]bool
	transactions []domain.Transaction
	settlements  []domain.Settlement
	adjustments  []domain.Adjustment
}

func (r *recordingStore) InsertTransaction(_ context.Context, t domain.Transaction) error {
	if r.reject[t.TransactionID] {
		return store.ErrConflictOnWrite
	}
	r.transactions = append(r.transactions, t)
	return nil
}

func (r *recordingStore) InsertSettlement(_ context.Context, s domain.Settlement) error {
	if r.reject[s.SettlementReference] {
		return store.ErrConflictOnWrite
	}
	r.settlements = append(r.settlements, s)
	return nil
}

func (r *recordingStore) InsertAdjustment(_ context.Context, a domain.Adjustment) error {
	if r.reject[a.AdjustmentID] {
		return errors.New("boom")
	}
	r.adjustments = append(r.adjustments, a)
	return nil
}

func TestIngestTransactions_NormalizesCaseAndContinuesOnError(t *testing.T) {
	rs := &recordingStore{reject: map[string]bool{"txn_bad": true}}
	svc := New(rs)

	result := svc.IngestTransactions(context.Background(), []domain.Transaction{
		{TransactionID: "txn_ok", Amount: decimal.NewFromInt(10), Currency: "usd", Country: "mx"},
		{TransactionID: "txn_bad", Amount: decimal.NewFromInt(20), Currency: "usd"},
	})

	assert.Equal(t, 1, result.Ingested)
	assert.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "txn_bad")

	assert.Len(t, rs.transactions, 1)
	assert.Equal(t, "USD", rs.transactions[0].Currency)
	assert.Equal(t, "MX", rs.transactions[0].Country)
}

func TestIngestSettlements_UppercasesCurrency(t *testing.T) {
	rs := &recordingStore{reject: map[string]bool{}}
	svc := New(rs)

	result := svc.IngestSettlements(context.Background(), []domain.Settlement{
		{SettlementReference: "set_1", Amount: decimal.NewFromInt(100), Currency: "mxn"},
	})

	assert.Equal(t, 1, result.Ingested)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "MXN", rs.settlements[0].Currency)
}

func TestIngestAdjustments_RecordsAllErrorsWithoutAborting(t *testing.T) {
	rs := &recordingStore{reject: map[string]bool{"adj_1": true, "adj_2": true}}
	svc := New(rs)

	result := svc.IngestAdjustments(context.Background(), []domain.Adjustment{
		{AdjustmentID: "adj_1", Amount: decimal.NewFromInt(5), Currency: "eur"},
		{AdjustmentID: "adj_2", Amount: decimal.NewFromInt(6), Currency: "eur"},
		{AdjustmentID: "adj_3", Amount: decimal.NewFromInt(7), Currency: "eur"},
	})

	assert.Equal(t, 1, result.Ingested)
	assert.Len(t, result.Errors, 2)
	assert.Len(t, rs.adjustments, 1)
	assert.Equal(t, "adj_3", rs.adjustments[0].AdjustmentID)
}
