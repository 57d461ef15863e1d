package scoring

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recon-engine/internal/config"
	"recon-engine/internal/domain"
)

func defaultCfg() config.Matching {
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

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return parsed
}

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return parsed
}

// S1 — exact id, exact amount, same day.
func TestPhase1_ExactIDExactAmountSameDay(t *testing.T) {
	txn := domain.Transaction{
		TransactionID: "txn_001",
		Amount:        decimal.NewFromFloat(1000.00),
		Currency:      "USD",
		Timestamp:     mustTime(t, "2024-01-15T10:00:00Z"),
		Status:        domain.StatusCaptured,
	}
	settlement := domain.Settlement{
		TransactionReference: "txn_001",
		Amount:               decimal.NewFromFloat(1000.00),
		Currency:             "USD",
		SettlementDate:       mustDate(t, "2024-01-15"),
	}

	outcome, ok := Phase1(txn, settlement)
	require.True(t, ok)
	assert.Equal(t, 100, outcome.Confidence)
	assert.Equal(t, domain.StatusMatched, outcome.Status)
	assert.True(t, outcome.AmountDiff.IsZero())
	assert.Equal(t, 0, outcome.DayDiff)
	assert.Contains(t, outcome.Reasons, domain.ReasonExactTransactionIDMatch)
}

// S2 — 3% amount variance, within the 72h settlement window but 2 calendar
// days apart. The reference's day-diff bonus tiers are 0/<=1/<=2, so a
// 2-day gap earns +1, not +3: 80 (base) + 5 (<=5% amount) + 1 (<=2 days) = 86.
func TestPhase2_AmountVarianceWithinWindow(t *testing.T) {
	txn := domain.Transaction{
		TransactionID: "txn_002",
		Amount:        decimal.NewFromFloat(1000.00),
		Currency:      "USD",
		Timestamp:     mustTime(t, "2024-01-15T10:00:00Z"),
		Status:        domain.StatusCaptured,
	}
	settlement := domain.Settlement{
		Amount:         decimal.NewFromFloat(970.00),
		Currency:       "USD",
		SettlementDate: mustDate(t, "2024-01-17"),
	}

	outcome, ok := Phase2(txn, settlement, defaultCfg())
	require.True(t, ok)
	assert.Equal(t, 86, outcome.Confidence)
	assert.True(t, Phase2Accept(outcome, defaultCfg()))
	assert.True(t, outcome.AmountDiff.Equal(decimal.NewFromFloat(30.00)))
	assert.Equal(t, 2, outcome.DayDiff)
	assert.Contains(t, outcome.Reasons, domain.ReasonAmountVarianceDetected)
	assert.Equal(t, domain.StatusMatched, outcome.Status)
}

// S3 — merchant-order-id fuzzy match: 75 (order id match) + 15 (exact
// amount) = 90.
func TestPhase3_MerchantOrderIDFuzzyMatch(t *testing.T) {
	txn := domain.Transaction{
		TransactionID:   "txn_003",
		MerchantOrderID: "order_X",
		Amount:          decimal.NewFromFloat(500.00),
		Currency:        "USD",
		Timestamp:       mustTime(t, "2024-01-10T09:00:00Z"),
		Status:          domain.StatusCaptured,
	}
	settlement := domain.Settlement{
		TransactionReference: "order_X",
		Amount:               decimal.NewFromFloat(500.00),
		Currency:             "USD",
		SettlementDate:       mustDate(t, "2024-01-11"),
	}

	outcome, ok := Phase3(txn, settlement, defaultCfg())
	require.True(t, ok)
	assert.Equal(t, 90, outcome.Confidence)
	assert.Contains(t, outcome.Reasons, domain.ReasonMerchantOrderIDMatch)
	assert.Contains(t, outcome.Reasons, domain.ReasonAmountWithinTolerance)
}

// S4 — cross-currency MXN to USD: the 1000.00 USD settlement converted into
// the transaction's MXN is 1000/0.058=17241.38, diff 258.62/17500≈1.48%
// <=5% tier (+15), plus exact reference match (+20): 60+15+20=95, always
// pending_review.
func TestPhase4_CrossCurrencyMatch(t *testing.T) {
	txn := domain.Transaction{
		TransactionID: "txn_004",
		Amount:        decimal.NewFromFloat(17500.00),
		Currency:      "MXN",
		Timestamp:     mustTime(t, "2024-01-15T10:00:00Z"),
		Status:        domain.StatusCaptured,
	}
	settlement := domain.Settlement{
		TransactionReference: "txn_004",
		Amount:               decimal.NewFromFloat(1000.00),
		Currency:             "USD",
		SettlementDate:       mustDate(t, "2024-01-16"),
	}

	outcome, ok := Phase4(txn, settlement, defaultCfg())
	require.True(t, ok)
	assert.Equal(t, 95, outcome.Confidence)
	assert.True(t, Phase4Accept(outcome))
	assert.Equal(t, domain.StatusPendingReview, outcome.Status)
	assert.Contains(t, outcome.Reasons, domain.ReasonCrossCurrencyMatch)
	assert.Contains(t, outcome.Reasons, domain.ReasonNeedsReview)
}

// S5 — refund outside its 30-day window never yields a phase-5 outcome.
func TestPhase5_RefundOutsideWindowIsRejected(t *testing.T) {
	txn := domain.Transaction{
		TransactionID: "txn_005",
		Amount:        decimal.NewFromFloat(200.00),
		Currency:      "USD",
		Timestamp:     mustTime(t, "2024-01-01T10:00:00Z"),
		Status:        domain.StatusCaptured,
	}
	adjustment := domain.Adjustment{
		AdjustmentID:         "adj_005",
		TransactionReference: "txn_005",
		Amount:               decimal.NewFromFloat(200.00),
		Currency:             "USD",
		Type:                 domain.AdjustmentRefund,
		Date:                 mustDate(t, "2024-02-15"),
	}

	_, ok := Phase5(txn, adjustment, defaultCfg())
	assert.False(t, ok, "45 days exceeds the 30-day refund window")
}

func TestPhase5_ExactReferenceWithinWindowMatches(t *testing.T) {
	txn := domain.Transaction{
		TransactionID: "txn_010",
		Amount:        decimal.NewFromFloat(300.00),
		Currency:      "USD",
		Timestamp:     mustTime(t, "2024-01-01T10:00:00Z"),
		Status:        domain.StatusCaptured,
	}
	adjustment := domain.Adjustment{
		AdjustmentID:         "adj_010",
		TransactionReference: "txn_010",
		Amount:               decimal.NewFromFloat(300.00),
		Currency:             "USD",
		Type:                 domain.AdjustmentChargeback,
		Date:                 mustDate(t, "2024-01-20"),
	}

	outcome, ok := Phase5(txn, adjustment, defaultCfg())
	require.True(t, ok)
	assert.Equal(t, 100, outcome.Confidence)
	assert.Equal(t, domain.StatusMatched, outcome.Status)
}

func TestPhase5_CurrencyMismatchAndAmountExceedingPenalize(t *testing.T) {
	txn := domain.Transaction{
		TransactionID: "txn_011",
		Amount:        decimal.NewFromFloat(100.00),
		Currency:      "USD",
		Timestamp:     mustTime(t, "2024-01-01T10:00:00Z"),
		Status:        domain.StatusCaptured,
	}
	adjustment := domain.Adjustment{
		AdjustmentID:         "adj_011",
		TransactionReference: "txn_011",
		Amount:               decimal.NewFromFloat(150.00),
		Currency:             "EUR",
		Type:                 domain.AdjustmentRefund,
		Date:                 mustDate(t, "2024-01-05"),
	}

	outcome, ok := Phase5(txn, adjustment, defaultCfg())
	require.True(t, ok)
	assert.Equal(t, 70, outcome.Confidence) // 100 - 20 (currency) - 10 (amount exceeds)
	assert.Contains(t, outcome.Reasons, domain.ReasonCurrencyMismatch)
	assert.Contains(t, outcome.Reasons, domain.ReasonAdjustmentExceedsTxn)
}

// S6 — an orphan settlement whose amount falls outside tolerance produces
// no phase-2 match but still surfaces in the suggestion scorer at >=30
// confidence (currency match +20, date within 7d +10... but within 72h +20
// since the gap here is exactly 1 day).
func TestSuggestion_OrphanSettlementAboveThreshold(t *testing.T) {
	txn := domain.Transaction{
		TransactionID: "txn_006",
		Amount:        decimal.NewFromFloat(330.00),
		Currency:      "MXN",
		Timestamp:     mustTime(t, "2024-01-15T10:00:00Z"),
		Status:        domain.StatusCaptured,
	}
	settlement := domain.Settlement{
		Amount:         decimal.NewFromFloat(500.00),
		Currency:       "MXN",
		SettlementDate: mustDate(t, "2024-01-16"),
	}

	confidence, reasons := Suggestion(txn, settlement, defaultCfg())
	assert.GreaterOrEqual(t, confidence, 30)
	assert.Contains(t, reasons, domain.ReasonCurrencyMatch)
}

// Suggestion is grounded on _score_match, which only ever compares
// transaction_reference against transaction_id, not merchant_order_id, and
// awards 25 (not 30) for amount-within-tolerance. A settlement whose
// reference happens to equal the merchant order id must not pick up a
// reference-match bonus it never earns in the ground truth.
func TestSuggestion_IgnoresMerchantOrderIDReferenceAndUsesToleranceOf25(t *testing.T) {
	txn := domain.Transaction{
		TransactionID:   "txn_100",
		MerchantOrderID: "order_77",
		Amount:          decimal.NewFromFloat(1000.00),
		Currency:        "EUR",
		Timestamp:       mustTime(t, "2024-01-01T10:00:00Z"),
		Status:          domain.StatusCaptured,
	}
	settlement := domain.Settlement{
		TransactionReference: "order_77",
		Amount:               decimal.NewFromFloat(1030.00),
		Currency:             "USD",
		SettlementDate:       mustDate(t, "2024-01-20"),
	}

	confidence, reasons := Suggestion(txn, settlement, defaultCfg())
	// currency mismatch: +0. amount within 5% tolerance: +25. date 19 days
	// out, beyond the 7-day tier: +0. reference equals merchant_order_id,
	// not transaction_id, so no reference bonus: +0. Total: 25.
	assert.Equal(t, 25, confidence)
	assert.NotContains(t, reasons, domain.ReasonMerchantOrderIDMatch)
	assert.NotContains(t, reasons, domain.ReasonIDMatch)
}

func TestPhase2_RejectsOutsideTolerance(t *testing.T) {
	txn := domain.Transaction{
		TransactionID: "txn_020",
		Amount:        decimal.NewFromFloat(330.00),
		Currency:      "MXN",
		Timestamp:     mustTime(t, "2024-01-15T10:00:00Z"),
		Status:        domain.StatusCaptured,
	}
	settlement := domain.Settlement{
		Amount:         decimal.NewFromFloat(500.00),
		Currency:       "MXN",
		SettlementDate: mustDate(t, "2024-01-16"),
	}

	_, ok := Phase2(txn, settlement, defaultCfg())
	assert.False(t, ok, "51% variance exceeds the 5% tolerance")
}

func TestPhase1_RequiresCurrencyMatch(t *testing.T) {
	txn := domain.Transaction{TransactionID: "txn_030", Amount: decimal.NewFromInt(10), Currency: "USD"}
	settlement := domain.Settlement{TransactionReference: "txn_030", Amount: decimal.NewFromInt(10), Currency: "EUR"}

	_, ok := Phase1(txn, settlement)
	assert.False(t, ok)
}

func TestPhase4_RejectsSameCurrency(t *testing.T) {
	txn := domain.Transaction{TransactionID: "txn_040", Amount: decimal.NewFromInt(10), Currency: "USD"}
	settlement := domain.Settlement{Amount: decimal.NewFromInt(10), Currency: "USD", SettlementDate: mustDate(t, "2024-01-01")}

	_, ok := Phase4(txn, settlement, defaultCfg())
	assert.False(t, ok, "phase 4 only applies to mismatched currencies")
}
