package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MatchType identifies which two streams a MatchResult links.
type MatchType string

const (
	MatchTransactionSettlement MatchType = "transaction_settlement"
	MatchTransactionAdjustment MatchType = "transaction_adjustment"
)

// MatchStatus is derived from confidence_score at scoring time: matched iff
// confidence_score >= 80 (the scoring package's fixed status cutoff, kept
// apart from the configurable MinConfidenceForAutoMatch gate), except
// phase 4 (cross currency) which is always pending_review regardless of score.
type MatchStatus string

const (
	StatusMatched        MatchStatus = "matched"
	StatusPendingReview  MatchStatus = "pending_review"
	StatusUnmatched      MatchStatus = "unmatched" // reserved for future use
)

// Reason tags emitted into MatchResult.MatchReasons. Kept as named
// constants so scoring code never hand-types a tag twice.
const (
	ReasonExactTransactionIDMatch    = "exact_transaction_id_match"
	ReasonCurrencyMatch              = "currency_match"
	ReasonAmountWithinTolerance      = "amount_within_tolerance"
	ReasonAmountVarianceDetected     = "amount_variance_detected"
	ReasonDateWithinWindow           = "date_within_window"
	ReasonPartialIDMatch             = "partial_id_match"
	ReasonMerchantOrderIDMatch       = "merchant_order_id_match"
	ReasonCrossCurrencyMatch         = "cross_currency_match"
	ReasonAmountWithinFXTolerance    = "amount_within_fx_tolerance"
	ReasonNeedsReview                = "needs_review"
	ReasonCurrencyMismatch           = "currency_mismatch"
	ReasonAdjustmentExceedsTxn       = "adjustment_exceeds_transaction"
	ReasonDateWithin72h              = "date_within_72h"
	ReasonDateWithin7d               = "date_within_7d"
	ReasonExactAmountMatch           = "exact_amount_match"
	ReasonIDMatch                    = "id_match"
)

// MatchResult is the evidence record linking one transaction to exactly one
// settlement or one adjustment. It is owned by the reconciliation run: every
// run deletes all existing MatchResults and writes a fresh set atomically.
type MatchResult struct {
	ID                 string          `json:"id" db:"id"`
	TransactionID      string          `json:"transaction_id" db:"transaction_id"`
	SettlementID       *string         `json:"settlement_id,omitempty" db:"settlement_id"`
	AdjustmentID       *string         `json:"adjustment_id,omitempty" db:"adjustment_id"`
	MatchType          MatchType       `json:"match_type" db:"match_type"`
	ConfidenceScore    int             `json:"confidence_score" db:"confidence_score"`
	MatchReasons       []string        `json:"match_reasons" db:"match_reasons"`
	AmountDifference   decimal.Decimal `json:"amount_difference" db:"amount_difference"`
	DateDifferenceDays int             `json:"date_difference_days" db:"date_difference_days"`
	Status             MatchStatus     `json:"status" db:"status"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
}

// StatusForConfidence applies the status-coupling invariant (spec §8.2):
// matched iff confidence >= threshold, pending_review otherwise.
func StatusForConfidence(confidence, threshold int) MatchStatus {
	if confidence >= threshold {
		return StatusMatched
	}
	return StatusPendingReview
}
