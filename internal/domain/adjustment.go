package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AdjustmentType distinguishes a refund from a chargeback; each carries its
// own matching window (see config.Matching.RefundWindowDays / ChargebackWindowDays).
type AdjustmentType string

const (
	AdjustmentRefund     AdjustmentType = "refund"
	AdjustmentChargeback AdjustmentType = "chargeback"
)

// Adjustment is a post-hoc reversal or dispute against a transaction.
type Adjustment struct {
	ID                   string          `json:"id" db:"id"`
	AdjustmentID         string          `json:"adjustment_id" db:"adjustment_id"`
	TransactionReference string          `json:"transaction_reference,omitempty" db:"transaction_reference"`
	Amount               decimal.Decimal `json:"amount" db:"amount"`
	Currency             string          `json:"currency" db:"currency"`
	Type                 AdjustmentType  `json:"type" db:"type"`
	Date                 time.Time       `json:"date" db:"date"`
	ReasonCode           string          `json:"reason_code,omitempty" db:"reason_code"`
	CreatedAt            time.Time       `json:"created_at" db:"created_at"`
}
