package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settlement is a bank-side record of funds transferred for one or more
// transactions. TransactionReference is free-form: it may carry the
// transaction id, the merchant order id, or a truncated/prefixed variant,
// which is why phase 3 fuzzy-matches it instead of requiring equality.
type Settlement struct {
	ID                   string          `json:"id" db:"id"`
	SettlementReference  string          `json:"settlement_reference" db:"settlement_reference"`
	Amount               decimal.Decimal `json:"amount" db:"amount"`
	GrossAmount          *decimal.Decimal `json:"gross_amount,omitempty" db:"gross_amount"`
	Currency             string          `json:"currency" db:"currency"`
	SettlementDate       time.Time       `json:"settlement_date" db:"settlement_date"`
	TransactionReference string          `json:"transaction_reference,omitempty" db:"transaction_reference"`
	FeesDeducted         decimal.Decimal `json:"fees_deducted" db:"fees_deducted"`
	BankName             string          `json:"bank_name" db:"bank_name"`
	CreatedAt            time.Time       `json:"created_at" db:"created_at"`
}
