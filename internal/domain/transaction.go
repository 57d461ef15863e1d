package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus represents the lifecycle state of a transaction.
type TransactionStatus string

const (
	StatusAuthorized TransactionStatus = "authorized"
	StatusCaptured   TransactionStatus = "captured"
	StatusFailed     TransactionStatus = "failed"
)

// Transaction is an intended money movement originated by the payment system.
// Only StatusCaptured transactions participate in settlement matching
// (phases 1-4); every status participates in adjustment matching (phase 5).
type Transaction struct {
	ID              string            `json:"id" db:"id"`
	TransactionID   string            `json:"transaction_id" db:"transaction_id"`
	MerchantOrderID string            `json:"merchant_order_id" db:"merchant_order_id"`
	Amount          decimal.Decimal   `json:"amount" db:"amount"`
	Currency        string            `json:"currency" db:"currency"`
	Timestamp       time.Time         `json:"timestamp" db:"timestamp"`
	Status          TransactionStatus `json:"status" db:"status"`
	CustomerID      string            `json:"customer_id" db:"customer_id"`
	Country         string            `json:"country" db:"country"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
}
