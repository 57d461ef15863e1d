package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"recon-engine/internal/domain"
	"recon-engine/internal/ingestion"
	"recon-engine/pkg/response"
)

// IngestHandler serves the peripheral batch-ingest endpoints.
type IngestHandler struct {
	ingestion *ingestion.Service
}

// NewIngestHandler builds an IngestHandler.
func NewIngestHandler(s *ingestion.Service) *IngestHandler {
	return &IngestHandler{ingestion: s}
}

type transactionRequest struct {
	TransactionID   string  `json:"transaction_id" binding:"required"`
	MerchantOrderID string  `json:"merchant_order_id"`
	Amount          string  `json:"amount" binding:"required"`
	Currency        string  `json:"currency" binding:"required,len=3"`
	Timestamp       string  `json:"timestamp" binding:"required"`
	Status          string  `json:"status" binding:"required"`
	CustomerID      string  `json:"customer_id"`
	Country         string  `json:"country"`
}

type settlementRequest struct {
	SettlementReference  string `json:"settlement_reference" binding:"required"`
	Amount               string `json:"amount" binding:"required"`
	GrossAmount          string `json:"gross_amount"`
	Currency             string `json:"currency" binding:"required,len=3"`
	SettlementDate       string `json:"settlement_date" binding:"required"`
	TransactionReference string `json:"transaction_reference"`
	FeesDeducted         string `json:"fees_deducted"`
	BankName             string `json:"bank_name"`
}

type adjustmentRequest struct {
	AdjustmentID         string `json:"adjustment_id" binding:"required"`
	TransactionReference string `json:"transaction_reference"`
	Amount               string `json:"amount" binding:"required"`
	Currency             string `json:"currency" binding:"required,len=3"`
	Type                 string `json:"type" binding:"required,oneof=refund chargeback"`
	Date                 string `json:"date" binding:"required"`
	ReasonCode           string `json:"reason_code"`
}

// IngestTransactions godoc
// @Summary Ingest transactions
// @Description Insert a batch of transactions; invalid records are reported without aborting the batch
// @Tags ingestion
// @Accept json
// @Produce json
// @Param transactions body []transactionRequest true "Transactions to ingest"
// @Success 200 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /api/v1/ingest/transactions [post]
func (h *IngestHandler) IngestTransactions(c *gin.Context) {
	var reqs []transactionRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	var records []domain.Transaction
	var parseErrors []string
	for _, r := range reqs {
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			parseErrors = append(parseErrors, "transaction "+r.TransactionID+": invalid amount")
			continue
		}
		ts, err := time.Parse(time.RFC3339, r.Timestamp)
		if err != nil {
			parseErrors = append(parseErrors, "transaction "+r.TransactionID+": invalid timestamp")
			continue
		}
		records = append(records, domain.Transaction{
			TransactionID:   r.TransactionID,
			MerchantOrderID: r.MerchantOrderID,
			Amount:          amount,
			Currency:        r.Currency,
			Timestamp:       ts,
			Status:          domain.TransactionStatus(r.Status),
			CustomerID:      r.CustomerID,
			Country:         r.Country,
		})
	}

	result := h.ingestion.IngestTransactions(c.Request.Context(), records)
	result.Errors = append(parseErrors, result.Errors...)
	response.Success(c, http.StatusOK, "transactions ingested", result)
}

// IngestSettlements godoc
// @Summary Ingest settlements
// @Description Insert a batch of settlements; invalid records are reported without aborting the batch
// @Tags ingestion
// @Accept json
// @Produce json
// @Param settlements body []settlementRequest true "Settlements to ingest"
// @Success 200 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /api/v1/ingest/settlements [post]
func (h *IngestHandler) IngestSettlements(c *gin.Context) {
	var reqs []settlementRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	var records []domain.Settlement
	var parseErrors []string
	for _, r := range reqs {
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			parseErrors = append(parseErrors, "settlement "+r.SettlementReference+": invalid amount")
			continue
		}
		date, err := time.Parse("2006-01-02", r.SettlementDate)
		if err != nil {
			parseErrors = append(parseErrors, "settlement "+r.SettlementReference+": invalid settlement_date")
			continue
		}

		settlement := domain.Settlement{
			SettlementReference:  r.SettlementReference,
			Amount:               amount,
			Currency:             r.Currency,
			SettlementDate:       date,
			TransactionReference: r.TransactionReference,
			BankName:             r.BankName,
		}
		if r.GrossAmount != "" {
			gross, err := decimal.NewFromString(r.GrossAmount)
			if err == nil {
				settlement.GrossAmount = &gross
			}
		}
		if r.FeesDeducted != "" {
			fees, err := decimal.NewFromString(r.FeesDeducted)
			if err == nil {
				settlement.FeesDeducted = fees
			}
		}
		records = append(records, settlement)
	}

	result := h.ingestion.IngestSettlements(c.Request.Context(), records)
	result.Errors = append(parseErrors, result.Errors...)
	response.Success(c, http.StatusOK, "settlements ingested", result)
}

// IngestAdjustments godoc
// @Summary Ingest adjustments
// @Description Insert a batch of adjustments; invalid records are reported without aborting the batch
// @Tags ingestion
// @Accept json
// @Produce json
// @Param adjustments body []adjustmentRequest true "Adjustments to ingest"
// @Success 200 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /api/v1/ingest/adjustments [post]
func (h *IngestHandler) IngestAdjustments(c *gin.Context) {
	var reqs []adjustmentRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	var records []domain.Adjustment
	var parseErrors []string
	for _, r := range reqs {
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			parseErrors = append(parseErrors, "adjustment "+r.AdjustmentID+": invalid amount")
			continue
		}
		date, err := time.Parse("2006-01-02", r.Date)
		if err != nil {
			parseErrors = append(parseErrors, "adjustment "+r.AdjustmentID+": invalid date")
			continue
		}
		records = append(records, domain.Adjustment{
			AdjustmentID:         r.AdjustmentID,
			TransactionReference: r.TransactionReference,
			Amount:               amount,
			Currency:             r.Currency,
			Type:                 domain.AdjustmentType(r.Type),
			Date:                 date,
			ReasonCode:           r.ReasonCode,
		})
	}

	result := h.ingestion.IngestAdjustments(c.Request.Context(), records)
	result.Errors = append(parseErrors, result.Errors...)
	response.Success(c, http.StatusOK, "adjustments ingested", result)
}
