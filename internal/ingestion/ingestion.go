// Package ingestion implements the peripheral /api/v1/ingest/* batch
// loaders. Each record is inserted independently: a bad record is reported
// in the per-item error list, never aborts the rest of the batch (spec §7,
// grounded on IngestionService in the reference implementation).
package ingestion

import (
	"context"
	"fmt"
	"strings"

	"recon-engine/internal/domain"
	"recon-engine/internal/store"
	"recon-engine/pkg/logger"
)

// Service writes ingested records through the Store port.
type Service struct {
	store store.Store
}

// New builds an ingestion Service.
func New(s store.Store) *Service {
	return &Service{store: s}
}

// Result reports how many of a batch were accepted and, for the rest, why.
type Result struct {
	Ingested int      `json:"ingested"`
	Errors   []string `json:"errors"`
}

// IngestTransactions inserts each transaction, upper-casing currency and
// country the way the reference implementation normalizes free-text codes.
func (s *Service) IngestTransactions(ctx context.Context, transactions []domain.Transaction) Result {
	result := Result{}
	for _, t := range transactions {
		t.Currency = strings.ToUpper(t.Currency)
		t.Country = strings.ToUpper(t.Country)

		if err := s.store.InsertTransaction(ctx, t); err != nil {
			logger.GetLogger().WithError(err).WithField("transaction_id", t.TransactionID).Warn("failed to ingest transaction")
			result.Errors = append(result.Errors, fmt.Sprintf("transaction %s: %s", t.TransactionID, err.Error()))
			continue
		}
		result.Ingested++
	}
	return result
}

// IngestSettlements inserts each settlement.
func (s *Service) IngestSettlements(ctx context.Context, settlements []domain.Settlement) Result {
	result := Result{}
	for _, settlement := range settlements {
		settlement.Currency = strings.ToUpper(settlement.Currency)

		if err := s.store.InsertSettlement(ctx, settlement); err != nil {
			logger.GetLogger().WithError(err).WithField("settlement_reference", settlement.SettlementReference).Warn("failed to ingest settlement")
			result.Errors = append(result.Errors, fmt.Sprintf("settlement %s: %s", settlement.SettlementReference, err.Error()))
			continue
		}
		result.Ingested++
	}
	return result
}

// IngestAdjustments inserts each adjustment.
func (s *Service) IngestAdjustments(ctx context.Context, adjustments []domain.Adjustment) Result {
	result := Result{}
	for _, a := range adjustments {
		a.Currency = strings.ToUpper(a.Currency)

		if err := s.store.InsertAdjustment(ctx, a); err != nil {
			logger.GetLogger().WithError(err).WithField("adjustment_id", a.AdjustmentID).Warn("failed to ingest adjustment")
			result.Errors = append(result.Errors, fmt.Sprintf("adjustment %s: %s", a.AdjustmentID, err.Error()))
			continue
		}
		result.Ingested++
	}
	return result
}
