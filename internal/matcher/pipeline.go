// Package matcher orchestrates the five-phase matching pipeline over the
// pure scoring functions in internal/scoring. It owns the three run-local
// exclusion sets and the deterministic ascending-id iteration order; it has
// no knowledge of storage or transport.
//
// Grounded on MatchingEngine.run_reconciliation in the reference
// implementation and restructured around the teacher's
// ReconciliationEngine (a config-driven engine type with a single
// Reconcile entrypoint and structured logging of start/finish).
package matcher

import (
	"sort"

	"github.com/google/uuid"

	"recon-engine/internal/config"
	"recon-engine/internal/domain"
	"recon-engine/internal/scoring"
	"recon-engine/pkg/logger"
)

// Pipeline runs the matching phases against an in-memory snapshot of
// transactions, settlements and adjustments. It is stateless between runs:
// a fresh Pipeline (or a fresh call to Run) starts every exclusion set
// empty, matching the "run-local, not shared across runs" invariant.
type Pipeline struct {
	cfg config.Matching
}

// New builds a Pipeline bound to a fixed matching configuration.
func New(cfg config.Matching) *Pipeline {
	return &Pipeline{cfg: cfg}
}

// Result is the outcome of one full pipeline run.
type Result struct {
	Matches               []domain.MatchResult
	UnmatchedTransactions int
	UnmatchedSettlements  int
	UnmatchedAdjustments  int
	AmountMismatches      int
}

// Run executes phases 1 through 5 in order. transactions holds only the
// captured-status set phases 1-4 match against; allTransactions holds every
// status and feeds phase 5, which matches refunds and chargebacks against a
// transaction regardless of its current status. Transactions, settlements
// and adjustments are each sorted ascending by id before iteration so that
// two runs over the same snapshot always produce the same matches (spec's
// ordering guarantee).
func (p *Pipeline) Run(transactions []domain.Transaction, allTransactions []domain.Transaction, settlements []domain.Settlement, adjustments []domain.Adjustment) Result {
	txns := sortedTransactions(transactions)
	allTxns := sortedTransactions(allTransactions)
	stls := sortedSettlements(settlements)
	adjs := sortedAdjustments(adjustments)

	logger.GetLogger().WithFields(map[string]interface{}{
		"transactions":     len(txns),
		"all_transactions": len(allTxns),
		"settlements":      len(stls),
		"adjustments":      len(adjs),
	}).Info("reconciliation run starting")

	matchedTxnIDs := make(map[string]bool)
	matchedSettlementIDs := make(map[string]bool)
	matchedAdjustmentIDs := make(map[string]bool)

	var matches []domain.MatchResult
	amountMismatches := 0

	matches = append(matches, p.phase1(txns, stls, matchedTxnIDs, matchedSettlementIDs)...)

	phase2Matches, phase2Mismatches := p.phase2(txns, stls, matchedTxnIDs, matchedSettlementIDs)
	matches = append(matches, phase2Matches...)
	amountMismatches += phase2Mismatches

	matches = append(matches, p.phase3(txns, stls, matchedTxnIDs, matchedSettlementIDs)...)
	matches = append(matches, p.phase4(txns, stls, matchedTxnIDs, matchedSettlementIDs)...)
	matches = append(matches, p.phase5(allTxns, adjs, matchedAdjustmentIDs)...)

	result := Result{
		Matches:               matches,
		UnmatchedTransactions: len(txns) - len(matchedTxnIDs),
		UnmatchedSettlements:  len(stls) - len(matchedSettlementIDs),
		UnmatchedAdjustments:  len(adjs) - len(matchedAdjustmentIDs),
		AmountMismatches:      amountMismatches,
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"matched":                len(matches),
		"unmatched_transactions": result.UnmatchedTransactions,
		"unmatched_settlements":  result.UnmatchedSettlements,
		"unmatched_adjustments":  result.UnmatchedAdjustments,
		"amount_mismatches":      result.AmountMismatches,
	}).Info("reconciliation run complete")

	return result
}

func (p *Pipeline) phase1(txns []domain.Transaction, stls []domain.Settlement, matchedTxnIDs, matchedSettlementIDs map[string]bool) []domain.MatchResult {
	var out []domain.MatchResult
	for _, s := range stls {
		if matchedSettlementIDs[s.ID] {
			continue
		}
		for _, t := range txns {
			if matchedTxnIDs[t.ID] {
				continue
			}
			outcome, ok := scoring.Phase1(t, s)
			if !ok {
				continue
			}
			out = append(out, buildMatch(t.ID, &s.ID, nil, domain.MatchTransactionSettlement, outcome))
			matchedTxnIDs[t.ID] = true
			matchedSettlementIDs[s.ID] = true
			break
		}
	}
	return out
}

func (p *Pipeline) phase2(txns []domain.Transaction, stls []domain.Settlement, matchedTxnIDs, matchedSettlementIDs map[string]bool) ([]domain.MatchResult, int) {
	var out []domain.MatchResult
	mismatches := 0
	for _, s := range stls {
		if matchedSettlementIDs[s.ID] {
			continue
		}

		var best *scoring.Outcome
		var bestTxn domain.Transaction
		for _, t := range txns {
			if matchedTxnIDs[t.ID] {
				continue
			}
			outcome, ok := scoring.Phase2(t, s, p.cfg)
			if !ok {
				continue
			}
			if best == nil || outcome.Confidence > best.Confidence {
				o := outcome
				best = &o
				bestTxn = t
			}
		}

		if best == nil || !scoring.Phase2Accept(*best, p.cfg) {
			continue
		}
		if !best.AmountDiff.IsZero() {
			mismatches++
		}
		out = append(out, buildMatch(bestTxn.ID, &s.ID, nil, domain.MatchTransactionSettlement, *best))
		matchedTxnIDs[bestTxn.ID] = true
		matchedSettlementIDs[s.ID] = true
	}
	return out, mismatches
}

func (p *Pipeline) phase3(txns []domain.Transaction, stls []domain.Settlement, matchedTxnIDs, matchedSettlementIDs map[string]bool) []domain.MatchResult {
	var out []domain.MatchResult
	for _, s := range stls {
		if matchedSettlementIDs[s.ID] {
			continue
		}

		var best *scoring.Outcome
		var bestTxn domain.Transaction
		for _, t := range txns {
			if matchedTxnIDs[t.ID] {
				continue
			}
			outcome, ok := scoring.Phase3(t, s, p.cfg)
			if !ok {
				continue
			}
			if best == nil || outcome.Confidence > best.Confidence {
				o := outcome
				best = &o
				bestTxn = t
			}
		}

		if best == nil {
			continue
		}
		out = append(out, buildMatch(bestTxn.ID, &s.ID, nil, domain.MatchTransactionSettlement, *best))
		matchedTxnIDs[bestTxn.ID] = true
		matchedSettlementIDs[s.ID] = true
	}
	return out
}

func (p *Pipeline) phase4(txns []domain.Transaction, stls []domain.Settlement, matchedTxnIDs, matchedSettlementIDs map[string]bool) []domain.MatchResult {
	var out []domain.MatchResult
	for _, s := range stls {
		if matchedSettlementIDs[s.ID] {
			continue
		}

		var best *scoring.Outcome
		var bestTxn domain.Transaction
		for _, t := range txns {
			if matchedTxnIDs[t.ID] {
				continue
			}
			outcome, ok := scoring.Phase4(t, s, p.cfg)
			if !ok {
				continue
			}
			if best == nil || outcome.Confidence > best.Confidence {
				o := outcome
				best = &o
				bestTxn = t
			}
		}

		if best == nil || !scoring.Phase4Accept(*best) {
			continue
		}
		out = append(out, buildMatch(bestTxn.ID, &s.ID, nil, domain.MatchTransactionSettlement, *best))
		matchedTxnIDs[bestTxn.ID] = true
		matchedSettlementIDs[s.ID] = true
	}
	return out
}

// phase5 never reads or writes matchedTxnIDs: a transaction already bound
// to a settlement remains eligible for a refund or chargeback. allTxns
// carries every transaction status, not just captured, since a refund or
// chargeback can land against a transaction phases 1-4 never considered.
func (p *Pipeline) phase5(allTxns []domain.Transaction, adjs []domain.Adjustment, matchedAdjustmentIDs map[string]bool) []domain.MatchResult {
	var out []domain.MatchResult
	for _, a := range adjs {
		if matchedAdjustmentIDs[a.ID] {
			continue
		}

		var best *scoring.Outcome
		var bestTxn domain.Transaction
		for _, t := range allTxns {
			outcome, ok := scoring.Phase5(t, a, p.cfg)
			if !ok {
				continue
			}
			if best == nil || outcome.Confidence > best.Confidence {
				o := outcome
				best = &o
				bestTxn = t
			}
		}

		if best == nil {
			continue
		}
		out = append(out, buildMatch(bestTxn.ID, nil, &a.ID, domain.MatchTransactionAdjustment, *best))
		matchedAdjustmentIDs[a.ID] = true
	}
	return out
}

func buildMatch(txnID string, settlementID, adjustmentID *string, matchType domain.MatchType, outcome scoring.Outcome) domain.MatchResult {
	return domain.MatchResult{
		ID:                 uuid.NewString(),
		TransactionID:      txnID,
		SettlementID:       settlementID,
		AdjustmentID:       adjustmentID,
		MatchType:          matchType,
		ConfidenceScore:    outcome.Confidence,
		MatchReasons:       outcome.Reasons,
		AmountDifference:   outcome.AmountDiff,
		DateDifferenceDays: outcome.DayDiff,
		Status:             outcome.Status,
	}
}

func sortedTransactions(in []domain.Transaction) []domain.Transaction {
	out := append([]domain.Transaction(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedSettlements(in []domain.Settlement) []domain.Settlement {
	out := append([]domain.Settlement(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedAdjustments(in []domain.Adjustment) []domain.Adjustment {
	out := append([]domain.Adjustment(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
