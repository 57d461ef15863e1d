// Package scoring implements the five phase-scoring functions and the
// suggestion scorer as pure functions: given a candidate pair and the
// matching configuration, they return a confidence score and reason tags
// with no I/O and no knowledge of exclusion sets. The matching pipeline
// (internal/matcher) drives candidate selection and applies the run-local
// exclusion sets; this package only ever judges one pair at a time.
//
// Phase1-Phase5 are grounded on the reference MatchingEngine
// (_phase1_exact_id_match .. _phase5_adjustment_match); Suggestion is
// grounded on the reference ReportingService's _score_match.
package scoring

import (
	"strings"

	"github.com/shopspring/decimal"

	"recon-engine/internal/config"
	"recon-engine/internal/domain"
	"recon-engine/internal/money"
	"recon-engine/internal/timeutil"
)

// Outcome is the evaluation of one transaction/settlement or
// transaction/adjustment pair.
type Outcome struct {
	Confidence int
	Reasons    []string
	AmountDiff decimal.Decimal
	DayDiff    int
	Status     domain.MatchStatus
}

// statusAt80 mirrors the reference implementation's literal 80-point status
// cutoff baked into every phase but phase 2's candidate-acceptance gate,
// which instead compares against the configured
// MinConfidenceForAutoMatch (see Phase2Accept). Both happen to default to
// 80; they are tracked separately because they are not the same knob.
func statusAt80(confidence int) domain.MatchStatus {
	return domain.StatusForConfidence(confidence, 80)
}

// amountDiffPercent returns the relative amount difference used to gate
// tolerance checks, and ok=false when the pair cannot be compared (a zero
// transaction amount against a non-zero counterpart has no defined ratio).
func amountDiffPercent(txnAmount, otherAmount decimal.Decimal) (decimal.Decimal, bool) {
	diff := otherAmount.Sub(txnAmount).Abs()
	switch {
	case txnAmount.IsZero() && otherAmount.IsZero():
		return decimal.Zero, true
	case txnAmount.IsPositive():
		return diff.Div(txnAmount), true
	default:
		return decimal.Decimal{}, false
	}
}

// Phase1 implements exact transaction-ID matching: a settlement's
// transaction_reference equals the transaction's transaction_id and both
// carry the same currency. Confidence is fixed at 100.
func Phase1(t domain.Transaction, s domain.Settlement) (Outcome, bool) {
	if s.TransactionReference == "" {
		return Outcome{}, false
	}
	if s.TransactionReference != t.TransactionID {
		return Outcome{}, false
	}
	if !strings.EqualFold(s.Currency, t.Currency) {
		return Outcome{}, false
	}

	return Outcome{
		Confidence: 100,
		Reasons:    []string{domain.ReasonExactTransactionIDMatch, domain.ReasonCurrencyMatch},
		AmountDiff: s.Amount.Sub(t.Amount).Abs(),
		DayDiff:    timeutil.DaysBetween(s.SettlementDate, t.Timestamp),
		Status:     domain.StatusMatched,
	}, true
}

// Phase2 implements amount + date window matching. The caller is
// responsible for the separate MinConfidenceForAutoMatch acceptance gate
// (Phase2Accept) before committing the best candidate found this way.
func Phase2(t domain.Transaction, s domain.Settlement, cfg config.Matching) (Outcome, bool) {
	if !strings.EqualFold(s.Currency, t.Currency) {
		return Outcome{}, false
	}

	amountDiff := s.Amount.Sub(t.Amount).Abs()
	pct, ok := amountDiffPercent(t.Amount, s.Amount)
	if !ok {
		return Outcome{}, false
	}
	tolerance := money.Percent(cfg.AmountTolerancePercent)
	if pct.GreaterThan(tolerance) {
		return Outcome{}, false
	}

	settlementDT := timeutil.StartOfDayIn(s.SettlementDate, t.Timestamp.Location())
	hoursDiff := timeutil.HoursBetween(settlementDT, t.Timestamp)
	if hoursDiff > float64(cfg.SettlementWindowHours) {
		return Outcome{}, false
	}

	confidence := 80
	switch {
	case amountDiff.IsZero():
		confidence += 15
	case pct.LessThanOrEqual(decimal.NewFromFloat(0.01)):
		confidence += 10
	case pct.LessThanOrEqual(decimal.NewFromFloat(0.05)):
		confidence += 5
	}

	dayDiff := timeutil.DaysBetween(s.SettlementDate, t.Timestamp)
	switch {
	case dayDiff == 0:
		confidence += 5
	case dayDiff <= 1:
		confidence += 3
	case dayDiff <= 2:
		confidence += 1
	}

	reasons := []string{domain.ReasonAmountWithinTolerance, domain.ReasonDateWithinWindow}
	if !amountDiff.IsZero() {
		reasons = append(reasons, domain.ReasonAmountVarianceDetected)
	}

	return Outcome{
		Confidence: confidence,
		Reasons:    reasons,
		AmountDiff: amountDiff,
		DayDiff:    dayDiff,
		Status:     statusAt80(confidence),
	}, true
}

// Phase2Accept applies the configured acceptance gate: only the best phase-2
// candidate whose confidence clears MinConfidenceForAutoMatch is kept.
func Phase2Accept(outcome Outcome, cfg config.Matching) bool {
	return outcome.Confidence >= cfg.MinConfidenceForAutoMatch
}

// Phase3 implements fuzzy matching on partial transaction IDs (first 8
// characters, either direction) and merchant order ID equality.
func Phase3(t domain.Transaction, s domain.Settlement, cfg config.Matching) (Outcome, bool) {
	if s.TransactionReference == "" {
		return Outcome{}, false
	}
	if !strings.EqualFold(s.Currency, t.Currency) {
		return Outcome{}, false
	}

	confidence := 0
	var reasons []string

	if len(s.TransactionReference) >= 8 && len(t.TransactionID) >= 8 {
		ref8 := s.TransactionReference[:8]
		txn8 := t.TransactionID[:8]
		if strings.Contains(t.TransactionID, ref8) || strings.Contains(s.TransactionReference, txn8) {
			confidence = 70
			reasons = append(reasons, domain.ReasonPartialIDMatch)
		}
	}

	if s.TransactionReference == t.MerchantOrderID {
		if confidence < 75 {
			confidence = 75
		}
		hasPartial := false
		for _, r := range reasons {
			if r == domain.ReasonPartialIDMatch {
				hasPartial = true
			}
		}
		if !hasPartial {
			reasons = []string{domain.ReasonMerchantOrderIDMatch}
		} else {
			reasons = append(reasons, domain.ReasonMerchantOrderIDMatch)
		}
	}

	if confidence == 0 {
		return Outcome{}, false
	}

	amountDiff := s.Amount.Sub(t.Amount).Abs()
	pct, ok := amountDiffPercent(t.Amount, s.Amount)
	if !ok {
		return Outcome{}, false
	}
	tolerance := money.Percent(cfg.AmountTolerancePercent)
	if pct.GreaterThan(tolerance) {
		return Outcome{}, false
	}

	switch {
	case amountDiff.IsZero():
		confidence += 15
	case pct.LessThanOrEqual(decimal.NewFromFloat(0.02)):
		confidence += 10
	}
	reasons = append(reasons, domain.ReasonAmountWithinTolerance)

	return Outcome{
		Confidence: confidence,
		Reasons:    reasons,
		AmountDiff: amountDiff,
		DayDiff:    timeutil.DaysBetween(s.SettlementDate, t.Timestamp),
		Status:     statusAt80(confidence),
	}, true
}

// Phase4 implements cross-currency matching: settlement and transaction
// carry different currencies, the settlement amount is converted via the
// USD-pivot table, and the converted amount must fall within the
// (wider) FX tolerance. Always yields pending_review regardless of score,
// and only accepted by the pipeline when confidence clears 60.
func Phase4(t domain.Transaction, s domain.Settlement, cfg config.Matching) (Outcome, bool) {
	if strings.EqualFold(s.Currency, t.Currency) {
		return Outcome{}, false
	}

	converted := money.Convert(s.Amount, s.Currency, t.Currency)
	amountDiff := converted.Sub(t.Amount).Abs()
	pct, ok := amountDiffPercent(t.Amount, converted)
	if !ok {
		return Outcome{}, false
	}
	fxTolerance := money.Percent(cfg.CurrencyFXTolerancePercent)
	if pct.GreaterThan(fxTolerance) {
		return Outcome{}, false
	}

	settlementDT := timeutil.StartOfDayIn(s.SettlementDate, t.Timestamp.Location())
	hoursDiff := timeutil.HoursBetween(settlementDT, t.Timestamp)
	if hoursDiff > float64(cfg.SettlementWindowHours) {
		return Outcome{}, false
	}

	confidence := 60
	switch {
	case pct.LessThanOrEqual(decimal.NewFromFloat(0.05)):
		confidence += 15
	case pct.LessThanOrEqual(decimal.NewFromFloat(0.08)):
		confidence += 10
	}

	if s.TransactionReference != "" && s.TransactionReference == t.TransactionID {
		confidence += 20
	}

	return Outcome{
		Confidence: confidence,
		Reasons:    []string{domain.ReasonCrossCurrencyMatch, domain.ReasonAmountWithinFXTolerance, domain.ReasonNeedsReview},
		AmountDiff: amountDiff,
		DayDiff:    timeutil.DaysBetween(s.SettlementDate, t.Timestamp),
		Status:     domain.StatusPendingReview,
	}, true
}

// Phase4Accept applies phase 4's literal 60-point acceptance floor.
func Phase4Accept(outcome Outcome) bool {
	return outcome.Confidence >= 60
}

// Phase5 implements adjustment-to-transaction matching. Unlike the
// settlement phases it never checks matched_txn_ids: an already-settled
// transaction remains eligible for a refund or chargeback (spec decision,
// grounded on the reference never consulting matched_transaction_ids here).
func Phase5(t domain.Transaction, a domain.Adjustment, cfg config.Matching) (Outcome, bool) {
	confidence := 0
	var reasons []string

	switch {
	case a.TransactionReference != "" && a.TransactionReference == t.TransactionID:
		confidence = 100
		reasons = append(reasons, domain.ReasonExactTransactionIDMatch)
	case a.TransactionReference != "" && a.TransactionReference == t.MerchantOrderID:
		confidence = 90
		reasons = append(reasons, domain.ReasonMerchantOrderIDMatch)
	default:
		return Outcome{}, false
	}

	if !strings.EqualFold(a.Currency, t.Currency) {
		confidence -= 20
		reasons = append(reasons, domain.ReasonCurrencyMismatch)
	}

	if a.Amount.GreaterThan(t.Amount) {
		confidence -= 10
		reasons = append(reasons, domain.ReasonAdjustmentExceedsTxn)
	}

	windowDays := cfg.RefundWindowDays
	if a.Type == domain.AdjustmentChargeback {
		windowDays = cfg.ChargebackWindowDays
	}
	dayDiff := timeutil.DaysBetween(a.Date, t.Timestamp)
	if dayDiff > windowDays {
		return Outcome{}, false
	}
	reasons = append(reasons, domain.ReasonDateWithinWindow)

	return Outcome{
		Confidence: confidence,
		Reasons:    reasons,
		AmountDiff: a.Amount.Sub(t.Amount).Abs(),
		DayDiff:    dayDiff,
		Status:     statusAt80(confidence),
	}, true
}

// Suggestion scores an unmatched transaction against a candidate settlement
// for the "suggested matches" report, independent of the phase pipeline and
// with a much lower bar (spec calls out confidence > 30 as the cutoff). It
// is grounded on _score_match, the scorer reporting's suggestion queries
// actually call.
func Suggestion(t domain.Transaction, s domain.Settlement, cfg config.Matching) (int, []string) {
	confidence := 0
	var reasons []string

	if strings.EqualFold(s.Currency, t.Currency) {
		confidence += 20
		reasons = append(reasons, domain.ReasonCurrencyMatch)
	}

	tolerance := money.Percent(cfg.AmountTolerancePercent)
	var pct decimal.Decimal
	switch {
	case t.Amount.IsZero() && s.Amount.IsZero():
		pct = decimal.Zero
	case t.Amount.IsPositive():
		pct = s.Amount.Sub(t.Amount).Abs().Div(t.Amount)
	default:
		pct = decimal.NewFromInt(1)
	}

	switch {
	case pct.IsZero():
		confidence += 40
		reasons = append(reasons, domain.ReasonExactAmountMatch)
	case pct.LessThanOrEqual(tolerance):
		confidence += 25
		reasons = append(reasons, domain.ReasonAmountWithinTolerance)
	}

	dayDiff := timeutil.DaysBetween(s.SettlementDate, t.Timestamp)
	switch {
	case dayDiff <= 3:
		confidence += 20
		reasons = append(reasons, domain.ReasonDateWithin72h)
	case dayDiff <= 7:
		confidence += 10
		reasons = append(reasons, domain.ReasonDateWithin7d)
	}

	if s.TransactionReference != "" && s.TransactionReference == t.TransactionID {
		confidence += 20
		reasons = append(reasons, domain.ReasonIDMatch)
	}

	if confidence > 100 {
		confidence = 100
	}
	return confidence, reasons
}
