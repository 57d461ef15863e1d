// Package reporting builds the discrepancy, summary and run-status views
// served under /api/v1/discrepancies and /api/v1/reconcile/status. It reads
// through the store.Store port and scores suggestions with the pure
// scoring.Suggestion function (which the matching pipeline does not
// call), and otherwise has no relationship
// to the pipeline's run-local exclusion sets: it always reflects the
// persisted match set as of the call.
//
// Grounded on ReportingService in the reference implementation.
package reporting

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"recon-engine/internal/config"
	"recon-engine/internal/domain"
	"recon-engine/internal/money"
	"recon-engine/internal/scoring"
	"recon-engine/internal/store"
	"recon-engine/internal/timeutil"
)

// Priority levels, ordered here only for documentation; callers compare by
// equality, not ordinal.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Discrepancy type tags, matching the reference's dict "type" field.
const (
	TypeUnmatchedTransaction = "unmatched_transaction"
	TypeUnmatchedSettlement  = "unmatched_settlement"
	TypeUnmatchedAdjustment  = "unmatched_adjustment"
	TypeAmountMismatch       = "amount_mismatch"
)

// Suggestion is a candidate counterpart surfaced alongside an unmatched
// record, capped at the top 3 by confidence.
type Suggestion struct {
	RecordType string      `json:"record_type"`
	Record     interface{} `json:"record"`
	Confidence int         `json:"confidence"`
	Reasons    []string    `json:"reasons"`
}

// Discrepancy is one row of the discrepancy report.
type Discrepancy struct {
	Type             string       `json:"type"`
	Record           interface{}  `json:"record"`
	AgeDays          int          `json:"age_days"`
	Priority         string       `json:"priority"`
	SuggestedMatches []Suggestion `json:"suggested_matches"`
}

// Filter narrows GET /discrepancies.
type Filter struct {
	Type      string
	Currency  string
	MinAmount *decimal.Decimal
	Priority  string
	Limit     int
	Offset    int
}

// Summary aggregates every discrepancy that matches one GetDiscrepancies
// filter, computed before pagination is applied.
type Summary struct {
	TotalUnmatchedValue map[string]float64 `json:"total_unmatched_value"`
	ByType              map[string]int     `json:"by_type"`
}

// Report is the full GET /discrepancies response body.
type Report struct {
	Discrepancies []Discrepancy `json:"discrepancies"`
	Summary       Summary       `json:"summary"`
	Total         int           `json:"total"`
}

// SummaryReport is the GET /discrepancies/summary response body.
type SummaryReport struct {
	TotalUnmatchedValueUSD     float64            `json:"total_unmatched_value_usd"`
	UnmatchedByCurrency        map[string]float64 `json:"unmatched_by_currency"`
	AvgSettlementTimeHours     *float64           `json:"avg_settlement_time_hours"`
	ChargebackRate             float64            `json:"chargeback_rate"`
	OrphanedRecordsOver7Days   int                `json:"orphaned_records_over_7_days"`
}

// StatusReport is the GET /reconcile/status response body.
type StatusReport struct {
	LastRun      *string `json:"last_run"`
	TotalRecords int     `json:"total_records"`
	MatchRate    float64 `json:"match_rate"`
}

// Service implements the reporting views over a Store.
type Service struct {
	store store.Store
	cfg   config.Matching
	now   func() time.Time
}

// New builds a Service. now lets tests pin "today" instead of relying on
// the wall clock; production wiring passes time.Now.
func New(s store.Store, cfg config.Matching, now func() time.Time) *Service {
	return &Service{store: s, cfg: cfg, now: now}
}

// GetDiscrepancies implements the filtered, paginated discrepancy listing.
func (s *Service) GetDiscrepancies(ctx context.Context, filter Filter) (Report, error) {
	var discrepancies []Discrepancy
	unmatchedFilter := store.UnmatchedFilter{Currency: filter.Currency, MinAmount: filter.MinAmount}

	if filter.Type == "" || filter.Type == TypeUnmatchedTransaction {
		txns, err := s.store.FetchUnmatchedTransactions(ctx, unmatchedFilter)
		if err != nil {
			return Report{}, err
		}
		for _, t := range txns {
			ageDays := timeutil.DaysBetween(t.Timestamp, s.now())
			priority := s.priority(t.Amount, t.Currency, ageDays, false)
			if filter.Priority != "" && priority != filter.Priority {
				continue
			}
			suggestions, err := s.suggestSettlementsFor(ctx, t)
			if err != nil {
				return Report{}, err
			}
			discrepancies = append(discrepancies, Discrepancy{
				Type:             TypeUnmatchedTransaction,
				Record:           t,
				AgeDays:          ageDays,
				Priority:         priority,
				SuggestedMatches: suggestions,
			})
		}
	}

	if filter.Type == "" || filter.Type == TypeUnmatchedSettlement {
		settlements, err := s.store.FetchUnmatchedSettlements(ctx, unmatchedFilter)
		if err != nil {
			return Report{}, err
		}
		for _, settlement := range settlements {
			ageDays := timeutil.DaysBetween(settlement.SettlementDate, s.now())
			priority := s.priority(settlement.Amount, settlement.Currency, ageDays, false)
			if filter.Priority != "" && priority != filter.Priority {
				continue
			}
			suggestions, err := s.suggestTransactionsFor(ctx, settlement)
			if err != nil {
				return Report{}, err
			}
			discrepancies = append(discrepancies, Discrepancy{
				Type:             TypeUnmatchedSettlement,
				Record:           settlement,
				AgeDays:          ageDays,
				Priority:         priority,
				SuggestedMatches: suggestions,
			})
		}
	}

	if filter.Type == "" || filter.Type == TypeUnmatchedAdjustment {
		adjustments, err := s.store.FetchUnmatchedAdjustments(ctx, unmatchedFilter)
		if err != nil {
			return Report{}, err
		}
		for _, a := range adjustments {
			ageDays := timeutil.DaysBetween(a.Date, s.now())
			priority := s.priority(a.Amount, a.Currency, ageDays, true)
			if filter.Priority != "" && priority != filter.Priority {
				continue
			}
			discrepancies = append(discrepancies, Discrepancy{
				Type:             TypeUnmatchedAdjustment,
				Record:           a,
				AgeDays:          ageDays,
				Priority:         priority,
				SuggestedMatches: []Suggestion{},
			})
		}
	}

	if filter.Type == "" || filter.Type == TypeAmountMismatch {
		mismatches, err := s.store.FetchAmountMismatches(ctx, unmatchedFilter)
		if err != nil {
			return Report{}, err
		}
		for _, m := range mismatches {
			priority := PriorityMedium
			if filter.Priority != "" && priority != filter.Priority {
				continue
			}
			discrepancies = append(discrepancies, Discrepancy{
				Type:             TypeAmountMismatch,
				Record:           m,
				AgeDays:          m.Match.DateDifferenceDays,
				Priority:         priority,
				SuggestedMatches: []Suggestion{},
			})
		}
	}

	summary := summarize(discrepancies)
	total := len(discrepancies)
	paginated := paginate(discrepancies, filter.Offset, filter.Limit)

	return Report{Discrepancies: paginated, Summary: summary, Total: total}, nil
}

// GetSummary implements the high-level /discrepancies/summary view.
func (s *Service) GetSummary(ctx context.Context) (SummaryReport, error) {
	unmatchedByCurrency := make(map[string]float64)
	totalUSD := decimal.Zero

	txns, err := s.store.FetchUnmatchedTransactions(ctx, store.UnmatchedFilter{})
	if err != nil {
		return SummaryReport{}, err
	}
	for _, t := range txns {
		cur, _ := unmatchedByCurrency[t.Currency]
		unmatchedByCurrency[t.Currency] = cur + t.Amount.InexactFloat64()
		totalUSD = totalUSD.Add(money.ToUSD(t.Amount, t.Currency))
	}

	settlements, err := s.store.FetchUnmatchedSettlements(ctx, store.UnmatchedFilter{})
	if err != nil {
		return SummaryReport{}, err
	}
	for _, settlement := range settlements {
		cur, _ := unmatchedByCurrency[settlement.Currency]
		unmatchedByCurrency[settlement.Currency] = cur + settlement.Amount.InexactFloat64()
		totalUSD = totalUSD.Add(money.ToUSD(settlement.Amount, settlement.Currency))
	}

	avgHours, err := s.avgSettlementTimeHours(ctx)
	if err != nil {
		return SummaryReport{}, err
	}

	chargebackRate, err := s.chargebackRate(ctx)
	if err != nil {
		return SummaryReport{}, err
	}

	orphaned, err := s.countOrphanedRecords(ctx)
	if err != nil {
		return SummaryReport{}, err
	}

	usdFloat, _ := totalUSD.Round(2).Float64()
	return SummaryReport{
		TotalUnmatchedValueUSD:   usdFloat,
		UnmatchedByCurrency:      unmatchedByCurrency,
		AvgSettlementTimeHours:   avgHours,
		ChargebackRate:           chargebackRate,
		OrphanedRecordsOver7Days: orphaned,
	}, nil
}

// GetStatus implements the /reconcile/status view.
func (s *Service) GetStatus(ctx context.Context) (StatusReport, error) {
	txnCount, err := s.store.CountTransactions(ctx)
	if err != nil {
		return StatusReport{}, err
	}
	stlCount, err := s.store.CountSettlements(ctx)
	if err != nil {
		return StatusReport{}, err
	}
	adjCount, err := s.store.CountAdjustments(ctx)
	if err != nil {
		return StatusReport{}, err
	}
	totalRecords := txnCount + stlCount + adjCount

	lastRun, err := s.store.LastMatchCreatedAt(ctx)
	if err != nil {
		return StatusReport{}, err
	}

	_, matchCount, err := s.store.ListMatches(ctx, store.MatchFilter{Limit: 1})
	if err != nil {
		return StatusReport{}, err
	}
	denominator := totalRecords
	if denominator < 1 {
		denominator = 1
	}
	matchRate := roundTo(float64(matchCount)/float64(denominator), 4)

	var lastRunStr *string
	if lastRun != nil {
		formatted := lastRun.Format(rfc3339Format)
		lastRunStr = &formatted
	}

	return StatusReport{LastRun: lastRunStr, TotalRecords: totalRecords, MatchRate: matchRate}, nil
}

const rfc3339Format = "2006-01-02T15:04:05Z07:00"

func (s *Service) priority(amount decimal.Decimal, currency string, ageDays int, isAdjustment bool) string {
	if isAdjustment {
		return PriorityHigh
	}

	usdAmount := money.ToUSD(amount, currency)
	thousand := decimal.NewFromInt(1000)
	hundred := decimal.NewFromInt(100)

	if usdAmount.GreaterThan(thousand) || ageDays > 7 {
		return PriorityHigh
	}
	if usdAmount.GreaterThan(hundred) || ageDays > 3 {
		return PriorityMedium
	}
	return PriorityLow
}

func (s *Service) suggestSettlementsFor(ctx context.Context, t domain.Transaction) ([]Suggestion, error) {
	candidates, err := s.store.FetchUnmatchedSettlements(ctx, store.UnmatchedFilter{})
	if err != nil {
		return nil, err
	}

	var suggestions []Suggestion
	for _, candidate := range candidates {
		confidence, reasons := scoring.Suggestion(t, candidate, s.cfg)
		if confidence > 30 {
			suggestions = append(suggestions, Suggestion{
				RecordType: "settlement",
				Record:     candidate,
				Confidence: confidence,
				Reasons:    reasons,
			})
		}
	}
	return topSuggestions(suggestions, 3), nil
}

func (s *Service) suggestTransactionsFor(ctx context.Context, settlement domain.Settlement) ([]Suggestion, error) {
	captured := domain.StatusCaptured
	candidates, err := s.store.LoadTransactions(ctx, store.TransactionFilter{Status: &captured})
	if err != nil {
		return nil, err
	}

	var suggestions []Suggestion
	for _, candidate := range candidates {
		confidence, reasons := scoring.Suggestion(candidate, settlement, s.cfg)
		if confidence > 30 {
			suggestions = append(suggestions, Suggestion{
				RecordType: "transaction",
				Record:     candidate,
				Confidence: confidence,
				Reasons:    reasons,
			})
		}
	}
	return topSuggestions(suggestions, 3), nil
}

func topSuggestions(in []Suggestion, limit int) []Suggestion {
	sort.SliceStable(in, func(i, j int) bool { return in[i].Confidence > in[j].Confidence })
	if len(in) > limit {
		return in[:limit]
	}
	return in
}

func (s *Service) avgSettlementTimeHours(ctx context.Context) (*float64, error) {
	matched := domain.StatusMatched
	txnSettlement := domain.MatchTransactionSettlement
	matches, _, err := s.store.ListMatches(ctx, store.MatchFilter{Status: &matched, MatchType: &txnSettlement})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}

	totalHours := 0.0
	for _, m := range matches {
		totalHours += float64(m.DateDifferenceDays) * 24
	}
	avg := roundTo(totalHours/float64(len(matches)), 2)
	return &avg, nil
}

func (s *Service) chargebackRate(ctx context.Context) (float64, error) {
	totalTxns, err := s.store.CountTransactions(ctx)
	if err != nil {
		return 0, err
	}
	if totalTxns == 0 {
		return 0, nil
	}
	chargebacks, err := s.store.CountChargebacks(ctx)
	if err != nil {
		return 0, err
	}
	return roundTo(float64(chargebacks)/float64(totalTxns), 4), nil
}

func (s *Service) countOrphanedRecords(ctx context.Context) (int, error) {
	threshold := s.now().AddDate(0, 0, -s.cfg.OrphanThresholdDays)
	count := 0

	txns, err := s.store.FetchUnmatchedTransactions(ctx, store.UnmatchedFilter{})
	if err != nil {
		return 0, err
	}
	for _, t := range txns {
		if t.Timestamp.Before(threshold) {
			count++
		}
	}

	settlements, err := s.store.FetchUnmatchedSettlements(ctx, store.UnmatchedFilter{})
	if err != nil {
		return 0, err
	}
	for _, settlement := range settlements {
		if settlement.SettlementDate.Before(threshold) {
			count++
		}
	}

	adjustments, err := s.store.FetchUnmatchedAdjustments(ctx, store.UnmatchedFilter{})
	if err != nil {
		return 0, err
	}
	for _, a := range adjustments {
		if a.Date.Before(threshold) {
			count++
		}
	}

	return count, nil
}

func summarize(discrepancies []Discrepancy) Summary {
	byType := map[string]int{
		TypeUnmatchedTransaction: 0,
		TypeUnmatchedSettlement:  0,
		TypeUnmatchedAdjustment:  0,
		TypeAmountMismatch:       0,
	}
	totalUnmatchedValue := make(map[string]float64)

	for _, d := range discrepancies {
		if _, ok := byType[d.Type]; ok {
			byType[d.Type]++
		}

		amount, currency, ok := recordAmount(d.Record)
		if ok {
			totalUnmatchedValue[currency] += amount
		}
	}

	return Summary{TotalUnmatchedValue: totalUnmatchedValue, ByType: byType}
}

func recordAmount(record interface{}) (float64, string, bool) {
	switch r := record.(type) {
	case domain.Transaction:
		return r.Amount.InexactFloat64(), r.Currency, true
	case domain.Settlement:
		return r.Amount.InexactFloat64(), r.Currency, true
	case domain.Adjustment:
		return r.Amount.InexactFloat64(), r.Currency, true
	case store.AmountMismatch:
		return r.Match.AmountDifference.InexactFloat64(), r.Currency, true
	default:
		return 0, "", false
	}
}

func paginate(in []Discrepancy, offset, limit int) []Discrepancy {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(in) {
		return []Discrepancy{}
	}
	end := len(in)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return in[offset:end]
}

func roundTo(v float64, places int) float64 {
	scale := 1.0
	for i := 0; i < places; i++ {
		scale *= 10
	}
	return float64(int64(v*scale+signOf(v)*0.5)) / scale
}

func signOf(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
