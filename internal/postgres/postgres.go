// Package postgres is the concrete adapter implementing store.Store over
// Postgres via database/sql and github.com/lib/pq. It is the only package
// that knows SQL; the core only ever imports store.Store.
//
// Grounded on internal/repository/transaction_repository.go and
// reconciliation_repository.go: plain SQL strings with positional
// placeholders, QueryRow/Scan for single rows, batched statements inside
// an explicit transaction for bulk writes, errors routed through
// pkg/logger before being returned.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"recon-engine/internal/domain"
	"recon-engine/internal/store"
	"recon-engine/pkg/logger"
)

// Store is the Postgres-backed implementation of store.Store.
type Store struct {
	db *sql.DB
}

// New wraps an already-opened, already-pinged *sql.DB.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) LoadTransactions(ctx context.Context, filter store.TransactionFilter) ([]domain.Transaction, error) {
	query := `
		SELECT id, transaction_id, merchant_order_id, amount, currency, timestamp, status, customer_id, country, created_at
		FROM transactions
		WHERE 1=1
	`
	var args []interface{}
	argN := 0

	if filter.Status != nil {
		argN++
		query += fmt.Sprintf(" AND status = $%d", argN)
		args = append(args, string(*filter.Status))
	}
	if filter.From != nil {
		argN++
		query += fmt.Sprintf(" AND timestamp >= $%d", argN)
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		argN++
		query += fmt.Sprintf(" AND timestamp <= $%d", argN)
		args = append(args, *filter.To)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.GetLogger().WithError(err).Error("failed to query transactions")
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.TransactionID, &t.MerchantOrderID, &t.Amount, &t.Currency, &t.Timestamp, &t.Status, &t.CustomerID, &t.Country, &t.CreatedAt); err != nil {
			logger.GetLogger().WithError(err).Error("failed to scan transaction")
			continue
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) LoadSettlements(ctx context.Context, filter store.DateRange) ([]domain.Settlement, error) {
	query := `
		SELECT id, settlement_reference, amount, gross_amount, currency, settlement_date, transaction_reference, fees_deducted, bank_name, created_at
		FROM settlements
		WHERE 1=1
	`
	var args []interface{}
	argN := 0
	if filter.From != nil {
		argN++
		query += fmt.Sprintf(" AND settlement_date >= $%d", argN)
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		argN++
		query += fmt.Sprintf(" AND settlement_date <= $%d", argN)
		args = append(args, *filter.To)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.GetLogger().WithError(err).Error("failed to query settlements")
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []domain.Settlement
	for rows.Next() {
		var settlement domain.Settlement
		if err := rows.Scan(&settlement.ID, &settlement.SettlementReference, &settlement.Amount, &settlement.GrossAmount, &settlement.Currency, &settlement.SettlementDate, &settlement.TransactionReference, &settlement.FeesDeducted, &settlement.BankName, &settlement.CreatedAt); err != nil {
			logger.GetLogger().WithError(err).Error("failed to scan settlement")
			continue
		}
		out = append(out, settlement)
	}
	return out, rows.Err()
}

func (s *Store) LoadAdjustments(ctx context.Context, filter store.DateRange) ([]domain.Adjustment, error) {
	query := `
		SELECT id, adjustment_id, transaction_reference, amount, currency, type, date, reason_code, created_at
		FROM adjustments
		WHERE 1=1
	`
	var args []interface{}
	argN := 0
	if filter.From != nil {
		argN++
		query += fmt.Sprintf(" AND date >= $%d", argN)
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		argN++
		query += fmt.Sprintf(" AND date <= $%d", argN)
		args = append(args, *filter.To)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.GetLogger().WithError(err).Error("failed to query adjustments")
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []domain.Adjustment
	for rows.Next() {
		var a domain.Adjustment
		if err := rows.Scan(&a.ID, &a.AdjustmentID, &a.TransactionReference, &a.Amount, &a.Currency, &a.Type, &a.Date, &a.ReasonCode, &a.CreatedAt); err != nil {
			logger.GetLogger().WithError(err).Error("failed to scan adjustment")
			continue
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ClearMatches and PersistMatches are called by the reconciler at the start
// and end of a run, with the snapshot loads in between. No sql.Tx spans
// the two calls: each is atomic on its own, a reader between them sees an
// empty match_results table, and a run that fails after ClearMatches
// leaves the table empty.
func (s *Store) ClearMatches(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM match_results`)
	if err != nil {
		logger.GetLogger().WithError(err).Error("failed to clear match results")
		return translateErr(err)
	}
	return nil
}

func (s *Store) PersistMatches(ctx context.Context, matches []domain.MatchResult) error {
	if len(matches) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.GetLogger().WithError(err).Error("failed to begin transaction")
		return translateErr(err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO match_results (
			id, transaction_id, settlement_id, adjustment_id, match_type,
			confidence_score, match_reasons, amount_difference, date_difference_days, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`)
	if err != nil {
		logger.GetLogger().WithError(err).Error("failed to prepare match insert")
		return translateErr(err)
	}
	defer stmt.Close()

	for _, m := range matches {
		_, err := stmt.ExecContext(ctx,
			m.ID, m.TransactionID, m.SettlementID, m.AdjustmentID, string(m.MatchType),
			m.ConfidenceScore, pq.Array(m.MatchReasons), m.AmountDifference, m.DateDifferenceDays, string(m.Status),
		)
		if err != nil {
			logger.GetLogger().WithError(err).WithField("transaction_id", m.TransactionID).Error("failed to insert match result")
			return translateErr(err)
		}
	}

	if err := tx.Commit(); err != nil {
		logger.GetLogger().WithError(err).Error("failed to commit match results")
		return translateErr(err)
	}
	return nil
}

func (s *Store) FetchUnmatchedTransactions(ctx context.Context, filter store.UnmatchedFilter) ([]domain.Transaction, error) {
	query := `
		SELECT t.id, t.transaction_id, t.merchant_order_id, t.amount, t.currency, t.timestamp, t.status, t.customer_id, t.country, t.created_at
		FROM transactions t
		WHERE t.status = 'captured'
		AND NOT EXISTS (
			SELECT 1 FROM match_results m
			WHERE m.transaction_id = t.id AND m.settlement_id IS NOT NULL
		)
	`
	query, args := applyUnmatchedFilter(query, "t", filter)
	query += " ORDER BY t.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.GetLogger().WithError(err).Error("failed to query unmatched transactions")
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.TransactionID, &t.MerchantOrderID, &t.Amount, &t.Currency, &t.Timestamp, &t.Status, &t.CustomerID, &t.Country, &t.CreatedAt); err != nil {
			logger.GetLogger().WithError(err).Error("failed to scan unmatched transaction")
			continue
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) FetchUnmatchedSettlements(ctx context.Context, filter store.UnmatchedFilter) ([]domain.Settlement, error) {
	query := `
		SELECT s.id, s.settlement_reference, s.amount, s.gross_amount, s.currency, s.settlement_date, s.transaction_reference, s.fees_deducted, s.bank_name, s.created_at
		FROM settlements s
		WHERE NOT EXISTS (
			SELECT 1 FROM match_results m WHERE m.settlement_id = s.id
		)
	`
	query, args := applyUnmatchedFilter(query, "s", filter)
	query += " ORDER BY s.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.GetLogger().WithError(err).Error("failed to query unmatched settlements")
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []domain.Settlement
	for rows.Next() {
		var settlement domain.Settlement
		if err := rows.Scan(&settlement.ID, &settlement.SettlementReference, &settlement.Amount, &settlement.GrossAmount, &settlement.Currency, &settlement.SettlementDate, &settlement.TransactionReference, &settlement.FeesDeducted, &settlement.BankName, &settlement.CreatedAt); err != nil {
			logger.GetLogger().WithError(err).Error("failed to scan unmatched settlement")
			continue
		}
		out = append(out, settlement)
	}
	return out, rows.Err()
}

func (s *Store) FetchUnmatchedAdjustments(ctx context.Context, filter store.UnmatchedFilter) ([]domain.Adjustment, error) {
	query := `
		SELECT a.id, a.adjustment_id, a.transaction_reference, a.amount, a.currency, a.type, a.date, a.reason_code, a.created_at
		FROM adjustments a
		WHERE NOT EXISTS (
			SELECT 1 FROM match_results m WHERE m.adjustment_id = a.id
		)
	`
	query, args := applyUnmatchedFilter(query, "a", filter)
	query += " ORDER BY a.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.GetLogger().WithError(err).Error("failed to query unmatched adjustments")
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []domain.Adjustment
	for rows.Next() {
		var a domain.Adjustment
		if err := rows.Scan(&a.ID, &a.AdjustmentID, &a.TransactionReference, &a.Amount, &a.Currency, &a.Type, &a.Date, &a.ReasonCode, &a.CreatedAt); err != nil {
			logger.GetLogger().WithError(err).Error("failed to scan unmatched adjustment")
			continue
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) FetchAmountMismatches(ctx context.Context, filter store.UnmatchedFilter) ([]store.AmountMismatch, error) {
	query := `
		SELECT m.id, m.transaction_id, m.settlement_id, m.adjustment_id, m.match_type, m.confidence_score,
			   m.match_reasons, m.amount_difference, m.date_difference_days, m.status, m.created_at,
			   t.transaction_id, t.amount, t.currency,
			   sttl.settlement_reference, sttl.amount
		FROM match_results m
		JOIN transactions t ON t.id = m.transaction_id
		JOIN settlements sttl ON sttl.id = m.settlement_id
		WHERE m.amount_difference > 0 AND m.settlement_id IS NOT NULL
	`
	var args []interface{}
	argN := 0
	if filter.Currency != "" {
		argN++
		query += fmt.Sprintf(" AND t.currency = $%d", argN)
		args = append(args, filter.Currency)
	}
	if filter.MinAmount != nil {
		argN++
		query += fmt.Sprintf(" AND m.amount_difference >= $%d", argN)
		args = append(args, *filter.MinAmount)
	}
	query += " ORDER BY m.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.GetLogger().WithError(err).Error("failed to query amount mismatches")
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []store.AmountMismatch
	for rows.Next() {
		var m store.AmountMismatch
		var reasons pq.StringArray
		if err := rows.Scan(
			&m.Match.ID, &m.Match.TransactionID, &m.Match.SettlementID, &m.Match.AdjustmentID, &m.Match.MatchType, &m.Match.ConfidenceScore,
			&reasons, &m.Match.AmountDifference, &m.Match.DateDifferenceDays, &m.Match.Status, &m.Match.CreatedAt,
			&m.TransactionBusinessID, &m.TransactionAmount, &m.Currency,
			&m.SettlementReference, &m.SettlementAmount,
		); err != nil {
			logger.GetLogger().WithError(err).Error("failed to scan amount mismatch")
			continue
		}
		m.Match.MatchReasons = reasons
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) ListMatches(ctx context.Context, filter store.MatchFilter) ([]domain.MatchResult, int, error) {
	query := `
		SELECT id, transaction_id, settlement_id, adjustment_id, match_type, confidence_score,
			   match_reasons, amount_difference, date_difference_days, status, created_at
		FROM match_results
		WHERE 1=1
	`
	var args []interface{}
	argN := 0
	if filter.ConfidenceMin != nil {
		argN++
		query += fmt.Sprintf(" AND confidence_score >= $%d", argN)
		args = append(args, *filter.ConfidenceMin)
	}
	if filter.Status != nil {
		argN++
		query += fmt.Sprintf(" AND status = $%d", argN)
		args = append(args, string(*filter.Status))
	}
	if filter.MatchType != nil {
		argN++
		query += fmt.Sprintf(" AND match_type = $%d", argN)
		args = append(args, string(*filter.MatchType))
	}

	countQuery := "SELECT count(*) FROM (" + query + ") AS filtered"
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		logger.GetLogger().WithError(err).Error("failed to count matches")
		return nil, 0, translateErr(err)
	}

	query += " ORDER BY id"
	if filter.Limit > 0 {
		argN++
		query += fmt.Sprintf(" LIMIT $%d", argN)
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		argN++
		query += fmt.Sprintf(" OFFSET $%d", argN)
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.GetLogger().WithError(err).Error("failed to query matches")
		return nil, 0, translateErr(err)
	}
	defer rows.Close()

	var out []domain.MatchResult
	for rows.Next() {
		var m domain.MatchResult
		var reasons pq.StringArray
		if err := rows.Scan(&m.ID, &m.TransactionID, &m.SettlementID, &m.AdjustmentID, &m.MatchType, &m.ConfidenceScore, &reasons, &m.AmountDifference, &m.DateDifferenceDays, &m.Status, &m.CreatedAt); err != nil {
			logger.GetLogger().WithError(err).Error("failed to scan match")
			continue
		}
		m.MatchReasons = reasons
		out = append(out, m)
	}
	return out, total, rows.Err()
}

func (s *Store) GetMatchByTransactionID(ctx context.Context, transactionID string) (*domain.MatchResult, error) {
	query := `
		SELECT id, transaction_id, settlement_id, adjustment_id, match_type, confidence_score,
			   match_reasons, amount_difference, date_difference_days, status, created_at
		FROM match_results
		WHERE transaction_id = $1
		ORDER BY id
		LIMIT 1
	`
	var m domain.MatchResult
	var reasons pq.StringArray
	err := s.db.QueryRowContext(ctx, query, transactionID).Scan(
		&m.ID, &m.TransactionID, &m.SettlementID, &m.AdjustmentID, &m.MatchType, &m.ConfidenceScore,
		&reasons, &m.AmountDifference, &m.DateDifferenceDays, &m.Status, &m.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		logger.GetLogger().WithError(err).Error("failed to get match by transaction id")
		return nil, translateErr(err)
	}
	m.MatchReasons = reasons
	return &m, nil
}

func (s *Store) CountTransactions(ctx context.Context) (int, error) {
	return s.count(ctx, "transactions")
}

func (s *Store) CountSettlements(ctx context.Context) (int, error) {
	return s.count(ctx, "settlements")
}

func (s *Store) CountAdjustments(ctx context.Context) (int, error) {
	return s.count(ctx, "adjustments")
}

func (s *Store) CountChargebacks(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM adjustments WHERE type = $1`, string(domain.AdjustmentChargeback)).Scan(&count)
	if err != nil {
		logger.GetLogger().WithError(err).Error("failed to count chargebacks")
		return 0, translateErr(err)
	}
	return count, nil
}

func (s *Store) count(ctx context.Context, table string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT count(*) FROM %s", table)).Scan(&count)
	if err != nil {
		logger.GetLogger().WithError(err).WithField("table", table).Error("failed to count rows")
		return 0, translateErr(err)
	}
	return count, nil
}

func (s *Store) LastMatchCreatedAt(ctx context.Context) (*time.Time, error) {
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx, `SELECT created_at FROM match_results ORDER BY created_at DESC LIMIT 1`).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		logger.GetLogger().WithError(err).Error("failed to get last match timestamp")
		return nil, translateErr(err)
	}
	return &createdAt, nil
}

func (s *Store) InsertTransaction(ctx context.Context, t domain.Transaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (transaction_id, merchant_order_id, amount, currency, timestamp, status, customer_id, country)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, t.TransactionID, t.MerchantOrderID, t.Amount, t.Currency, t.Timestamp, t.Status, t.CustomerID, t.Country)
	if err != nil {
		logger.GetLogger().WithError(err).WithField("transaction_id", t.TransactionID).Error("failed to insert transaction")
		return translateErr(err)
	}
	return nil
}

func (s *Store) InsertSettlement(ctx context.Context, settlement domain.Settlement) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settlements (settlement_reference, amount, gross_amount, currency, settlement_date, transaction_reference, fees_deducted, bank_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, settlement.SettlementReference, settlement.Amount, settlement.GrossAmount, settlement.Currency, settlement.SettlementDate, settlement.TransactionReference, settlement.FeesDeducted, settlement.BankName)
	if err != nil {
		logger.GetLogger().WithError(err).WithField("settlement_reference", settlement.SettlementReference).Error("failed to insert settlement")
		return translateErr(err)
	}
	return nil
}

func (s *Store) InsertAdjustment(ctx context.Context, a domain.Adjustment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO adjustments (adjustment_id, transaction_reference, amount, currency, type, date, reason_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.AdjustmentID, a.TransactionReference, a.Amount, a.Currency, a.Type, a.Date, a.ReasonCode)
	if err != nil {
		logger.GetLogger().WithError(err).WithField("adjustment_id", a.AdjustmentID).Error("failed to insert adjustment")
		return translateErr(err)
	}
	return nil
}

func applyUnmatchedFilter(query, alias string, filter store.UnmatchedFilter) (string, []interface{}) {
	var args []interface{}
	argN := 0
	if filter.Currency != "" {
		argN++
		query += fmt.Sprintf(" AND %s.currency = $%d", alias, argN)
		args = append(args, filter.Currency)
	}
	if filter.MinAmount != nil {
		argN++
		query += fmt.Sprintf(" AND %s.amount >= $%d", alias, argN)
		args = append(args, *filter.MinAmount)
	}
	return query, args
}

func translateErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return fmt.Errorf("%w: %s", store.ErrConflictOnWrite, pqErr.Message)
		case "foreign_key_violation", "check_violation", "not_null_violation":
			return fmt.Errorf("%w: %s", store.ErrConstraintViolation, pqErr.Message)
		}
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("%w: %s", store.ErrStoreUnavailable, err.Error())
	}
	return err
}
