package fraud

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Diego-Anjos/Forsakenscan-Projeto/internal/retry"
)

// DefaultQueryTimeout bounds every provider read. A timed-out read is a
// transient DataAccessError, not a fatal one.
const DefaultQueryTimeout = 3 * time.Second

// PostgresStore implements HistoryProvider and AuditSink over PostgreSQL.
// It reads the tables owned by the transactions, accounts and limits
// packages and owns the limit_attempts and fraud_records tables.
type PostgresStore struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// NewPostgresStore creates a PostgreSQL-backed history provider and audit sink.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, queryTimeout: DefaultQueryTimeout}
}

// WithQueryTimeout overrides the per-query timeout.
func (s *PostgresStore) WithQueryTimeout(d time.Duration) *PostgresStore {
	s.queryTimeout = d
	return s
}

// Migrate creates the audit tables if they don't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS limit_attempts (
			id              BIGSERIAL PRIMARY KEY,
			user_id         BIGINT NOT NULL,
			attempted_total NUMERIC(14,2) NOT NULL,
			limit_value     NUMERIC(14,2) NOT NULL,
			shift           VARCHAR(8) NOT NULL CHECK (shift IN ('dia', 'noite')),
			occurred_at     TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_limit_attempts_user
			ON limit_attempts (user_id, occurred_at DESC);

		CREATE TABLE IF NOT EXISTS fraud_records (
			transaction_id VARCHAR(40) PRIMARY KEY,
			reasons        TEXT NOT NULL,
			detected_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	return err
}

// Ping verifies connectivity for health checks.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.queryTimeout)
}

// wrapErr classifies a query failure: connection-level failures become
// ErrUnavailable (fatal, surfaces to the caller), everything else a
// transient DataAccessError the engine degrades on.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if isUnreachable(err) {
		return fmt.Errorf("%s: %w", op, ErrUnavailable)
	}
	return &DataAccessError{Op: op, Err: err}
}

func isUnreachable(err error) bool {
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// ---------------------------------------------------------------------------
// HistoryProvider
// ---------------------------------------------------------------------------

func (s *PostgresStore) UserLimits(ctx context.Context, userID int64) (UserLimits, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var day, night string
	err := s.db.QueryRowContext(ctx, `
		SELECT day_limit, night_limit FROM user_limits WHERE user_id = $1
	`, userID).Scan(&day, &night)
	if errors.Is(err, sql.ErrNoRows) {
		// Missing configuration is not an error.
		return DefaultLimits(userID), nil
	}
	if err != nil {
		return UserLimits{}, wrapErr("user limits", err)
	}

	dayLimit, err := decimal.NewFromString(day)
	if err != nil {
		return UserLimits{}, &DataAccessError{Op: "user limits", Err: err}
	}
	nightLimit, err := decimal.NewFromString(night)
	if err != nil {
		return UserLimits{}, &DataAccessError{Op: "user limits", Err: err}
	}
	return UserLimits{UserID: userID, DayLimit: dayLimit, NightLimit: nightLimit}, nil
}

func (s *PostgresStore) ShiftSum(ctx context.Context, userID int64, shift Shift, ref time.Time) (decimal.Decimal, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	// The night shift is two half-open intervals (23:00 to midnight plus
	// the early-morning block). For the day shift both pairs are the same
	// interval, so the OR collapses.
	windows := ShiftWindows(shift, ref)
	w1 := windows[0]
	w2 := w1
	if len(windows) > 1 {
		w2 = windows[1]
	}

	var sum string
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(value), 0)
		FROM transactions
		WHERE user_id = $1
		  AND type = ANY($2)
		  AND occurred_at <= $3
		  AND (
		        (occurred_at >= $4 AND occurred_at < $5)
		     OR (occurred_at >= $6 AND occurred_at < $7)
		  )
	`, userID, pq.Array(typeStrings(ShiftRelevantTypes)), ref,
		w1.Start, w1.End, w2.Start, w2.End).Scan(&sum)
	if err != nil {
		return decimal.Zero, wrapErr("shift sum", err)
	}

	total, err := decimal.NewFromString(sum)
	if err != nil {
		return decimal.Zero, &DataAccessError{Op: "shift sum", Err: err}
	}
	return total, nil
}

func (s *PostgresStore) RecentCount(ctx context.Context, userID int64, window time.Duration, types []TransactionType, ref time.Time) (int, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM transactions
		WHERE user_id = $1
		  AND type = ANY($2)
		  AND occurred_at >= $3 AND occurred_at <= $4
	`, userID, pq.Array(typeStrings(types)), ref.Add(-window), ref).Scan(&count)
	if err != nil {
		return 0, wrapErr("recent count", err)
	}
	return count, nil
}

func (s *PostgresStore) DistinctUsersByIP(ctx context.Context, ip string, window time.Duration, types []TransactionType, ref time.Time) (int, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	// A transaction's submission IP is inferred from the user's nearest
	// prior login inside the window; transactions carry no IP of their own
	// in history.
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT t.user_id)
		FROM transactions t
		WHERE t.type = ANY($2)
		  AND t.occurred_at >= $3 AND t.occurred_at <= $4
		  AND (
			SELECT l.ip FROM login_attempts l
			WHERE l.user_id = t.user_id
			  AND l.occurred_at >= $3 AND l.occurred_at <= $4
			ORDER BY l.occurred_at DESC
			LIMIT 1
		  ) = $1
	`, ip, pq.Array(typeStrings(types)), ref.Add(-window), ref).Scan(&count)
	if err != nil {
		return 0, wrapErr("distinct users by ip", err)
	}
	return count, nil
}

func (s *PostgresStore) FailedLogins(ctx context.Context, userID int64, window time.Duration, ref time.Time) (int, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM login_attempts
		WHERE user_id = $1
		  AND result = 'fail'
		  AND occurred_at >= $2 AND occurred_at <= $3
	`, userID, ref.Add(-window), ref).Scan(&count)
	if err != nil {
		return 0, wrapErr("failed logins", err)
	}
	return count, nil
}

func (s *PostgresStore) PasswordChanges(ctx context.Context, userID int64, window time.Duration, ref time.Time) (int, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM account_events
		WHERE user_id = $1
		  AND action = $2
		  AND occurred_at >= $3 AND occurred_at <= $4
	`, userID, ActionPasswordChange, ref.Add(-window), ref).Scan(&count)
	if err != nil {
		return 0, wrapErr("password changes", err)
	}
	return count, nil
}

func (s *PostgresStore) ProfileFieldChanges(ctx context.Context, userID int64, fields []string, window time.Duration, ref time.Time) (int, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM account_events
		WHERE user_id = $1
		  AND action = $2
		  AND field = ANY($3)
		  AND occurred_at >= $4 AND occurred_at <= $5
	`, userID, ActionProfileUpdate, pq.Array(fields), ref.Add(-window), ref).Scan(&count)
	if err != nil {
		return 0, wrapErr("profile field changes", err)
	}
	return count, nil
}

func (s *PostgresStore) HasPriorTransactions(ctx context.Context, userID int64, before time.Time, window time.Duration) (bool, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM transactions
			WHERE user_id = $1
			  AND occurred_at < $2 AND occurred_at >= $3
		)
	`, userID, before, before.Add(-window)).Scan(&exists)
	if err != nil {
		return false, wrapErr("prior transactions", err)
	}
	return exists, nil
}

func (s *PostgresStore) MostRecentDeposit(ctx context.Context, userID int64, within time.Duration, before time.Time) (*Deposit, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var value string
	var at time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT value, occurred_at
		FROM transactions
		WHERE user_id = $1
		  AND type = $2
		  AND occurred_at >= $3 AND occurred_at < $4
		ORDER BY occurred_at DESC
		LIMIT 1
	`, userID, string(TypeCashIn), before.Add(-within), before).Scan(&value, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("most recent deposit", err)
	}

	v, err := decimal.NewFromString(value)
	if err != nil {
		return nil, &DataAccessError{Op: "most recent deposit", Err: err}
	}
	return &Deposit{Value: v, MinutesAgo: int(before.Sub(at).Minutes())}, nil
}

// ---------------------------------------------------------------------------
// AuditSink
// ---------------------------------------------------------------------------

func (s *PostgresStore) RegisterLimitAttempt(ctx context.Context, attempt *LimitAttempt) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO limit_attempts (user_id, attempted_total, limit_value, shift, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
	`, attempt.UserID, attempt.AttemptedTotal.StringFixed(2),
		attempt.Limit.StringFixed(2), string(attempt.Shift), attempt.At)
	return wrapErr("register limit attempt", err)
}

func (s *PostgresStore) RegisterFraud(ctx context.Context, transactionID, reasons string) error {
	// Single-statement upsert keyed by transaction id; re-registration
	// overwrites, never duplicates. Retried because losing a fraud record
	// to a transient hiccup is worse than a short delay.
	err := retry.Do(ctx, 3, 50*time.Millisecond, func() error {
		opCtx, cancel := s.opCtx(ctx)
		defer cancel()
		_, err := s.db.ExecContext(opCtx, `
			INSERT INTO fraud_records (transaction_id, reasons, detected_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (transaction_id) DO UPDATE SET
				reasons     = EXCLUDED.reasons,
				detected_at = EXCLUDED.detected_at
		`, transactionID, reasons)
		return err
	})
	return wrapErr("register fraud", err)
}

// ---------------------------------------------------------------------------
// Read side for handlers
// ---------------------------------------------------------------------------

// ListFrauds returns registered fraud records, newest first.
func (s *PostgresStore) ListFrauds(ctx context.Context, limit int) ([]*FraudRecord, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT transaction_id, reasons, detected_at
		FROM fraud_records
		ORDER BY detected_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, wrapErr("list frauds", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*FraudRecord
	for rows.Next() {
		var rec FraudRecord
		if err := rows.Scan(&rec.TransactionID, &rec.Reasons, &rec.DetectedAt); err != nil {
			return nil, wrapErr("list frauds", err)
		}
		result = append(result, &rec)
	}
	return result, rows.Err()
}

// GetFraud returns the fraud record for a transaction id, or nil.
func (s *PostgresStore) GetFraud(ctx context.Context, transactionID string) (*FraudRecord, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var rec FraudRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT transaction_id, reasons, detected_at
		FROM fraud_records
		WHERE transaction_id = $1
	`, transactionID).Scan(&rec.TransactionID, &rec.Reasons, &rec.DetectedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("get fraud", err)
	}
	return &rec, nil
}

// ListLimitAttempts returns a user's limit-breach attempts, newest first.
func (s *PostgresStore) ListLimitAttempts(ctx context.Context, userID int64, limit int) ([]*LimitAttempt, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, attempted_total, limit_value, shift, occurred_at
		FROM limit_attempts
		WHERE user_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, wrapErr("list limit attempts", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*LimitAttempt
	for rows.Next() {
		var (
			a            LimitAttempt
			total, limit string
			shift        string
		)
		if err := rows.Scan(&a.UserID, &total, &limit, &shift, &a.At); err != nil {
			return nil, wrapErr("list limit attempts", err)
		}
		if a.AttemptedTotal, err = decimal.NewFromString(total); err != nil {
			return nil, &DataAccessError{Op: "list limit attempts", Err: err}
		}
		if a.Limit, err = decimal.NewFromString(limit); err != nil {
			return nil, &DataAccessError{Op: "list limit attempts", Err: err}
		}
		a.Shift = Shift(shift)
		result = append(result, &a)
	}
	return result, rows.Err()
}

func typeStrings(types []TransactionType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
