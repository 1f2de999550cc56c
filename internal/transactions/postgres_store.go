package transactions

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Diego-Anjos/Forsakenscan-Projeto/internal/fraud"
)

// PostgresStore persists transactions in PostgreSQL. It owns the
// transactions table the fraud history provider reads from.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed transaction store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the transactions table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id          VARCHAR(40) PRIMARY KEY,
			user_id     BIGINT NOT NULL,
			type        VARCHAR(20) NOT NULL,
			value       NUMERIC(14,2) NOT NULL,
			ip          VARCHAR(45) NOT NULL DEFAULT '',
			occurred_at TIMESTAMPTZ NOT NULL,
			suspicious  BOOLEAN NOT NULL DEFAULT FALSE,
			reasons     TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_transactions_user_time
			ON transactions (user_id, occurred_at DESC);

		CREATE INDEX IF NOT EXISTS idx_transactions_flagged
			ON transactions (occurred_at DESC) WHERE suspicious;
	`)
	return err
}

func (s *PostgresStore) Insert(ctx context.Context, rec *fraud.TransactionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, type, value, ip, occurred_at, suspicious, reasons)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rec.ID, rec.UserID, string(rec.Type), rec.Value.StringFixed(2),
		rec.IP, rec.OccurredAt, rec.Suspicious, rec.Reasons)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) ByUser(ctx context.Context, userID int64, limit int) ([]*fraud.TransactionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, value, ip, occurred_at, suspicious, reasons
		FROM transactions
		WHERE user_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanTransactions(rows)
}

func (s *PostgresStore) Flagged(ctx context.Context, limit int) ([]*fraud.TransactionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, value, ip, occurred_at, suspicious, reasons
		FROM transactions
		WHERE suspicious
		ORDER BY occurred_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list flagged transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]*fraud.TransactionRecord, error) {
	var result []*fraud.TransactionRecord
	for rows.Next() {
		var (
			rec   fraud.TransactionRecord
			typ   string
			value string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &typ, &value, &rec.IP,
			&rec.OccurredAt, &rec.Suspicious, &rec.Reasons); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		v, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("scan transaction value: %w", err)
		}
		rec.Type = fraud.TransactionType(typ)
		rec.Value = v
		result = append(result, &rec)
	}
	return result, rows.Err()
}
