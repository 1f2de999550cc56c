package accounts

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresStore persists account activity in PostgreSQL. It owns the
// login_attempts and account_events tables the fraud history provider
// reads from.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed account activity store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the account activity tables if they don't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS login_attempts (
			id          BIGSERIAL PRIMARY KEY,
			user_id     BIGINT NOT NULL,
			ip          VARCHAR(45) NOT NULL,
			result      VARCHAR(10) NOT NULL CHECK (result IN ('success', 'fail')),
			occurred_at TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_login_attempts_user_time
			ON login_attempts (user_id, occurred_at DESC);

		CREATE TABLE IF NOT EXISTS account_events (
			id          BIGSERIAL PRIMARY KEY,
			user_id     BIGINT NOT NULL,
			action      VARCHAR(20) NOT NULL,
			field       VARCHAR(40) NOT NULL DEFAULT '',
			occurred_at TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_account_events_user_time
			ON account_events (user_id, occurred_at DESC);
	`)
	return err
}

func (s *PostgresStore) AddLogin(ctx context.Context, userID int64, ip, result string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO login_attempts (user_id, ip, result, occurred_at)
		VALUES ($1, $2, $3, $4)
	`, userID, ip, result, at)
	if err != nil {
		return fmt.Errorf("insert login attempt: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddEvent(ctx context.Context, userID int64, action, field string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO account_events (user_id, action, field, occurred_at)
		VALUES ($1, $2, $3, $4)
	`, userID, action, field, at)
	if err != nil {
		return fmt.Errorf("insert account event: %w", err)
	}
	return nil
}
