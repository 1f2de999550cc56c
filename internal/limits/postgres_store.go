package limits

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Diego-Anjos/Forsakenscan-Projeto/internal/fraud"
)

// PostgresStore persists user limits in PostgreSQL. It owns the user_limits
// table the fraud history provider reads from.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed limit store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the user_limits table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS user_limits (
			user_id     BIGINT PRIMARY KEY,
			day_limit   NUMERIC(14,2) NOT NULL,
			night_limit NUMERIC(14,2) NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, userID int64) (fraud.UserLimits, bool, error) {
	var day, night string
	err := s.db.QueryRowContext(ctx, `
		SELECT day_limit, night_limit FROM user_limits WHERE user_id = $1
	`, userID).Scan(&day, &night)
	if errors.Is(err, sql.ErrNoRows) {
		return fraud.UserLimits{}, false, nil
	}
	if err != nil {
		return fraud.UserLimits{}, false, fmt.Errorf("get user limits: %w", err)
	}

	dayLimit, err := decimal.NewFromString(day)
	if err != nil {
		return fraud.UserLimits{}, false, fmt.Errorf("parse day limit: %w", err)
	}
	nightLimit, err := decimal.NewFromString(night)
	if err != nil {
		return fraud.UserLimits{}, false, fmt.Errorf("parse night limit: %w", err)
	}
	return fraud.UserLimits{UserID: userID, DayLimit: dayLimit, NightLimit: nightLimit}, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, l fraud.UserLimits) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_limits (user_id, day_limit, night_limit, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			day_limit   = EXCLUDED.day_limit,
			night_limit = EXCLUDED.night_limit,
			updated_at  = NOW()
	`, l.UserID, l.DayLimit.StringFixed(2), l.NightLimit.StringFixed(2))
	if err != nil {
		return fmt.Errorf("set user limits: %w", err)
	}
	return nil
}
