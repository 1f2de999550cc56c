//go:build integration

package fraud

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) (*PostgresStore, *sql.DB, func()) {
	t.Helper()

	dbURL := os.Getenv("POSTGRES_URL")
	if dbURL == "" {
		t.Skip("POSTGRES_URL not set, skipping integration test")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	store := NewPostgresStore(db)
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	// The provider reads tables owned by the other domain stores.
	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id          VARCHAR(40) PRIMARY KEY,
			user_id     BIGINT NOT NULL,
			type        VARCHAR(20) NOT NULL,
			value       NUMERIC(14,2) NOT NULL,
			ip          VARCHAR(45) NOT NULL DEFAULT '',
			occurred_at TIMESTAMPTZ NOT NULL,
			suspicious  BOOLEAN NOT NULL DEFAULT FALSE,
			reasons     TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS login_attempts (
			id          BIGSERIAL PRIMARY KEY,
			user_id     BIGINT NOT NULL,
			ip          VARCHAR(45) NOT NULL,
			result      VARCHAR(10) NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS account_events (
			id          BIGSERIAL PRIMARY KEY,
			user_id     BIGINT NOT NULL,
			action      VARCHAR(20) NOT NULL,
			field       VARCHAR(40) NOT NULL DEFAULT '',
			occurred_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS user_limits (
			user_id     BIGINT PRIMARY KEY,
			day_limit   NUMERIC(14,2) NOT NULL,
			night_limit NUMERIC(14,2) NOT NULL
		);
	`)
	if err != nil {
		t.Fatalf("Failed to create domain tables: %v", err)
	}

	cleanup := func() {
		for _, table := range []string{
			"fraud_records", "limit_attempts", "user_limits",
			"account_events", "login_attempts", "transactions",
		} {
			_, _ = db.Exec("DELETE FROM " + table)
		}
		_ = db.Close()
	}
	return store, db, cleanup
}

func insertTx(t *testing.T, db *sql.DB, id string, userID int64, typ TransactionType, value string, at time.Time) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO transactions (id, user_id, type, value, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id, userID, string(typ), value, at)
	if err != nil {
		t.Fatalf("insert transaction: %v", err)
	}
}

func TestPostgresShiftSumNight(t *testing.T) {
	store, db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	ref := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	insertTx(t, db, "tx_n1", 1, TypeWithdrawal, "100.00", time.Date(2026, 3, 10, 23, 10, 0, 0, time.UTC))
	insertTx(t, db, "tx_n2", 1, TypeTransfer, "200.00", time.Date(2026, 3, 9, 2, 0, 0, 0, time.UTC))
	insertTx(t, db, "tx_n3", 1, TypeTransfer, "400.00", time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC))

	sum, err := store.ShiftSum(ctx, 1, ShiftNight, ref)
	if err != nil {
		t.Fatalf("ShiftSum: %v", err)
	}
	if !sum.Equal(decimal.RequireFromString("300")) {
		t.Errorf("night sum = %s, want 300", sum)
	}
}

func TestPostgresUserLimitsFallback(t *testing.T) {
	store, db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	l, err := store.UserLimits(ctx, 999)
	if err != nil {
		t.Fatalf("UserLimits: %v", err)
	}
	if !l.DayLimit.Equal(DefaultDayLimit) {
		t.Errorf("expected default day limit, got %s", l.DayLimit)
	}

	_, err = db.Exec(`INSERT INTO user_limits (user_id, day_limit, night_limit) VALUES (999, 20000, 8000)`)
	if err != nil {
		t.Fatalf("insert limits: %v", err)
	}
	l, err = store.UserLimits(ctx, 999)
	if err != nil {
		t.Fatalf("UserLimits: %v", err)
	}
	if !l.DayLimit.Equal(decimal.NewFromInt(20000)) {
		t.Errorf("day limit = %s", l.DayLimit)
	}
}

func TestPostgresRegisterFraudUpserts(t *testing.T) {
	store, _, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.RegisterFraud(ctx, "tx_up", "first"); err != nil {
		t.Fatalf("RegisterFraud: %v", err)
	}
	if err := store.RegisterFraud(ctx, "tx_up", "second"); err != nil {
		t.Fatalf("RegisterFraud: %v", err)
	}

	frauds, err := store.ListFrauds(ctx, 10)
	if err != nil {
		t.Fatalf("ListFrauds: %v", err)
	}
	if len(frauds) != 1 {
		t.Fatalf("expected 1 record, got %d", len(frauds))
	}
	if frauds[0].Reasons != "second" {
		t.Errorf("reasons = %q", frauds[0].Reasons)
	}
}

func TestPostgresLimitAttemptRoundTrip(t *testing.T) {
	store, _, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	attempt := &LimitAttempt{
		UserID:         5,
		AttemptedTotal: decimal.RequireFromString("10100.00"),
		Limit:          decimal.RequireFromString("10000.00"),
		Shift:          ShiftDay,
		At:             time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
	}
	if err := store.RegisterLimitAttempt(ctx, attempt); err != nil {
		t.Fatalf("RegisterLimitAttempt: %v", err)
	}

	attempts, err := store.ListLimitAttempts(ctx, 5, 10)
	if err != nil {
		t.Fatalf("ListLimitAttempts: %v", err)
	}
	if len(attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(attempts))
	}
	got := attempts[0]
	if !got.AttemptedTotal.Equal(attempt.AttemptedTotal) || got.Shift != ShiftDay {
		t.Errorf("attempt = %+v", got)
	}
}

func TestPostgresDistinctUsersByIP(t *testing.T) {
	store, db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	ref := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	for i, userID := range []int64{1, 2, 3} {
		insertTx(t, db, []string{"tx_a", "tx_b", "tx_c"}[i], userID, TypePurchase, "1.00",
			ref.Add(-time.Duration(i+1)*time.Minute))
	}
	mustExec := func(query string, args ...any) {
		t.Helper()
		if _, err := db.Exec(query, args...); err != nil {
			t.Fatalf("exec: %v", err)
		}
	}
	mustExec(`INSERT INTO login_attempts (user_id, ip, result, occurred_at) VALUES (1, '203.0.113.9', 'success', $1)`, ref.Add(-3*time.Minute))
	mustExec(`INSERT INTO login_attempts (user_id, ip, result, occurred_at) VALUES (2, '203.0.113.9', 'success', $1)`, ref.Add(-2*time.Minute))
	mustExec(`INSERT INTO login_attempts (user_id, ip, result, occurred_at) VALUES (3, '198.51.100.7', 'success', $1)`, ref.Add(-2*time.Minute))

	n, err := store.DistinctUsersByIP(ctx, "203.0.113.9", 5*time.Minute, VelocityTypes, ref)
	if err != nil {
		t.Fatalf("DistinctUsersByIP: %v", err)
	}
	if n != 2 {
		t.Errorf("distinct users = %d, want 2", n)
	}
}

func TestPostgresRecentCountIncludesWindowEdge(t *testing.T) {
	store, db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	ref := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	insertTx(t, db, "tx_edge", 1, TypePurchase, "1.00", ref.Add(-5*time.Minute))
	insertTx(t, db, "tx_now", 1, TypePurchase, "1.00", ref)

	n, err := store.RecentCount(ctx, 1, 5*time.Minute, VelocityTypes, ref)
	if err != nil {
		t.Fatalf("RecentCount: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2 (window edge is inclusive)", n)
	}
}
