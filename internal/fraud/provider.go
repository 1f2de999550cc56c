package fraud

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// HistoryProvider exposes read-only queries against the account's recent
// behavioral history. All reads are as-of the reference time they receive
// (the fact's timestamp), and never include the transaction under
// evaluation, which is not yet persisted when rules run.
//
// Implementations translate transient query failures into *DataAccessError
// and a wholly unreachable backend into ErrUnavailable.
type HistoryProvider interface {
	// UserLimits returns the user's configured shift limits, falling back
	// to DefaultLimits when no row exists. A missing row is not an error.
	UserLimits(ctx context.Context, userID int64) (UserLimits, error)

	// ShiftSum returns the sum of values of shift-relevant transactions
	// committed inside the shift window containing ref.
	ShiftSum(ctx context.Context, userID int64, shift Shift, ref time.Time) (decimal.Decimal, error)

	// RecentCount counts the user's transactions of the given types in the
	// trailing window ending at ref.
	RecentCount(ctx context.Context, userID int64, window time.Duration, types []TransactionType, ref time.Time) (int, error)

	// DistinctUsersByIP counts distinct users that produced transactions of
	// the given types in the trailing window and whose most recent login
	// activity in that window came from ip. The correlation is inferred
	// from login records, not captured at transaction time.
	DistinctUsersByIP(ctx context.Context, ip string, window time.Duration, types []TransactionType, ref time.Time) (int, error)

	// FailedLogins counts failed login attempts for the user in the
	// trailing window ending at ref.
	FailedLogins(ctx context.Context, userID int64, window time.Duration, ref time.Time) (int, error)

	// PasswordChanges counts password-change events for the user in the
	// trailing window ending at ref.
	PasswordChanges(ctx context.Context, userID int64, window time.Duration, ref time.Time) (int, error)

	// ProfileFieldChanges counts profile-update events touching any of the
	// given fields in the trailing window ending at ref.
	ProfileFieldChanges(ctx context.Context, userID int64, fields []string, window time.Duration, ref time.Time) (int, error)

	// HasPriorTransactions reports whether the user committed any
	// transaction in the window of the given length ending just before
	// the `before` timestamp.
	HasPriorTransactions(ctx context.Context, userID int64, before time.Time, window time.Duration) (bool, error)

	// MostRecentDeposit returns the user's most recent Cash-In inside the
	// trailing window ending at before, or nil when there is none.
	MostRecentDeposit(ctx context.Context, userID int64, within time.Duration, before time.Time) (*Deposit, error)
}
