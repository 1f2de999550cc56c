// Package fraud implements the transaction risk evaluation engine.
//
// Every transaction is evaluated at write time against seven independent
// heuristics (shift spending limits, velocity, login failures, password
// churn, sensitive profile changes, fresh-account deposits and rapid
// in/out layering). Each rule reads the account's recent behavioral
// history through a HistoryProvider and the engine merges triggered rules
// into a single Verdict with human-readable reasons.
package fraud

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the kind of a transaction. Values are the wire/DB
// strings used by the platform (pt-BR product vocabulary).
type TransactionType string

const (
	TypePurchase       TransactionType = "Compra"
	TypePayment        TransactionType = "Pagamento"
	TypeTransfer       TransactionType = "Transferência"
	TypeWithdrawal     TransactionType = "Saque"
	TypeInstantPayment TransactionType = "PIX"
	TypeCashIn         TransactionType = "Cash-In"
	TypeReceipt        TransactionType = "Recebimento"
)

// KnownTypes lists every valid transaction type.
var KnownTypes = []TransactionType{
	TypePurchase, TypePayment, TypeTransfer, TypeWithdrawal,
	TypeInstantPayment, TypeCashIn, TypeReceipt,
}

// ValidType reports whether t is a known transaction type.
func ValidType(t TransactionType) bool {
	for _, k := range KnownTypes {
		if t == k {
			return true
		}
	}
	return false
}

// ShiftRelevantTypes are the types counted toward per-shift spending limits.
var ShiftRelevantTypes = []TransactionType{
	TypePurchase, TypePayment, TypeTransfer, TypeWithdrawal, TypeInstantPayment,
}

// VelocityTypes are the types counted by the velocity rule.
var VelocityTypes = []TransactionType{TypePurchase, TypePayment, TypeTransfer}

// Shift is the limit-accounting time window a transaction falls into.
type Shift string

const (
	ShiftDay   Shift = "dia"   // [06:00:00, 22:59:59]
	ShiftNight Shift = "noite" // [23:00:00, 05:59:59] next day
)

// ShiftOf classifies a timestamp into the day or night shift.
func ShiftOf(t time.Time) Shift {
	h := t.Hour()
	if h >= 6 && h <= 22 {
		return ShiftDay
	}
	return ShiftNight
}

// Interval is a half-open time interval [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the interval.
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// ShiftWindows returns the intervals that make up the given shift relative
// to ref. The day shift is a single interval on ref's calendar date. The
// night shift crosses midnight and is modeled as the union of two half-open
// intervals: ref's date from 23:00 to midnight, plus the previous date from
// 00:00 to 06:00. It must never be collapsed into one date-bound range.
func ShiftWindows(shift Shift, ref time.Time) []Interval {
	y, m, d := ref.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, ref.Location())

	if shift == ShiftDay {
		return []Interval{{
			Start: midnight.Add(6 * time.Hour),
			End:   midnight.Add(23 * time.Hour),
		}}
	}
	return []Interval{
		{Start: midnight.Add(23 * time.Hour), End: midnight.Add(24 * time.Hour)},
		{Start: midnight.Add(-24 * time.Hour), End: midnight.Add(-18 * time.Hour)},
	}
}

// Default spending limits applied when a user has no configured row.
var (
	DefaultDayLimit   = decimal.NewFromInt(10_000)
	DefaultNightLimit = decimal.NewFromInt(5_000)
)

// UserLimits is a user's per-shift spending limit configuration.
// Mutated only by administrative flows, never by the engine.
type UserLimits struct {
	UserID     int64           `json:"userId"`
	DayLimit   decimal.Decimal `json:"dayLimit"`
	NightLimit decimal.Decimal `json:"nightLimit"`
}

// DefaultLimits returns the documented fallback limits for a user.
func DefaultLimits(userID int64) UserLimits {
	return UserLimits{UserID: userID, DayLimit: DefaultDayLimit, NightLimit: DefaultNightLimit}
}

// ForShift returns the limit that applies to the given shift.
func (l UserLimits) ForShift(s Shift) decimal.Decimal {
	if s == ShiftDay {
		return l.DayLimit
	}
	return l.NightLimit
}

// TransactionFact is the immutable input to an evaluation: the transaction
// as submitted, before it is persisted.
type TransactionFact struct {
	UserID    int64
	Value     decimal.Decimal
	Type      TransactionType
	Timestamp time.Time
	IP        string // optional submission IP
}

// TransactionRecord is a committed transaction row with the verdict folded in.
type TransactionRecord struct {
	ID         string          `json:"id"`
	UserID     int64           `json:"userId"`
	Type       TransactionType `json:"type"`
	Value      decimal.Decimal `json:"value"`
	IP         string          `json:"ip,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
	Suspicious bool            `json:"suspicious"`
	Reasons    string          `json:"reasons,omitempty"`
}

// Verdict is the engine's output: a suspicious flag plus the combined
// human-readable reasons of every triggered rule.
type Verdict struct {
	Suspicious bool   `json:"suspicious"`
	Reasons    string `json:"reasons"`
}

// LimitAttempt records an attempt to exceed a shift spending limit.
// Append-only, written by the shift-limit rule on breach.
type LimitAttempt struct {
	UserID         int64           `json:"userId"`
	AttemptedTotal decimal.Decimal `json:"attemptedTotal"`
	Limit          decimal.Decimal `json:"limit"`
	Shift          Shift           `json:"shift"`
	At             time.Time       `json:"at"`
}

// FraudRecord is the persisted outcome of a suspicious evaluation,
// keyed by transaction id with upsert semantics.
type FraudRecord struct {
	TransactionID string    `json:"transactionId"`
	Reasons       string    `json:"reasons"`
	DetectedAt    time.Time `json:"detectedAt"`
}

// Deposit describes the most recent Cash-In found for a user.
type Deposit struct {
	Value      decimal.Decimal
	MinutesAgo int
}

// Account-event actions recorded by account-management flows and read by
// the history provider.
const (
	ActionPasswordChange = "password_change"
	ActionProfileUpdate  = "profile_update"
)

// SensitiveProfileFields are the profile fields whose recent modification,
// combined with an outgoing transaction, trips the sensitive-change rule.
var SensitiveProfileFields = []string{"email", "phone"}

// Login attempt results.
const (
	LoginSuccess = "success"
	LoginFail    = "fail"
)

// ErrUnavailable marks the history provider as wholly unreachable. The
// engine surfaces it to the caller instead of degrading: a transaction
// that could not be evaluated is never silently reported as clean.
var ErrUnavailable = errors.New("history provider unreachable")

// DataAccessError is a transient query failure inside a single provider
// read. Rules hitting it degrade to not-triggered; the engine logs it and
// carries on with the remaining rules.
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("fraud: %s: %v", e.Op, e.Err)
}

func (e *DataAccessError) Unwrap() error { return e.Err }

// IsDataAccess reports whether err is (or wraps) a DataAccessError.
func IsDataAccess(err error) bool {
	var dae *DataAccessError
	return errors.As(err, &dae)
}
