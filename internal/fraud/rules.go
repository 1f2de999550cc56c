package fraud

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Diego-Anjos/Forsakenscan-Projeto/internal/metrics"
)

// Rule is a single fraud heuristic. Evaluate returns whether the rule
// triggered and a human-readable reason. A returned error means the rule
// could not be evaluated; the engine decides whether to degrade or abort.
// Rules must be side-effect free, except for the shift-limit rule which
// registers the breach attempt before reporting triggered.
type Rule interface {
	Name() string
	// Priority orders triggered reasons in the merged verdict. Lower
	// values come first; ties keep registration order.
	Priority() int
	Evaluate(ctx context.Context, fact *TransactionFact, hist HistoryProvider) (bool, string, error)
}

// DefaultRules returns the seven built-in rules in registration order.
// The shift-limit rule needs the audit sink to record breach attempts.
func DefaultRules(audit AuditSink) []Rule {
	return []Rule{
		&ShiftLimitRule{Audit: audit},
		&VelocityRule{},
		&LoginFailuresRule{},
		&PasswordChurnRule{},
		&SensitiveChangeRule{},
		&FreshAccountDepositRule{},
		&LayeringRule{},
	}
}

// ---------------------------------------------------------------------------
// ShiftLimitRule: projected shift total exceeds the user's day/night limit
// ---------------------------------------------------------------------------

// ShiftLimitRule enforces per-shift spending limits. It is the only rule
// with a side effect: every breach appends a LimitAttempt before the rule
// reports triggered.
type ShiftLimitRule struct {
	Audit AuditSink
}

func (r *ShiftLimitRule) Name() string  { return "shift_limit" }
func (r *ShiftLimitRule) Priority() int { return 0 }

func (r *ShiftLimitRule) Evaluate(ctx context.Context, fact *TransactionFact, hist HistoryProvider) (bool, string, error) {
	limits, err := hist.UserLimits(ctx, fact.UserID)
	if err != nil {
		return false, "", err
	}

	shift := ShiftOf(fact.Timestamp)
	sum, err := hist.ShiftSum(ctx, fact.UserID, shift, fact.Timestamp)
	if err != nil {
		return false, "", err
	}

	total := sum.Add(fact.Value)
	limit := limits.ForShift(shift)
	if total.LessThanOrEqual(limit) {
		return false, "", nil
	}

	attempt := &LimitAttempt{
		UserID:         fact.UserID,
		AttemptedTotal: total,
		Limit:          limit,
		Shift:          shift,
		At:             fact.Timestamp,
	}
	if err := r.Audit.RegisterLimitAttempt(ctx, attempt); err != nil {
		return false, "", err
	}
	metrics.LimitBreachesTotal.WithLabelValues(string(shift)).Inc()

	reason := fmt.Sprintf("Limite %s excedido (R$ %s > %s)",
		shift, groupAmount(total), groupAmount(limit))
	return true, reason, nil
}

// groupAmount renders an amount with two decimals and comma thousands
// grouping ("10,100.00"). The breach reason is user-facing contract, so
// the grouping matters.
func groupAmount(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac := s[:len(s)-3], s[len(s)-3:]
	for i := len(intPart) - 3; i > 0; i -= 3 {
		intPart = intPart[:i] + "," + intPart[i:]
	}
	if neg {
		intPart = "-" + intPart
	}
	return intPart + frac
}

// ---------------------------------------------------------------------------
// VelocityRule: 5+ transactions in 5 minutes, same user or same IP
// ---------------------------------------------------------------------------

const (
	velocityWindow       = 5 * time.Minute
	velocitySameUserMin  = 4 // prior transactions; the candidate is the 5th
	velocityDistinctUser = 5
)

type VelocityRule struct{}

func (r *VelocityRule) Name() string  { return "velocity" }
func (r *VelocityRule) Priority() int { return 1 }

func (r *VelocityRule) Evaluate(ctx context.Context, fact *TransactionFact, hist HistoryProvider) (bool, string, error) {
	n, err := hist.RecentCount(ctx, fact.UserID, velocityWindow, VelocityTypes, fact.Timestamp)
	if err != nil {
		return false, "", err
	}
	if n >= velocitySameUserMin {
		return true, "5+ transações do mesmo usuário em 5 minutos", nil
	}

	if fact.IP == "" {
		return false, "", nil
	}
	distinct, err := hist.DistinctUsersByIP(ctx, fact.IP, velocityWindow, VelocityTypes, fact.Timestamp)
	if err != nil {
		return false, "", err
	}
	if distinct >= velocityDistinctUser {
		return true, "5+ transações de diferentes usuários (mesmo IP) em 5 minutos", nil
	}
	return false, "", nil
}

// ---------------------------------------------------------------------------
// LoginFailuresRule: 3+ failed logins in 30 minutes
// ---------------------------------------------------------------------------

type LoginFailuresRule struct{}

func (r *LoginFailuresRule) Name() string  { return "login_failures" }
func (r *LoginFailuresRule) Priority() int { return 2 }

func (r *LoginFailuresRule) Evaluate(ctx context.Context, fact *TransactionFact, hist HistoryProvider) (bool, string, error) {
	n, err := hist.FailedLogins(ctx, fact.UserID, 30*time.Minute, fact.Timestamp)
	if err != nil {
		return false, "", err
	}
	if n >= 3 {
		return true, "3+ tentativas de login falhas em 30 minutos", nil
	}
	return false, "", nil
}

// ---------------------------------------------------------------------------
// PasswordChurnRule: 3+ password changes in 7 days
// ---------------------------------------------------------------------------

type PasswordChurnRule struct{}

func (r *PasswordChurnRule) Name() string  { return "password_churn" }
func (r *PasswordChurnRule) Priority() int { return 2 }

func (r *PasswordChurnRule) Evaluate(ctx context.Context, fact *TransactionFact, hist HistoryProvider) (bool, string, error) {
	n, err := hist.PasswordChanges(ctx, fact.UserID, 7*24*time.Hour, fact.Timestamp)
	if err != nil {
		return false, "", err
	}
	if n >= 3 {
		return true, fmt.Sprintf("%d alterações de senha em 7 dias", n), nil
	}
	return false, "", nil
}

// ---------------------------------------------------------------------------
// SensitiveChangeRule: email/phone change in the last hour + outgoing money
// ---------------------------------------------------------------------------

type SensitiveChangeRule struct{}

func (r *SensitiveChangeRule) Name() string  { return "sensitive_change" }
func (r *SensitiveChangeRule) Priority() int { return 2 }

func (r *SensitiveChangeRule) Evaluate(ctx context.Context, fact *TransactionFact, hist HistoryProvider) (bool, string, error) {
	if fact.Type != TypeWithdrawal && fact.Type != TypeTransfer {
		return false, "", nil
	}
	n, err := hist.ProfileFieldChanges(ctx, fact.UserID, SensitiveProfileFields, time.Hour, fact.Timestamp)
	if err != nil {
		return false, "", err
	}
	if n > 0 {
		return true, "Alteração de dados sensíveis seguida de saque", nil
	}
	return false, "", nil
}

// ---------------------------------------------------------------------------
// FreshAccountDepositRule: large Cash-In with no 7-day history
// ---------------------------------------------------------------------------

var freshDepositThreshold = decimal.NewFromInt(5_000)

type FreshAccountDepositRule struct{}

func (r *FreshAccountDepositRule) Name() string  { return "fresh_account_deposit" }
func (r *FreshAccountDepositRule) Priority() int { return 2 }

func (r *FreshAccountDepositRule) Evaluate(ctx context.Context, fact *TransactionFact, hist HistoryProvider) (bool, string, error) {
	if fact.Type != TypeCashIn || !fact.Value.GreaterThan(freshDepositThreshold) {
		return false, "", nil
	}
	has, err := hist.HasPriorTransactions(ctx, fact.UserID, fact.Timestamp, 7*24*time.Hour)
	if err != nil {
		return false, "", err
	}
	if !has {
		return true, "Cash-In alto em conta sem histórico", nil
	}
	return false, "", nil
}

// ---------------------------------------------------------------------------
// LayeringRule: withdrawal shortly after a deposit of similar size
// ---------------------------------------------------------------------------

const (
	layeringLookback   = time.Hour
	layeringMaxMinutes = 10
)

// layeringRatio is the fraction of the deposit a withdrawal must reach.
var layeringRatio = decimal.New(9, -1) // 0.9

type LayeringRule struct{}

func (r *LayeringRule) Name() string  { return "rapid_in_out" }
func (r *LayeringRule) Priority() int { return 2 }

func (r *LayeringRule) Evaluate(ctx context.Context, fact *TransactionFact, hist HistoryProvider) (bool, string, error) {
	if fact.Type != TypeWithdrawal && fact.Type != TypeTransfer {
		return false, "", nil
	}
	dep, err := hist.MostRecentDeposit(ctx, fact.UserID, layeringLookback, fact.Timestamp)
	if err != nil {
		return false, "", err
	}
	if dep == nil || dep.MinutesAgo >= layeringMaxMinutes {
		return false, "", nil
	}
	if fact.Value.GreaterThanOrEqual(dep.Value.Mul(layeringRatio)) {
		reason := fmt.Sprintf("Saque de %s após depósito há %d minutos",
			fact.Value.StringFixed(2), dep.MinutesAgo)
		return true, reason, nil
	}
	return false, "", nil
}
