package fraud

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func addTx(t *testing.T, s *MemoryStore, userID int64, typ TransactionType, value string, at time.Time) {
	t.Helper()
	err := s.AddTransaction(context.Background(), &TransactionRecord{
		ID:         "tx_" + at.Format("150405") + value,
		UserID:     userID,
		Type:       typ,
		Value:      decimal.RequireFromString(value),
		OccurredAt: at,
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
}

func TestMemoryStoreShiftSumDay(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	addTx(t, s, 1, TypePurchase, "100", ts(10, 8, 0))
	addTx(t, s, 1, TypeInstantPayment, "200", ts(10, 12, 0))
	addTx(t, s, 1, TypeReceipt, "999", ts(10, 13, 0))  // not shift-relevant
	addTx(t, s, 1, TypePurchase, "50", ts(10, 23, 30)) // night, out of window
	addTx(t, s, 2, TypePurchase, "400", ts(10, 9, 0))  // other user

	sum, err := s.ShiftSum(ctx, 1, ShiftDay, ts(10, 14, 0))
	if err != nil {
		t.Fatalf("ShiftSum: %v", err)
	}
	if !sum.Equal(decimal.RequireFromString("300")) {
		t.Errorf("day sum = %s, want 300", sum)
	}
}

func TestMemoryStoreShiftSumNightSpansDates(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	// Late evening of the 10th and early morning of the 9th both belong to
	// the night window anchored on the 10th.
	addTx(t, s, 1, TypeWithdrawal, "100", ts(10, 23, 10))
	addTx(t, s, 1, TypeTransfer, "200", ts(9, 2, 0))
	// Early morning of the 10th is outside that window.
	addTx(t, s, 1, TypeTransfer, "400", ts(10, 2, 0))

	sum, err := s.ShiftSum(ctx, 1, ShiftNight, ts(10, 23, 30))
	if err != nil {
		t.Fatalf("ShiftSum: %v", err)
	}
	if !sum.Equal(decimal.RequireFromString("300")) {
		t.Errorf("night sum = %s, want 300", sum)
	}
}

func TestMemoryStoreShiftSumExcludesFutureRows(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	addTx(t, s, 1, TypePurchase, "100", ts(10, 8, 0))
	addTx(t, s, 1, TypePurchase, "500", ts(10, 16, 0)) // after the reference

	sum, err := s.ShiftSum(ctx, 1, ShiftDay, ts(10, 14, 0))
	if err != nil {
		t.Fatalf("ShiftSum: %v", err)
	}
	if !sum.Equal(decimal.RequireFromString("100")) {
		t.Errorf("sum = %s, want 100", sum)
	}
}

func TestMemoryStoreRecentCount(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	base := ts(10, 12, 0)
	addTx(t, s, 1, TypePurchase, "1", base.Add(-4*time.Minute))
	addTx(t, s, 1, TypeTransfer, "1", base.Add(-2*time.Minute))
	addTx(t, s, 1, TypeCashIn, "1", base.Add(-1*time.Minute))    // type not counted
	addTx(t, s, 1, TypePurchase, "1", base.Add(-10*time.Minute)) // outside window

	n, err := s.RecentCount(ctx, 1, 5*time.Minute, VelocityTypes, base)
	if err != nil {
		t.Fatalf("RecentCount: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestMemoryStoreDistinctUsersByIP(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := ts(10, 12, 0)

	// Three users transacting, two of them logged in from the shared IP.
	for i, userID := range []int64{1, 2, 3} {
		addTx(t, s, userID, TypePurchase, "1", base.Add(-time.Duration(i+1)*time.Minute))
	}
	_ = s.AddLogin(ctx, 1, "203.0.113.9", LoginSuccess, base.Add(-3*time.Minute))
	_ = s.AddLogin(ctx, 2, "203.0.113.9", LoginSuccess, base.Add(-2*time.Minute))
	_ = s.AddLogin(ctx, 3, "198.51.100.7", LoginSuccess, base.Add(-2*time.Minute))

	n, err := s.DistinctUsersByIP(ctx, "203.0.113.9", 5*time.Minute, VelocityTypes, base)
	if err != nil {
		t.Fatalf("DistinctUsersByIP: %v", err)
	}
	if n != 2 {
		t.Errorf("distinct users = %d, want 2", n)
	}
}

func TestMemoryStoreMostRecentDeposit(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := ts(10, 12, 0)

	addTx(t, s, 1, TypeCashIn, "500", base.Add(-40*time.Minute))
	addTx(t, s, 1, TypeCashIn, "950", base.Add(-7*time.Minute))

	dep, err := s.MostRecentDeposit(ctx, 1, time.Hour, base)
	if err != nil {
		t.Fatalf("MostRecentDeposit: %v", err)
	}
	if dep == nil {
		t.Fatal("expected a deposit")
	}
	if !dep.Value.Equal(decimal.RequireFromString("950")) || dep.MinutesAgo != 7 {
		t.Errorf("deposit = %+v", dep)
	}

	// Nothing inside the lookback: nil, no error.
	dep, err = s.MostRecentDeposit(ctx, 2, time.Hour, base)
	if err != nil || dep != nil {
		t.Errorf("expected nil deposit, got %+v err %v", dep, err)
	}
}

func TestMemoryStoreRegisterFraudUpserts(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.RegisterFraud(ctx, "tx_1", "first reason"); err != nil {
		t.Fatalf("RegisterFraud: %v", err)
	}
	if err := s.RegisterFraud(ctx, "tx_1", "updated reason"); err != nil {
		t.Fatalf("RegisterFraud: %v", err)
	}

	frauds, err := s.ListFrauds(ctx, 10)
	if err != nil {
		t.Fatalf("ListFrauds: %v", err)
	}
	if len(frauds) != 1 {
		t.Fatalf("expected 1 record after re-registration, got %d", len(frauds))
	}
	if frauds[0].Reasons != "updated reason" {
		t.Errorf("reasons = %q", frauds[0].Reasons)
	}

	rec, err := s.GetFraud(ctx, "tx_1")
	if err != nil || rec == nil {
		t.Fatalf("GetFraud: rec=%v err=%v", rec, err)
	}
	if rec.Reasons != "updated reason" {
		t.Errorf("reasons = %q", rec.Reasons)
	}
}

func TestMemoryStoreUserLimitsFallback(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	l, err := s.UserLimits(ctx, 42)
	if err != nil {
		t.Fatalf("UserLimits: %v", err)
	}
	if !l.DayLimit.Equal(DefaultDayLimit) || !l.NightLimit.Equal(DefaultNightLimit) {
		t.Errorf("expected default limits, got %+v", l)
	}

	custom := UserLimits{
		UserID:     42,
		DayLimit:   decimal.RequireFromString("20000"),
		NightLimit: decimal.RequireFromString("8000"),
	}
	if err := s.PutUserLimits(ctx, custom); err != nil {
		t.Fatalf("PutUserLimits: %v", err)
	}
	l, err = s.UserLimits(ctx, 42)
	if err != nil {
		t.Fatalf("UserLimits: %v", err)
	}
	if !l.DayLimit.Equal(custom.DayLimit) {
		t.Errorf("day limit = %s", l.DayLimit)
	}
}

func TestMemoryStoreListLimitAttempts(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := s.RegisterLimitAttempt(ctx, &LimitAttempt{
			UserID:         1,
			AttemptedTotal: decimal.NewFromInt(int64(10000 + i)),
			Limit:          DefaultDayLimit,
			Shift:          ShiftDay,
			At:             ts(10, 10+i, 0),
		})
		if err != nil {
			t.Fatalf("RegisterLimitAttempt: %v", err)
		}
	}

	attempts, err := s.ListLimitAttempts(ctx, 1, 2)
	if err != nil {
		t.Fatalf("ListLimitAttempts: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}
	// Newest first.
	if !attempts[0].AttemptedTotal.Equal(decimal.NewFromInt(10002)) {
		t.Errorf("first attempt total = %s", attempts[0].AttemptedTotal)
	}
}

func TestMemoryStoreRecentCountIncludesWindowEdge(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	base := ts(10, 12, 0)
	// Exactly window-old rows are still inside the trailing window.
	addTx(t, s, 1, TypePurchase, "1", base.Add(-5*time.Minute))
	addTx(t, s, 1, TypePurchase, "1", base)

	n, err := s.RecentCount(ctx, 1, 5*time.Minute, VelocityTypes, base)
	if err != nil {
		t.Fatalf("RecentCount: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2 (window edge is inclusive)", n)
	}
}

func TestMemoryStoreFailedLoginsIncludesWindowEdge(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	base := ts(10, 12, 0)
	_ = s.AddLogin(ctx, 1, "10.0.0.1", LoginFail, base.Add(-30*time.Minute))
	_ = s.AddLogin(ctx, 1, "10.0.0.1", LoginFail, base.Add(-10*time.Minute))
	_ = s.AddLogin(ctx, 1, "10.0.0.1", LoginFail, base)

	n, err := s.FailedLogins(ctx, 1, 30*time.Minute, base)
	if err != nil {
		t.Fatalf("FailedLogins: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3 (window edge is inclusive)", n)
	}
}
