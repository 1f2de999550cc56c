package transactions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Diego-Anjos/Forsakenscan-Projeto/internal/fraud"
)

func newMemoryService(t *testing.T, failClosed bool) (*Service, *fraud.MemoryStore) {
	t.Helper()
	mem := fraud.NewMemoryStore()
	engine := fraud.NewEngine(mem, mem)
	svc := NewService(NewMemoryStore(mem), engine, mem, nil, failClosed, slog.Default())
	return svc, mem
}

func dayTime(hour, minute int) time.Time {
	return time.Date(2026, 3, 10, hour, minute, 0, 0, time.UTC)
}

func submitReq(userID int64, value, typ string, at time.Time) *SubmitRequest {
	return &SubmitRequest{
		UserID:     userID,
		Value:      value,
		Type:       typ,
		OccurredAt: &at,
	}
}

func TestSubmitCleanTransaction(t *testing.T) {
	svc, _ := newMemoryService(t, true)

	rec, err := svc.Submit(context.Background(), submitReq(1, "100.00", "Compra", dayTime(14, 0)))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if rec.Suspicious {
		t.Errorf("verdict should be clean, reasons=%q", rec.Reasons)
	}
	if rec.ID == "" || rec.ID[:3] != "tx_" {
		t.Errorf("id = %q", rec.ID)
	}

	txs, err := svc.ByUser(context.Background(), 1, 10)
	if err != nil || len(txs) != 1 {
		t.Fatalf("ByUser: txs=%d err=%v", len(txs), err)
	}
}

func TestSubmitValidation(t *testing.T) {
	svc, _ := newMemoryService(t, true)
	ctx := context.Background()

	_, err := svc.Submit(ctx, submitReq(1, "100.00", "Depósito", dayTime(14, 0)))
	if !errors.Is(err, ErrInvalidType) {
		t.Errorf("unknown type: err = %v", err)
	}

	for _, value := range []string{"abc", "-5", "0"} {
		_, err := svc.Submit(ctx, submitReq(1, value, "Compra", dayTime(14, 0)))
		if !errors.Is(err, ErrInvalidValue) {
			t.Errorf("value %q: err = %v", value, err)
		}
	}
}

func TestSubmitFlagsAndRegistersFraud(t *testing.T) {
	svc, mem := newMemoryService(t, true)
	ctx := context.Background()

	// A large Cash-In into an account with no history trips the
	// fresh-account rule.
	rec, err := svc.Submit(ctx, submitReq(7, "6000.00", "Cash-In", dayTime(10, 0)))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !rec.Suspicious {
		t.Fatal("expected flagged transaction")
	}
	if rec.Reasons != "Cash-In alto em conta sem histórico" {
		t.Errorf("reasons = %q", rec.Reasons)
	}

	fr, err := mem.GetFraud(ctx, rec.ID)
	if err != nil || fr == nil {
		t.Fatalf("GetFraud: rec=%v err=%v", fr, err)
	}
	if fr.Reasons != rec.Reasons {
		t.Errorf("fraud reasons = %q", fr.Reasons)
	}

	flagged, err := svc.Flagged(ctx, 10)
	if err != nil || len(flagged) != 1 {
		t.Fatalf("Flagged: n=%d err=%v", len(flagged), err)
	}
}

// brokenProvider fails every read with the fatal sentinel.
type brokenProvider struct {
	fraud.HistoryProvider
}

func (brokenProvider) UserLimits(context.Context, int64) (fraud.UserLimits, error) {
	return fraud.UserLimits{}, fmt.Errorf("dial: %w", fraud.ErrUnavailable)
}

func (brokenProvider) RecentCount(context.Context, int64, time.Duration, []fraud.TransactionType, time.Time) (int, error) {
	return 0, fmt.Errorf("dial: %w", fraud.ErrUnavailable)
}

func TestSubmitFailClosed(t *testing.T) {
	mem := fraud.NewMemoryStore()
	engine := fraud.NewEngine(brokenProvider{}, mem)
	svc := NewService(NewMemoryStore(mem), engine, mem, nil, true, slog.Default())

	_, err := svc.Submit(context.Background(), submitReq(1, "100.00", "Compra", dayTime(14, 0)))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	// Nothing committed.
	txs, _ := svc.ByUser(context.Background(), 1, 10)
	if len(txs) != 0 {
		t.Errorf("no transaction should be committed, got %d", len(txs))
	}
}

func TestSubmitFailOpen(t *testing.T) {
	mem := fraud.NewMemoryStore()
	engine := fraud.NewEngine(brokenProvider{}, mem)
	svc := NewService(NewMemoryStore(mem), engine, mem, nil, false, slog.Default())

	rec, err := svc.Submit(context.Background(), submitReq(1, "100.00", "Compra", dayTime(14, 0)))
	if err != nil {
		t.Fatalf("fail-open should commit: %v", err)
	}
	if rec.Suspicious {
		t.Error("unevaluated transactions are committed clean")
	}
}

// Concurrent same-user submissions must be serialized: the engine's history
// read and the commit happen atomically per user, so the number of clean
// transactions can never exceed what the limit actually fits.
func TestSubmitSerializesPerUser(t *testing.T) {
	svc, _ := newMemoryService(t, true)
	ctx := context.Background()

	const (
		workers = 20
		value   = "600.00"
	)
	at := dayTime(14, 0)

	var wg sync.WaitGroup
	results := make([]*fraud.TransactionRecord, workers)
	errs := make([]error, workers)

	// PIX counts toward the shift limit but not toward velocity, so the
	// only rule in play is the one whose invariant we are probing.
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Submit(ctx, submitReq(1, value, "PIX", at))
		}(i)
	}
	wg.Wait()

	clean := 0
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if !results[i].Suspicious {
			clean++
		}
	}

	// 600 * 16 = 9600 fits under the 10000 default day limit; a 17th clean
	// commit would prove the evaluate-then-insert window raced.
	if clean != 16 {
		t.Errorf("clean transactions = %d, want exactly 16", clean)
	}

	cleanTotal := decimal.NewFromInt(int64(clean)).Mul(decimal.RequireFromString(value))
	if cleanTotal.GreaterThan(fraud.DefaultDayLimit) {
		t.Errorf("clean total %s exceeds the day limit", cleanTotal)
	}
}

// Re-submitting the evaluation of an already-flagged transaction must not
// duplicate its audit record.
func TestRegisterFraudIdempotentViaService(t *testing.T) {
	svc, mem := newMemoryService(t, true)
	ctx := context.Background()

	rec, err := svc.Submit(ctx, submitReq(7, "6000.00", "Cash-In", dayTime(10, 0)))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !rec.Suspicious {
		t.Fatal("expected flagged transaction")
	}

	// Simulate a replayed registration for the same transaction.
	if err := mem.RegisterFraud(ctx, rec.ID, rec.Reasons); err != nil {
		t.Fatalf("RegisterFraud: %v", err)
	}

	frauds, err := mem.ListFrauds(ctx, 10)
	if err != nil {
		t.Fatalf("ListFrauds: %v", err)
	}
	if len(frauds) != 1 {
		t.Errorf("expected 1 fraud record, got %d", len(frauds))
	}
}
