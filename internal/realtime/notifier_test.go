package realtime

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Diego-Anjos/Forsakenscan-Projeto/internal/fraud"
)

func testAttempt(userID int64) *fraud.LimitAttempt {
	return &fraud.LimitAttempt{
		UserID:         userID,
		AttemptedTotal: decimal.RequireFromString("10100.00"),
		Limit:          fraud.DefaultDayLimit,
		Shift:          fraud.ShiftDay,
		At:             time.Now(),
	}
}

// runningHubWithClient starts a hub and registers an all-events client.
func runningHubWithClient(t *testing.T) (*Hub, *Client) {
	t.Helper()
	h := NewHub(slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}
	h.register <- client
	time.Sleep(50 * time.Millisecond)
	return h, client
}

func TestAuditSink_RegisteredAttemptReachesSubscribers(t *testing.T) {
	h, client := runningHubWithClient(t)
	mem := fraud.NewMemoryStore()
	sink := NewAuditSink(mem, h)

	if err := sink.RegisterLimitAttempt(context.Background(), testAttempt(5)); err != nil {
		t.Fatalf("RegisterLimitAttempt: %v", err)
	}

	// Recorded in the audit store.
	attempts, err := mem.ListLimitAttempts(context.Background(), 5, 10)
	if err != nil || len(attempts) != 1 {
		t.Fatalf("ListLimitAttempts: n=%d err=%v", len(attempts), err)
	}

	// And pushed to the subscriber.
	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("subscriber did not receive the limit attempt")
	}
}

type failingSink struct{}

func (failingSink) RegisterLimitAttempt(context.Context, *fraud.LimitAttempt) error {
	return errors.New("insert failed")
}

func (failingSink) RegisterFraud(context.Context, string, string) error {
	return errors.New("insert failed")
}

func TestAuditSink_NoEventWhenWriteFails(t *testing.T) {
	h, client := runningHubWithClient(t)
	sink := NewAuditSink(failingSink{}, h)

	err := sink.RegisterLimitAttempt(context.Background(), testAttempt(5))
	if err == nil {
		t.Fatal("expected the write error to propagate")
	}

	time.Sleep(100 * time.Millisecond)
	select {
	case <-client.send:
		t.Error("unpersisted attempt must not be broadcast")
	default:
		// Expected.
	}
}

func TestAuditSink_RegisterFraudPassesThrough(t *testing.T) {
	h, client := runningHubWithClient(t)
	mem := fraud.NewMemoryStore()
	sink := NewAuditSink(mem, h)
	ctx := context.Background()

	if err := sink.RegisterFraud(ctx, "tx_1", "some reason"); err != nil {
		t.Fatalf("RegisterFraud: %v", err)
	}

	rec, err := mem.GetFraud(ctx, "tx_1")
	if err != nil || rec == nil {
		t.Fatalf("GetFraud: rec=%v err=%v", rec, err)
	}

	// The service owns fraud alerts; the sink must not double-publish.
	time.Sleep(100 * time.Millisecond)
	select {
	case <-client.send:
		t.Error("RegisterFraud must not broadcast")
	default:
		// Expected.
	}
}
