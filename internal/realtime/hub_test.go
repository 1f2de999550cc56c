package realtime

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Diego-Anjos/Forsakenscan-Projeto/internal/fraud"
)

func testHub() *Hub {
	return NewHub(slog.Default())
}

func flaggedRecord(userID int64) *fraud.TransactionRecord {
	return &fraud.TransactionRecord{
		ID:         "tx_test",
		UserID:     userID,
		Type:       fraud.TypeWithdrawal,
		Value:      decimal.RequireFromString("900.00"),
		OccurredAt: time.Now(),
		Suspicious: true,
		Reasons:    "Saque de 900.00 após depósito há 7 minutos",
	}
}

// ---------------------------------------------------------------------------
// shouldSend tests
// ---------------------------------------------------------------------------

func TestShouldSend_AllEvents(t *testing.T) {
	h := testHub()
	client := &Client{sub: Subscription{AllEvents: true}}

	event := &Event{Type: EventFraudAlert, Timestamp: time.Now()}
	if !h.shouldSend(client, event) {
		t.Error("AllEvents client should receive all events")
	}
}

func TestShouldSend_EventTypeFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		EventTypes: []EventType{EventFraudAlert},
	}}

	alertEvent := &Event{Type: EventFraudAlert}
	limitEvent := &Event{Type: EventLimitAttempt}

	if !h.shouldSend(client, alertEvent) {
		t.Error("Should receive fraud_alert events")
	}
	if h.shouldSend(client, limitEvent) {
		t.Error("Should NOT receive limit_attempt events")
	}
}

func TestShouldSend_UserFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		UserIDs: []int64{42},
	}}

	matching := &Event{Type: EventFraudAlert, Data: flaggedRecord(42)}
	notMatching := &Event{Type: EventFraudAlert, Data: flaggedRecord(7)}
	matchingAttempt := &Event{
		Type: EventLimitAttempt,
		Data: &fraud.LimitAttempt{UserID: 42, Shift: fraud.ShiftDay},
	}

	if !h.shouldSend(client, matching) {
		t.Error("Should match on the flagged transaction's user")
	}
	if h.shouldSend(client, notMatching) {
		t.Error("Should NOT match other users")
	}
	if !h.shouldSend(client, matchingAttempt) {
		t.Error("Should match on the limit attempt's user")
	}
}

func TestShouldSend_EmptySubscription(t *testing.T) {
	h := testHub()

	// No filters, not AllEvents
	client := &Client{sub: Subscription{}}

	event := &Event{Type: EventFraudAlert}
	if !h.shouldSend(client, event) {
		t.Error("Empty subscription (no filters) should receive events")
	}
}

func TestShouldSend_UnknownDataShape(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		UserIDs: []int64{42},
	}}

	// The user filter can only inspect known payload types; anything else
	// passes through rather than crashing.
	event := &Event{
		Type: EventFraudAlert,
		Data: "string data not a record",
	}

	if !h.shouldSend(client, event) {
		t.Error("Unknown payload should pass through the user filter")
	}
}

// ---------------------------------------------------------------------------
// Hub lifecycle tests
// ---------------------------------------------------------------------------

func TestHub_Stats_Initial(t *testing.T) {
	h := testHub()

	stats := h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients, got %v", stats["connectedClients"])
	}
	if stats["totalEvents"].(int64) != 0 {
		t.Errorf("Expected 0 total events, got %v", stats["totalEvents"])
	}
}

func TestHub_BroadcastAndStats(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Broadcast an event
	h.Broadcast(&Event{Type: EventFraudAlert, Timestamp: time.Now()})
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["totalEvents"].(int64) != 1 {
		t.Errorf("Expected 1 total event, got %v", stats["totalEvents"])
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["connectedClients"].(int) != 1 {
		t.Errorf("Expected 1 connected client, got %v", stats["connectedClients"])
	}
	if stats["peakClients"].(int64) != 1 {
		t.Errorf("Expected peak 1, got %v", stats["peakClients"])
	}

	h.unregister <- client
	time.Sleep(50 * time.Millisecond)

	stats = h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients after unregister, got %v", stats["connectedClients"])
	}
	// Peak should still be 1
	if stats["peakClients"].(int64) != 1 {
		t.Errorf("Expected peak still 1, got %v", stats["peakClients"])
	}
}

func TestHub_NotifyFraudReachesClient(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	h.NotifyFraud(flaggedRecord(1))

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("Expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for fraud alert")
	}
}

func TestHub_ContextCancellation(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
		// Hub stopped
	case <-time.After(2 * time.Second):
		t.Error("Hub did not stop after context cancellation")
	}
}

func TestHub_FilteredBroadcast(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Client only wants limit attempts
	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{EventTypes: []EventType{EventLimitAttempt}},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	// Send a fraud alert (should be filtered out)
	h.NotifyFraud(flaggedRecord(1))
	time.Sleep(100 * time.Millisecond)

	select {
	case <-client.send:
		t.Error("Client should NOT receive fraud alert")
	default:
		// Good - filtered out
	}

	// Send a limit attempt (should be received)
	h.NotifyLimitAttempt(&fraud.LimitAttempt{
		UserID:         1,
		AttemptedTotal: decimal.RequireFromString("10100.00"),
		Limit:          fraud.DefaultDayLimit,
		Shift:          fraud.ShiftDay,
		At:             time.Now(),
	})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("Expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("Client should receive limit attempt event")
	}
}
