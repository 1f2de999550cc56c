package realtime

import (
	"context"

	"github.com/Diego-Anjos/Forsakenscan-Projeto/internal/fraud"
)

// AuditSink decorates a fraud.AuditSink so every recorded limit breach is
// also pushed to subscribed WebSocket clients. Fraud alerts are published
// separately by the transaction service after the verdict commits, so
// RegisterFraud passes through untouched.
type AuditSink struct {
	next fraud.AuditSink
	hub  *Hub
}

// NewAuditSink wraps next, publishing limit attempts to hub.
func NewAuditSink(next fraud.AuditSink, hub *Hub) *AuditSink {
	return &AuditSink{next: next, hub: hub}
}

// RegisterLimitAttempt records the attempt and, if the write succeeded,
// notifies subscribers. The audit record is the source of truth; nothing
// is pushed for an attempt that was not persisted.
func (s *AuditSink) RegisterLimitAttempt(ctx context.Context, attempt *fraud.LimitAttempt) error {
	if err := s.next.RegisterLimitAttempt(ctx, attempt); err != nil {
		return err
	}
	s.hub.NotifyLimitAttempt(attempt)
	return nil
}

func (s *AuditSink) RegisterFraud(ctx context.Context, transactionID, reasons string) error {
	return s.next.RegisterFraud(ctx, transactionID, reasons)
}
