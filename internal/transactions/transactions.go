// Package transactions implements transaction ingestion for Forsakenscan.
//
// Every submitted transaction is evaluated by the fraud engine against the
// user's history, persisted together with its verdict, and registered in the
// fraud audit trail when suspicious. Evaluation and commit run serially per
// user so concurrent submissions cannot slip past the shift limit.
package transactions

import (
	"context"
	"errors"
	"time"

	"github.com/Diego-Anjos/Forsakenscan-Projeto/internal/fraud"
)

var (
	ErrInvalidType  = errors.New("unknown transaction type")
	ErrInvalidValue = errors.New("transaction value must be a positive decimal")
	ErrUnavailable  = errors.New("fraud evaluation unavailable")
)

// SubmitRequest is the request body for submitting a transaction.
type SubmitRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	Value  string `json:"value" binding:"required"`
	Type   string `json:"type" binding:"required"`
	IP     string `json:"ip"`
	// OccurredAt defaults to the server clock when omitted.
	OccurredAt *time.Time `json:"occurred_at"`
}

// Store persists committed transactions.
type Store interface {
	Insert(ctx context.Context, rec *fraud.TransactionRecord) error
	ByUser(ctx context.Context, userID int64, limit int) ([]*fraud.TransactionRecord, error)
	Flagged(ctx context.Context, limit int) ([]*fraud.TransactionRecord, error)
}

// AuditReader exposes the fraud audit trail for the HTTP API.
type AuditReader interface {
	ListFrauds(ctx context.Context, limit int) ([]*fraud.FraudRecord, error)
	GetFraud(ctx context.Context, transactionID string) (*fraud.FraudRecord, error)
	ListLimitAttempts(ctx context.Context, userID int64, limit int) ([]*fraud.LimitAttempt, error)
}

// Notifier pushes fraud alerts to connected clients.
type Notifier interface {
	NotifyFraud(rec *fraud.TransactionRecord)
}
