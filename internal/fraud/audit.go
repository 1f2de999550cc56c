package fraud

import "context"

// AuditSink persists the engine's side effects: limit-breach attempts and
// fraud verdicts. Writes must be single-statement inserts/upserts so that
// concurrent breaches for the same user never leave partial records.
type AuditSink interface {
	// RegisterLimitAttempt appends a limit-breach attempt. Pure append,
	// one row per breach.
	RegisterLimitAttempt(ctx context.Context, attempt *LimitAttempt) error

	// RegisterFraud upserts the fraud record for a transaction id.
	// Re-registration overwrites reasons and detection timestamp and
	// never creates a duplicate.
	RegisterFraud(ctx context.Context, transactionID, reasons string) error
}
