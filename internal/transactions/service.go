package transactions

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Diego-Anjos/Forsakenscan-Projeto/internal/fraud"
	"github.com/Diego-Anjos/Forsakenscan-Projeto/internal/idgen"
	"github.com/Diego-Anjos/Forsakenscan-Projeto/internal/metrics"
	"github.com/Diego-Anjos/Forsakenscan-Projeto/internal/syncutil"
	"github.com/Diego-Anjos/Forsakenscan-Projeto/internal/traces"
)

// Service coordinates evaluate-then-commit for submitted transactions.
//
// Submissions for the same user are serialized on a per-user lock: the
// engine's history read and the subsequent insert happen atomically with
// respect to other submissions by that user. Without this, two concurrent
// transactions would both read the pre-commit shift sum and both pass a
// limit only one of them fits under.
type Service struct {
	store      Store
	engine     *fraud.Engine
	audit      fraud.AuditSink
	notifier   Notifier
	userLocks  *syncutil.ContextShardedMutex
	failClosed bool
	logger     *slog.Logger
}

// NewService creates the transaction service. notifier may be nil.
func NewService(store Store, engine *fraud.Engine, audit fraud.AuditSink, notifier Notifier, failClosed bool, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      store,
		engine:     engine,
		audit:      audit,
		notifier:   notifier,
		userLocks:  syncutil.NewContextShardedMutex(),
		failClosed: failClosed,
		logger:     logger,
	}
}

// Submit validates, evaluates and commits a transaction, returning the
// stored record with its verdict embedded.
func (s *Service) Submit(ctx context.Context, req *SubmitRequest) (*fraud.TransactionRecord, error) {
	typ := fraud.TransactionType(req.Type)
	if !fraud.ValidType(typ) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, req.Type)
	}

	value, err := decimal.NewFromString(req.Value)
	if err != nil || !value.IsPositive() {
		return nil, ErrInvalidValue
	}

	occurredAt := time.Now().UTC()
	if req.OccurredAt != nil {
		occurredAt = req.OccurredAt.UTC()
	}

	ctx, span := traces.StartSpan(ctx, "transactions.submit",
		traces.UserID(req.UserID),
		traces.TransactionType(req.Type),
	)
	defer span.End()

	// Serialize evaluate-then-insert per user.
	unlock, err := s.userLocks.LockContext(ctx, strconv.FormatInt(req.UserID, 10))
	if err != nil {
		return nil, err
	}
	defer unlock()

	fact := &fraud.TransactionFact{
		UserID:    req.UserID,
		Value:     value,
		Type:      typ,
		Timestamp: occurredAt,
		IP:        req.IP,
	}

	verdict, err := s.engine.Evaluate(ctx, fact)
	if err != nil {
		if s.failClosed {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		// Fail-open: commit unevaluated rather than block payments.
		s.logger.Error("fraud evaluation unavailable, accepting unevaluated",
			"user_id", req.UserID, "error", err)
		verdict = &fraud.Verdict{}
	}

	rec := &fraud.TransactionRecord{
		ID:         idgen.WithPrefix("tx_"),
		UserID:     req.UserID,
		Type:       typ,
		Value:      value,
		IP:         req.IP,
		OccurredAt: occurredAt,
		Suspicious: verdict.Suspicious,
		Reasons:    verdict.Reasons,
	}

	if err := s.store.Insert(ctx, rec); err != nil {
		return nil, err
	}

	if rec.Suspicious {
		if err := s.audit.RegisterFraud(ctx, rec.ID, rec.Reasons); err != nil {
			// The transaction is already flagged in its own row; losing the
			// audit entry is logged, not fatal to the submission.
			s.logger.Error("failed to register fraud record",
				"transaction_id", rec.ID, "error", err)
		} else {
			metrics.FraudsRegisteredTotal.Inc()
		}
		s.logger.Info("transaction flagged",
			"transaction_id", rec.ID,
			"user_id", rec.UserID,
			"reasons", rec.Reasons,
		)
		if s.notifier != nil {
			s.notifier.NotifyFraud(rec)
		}
	}

	return rec, nil
}

// ByUser returns a user's transactions, newest first.
func (s *Service) ByUser(ctx context.Context, userID int64, limit int) ([]*fraud.TransactionRecord, error) {
	return s.store.ByUser(ctx, userID, limit)
}

// Flagged returns suspicious transactions, newest first.
func (s *Service) Flagged(ctx context.Context, limit int) ([]*fraud.TransactionRecord, error) {
	return s.store.Flagged(ctx, limit)
}
