package fraud

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// MemoryStore is an in-memory history provider and audit sink for demo
// mode and tests. It also holds the committed transaction rows, so the
// other domain packages wrap it as their storage backend when no database
// is configured and evaluations see the same history the service commits.
type MemoryStore struct {
	mu            sync.RWMutex
	txs           []*TransactionRecord
	logins        []loginRecord
	events        []accountEvent
	limits        map[int64]UserLimits
	limitAttempts []*LimitAttempt
	frauds        map[string]*FraudRecord
	fraudOrder    []string
}

type loginRecord struct {
	userID int64
	ip     string
	result string
	at     time.Time
}

type accountEvent struct {
	userID int64
	action string
	field  string
	at     time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		limits: make(map[int64]UserLimits),
		frauds: make(map[string]*FraudRecord),
	}
}

// ---------------------------------------------------------------------------
// Mutators (used by the domain stores wrapping this in memory mode)
// ---------------------------------------------------------------------------

// AddTransaction appends a committed transaction row.
func (s *MemoryStore) AddTransaction(_ context.Context, rec *TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.txs = append(s.txs, &cp)
	return nil
}

// AddLogin appends a login attempt record.
func (s *MemoryStore) AddLogin(_ context.Context, userID int64, ip, result string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logins = append(s.logins, loginRecord{userID: userID, ip: ip, result: result, at: at})
	return nil
}

// AddAccountEvent appends a profile-change or password-change event.
func (s *MemoryStore) AddAccountEvent(_ context.Context, userID int64, action, field string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, accountEvent{userID: userID, action: action, field: field, at: at})
	return nil
}

// PutUserLimits stores a user's configured shift limits.
func (s *MemoryStore) PutUserLimits(_ context.Context, l UserLimits) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limits[l.UserID] = l
	return nil
}

// GetUserLimits returns the raw configured limits without default fallback.
func (s *MemoryStore) GetUserLimits(_ context.Context, userID int64) (UserLimits, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.limits[userID]
	return l, ok, nil
}

// ---------------------------------------------------------------------------
// Read side for handlers
// ---------------------------------------------------------------------------

// TransactionsByUser returns the user's transactions, newest first.
func (s *MemoryStore) TransactionsByUser(_ context.Context, userID int64, limit int) ([]*TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*TransactionRecord
	for i := len(s.txs) - 1; i >= 0 && len(result) < limit; i-- {
		if s.txs[i].UserID == userID {
			cp := *s.txs[i]
			result = append(result, &cp)
		}
	}
	return result, nil
}

// FlaggedTransactions returns suspicious transactions, newest first.
func (s *MemoryStore) FlaggedTransactions(_ context.Context, limit int) ([]*TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*TransactionRecord
	for i := len(s.txs) - 1; i >= 0 && len(result) < limit; i-- {
		if s.txs[i].Suspicious {
			cp := *s.txs[i]
			result = append(result, &cp)
		}
	}
	return result, nil
}

// ListFrauds returns registered fraud records, newest registration first.
func (s *MemoryStore) ListFrauds(_ context.Context, limit int) ([]*FraudRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*FraudRecord
	for i := len(s.fraudOrder) - 1; i >= 0 && len(result) < limit; i-- {
		cp := *s.frauds[s.fraudOrder[i]]
		result = append(result, &cp)
	}
	return result, nil
}

// GetFraud returns the fraud record for a transaction id, or nil.
func (s *MemoryStore) GetFraud(_ context.Context, transactionID string) (*FraudRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.frauds[transactionID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

// ListLimitAttempts returns a user's limit-breach attempts, newest first.
func (s *MemoryStore) ListLimitAttempts(_ context.Context, userID int64, limit int) ([]*LimitAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*LimitAttempt
	for i := len(s.limitAttempts) - 1; i >= 0 && len(result) < limit; i-- {
		if s.limitAttempts[i].UserID == userID {
			cp := *s.limitAttempts[i]
			result = append(result, &cp)
		}
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// HistoryProvider
// ---------------------------------------------------------------------------

func (s *MemoryStore) UserLimits(_ context.Context, userID int64) (UserLimits, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if l, ok := s.limits[userID]; ok {
		return l, nil
	}
	return DefaultLimits(userID), nil
}

func (s *MemoryStore) ShiftSum(_ context.Context, userID int64, shift Shift, ref time.Time) (decimal.Decimal, error) {
	windows := ShiftWindows(shift, ref)

	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := decimal.Zero
	for _, tx := range s.txs {
		if tx.UserID != userID || tx.OccurredAt.After(ref) {
			continue
		}
		if !typeIn(tx.Type, ShiftRelevantTypes) {
			continue
		}
		for _, w := range windows {
			if w.Contains(tx.OccurredAt) {
				sum = sum.Add(tx.Value)
				break
			}
		}
	}
	return sum, nil
}

func (s *MemoryStore) RecentCount(_ context.Context, userID int64, window time.Duration, types []TransactionType, ref time.Time) (int, error) {
	cutoff := ref.Add(-window)

	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, tx := range s.txs {
		if tx.UserID == userID && typeIn(tx.Type, types) && inWindow(tx.OccurredAt, cutoff, ref) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) DistinctUsersByIP(_ context.Context, ip string, window time.Duration, types []TransactionType, ref time.Time) (int, error) {
	cutoff := ref.Add(-window)

	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[int64]bool)
	for _, tx := range s.txs {
		if seen[tx.UserID] || !typeIn(tx.Type, types) || !inWindow(tx.OccurredAt, cutoff, ref) {
			continue
		}
		if s.lastLoginIPLocked(tx.UserID, cutoff, ref) == ip {
			seen[tx.UserID] = true
		}
	}
	return len(seen), nil
}

// lastLoginIPLocked returns the IP of the user's most recent login inside
// the window, or "". Caller holds the read lock.
func (s *MemoryStore) lastLoginIPLocked(userID int64, cutoff, ref time.Time) string {
	var best time.Time
	var ip string
	for _, l := range s.logins {
		if l.userID != userID || !inWindow(l.at, cutoff, ref) {
			continue
		}
		if ip == "" || l.at.After(best) {
			best = l.at
			ip = l.ip
		}
	}
	return ip
}

func (s *MemoryStore) FailedLogins(_ context.Context, userID int64, window time.Duration, ref time.Time) (int, error) {
	cutoff := ref.Add(-window)

	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, l := range s.logins {
		if l.userID == userID && l.result == LoginFail && inWindow(l.at, cutoff, ref) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) PasswordChanges(_ context.Context, userID int64, window time.Duration, ref time.Time) (int, error) {
	cutoff := ref.Add(-window)

	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, ev := range s.events {
		if ev.userID == userID && ev.action == ActionPasswordChange && inWindow(ev.at, cutoff, ref) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) ProfileFieldChanges(_ context.Context, userID int64, fields []string, window time.Duration, ref time.Time) (int, error) {
	cutoff := ref.Add(-window)

	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, ev := range s.events {
		if ev.userID != userID || ev.action != ActionProfileUpdate || !inWindow(ev.at, cutoff, ref) {
			continue
		}
		for _, f := range fields {
			if ev.field == f {
				count++
				break
			}
		}
	}
	return count, nil
}

func (s *MemoryStore) HasPriorTransactions(_ context.Context, userID int64, before time.Time, window time.Duration) (bool, error) {
	cutoff := before.Add(-window)

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tx := range s.txs {
		if tx.UserID == userID && tx.OccurredAt.Before(before) && !tx.OccurredAt.Before(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) MostRecentDeposit(_ context.Context, userID int64, within time.Duration, before time.Time) (*Deposit, error) {
	cutoff := before.Add(-within)

	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *TransactionRecord
	for _, tx := range s.txs {
		if tx.UserID != userID || tx.Type != TypeCashIn {
			continue
		}
		if tx.OccurredAt.Before(cutoff) || !tx.OccurredAt.Before(before) {
			continue
		}
		if best == nil || tx.OccurredAt.After(best.OccurredAt) {
			best = tx
		}
	}
	if best == nil {
		return nil, nil
	}
	return &Deposit{
		Value:      best.Value,
		MinutesAgo: int(before.Sub(best.OccurredAt).Minutes()),
	}, nil
}

// ---------------------------------------------------------------------------
// AuditSink
// ---------------------------------------------------------------------------

func (s *MemoryStore) RegisterLimitAttempt(_ context.Context, attempt *LimitAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *attempt
	s.limitAttempts = append(s.limitAttempts, &cp)
	return nil
}

func (s *MemoryStore) RegisterFraud(_ context.Context, transactionID, reasons string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.frauds[transactionID]; !ok {
		s.fraudOrder = append(s.fraudOrder, transactionID)
	}
	s.frauds[transactionID] = &FraudRecord{
		TransactionID: transactionID,
		Reasons:       reasons,
		DetectedAt:    time.Now(),
	}
	return nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func typeIn(t TransactionType, types []TransactionType) bool {
	for _, c := range types {
		if t == c {
			return true
		}
	}
	return false
}

// inWindow reports whether t falls in the trailing window [cutoff, ref].
// The cutoff edge counts: a row exactly window-old is still inside.
func inWindow(t, cutoff, ref time.Time) bool {
	return !t.Before(cutoff) && !t.After(ref)
}
