package transactions

import (
	"context"

	"github.com/Diego-Anjos/Forsakenscan-Projeto/internal/fraud"
)

// MemoryStore is the in-memory transaction store for demo mode and tests.
// It wraps the shared fraud.MemoryStore so committed transactions are
// immediately visible to the history provider.
type MemoryStore struct {
	mem *fraud.MemoryStore
}

// NewMemoryStore creates a transaction store over the shared in-memory history.
func NewMemoryStore(mem *fraud.MemoryStore) *MemoryStore {
	return &MemoryStore{mem: mem}
}

func (s *MemoryStore) Insert(ctx context.Context, rec *fraud.TransactionRecord) error {
	return s.mem.AddTransaction(ctx, rec)
}

func (s *MemoryStore) ByUser(ctx context.Context, userID int64, limit int) ([]*fraud.TransactionRecord, error) {
	return s.mem.TransactionsByUser(ctx, userID, limit)
}

func (s *MemoryStore) Flagged(ctx context.Context, limit int) ([]*fraud.TransactionRecord, error) {
	return s.mem.FlaggedTransactions(ctx, limit)
}
