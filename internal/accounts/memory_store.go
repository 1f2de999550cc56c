package accounts

import (
	"context"
	"time"

	"github.com/Diego-Anjos/Forsakenscan-Projeto/internal/fraud"
)

// MemoryStore records account activity in the shared in-memory history.
type MemoryStore struct {
	mem *fraud.MemoryStore
}

// NewMemoryStore creates an account activity store over the shared in-memory history.
func NewMemoryStore(mem *fraud.MemoryStore) *MemoryStore {
	return &MemoryStore{mem: mem}
}

func (s *MemoryStore) AddLogin(ctx context.Context, userID int64, ip, result string, at time.Time) error {
	return s.mem.AddLogin(ctx, userID, ip, result, at)
}

func (s *MemoryStore) AddEvent(ctx context.Context, userID int64, action, field string, at time.Time) error {
	return s.mem.AddAccountEvent(ctx, userID, action, field, at)
}
