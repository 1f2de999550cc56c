package limits

import (
	"context"

	"github.com/Diego-Anjos/Forsakenscan-Projeto/internal/fraud"
)

// MemoryStore stores limits in the shared in-memory history so the engine
// sees configuration changes immediately.
type MemoryStore struct {
	mem *fraud.MemoryStore
}

// NewMemoryStore creates a limit store over the shared in-memory history.
func NewMemoryStore(mem *fraud.MemoryStore) *MemoryStore {
	return &MemoryStore{mem: mem}
}

func (s *MemoryStore) Get(ctx context.Context, userID int64) (fraud.UserLimits, bool, error) {
	return s.mem.GetUserLimits(ctx, userID)
}

func (s *MemoryStore) Set(ctx context.Context, l fraud.UserLimits) error {
	return s.mem.PutUserLimits(ctx, l)
}
