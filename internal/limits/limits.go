// Package limits manages per-user day and night spending limits.
//
// Users without configured limits fall back to the engine defaults, so a
// missing row is never an error.
package limits

import (
	"context"

	"github.com/Diego-Anjos/Forsakenscan-Projeto/internal/fraud"
)

// SetRequest is the request body for configuring a user's limits.
type SetRequest struct {
	DayLimit   string `json:"day_limit" binding:"required"`
	NightLimit string `json:"night_limit" binding:"required"`
}

// Store persists per-user limit configuration.
type Store interface {
	// Get returns the configured limits and whether a row exists.
	Get(ctx context.Context, userID int64) (fraud.UserLimits, bool, error)
	// Set upserts the user's limits.
	Set(ctx context.Context, l fraud.UserLimits) error
}
