// Package accounts ingests account activity the fraud rules correlate with
// transactions: login attempts and profile or password change events.
package accounts

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidResult = errors.New("login result must be \"success\" or \"fail\"")
	ErrInvalidAction = errors.New("unknown account event action")
	ErrMissingField  = errors.New("profile updates must name the changed field")
)

// LoginRequest is the request body for recording a login attempt.
type LoginRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	IP     string `json:"ip" binding:"required"`
	Result string `json:"result" binding:"required"`
	// OccurredAt defaults to the server clock when omitted.
	OccurredAt *time.Time `json:"occurred_at"`
}

// EventRequest is the request body for recording an account event.
type EventRequest struct {
	Action string `json:"action" binding:"required"`
	// Field names the changed profile field for profile_update events.
	Field      string     `json:"field"`
	OccurredAt *time.Time `json:"occurred_at"`
}

// Store persists account activity.
type Store interface {
	AddLogin(ctx context.Context, userID int64, ip, result string, at time.Time) error
	AddEvent(ctx context.Context, userID int64, action, field string, at time.Time) error
}
