package core

import (
	"context"
	"time"
)

type UserTracking struct {
	UserID        string    `json:"user_id"`
	Counter       uint64    `json:"counter"`
	Seed          string    `json:"-"`
	TotalPayments uint64    `json:"total_payments"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type UserTrackingStore interface {
	// GetOrInit returns the tracking row of the user, creating it with counter 0
	// and the given sealed seed when absent. A concurrent initializer that wins
	// the race has its row returned instead.
	GetOrInit(ctx context.Context, userID, seed string) (*UserTracking, error)
	Find(ctx context.Context, userID string) (*UserTracking, error)
	// IncrementCounter advances the counter from `from` to `from+1` and fails
	// with ErrConflict if another caller already moved it.
	IncrementCounter(ctx context.Context, userID string, from uint64) (uint64, error)
}
