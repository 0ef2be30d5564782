// ABOUTME: Store interface and data types for ember persistence
// ABOUTME: Defines UserProgress and the Store interface for database operations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// UserProgress is the durable progression record for one user.
// Badges are append-only and unique; XP never decreases.
type UserProgress struct {
	UserID       string
	XP           int
	Level        int
	LastActivity time.Time
	Badges       []string
}

// Clone returns a deep copy so callers can mutate freely.
func (p *UserProgress) Clone() *UserProgress {
	cp := *p
	cp.Badges = append([]string(nil), p.Badges...)
	return &cp
}

// HasBadge reports whether the badge text is already unlocked.
func (p *UserProgress) HasBadge(badge string) bool {
	for _, b := range p.Badges {
		if b == badge {
			return true
		}
	}
	return false
}

// Store defines the interface for progression and preference persistence
type Store interface {
	// Progression ledger
	LoadProgress(ctx context.Context) (map[string]*UserProgress, error)
	SaveProgress(ctx context.Context, progress *UserProgress) error
	ResetProgress(ctx context.Context) error

	// Persona preferences (durable across restarts)
	GetPersonaPref(ctx context.Context, userID string) (string, error)
	SetPersonaPref(ctx context.Context, userID, personaID string) error
	ClearPersonaPref(ctx context.Context, userID string) error

	Close() error
}
