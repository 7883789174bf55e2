// Package store provides the atomic session-document store. Every mutation
// of a game session goes through one read-modify-write unit; concurrent
// writers are serialized by optimistic retries, never by partial merges.
package store

import (
	"context"

	"github.com/fableweave/fableweave/internal/game"
)

// SessionStore is the atomic document store for game sessions, keyed by
// game code.
type SessionStore interface {
	// Get returns a snapshot of the session, or game.ErrSessionNotFound.
	Get(ctx context.Context, code string) (*game.GameSession, error)

	// Create stores a new session document.
	Create(ctx context.Context, s *game.GameSession) error

	// Update runs fn against a fresh snapshot and persists the result
	// atomically. On concurrent conflict the whole read-modify-write is
	// retried from a fresh read; exhausted retries surface game.ErrConflict.
	// An error from fn aborts the update with nothing written.
	Update(ctx context.Context, code string, fn func(*game.GameSession) error) (*game.GameSession, error)
}
