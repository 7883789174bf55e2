// Package profile persists adventure maps into per-profile save slots.
package profile

import (
	"context"

	"github.com/fableweave/fableweave/internal/game"
)

// Store looks up and attaches adventure-map save slots for user profiles.
type Store interface {
	SaveAdventureMap(ctx context.Context, profileID string, m game.AdventureMap) error
	LoadAdventureMap(ctx context.Context, profileID string) (*game.AdventureMap, error)
}
