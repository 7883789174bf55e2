// Package narrator seeds collaborative phases with a system-authored
// submission, written under the reserved dungeon author id. Entirely
// best-effort: a failed narration never blocks the game.
package narrator

import (
	"context"
	"fmt"

	"github.com/fableweave/fableweave/internal/game"
)

// Provider produces one narration for a prompt.
type Provider interface {
	Narrate(ctx context.Context, prompt string) (string, error)
}

// PromptFor builds the seeding prompt for a collaborative phase, or ""
// when the phase gets no dungeon submission.
func PromptFor(state game.GameState, s *game.GameSession) string {
	switch state {
	case game.StateDescribeWorld:
		return "Describe, in two sentences, a strange world a band of travelers is about to enter."
	case game.StateDescribeEntity:
		return "Describe, in two sentences, the ancient entity whose will shapes this world."
	case game.StatePreamble:
		return fmt.Sprintf("Write a two-sentence opening narration for an adventure in this world: %s", s.Map.Description)
	case game.StateSetEncounters:
		return fmt.Sprintf("Invent a short encounter the travelers might stumble into near: %s", s.Map.Description)
	case game.StateEpilogue:
		if s.VictoryAchieved {
			return "Write a two-sentence epilogue for a band of travelers who overcame the entity."
		}
		return "Write a two-sentence epilogue for a band of travelers who fell short against the entity."
	}
	return ""
}
