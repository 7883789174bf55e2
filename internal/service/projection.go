package service

import (
	"github.com/fableweave/fableweave/internal/game"
)

// project writes computed winners into the shared world and read-model
// fields. Called outside the winner-computation transaction; any error here
// is logged by the caller and never unwinds the stored winners.
func (svc *GameService) project(s *game.GameSession, state game.GameState, winners []game.TextSubmission) error {
	if len(winners) == 0 {
		return nil
	}

	switch state {
	case game.StateDescribeWorld:
		s.Map.Description = winners[0].CurrentText

	case game.StateDescribeEntity:
		s.Map.EntityDescription = winners[0].CurrentText
		if s.Map.EntityName == "" {
			s.Map.EntityName = firstWords(winners[0].CurrentText, 4)
		}

	case game.StateWriteLocations:
		for i := range winners {
			if i >= len(s.Map.Locations) {
				break
			}
			s.Map.Locations[i].Description = winners[i].CurrentText
		}

	case game.StateWriteOccupations:
		for i := range s.Map.Occupations {
			s.Map.Occupations[i].Text = winners[i%len(winners)].CurrentText
		}

	case game.StatePreamble:
		s.Map.Preamble = winners[0].CurrentText

	case game.StateEpilogue:
		s.Map.Epilogue = winners[0].CurrentText

	case game.StateSetEncounters:
		ranked := make([]*game.TextSubmission, len(winners))
		for i := range winners {
			ranked[i] = &winners[i]
		}
		entity := &game.Encounter{Label: s.Map.EntityName, SubmissionID: winners[0].ID}
		s.Board.Cells = game.PlaceEncounters(ranked, entity, svc.rng)

	case game.StateWritePrompts, game.StateWritePromptsAgain:
		stories := s.RoundStories(s.Round)
		for i := range winners {
			if i >= len(stories) {
				break
			}
			stories[i].Prompt = winners[i].CurrentText
		}
		attachToActiveEncounter(s, stories)

	case game.StateWriteOptions, game.StateWriteOptionsAgain:
		for i := range winners {
			applyOptionText(s, &winners[i], false)
		}

	case game.StateRitual:
		for i := range winners {
			w := &winners[i]
			if w.OutcomeType == nil {
				continue
			}
			switch w.OutcomeType.ID {
			case game.BucketSuccess:
				s.Map.SuccessText = w.CurrentText
			case game.BucketNeutral:
				s.Map.NeutralText = w.CurrentText
			case game.BucketFailure:
				s.Map.FailureText = w.CurrentText
			}
			if p := s.Player(w.AuthorID); p != nil {
				p.RitualPoints++
			}
		}

	case game.StateHowDoesThisResolve:
		for i := range winners {
			applyOptionText(s, &winners[i], true)
		}
	}
	return nil
}

// applyOptionText writes a winner's text onto the story option its outcome
// tag names: the option prompt itself, or its resolution text.
func applyOptionText(s *game.GameSession, w *game.TextSubmission, resolution bool) {
	if w.OutcomeType == nil {
		return
	}
	for _, st := range s.Stories {
		opt := st.Option(w.OutcomeType.ID)
		if opt == nil {
			continue
		}
		if resolution {
			opt.ResultText = w.CurrentText
		} else {
			opt.Text = w.CurrentText
		}
		return
	}
}

// attachToActiveEncounter links the freshest story to the encounter the
// active player currently occupies, if it has none yet.
func attachToActiveEncounter(s *game.GameSession, stories []*game.Story) {
	ap := s.Player(s.ActivePlayerID)
	if ap == nil || len(stories) == 0 {
		return
	}
	enc := s.Board.Cells[ap.Position]
	if enc == nil || enc.StoryID != "" {
		return
	}
	enc.StoryID = stories[0].ID
	stories[0].EncounterCell = ap.Position
}

// firstWords truncates text to its first n words for use as a short name.
func firstWords(text string, n int) string {
	count := 0
	for i, r := range text {
		if r == ' ' {
			count++
			if count == n {
				return text[:i]
			}
		}
	}
	return text
}
