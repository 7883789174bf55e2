package game

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ProfileSaver persists the adventure map into a profile's save slot. Only
// the PREAMBLE transition uses it.
type ProfileSaver interface {
	SaveAdventureMap(ctx context.Context, profileID string, m AdventureMap) error
}

// defaultStatTypes seed each player's stat block when the session's map
// carries none of its own.
var defaultStatTypes = []string{"might", "wits", "heart", "luck"}

// defaultLocationNames template the generated location pool.
var defaultLocationNames = []string{
	"The Sunken Archive", "Gallows Market", "The Whispering Mire",
	"Cinderfall Keep", "The Hollow Orchard", "Saltglass Harbor",
	"The Unlit Chapel", "Wyrmbone Pass", "The Drowned Theatre",
	"Emberlight Foundry",
}

// maxActiveLocations bounds the random sample PREAMBLE keeps in play.
const maxActiveLocations = 6

// victoryPointsPerPlayer scales the session's total-victory threshold.
const victoryPointsPerPlayer = 12

// StateMachine drives a session's phase progression. It mutates the session
// snapshot it is given; the caller owns persisting the result atomically.
type StateMachine struct {
	assigner *AuthorAssigner
	flags    FlagSource
	profiles ProfileSaver
	rng      *Rand
	log      zerolog.Logger
}

func NewStateMachine(assigner *AuthorAssigner, flags FlagSource, profiles ProfileSaver, rng *Rand, log zerolog.Logger) *StateMachine {
	return &StateMachine{assigner: assigner, flags: flags, profiles: profiles, rng: rng, log: log}
}

// Advance moves the session to its next state, running entry side effects,
// and keeps advancing through synthetic states. It refuses to move when the
// persisted state differs from the state the caller expected to leave
// (stale-write guard) and reports whether anything changed. Any side-effect
// error aborts the whole transition; the caller must not persist the
// session in that case.
func (m *StateMachine) Advance(ctx context.Context, s *GameSession, from GameState) (bool, error) {
	if from != "" && s.State != from {
		m.log.Warn().Str("game", s.Code).Str("expected", string(from)).
			Str("actual", string(s.State)).Msg("stale advance refused")
		return false, nil
	}

	advanced := false
	for {
		next := NextState(s.State, s.Round, m.flags)
		if next == s.State {
			return advanced, nil
		}
		if err := m.enter(ctx, s, next); err != nil {
			return false, &TransitionError{GameCode: s.Code, From: s.State, To: next, Err: err}
		}
		s.State = next
		spec := SpecFor(next)
		if spec.Collab && s.Phases[next] == nil {
			s.Phases[next] = NewPhase(next)
		}
		advanced = true
		if !spec.Synthetic {
			return advanced, nil
		}
	}
}

// enter performs the single side effect tied to arriving in a state.
func (m *StateMachine) enter(ctx context.Context, s *GameSession, state GameState) error {
	spec := SpecFor(state)
	if spec.Turn {
		m.startTurns(s)
	}

	switch state {
	case StateGenLocationAuthors:
		m.seedBaseStats(s)
		m.generateLocations(s)
	case StateGenOccupationAuthors:
		m.generateOccupations(s)
	case StateGenPromptAuthors, StateGenPromptAuthorsAgain:
		m.generateStories(s)
	case StateGenOptionAuthors, StateGenOptionAuthorsAgain:
		m.assignOptionAuthors(s)
	case StatePreamble:
		if err := m.persistAndPrune(ctx, s); err != nil {
			return err
		}
	case StateGenEndings:
		m.generateEndings(s)
	case StateNavigateWinner:
		if m.flags != nil && m.flags.Flag(FlagConsolidateNarrative) {
			m.consolidateNarrative(s)
		}
		s.Round++
	}
	return nil
}

func (m *StateMachine) startTurns(s *GameSession) {
	for _, p := range s.Players {
		p.Done = false
	}
	if len(s.Players) > 0 {
		s.ActivePlayerID = s.Players[0].ID // roster keeps join order
	}
}

func (m *StateMachine) seedBaseStats(s *GameSession) {
	if len(s.Map.StatTypes) == 0 {
		s.Map.StatTypes = append([]string{}, defaultStatTypes...)
	}
	for _, p := range s.Players {
		if p.Stats == nil {
			p.Stats = make(map[string]int)
		}
		for _, st := range s.Map.StatTypes {
			if _, ok := p.Stats[st]; !ok {
				p.Stats[st] = 2 + m.rng.Intn(3)
			}
		}
	}
}

func (m *StateMachine) generateLocations(s *GameSession) {
	if len(s.Map.Locations) == 0 {
		n := len(s.Players) + 2
		if n > len(defaultLocationNames) {
			n = len(defaultLocationNames)
		}
		for i := 0; i < n; i++ {
			loc := Location{ID: uuid.NewString(), Name: defaultLocationNames[i]}
			if len(s.Players) > 0 {
				loc.PlayerID = s.Players[i%len(s.Players)].ID
			}
			s.Map.Locations = append(s.Map.Locations, loc)
		}
	}

	items := []AssignItem{}
	for _, loc := range s.Map.Locations {
		if loc.AuthorID != "" {
			continue
		}
		items = append(items, AssignItem{ID: loc.ID, Excluded: []string{loc.PlayerID}})
	}
	result := m.assigner.Assign(s.Players, items)
	for i := range s.Map.Locations {
		if author, ok := result[s.Map.Locations[i].ID]; ok {
			s.Map.Locations[i].AuthorID = author
		}
	}
}

func (m *StateMachine) generateOccupations(s *GameSession) {
	if len(s.Map.Occupations) == 0 {
		for _, p := range s.Players {
			s.Map.Occupations = append(s.Map.Occupations, Occupation{
				ID:       uuid.NewString(),
				PlayerID: p.ID,
			})
		}
	}

	items := []AssignItem{}
	for _, occ := range s.Map.Occupations {
		if occ.AuthorID != "" {
			continue
		}
		items = append(items, AssignItem{ID: occ.ID, Excluded: []string{occ.PlayerID}})
	}
	result := m.assigner.Assign(s.Players, items)
	for i := range s.Map.Occupations {
		if author, ok := result[s.Map.Occupations[i].ID]; ok {
			s.Map.Occupations[i].AuthorID = author
		}
	}
}

// generateStories creates one unauthored story per player for the current
// round and assigns authors, never the player the story concerns. Stories
// from a later round chain to the story the player played last round.
func (m *StateMachine) generateStories(s *GameSession) {
	for _, p := range s.Players {
		story := &Story{
			ID:       uuid.NewString(),
			PlayerID: p.ID,
			Options:  []Option{},
			Round:    s.Round,
		}
		if prev := m.lastPlayedStory(s, p.ID); prev != nil {
			story.PrequelStoryID = prev.ID
		}
		s.Stories = append(s.Stories, story)
	}

	items := []AssignItem{}
	for _, st := range s.Stories {
		if st.AuthorID != "" || st.Round != s.Round {
			continue
		}
		items = append(items, AssignItem{ID: st.ID, Excluded: []string{st.PlayerID}})
	}
	result := m.assigner.Assign(s.Players, items)
	for _, st := range s.Stories {
		if author, ok := result[st.ID]; ok {
			st.AuthorID = author
		}
	}
}

func (m *StateMachine) lastPlayedStory(s *GameSession, playerID string) *Story {
	var last *Story
	for _, st := range s.Stories {
		if st.PlayerID == playerID && st.Visited && st.SelectedOptionID != "" {
			last = st
		}
	}
	return last
}

// assignOptionAuthors gives every current-round story two options and one
// outcome author for both, excluding the story's author and its player.
func (m *StateMachine) assignOptionAuthors(s *GameSession) {
	items := []AssignItem{}
	for _, st := range s.Stories {
		if st.Round != s.Round {
			continue
		}
		for len(st.Options) < 2 {
			st.Options = append(st.Options, Option{ID: uuid.NewString()})
		}
		if st.Options[0].OutcomeAuthorID != "" {
			continue
		}
		items = append(items, AssignItem{ID: st.ID, Excluded: []string{st.AuthorID, st.PlayerID}})
	}
	result := m.assigner.Assign(s.Players, items)
	for _, st := range s.Stories {
		author, ok := result[st.ID]
		if !ok {
			continue
		}
		for i := range st.Options {
			st.Options[i].OutcomeAuthorID = author
		}
	}
}

// persistAndPrune saves the adventure map to the owning profile's slot and
// trims the active location set to a bounded random sample. The partition
// is exact: every location ends up active or unused, never both or neither.
func (m *StateMachine) persistAndPrune(ctx context.Context, s *GameSession) error {
	if s.ProfileID != "" && m.profiles != nil {
		if err := m.profiles.SaveAdventureMap(ctx, s.ProfileID, s.Map); err != nil {
			return err
		}
	}

	if len(s.Map.Locations) <= maxActiveLocations {
		return nil
	}
	perm := m.rng.Perm(len(s.Map.Locations))
	active := make([]Location, 0, maxActiveLocations)
	unused := make([]Location, 0, len(s.Map.Locations)-maxActiveLocations)
	for i, idx := range perm {
		if i < maxActiveLocations {
			active = append(active, s.Map.Locations[idx])
		} else {
			unused = append(unused, s.Map.Locations[idx])
		}
	}
	s.Map.Locations = active
	s.Map.UnusedLocations = append(s.Map.UnusedLocations, unused...)
	return nil
}

// generateEndings computes the total-victory score and builds one ending
// per player, authors paired to the next-joined player in a ring.
func (m *StateMachine) generateEndings(s *GameSession) {
	n := len(s.Players)
	if n == 0 {
		return
	}
	total := 0
	scores := make([]int, n)
	for i, p := range s.Players {
		score := p.RitualPoints
		for _, v := range p.Stats {
			score += v
		}
		scores[i] = score
		total += score
	}
	s.VictoryAchieved = total >= victoryPointsPerPlayer*n

	s.Endings = s.Endings[:0]
	for i := range s.Players {
		player := s.Players[(i+1)%n]
		s.Endings = append(s.Endings, Ending{
			AuthorID: s.Players[i].ID,
			PlayerID: player.ID,
			Stories:  s.PlayedStories(player.ID),
			Score:    scores[(i+1)%n],
		})
	}
}

// consolidateNarrative links board encounters to this round's stories so
// later phases can resolve them in place.
func (m *StateMachine) consolidateNarrative(s *GameSession) {
	stories := s.RoundStories(s.Round)
	if len(stories) == 0 {
		return
	}
	i := 0
	for _, key := range s.Board.SortedCells() {
		if i >= len(stories) {
			break
		}
		enc := s.Board.Cells[key]
		if enc.StoryID != "" {
			continue
		}
		enc.StoryID = stories[i].ID
		stories[i].EncounterCell = key
		i++
	}
}
