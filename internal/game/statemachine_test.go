package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestMachine(flags FlagSource) *StateMachine {
	rng := NewRand(21)
	return NewStateMachine(NewAuthorAssigner(rng), flags, nil, rng, zerolog.Nop())
}

func newTestSession(players int) *GameSession {
	s := NewSession("TEST1", "", time.Now())
	for i := 0; i < players; i++ {
		s.Players = append(s.Players, &Player{
			ID:       string(rune('A' + i)),
			Name:     "player",
			JoinedAt: time.Now().Add(time.Duration(i) * time.Second),
			Stats:    make(map[string]int),
		})
	}
	return s
}

func TestAdvanceFromLobby(t *testing.T) {
	m := newTestMachine(StaticFlags{})
	s := newTestSession(3)

	advanced, err := m.Advance(context.Background(), s, StateLobby)
	if err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if !advanced || s.State != StateDescribeWorld {
		t.Fatalf("expected DESCRIBE_WORLD, got %s (advanced %v)", s.State, advanced)
	}
	if s.Phases[StateDescribeWorld] == nil {
		t.Fatalf("entering a collaborative state must create its phase")
	}
}

func TestAdvanceStaleGuard(t *testing.T) {
	m := newTestMachine(StaticFlags{})
	s := newTestSession(3)
	s.State = StateDescribeEntity

	advanced, err := m.Advance(context.Background(), s, StateDescribeWorld)
	if err != nil {
		t.Fatalf("stale advance must not error, got %v", err)
	}
	if advanced || s.State != StateDescribeEntity {
		t.Fatalf("stale advance must change nothing, got %s", s.State)
	}
}

func TestAdvanceThroughSynthetic(t *testing.T) {
	m := newTestMachine(StaticFlags{})
	s := newTestSession(3)
	s.State = StateDescribeEntity

	advanced, err := m.Advance(context.Background(), s, "")
	if err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if !advanced || s.State != StateWriteLocations {
		t.Fatalf("synthetic state must auto-advance to WRITE_LOCATIONS, got %s", s.State)
	}

	// GENERATE_LOCATION_AUTHORS side effects happened on the way through.
	if len(s.Map.StatTypes) == 0 {
		t.Fatalf("stat types must be seeded")
	}
	for _, p := range s.Players {
		for _, st := range s.Map.StatTypes {
			v, ok := p.Stats[st]
			if !ok || v < 2 || v > 4 {
				t.Fatalf("player %s stat %s out of range: %d", p.ID, st, v)
			}
		}
	}
	if len(s.Map.Locations) != len(s.Players)+2 {
		t.Fatalf("expected %d locations, got %d", len(s.Players)+2, len(s.Map.Locations))
	}
	for _, loc := range s.Map.Locations {
		if loc.AuthorID == "" {
			t.Fatalf("location %s has no author", loc.Name)
		}
		if loc.AuthorID == loc.PlayerID {
			t.Fatalf("location %s authored by its own player", loc.Name)
		}
	}
}

func TestAdvanceGeneratesStories(t *testing.T) {
	m := newTestMachine(StaticFlags{})
	s := newTestSession(4)
	s.State = StateSetEncounters
	s.Round = 1

	if _, err := m.Advance(context.Background(), s, ""); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if s.State != StateWritePrompts {
		t.Fatalf("expected WRITE_PROMPTS, got %s", s.State)
	}
	stories := s.RoundStories(1)
	if len(stories) != len(s.Players) {
		t.Fatalf("expected one story per player, got %d", len(stories))
	}
	for _, st := range stories {
		if st.AuthorID == "" || st.AuthorID == st.PlayerID {
			t.Fatalf("story for %s has bad author %q", st.PlayerID, st.AuthorID)
		}
	}
}

func TestAdvanceAssignsOptionAuthors(t *testing.T) {
	m := newTestMachine(StaticFlags{})
	s := newTestSession(4)
	s.State = StateSetEncounters
	s.Round = 1

	ctx := context.Background()
	if _, err := m.Advance(ctx, s, ""); err != nil { // -> WRITE_PROMPTS
		t.Fatalf("advance failed: %v", err)
	}
	if _, err := m.Advance(ctx, s, ""); err != nil { // -> WRITE_OPTIONS
		t.Fatalf("advance failed: %v", err)
	}
	if s.State != StateWriteOptions {
		t.Fatalf("expected WRITE_OPTIONS, got %s", s.State)
	}
	for _, st := range s.RoundStories(1) {
		if len(st.Options) != 2 {
			t.Fatalf("story %s must have two options, got %d", st.ID, len(st.Options))
		}
		author := st.Options[0].OutcomeAuthorID
		if author == "" || author == st.AuthorID || author == st.PlayerID {
			t.Fatalf("story %s has bad outcome author %q", st.ID, author)
		}
		if st.Options[1].OutcomeAuthorID != author {
			t.Fatalf("both options of a story must share one outcome author")
		}
	}
}

func TestNavigateWinnerIncrementsRound(t *testing.T) {
	m := newTestMachine(StaticFlags{})
	s := newTestSession(3)
	s.State = StateRound1

	if _, err := m.Advance(context.Background(), s, ""); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if s.Round != 1 {
		t.Fatalf("navigating must bump the round, got %d", s.Round)
	}
	if s.State != StateWritePromptsAgain {
		t.Fatalf("the first navigation must open the second write cycle, got %s", s.State)
	}
}

func TestNavigateWinnerSecondPassEndsWriting(t *testing.T) {
	m := newTestMachine(StaticFlags{})
	s := newTestSession(3)
	s.State = StateRound2
	s.Round = 1

	if _, err := m.Advance(context.Background(), s, ""); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if s.Round != 2 {
		t.Fatalf("the second navigation must reach round 2, got %d", s.Round)
	}
	if s.State != StateRitual {
		t.Fatalf("the second navigation must reach the ritual, got %s", s.State)
	}
}

func TestTurnStateResetsDoneFlags(t *testing.T) {
	m := newTestMachine(StaticFlags{})
	s := newTestSession(3)
	s.State = StateWriteOptions
	s.Round = 1
	for _, p := range s.Players {
		p.Done = true
	}

	if _, err := m.Advance(context.Background(), s, ""); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if s.State != StateRound1 {
		t.Fatalf("expected ROUND1, got %s", s.State)
	}
	for _, p := range s.Players {
		if p.Done {
			t.Fatalf("done flags must reset on turn start")
		}
	}
	if s.ActivePlayerID != s.Players[0].ID {
		t.Fatalf("the first-joined player must hold the opening turn")
	}
}

func TestGenerateEndingsRing(t *testing.T) {
	m := newTestMachine(StaticFlags{})
	s := newTestSession(3)
	s.State = StateHowDoesThisResolve
	for _, p := range s.Players {
		p.Stats = map[string]int{"might": 4}
		p.RitualPoints = 1
	}

	if _, err := m.Advance(context.Background(), s, ""); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if s.State != StateEnding {
		t.Fatalf("expected ENDING, got %s", s.State)
	}
	if len(s.Endings) != 3 {
		t.Fatalf("expected one ending per player, got %d", len(s.Endings))
	}
	for i, e := range s.Endings {
		if e.AuthorID != s.Players[i].ID {
			t.Fatalf("ending %d: wrong author %q", i, e.AuthorID)
		}
		if e.PlayerID != s.Players[(i+1)%3].ID {
			t.Fatalf("ending %d: authors must narrate the next-joined player", i)
		}
		if e.AuthorID == e.PlayerID {
			t.Fatalf("nobody narrates their own ending")
		}
	}
	// 3 players at 5 points each against a threshold of 36.
	if s.VictoryAchieved {
		t.Fatalf("total 15 must fall short of the victory threshold")
	}
}

func TestPreamblePrunesLocations(t *testing.T) {
	m := newTestMachine(StaticFlags{})
	s := newTestSession(6)
	s.State = StateWriteOccupations
	for i := 0; i < 8; i++ {
		s.Map.Locations = append(s.Map.Locations, Location{ID: string(rune('a' + i))})
	}

	if _, err := m.Advance(context.Background(), s, ""); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if s.State != StatePreamble {
		t.Fatalf("expected PREAMBLE, got %s", s.State)
	}
	if len(s.Map.Locations) != 6 {
		t.Fatalf("expected 6 active locations, got %d", len(s.Map.Locations))
	}
	if len(s.Map.UnusedLocations) != 2 {
		t.Fatalf("expected 2 unused locations, got %d", len(s.Map.UnusedLocations))
	}
	seen := make(map[string]bool)
	for _, loc := range s.Map.Locations {
		seen[loc.ID] = true
	}
	for _, loc := range s.Map.UnusedLocations {
		if seen[loc.ID] {
			t.Fatalf("location %s is both active and unused", loc.ID)
		}
		seen[loc.ID] = true
	}
	if len(seen) != 8 {
		t.Fatalf("the partition must be exact, saw %d of 8", len(seen))
	}
}

type failingSaver struct{}

func (failingSaver) SaveAdventureMap(context.Context, string, AdventureMap) error {
	return errors.New("save slot unavailable")
}

func TestPreambleSaveFailureAbortsTransition(t *testing.T) {
	rng := NewRand(21)
	m := NewStateMachine(NewAuthorAssigner(rng), StaticFlags{}, failingSaver{}, rng, zerolog.Nop())
	s := newTestSession(3)
	s.State = StateWriteOccupations
	s.ProfileID = "profile-1"

	_, err := m.Advance(context.Background(), s, "")
	if err == nil {
		t.Fatalf("a failed profile save must abort the transition")
	}
	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected a TransitionError, got %T", err)
	}
	if s.State != StateWriteOccupations {
		t.Fatalf("an aborted transition must leave the state alone, got %s", s.State)
	}
}

func TestConsolidateNarrativeLinksBoard(t *testing.T) {
	m := newTestMachine(StaticFlags{FlagConsolidateNarrative: true})
	s := newTestSession(3)
	s.State = StateRound1
	s.Board.Cells[CellKey(0, 0)] = &Encounter{Label: "a"}
	s.Board.Cells[CellKey(1, 0)] = &Encounter{Label: "b"}
	seeded := []*Story{
		{ID: "x", Round: 0},
		{ID: "y", Round: 0},
	}
	s.Stories = append(s.Stories, seeded...)

	if _, err := m.Advance(context.Background(), s, ""); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	linked := 0
	for _, enc := range s.Board.Cells {
		if enc.StoryID != "" {
			linked++
		}
	}
	if linked != 2 {
		t.Fatalf("expected both encounters linked to stories, got %d", linked)
	}
	for _, st := range seeded {
		if st.EncounterCell == "" {
			t.Fatalf("story %s not attached to a cell", st.ID)
		}
	}
}

func TestSecondRoundStoriesChainToPlayed(t *testing.T) {
	m := newTestMachine(StaticFlags{})
	s := newTestSession(2)
	s.State = StateRound1
	played := &Story{
		ID:               "first",
		PlayerID:         s.Players[0].ID,
		Round:            0,
		Visited:          true,
		SelectedOptionID: "o1",
		Options:          []Option{{ID: "o1"}},
	}
	s.Stories = append(s.Stories, played)

	if _, err := m.Advance(context.Background(), s, ""); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	for _, st := range s.RoundStories(1) {
		if st.PlayerID != played.PlayerID {
			continue
		}
		if st.PrequelStoryID != played.ID {
			t.Fatalf("the new story must chain to the played one, got %q", st.PrequelStoryID)
		}
	}
}
