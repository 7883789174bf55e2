package game

import (
	"fmt"
	"sort"
	"time"
)

// DungeonAuthorID is the reserved author id for submissions seeded by the
// system narrator rather than a player.
const DungeonAuthorID = "DUNGEON"

type Player struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	JoinedAt     time.Time      `json:"joinedAt"`
	Stats        map[string]int `json:"stats"`
	RitualPoints int            `json:"ritualPoints"`
	Done         bool           `json:"done"`
	Position     string         `json:"position"` // board cell key, "x,y"
}

// Option is one branch of a story. Its outcome text is authored by a third
// player: never the story's author, never the player the story concerns.
type Option struct {
	ID              string `json:"id"`
	Text            string `json:"text"`
	ResultText      string `json:"resultText,omitempty"`
	OutcomeAuthorID string `json:"outcomeAuthorId,omitempty"`
}

type Story struct {
	ID               string   `json:"id"`
	PlayerID         string   `json:"playerId"`
	AuthorID         string   `json:"authorId,omitempty"`
	Prompt           string   `json:"prompt,omitempty"`
	PrequelStoryID   string   `json:"prequelStoryId,omitempty"`
	Options          []Option `json:"options"`
	Round            int      `json:"round"`
	EncounterCell    string   `json:"encounterCell,omitempty"`
	Visited          bool     `json:"visited"`
	SelectedOptionID string   `json:"selectedOptionId,omitempty"`
}

// Option returns the option with the given id, or nil.
func (s *Story) Option(id string) *Option {
	for i := range s.Options {
		if s.Options[i].ID == id {
			return &s.Options[i]
		}
	}
	return nil
}

// OutcomeType classifies a submission against a fixed bucket
// (success/neutral/failure) or a per-story option id. Pure value type,
// built on demand, never stored independently.
type OutcomeType struct {
	ID        string        `json:"id"`
	Label     string        `json:"label,omitempty"`
	Clarifier string        `json:"clarifier,omitempty"`
	SubTypes  []OutcomeType `json:"subTypes,omitempty"`
}

// Matches reports whether the tag identifies this outcome type or one of
// its subtypes.
func (o OutcomeType) Matches(tagID string) bool {
	if o.ID == tagID {
		return true
	}
	for _, st := range o.SubTypes {
		if st.ID == tagID {
			return true
		}
	}
	return false
}

type TextAddition struct {
	AuthorID     string    `json:"authorId"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"createdAt"`
	SubmissionID string    `json:"submissionId,omitempty"` // parent, set on branch points
}

type TextSubmission struct {
	ID             string         `json:"id"`
	AuthorID       string         `json:"authorId"`
	OriginalText   string         `json:"originalText"`
	CurrentText    string         `json:"currentText"`
	Additions      []TextAddition `json:"additions"`
	OutcomeType    *OutcomeType   `json:"outcomeType,omitempty"`
	AverageRanking float64        `json:"averageRanking"` // derived, recomputed per winner calculation
	CreatedAt      time.Time      `json:"createdAt"`
}

type PlayerVote struct {
	ID           string `json:"id"`
	PlayerID     string `json:"playerId"`
	SubmissionID string `json:"submissionId"`
	Ranking      int    `json:"ranking"` // 1..3, 1 is best
}

type Location struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PlayerID    string `json:"playerId,omitempty"`
	AuthorID    string `json:"authorId,omitempty"`
}

type Occupation struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Text     string `json:"text,omitempty"`
	PlayerID string `json:"playerId"`
	AuthorID string `json:"authorId,omitempty"`
}

// AdventureMap is the shared world content winners are projected into.
type AdventureMap struct {
	Description       string       `json:"description,omitempty"`
	EntityName        string       `json:"entityName,omitempty"`
	EntityDescription string       `json:"entityDescription,omitempty"`
	Preamble          string       `json:"preamble,omitempty"`
	Epilogue          string       `json:"epilogue,omitempty"`
	SuccessText       string       `json:"successText,omitempty"`
	NeutralText       string       `json:"neutralText,omitempty"`
	FailureText       string       `json:"failureText,omitempty"`
	StatTypes         []string     `json:"statTypes"`
	Locations         []Location   `json:"locations"`
	UnusedLocations   []Location   `json:"unusedLocations"`
	Occupations       []Occupation `json:"occupations"`
}

// Encounter is one board cell's narrative content.
type Encounter struct {
	Label        string `json:"label"`
	SubmissionID string `json:"submissionId,omitempty"`
	StoryID      string `json:"storyId,omitempty"`
}

// GameBoard is a sparse 2-D grid of encounters keyed by "x,y".
type GameBoard struct {
	Cells map[string]*Encounter `json:"cells"`
}

// CellKey builds the board key for an integer coordinate pair.
func CellKey(x, y int) string {
	return fmt.Sprintf("%d,%d", x, y)
}

// SortedCells returns the occupied cell keys in lexical order, for
// deterministic iteration.
func (b *GameBoard) SortedCells() []string {
	keys := make([]string, 0, len(b.Cells))
	for k := range b.Cells {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Ending bundles one player's played stories, filtered down to the options
// they actually selected, paired with the author who narrates it.
type Ending struct {
	AuthorID string  `json:"authorId"`
	PlayerID string  `json:"playerId"`
	Stories  []Story `json:"stories"`
	Score    int     `json:"score"`
}

// GameSession is the aggregate root and the unit of atomic update.
type GameSession struct {
	Code            string                               `json:"code"`
	ProfileID       string                               `json:"profileId,omitempty"`
	State           GameState                            `json:"state"`
	Players         []*Player                            `json:"players"` // join order, never reordered
	Stories         []*Story                             `json:"stories"`
	Map             AdventureMap                         `json:"map"`
	Board           GameBoard                            `json:"board"`
	Round           int                                  `json:"round"`
	Successes       int                                  `json:"successes"`
	Failures        int                                  `json:"failures"`
	VictoryAchieved bool                                 `json:"victoryAchieved"`
	ActivePlayerID  string                               `json:"activePlayerId,omitempty"`
	Endings         []Ending                             `json:"endings"`
	Phases          map[GameState]*CollaborativeTextPhase `json:"phases"`
	CreatedAt       time.Time                            `json:"createdAt"`
}

// NewSession constructs a session with every collection present but empty.
func NewSession(code, profileID string, now time.Time) *GameSession {
	return &GameSession{
		Code:      code,
		ProfileID: profileID,
		State:     StateLobby,
		Players:   []*Player{},
		Stories:   []*Story{},
		Map: AdventureMap{
			StatTypes:       []string{},
			Locations:       []Location{},
			UnusedLocations: []Location{},
			Occupations:     []Occupation{},
		},
		Board:     GameBoard{Cells: make(map[string]*Encounter)},
		Endings:   []Ending{},
		Phases:    make(map[GameState]*CollaborativeTextPhase),
		CreatedAt: now,
	}
}

// Player returns the roster entry with the given id, or nil.
func (s *GameSession) Player(id string) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// PlayerIndex returns the join-order index of the player, or -1.
func (s *GameSession) PlayerIndex(id string) int {
	for i, p := range s.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Story returns the story with the given id, or nil.
func (s *GameSession) Story(id string) *Story {
	for _, st := range s.Stories {
		if st.ID == id {
			return st
		}
	}
	return nil
}

// RoundStories returns the stories created in the given round, in creation
// order.
func (s *GameSession) RoundStories(round int) []*Story {
	out := []*Story{}
	for _, st := range s.Stories {
		if st.Round == round {
			out = append(out, st)
		}
	}
	return out
}

// PlayedStories returns the stories the player visited and selected an
// option for, each filtered down to only the selected option.
func (s *GameSession) PlayedStories(playerID string) []Story {
	out := []Story{}
	for _, st := range s.Stories {
		if st.PlayerID != playerID || !st.Visited || st.SelectedOptionID == "" {
			continue
		}
		played := *st
		if opt := st.Option(st.SelectedOptionID); opt != nil {
			played.Options = []Option{*opt}
		}
		out = append(out, played)
	}
	return out
}
