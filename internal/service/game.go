// Package service exposes the game's external operations. Every mutation is
// one atomic read-modify-write against the session document; cross-document
// effects (profile saves, event publishing, narration) are best-effort and
// never roll winners or state back.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fableweave/fableweave/internal/events"
	"github.com/fableweave/fableweave/internal/game"
	"github.com/fableweave/fableweave/internal/narrator"
	"github.com/fableweave/fableweave/internal/profile"
	"github.com/fableweave/fableweave/internal/store"
)

type GameService struct {
	store    store.SessionStore
	machine  *game.StateMachine
	profiles profile.Store
	events   events.Publisher
	narrator narrator.Provider
	rng      *game.Rand
	log      zerolog.Logger
}

func New(st store.SessionStore, flags game.FlagSource, profiles profile.Store, pub events.Publisher, narr narrator.Provider, rng *game.Rand, log zerolog.Logger) *GameService {
	if pub == nil {
		pub = events.NoopPublisher{}
	}
	assigner := game.NewAuthorAssigner(rng)
	return &GameService{
		store:    st,
		machine:  game.NewStateMachine(assigner, flags, profiles, rng, log),
		profiles: profiles,
		events:   pub,
		narrator: narr,
		rng:      rng,
		log:      log,
	}
}

// CreateSession opens a new lobby, optionally tied to a user profile. A
// profile with a saved adventure map resumes that world: its locations,
// occupations and narration carry into the new session.
func (svc *GameService) CreateSession(ctx context.Context, profileID string) (*game.GameSession, error) {
	var saved *game.AdventureMap
	if profileID != "" && svc.profiles != nil {
		m, err := svc.profiles.LoadAdventureMap(ctx, profileID)
		switch {
		case err == nil:
			saved = m
		case game.IsNotFound(err):
			// First session for this profile.
		default:
			svc.log.Warn().Err(err).Str("profile", profileID).Msg("loading save slot failed, starting fresh")
		}
	}

	for attempt := 0; attempt < 5; attempt++ {
		sess := game.NewSession(svc.randomCode(5), profileID, time.Now().UTC())
		if saved != nil {
			sess.Map = *saved
		}
		err := svc.store.Create(ctx, sess)
		if err == game.ErrConflict {
			continue // code collision, roll a new one
		}
		if err != nil {
			return nil, err
		}
		return sess, nil
	}
	return nil, game.ErrConflict
}

// JoinSession adds a player to the roster. Join order defines allocation
// order for the rest of the game.
func (svc *GameService) JoinSession(ctx context.Context, code, name string) (*game.Player, error) {
	if name == "" {
		return nil, &game.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	var joined *game.Player
	_, err := svc.store.Update(ctx, code, func(s *game.GameSession) error {
		if s.State != game.StateLobby {
			return game.ErrInvalidPhase
		}
		p := &game.Player{
			ID:       uuid.NewString(),
			Name:     name,
			JoinedAt: time.Now().UTC(),
			Stats:    make(map[string]int),
			Position: game.CellKey(0, 0),
		}
		s.Players = append(s.Players, p)
		joined = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return joined, nil
}

// GetSession returns a snapshot of the session.
func (svc *GameService) GetSession(ctx context.Context, code string) (*game.GameSession, error) {
	return svc.store.Get(ctx, code)
}

// AdvanceGameState moves the session forward. The from argument is the
// state the caller believes it is leaving; if the persisted state already
// differs the session is returned unchanged.
func (svc *GameService) AdvanceGameState(ctx context.Context, code string, from game.GameState) (*game.GameSession, error) {
	var (
		fromState game.GameState
		advanced  bool
	)
	sess, err := svc.store.Update(ctx, code, func(s *game.GameSession) error {
		fromState = s.State
		var err error
		advanced, err = svc.machine.Advance(ctx, s, from)
		return err
	})
	if err != nil {
		return nil, err
	}
	if advanced {
		svc.events.StateChanged(code, fromState, sess.State, sess.Round)
		svc.seedNarration(ctx, code, sess)
	}
	return sess, nil
}

// seedNarration asks the narrator for a dungeon-authored opening submission
// for the phase just entered. Best-effort: failures are logged and dropped.
func (svc *GameService) seedNarration(ctx context.Context, code string, sess *game.GameSession) {
	if svc.narrator == nil || !game.SpecFor(sess.State).Collab {
		return
	}
	prompt := narrator.PromptFor(sess.State, sess)
	if prompt == "" {
		return
	}
	text, err := svc.narrator.Narrate(ctx, prompt)
	if err != nil {
		svc.log.Warn().Err(err).Str("game", code).Str("state", string(sess.State)).Msg("narration failed")
		return
	}
	if _, err := svc.SubmitText(ctx, code, game.DungeonAuthorID, text, "", ""); err != nil {
		svc.log.Warn().Err(err).Str("game", code).Msg("storing narration failed")
	}
}

// SubmitText adds a fresh or branched submission to the current phase.
func (svc *GameService) SubmitText(ctx context.Context, code, authorID, text, parentSubmissionID, outcomeTypeHint string) (*game.CollaborativeTextPhase, error) {
	if authorID == "" {
		return nil, &game.ValidationError{Field: "authorId", Reason: "must not be empty"}
	}
	if text == "" {
		return nil, &game.ValidationError{Field: "text", Reason: "must not be empty"}
	}
	var phase *game.CollaborativeTextPhase
	_, err := svc.store.Update(ctx, code, func(s *game.GameSession) error {
		spec := game.SpecFor(s.State)
		if !spec.Collab {
			return game.ErrInvalidPhase
		}
		if authorID != game.DungeonAuthorID && s.Player(authorID) == nil {
			return game.ErrPlayerNotFound
		}
		p := s.Phases[s.State]
		if p == nil {
			p = game.NewPhase(s.State)
			s.Phases[s.State] = p
		}
		now := time.Now().UTC()
		if parentSubmissionID != "" {
			if _, err := p.BranchSubmission(parentSubmissionID, authorID, text, now); err != nil {
				return err
			}
		} else {
			outcome, err := svc.outcomeTag(s, spec, authorID, outcomeTypeHint)
			if err != nil {
				return err
			}
			p.AddSubmission(authorID, text, outcome, now)
		}
		phase = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return phase, nil
}

// outcomeTag resolves the tag for a fresh submission: the request's hint
// when present, otherwise the author's computed allocation for the phase.
func (svc *GameService) outcomeTag(s *game.GameSession, spec game.PhaseSpec, authorID, hint string) (*game.OutcomeType, error) {
	if spec.Outcome == game.OutcomeNone || authorID == game.DungeonAuthorID {
		return nil, nil
	}
	if hint != "" {
		if tag := resolveTag(s, hint); tag != nil {
			return tag, nil
		}
		return nil, &game.ValidationError{Field: "outcomeType", Reason: "unknown id"}
	}
	alloc := svc.allocationFor(s, spec, authorID)
	if len(alloc) == 0 {
		return nil, nil
	}
	tag := alloc[0]
	if spec.Outcome == game.OutcomePerOption && len(tag.SubTypes) > 0 {
		sub := tag.SubTypes[s.PlayerIndex(authorID)%len(tag.SubTypes)]
		return &sub, nil
	}
	tag.SubTypes = nil
	return &tag, nil
}

// resolveTag matches a hint id against the fixed buckets, then stories,
// then story options.
func resolveTag(s *game.GameSession, hint string) *game.OutcomeType {
	for _, b := range game.Buckets() {
		if b.ID == hint {
			return &b
		}
	}
	for _, st := range s.Stories {
		if st.ID == hint {
			return &game.OutcomeType{ID: st.ID, Label: st.Prompt, Clarifier: st.PrequelStoryID}
		}
		if opt := st.Option(hint); opt != nil {
			return &game.OutcomeType{ID: opt.ID, Label: opt.Text}
		}
	}
	return nil
}

// allocationFor computes a player's outcome allocation for a phase.
func (svc *GameService) allocationFor(s *game.GameSession, spec game.PhaseSpec, playerID string) []game.OutcomeType {
	idx := s.PlayerIndex(playerID)
	if idx < 0 {
		return []game.OutcomeType{}
	}
	switch spec.Outcome {
	case game.OutcomeBuckets:
		return []game.OutcomeType{game.BucketForIndex(idx)}
	case game.OutcomePerStory, game.OutcomePerOption:
		return game.DistributeOutcomes(s.RoundStories(s.Round), s.Players, idx, spec.Offset, spec.Multiple)
	}
	return []game.OutcomeType{}
}

// SubmitVotes appends ranked votes to the current phase.
func (svc *GameService) SubmitVotes(ctx context.Context, code string, votes []game.PlayerVote) (*game.CollaborativeTextPhase, error) {
	if len(votes) == 0 {
		return nil, &game.ValidationError{Field: "votes", Reason: "must not be empty"}
	}
	for i := range votes {
		if votes[i].PlayerID == "" {
			return nil, &game.ValidationError{Field: "playerId", Reason: "must not be empty"}
		}
		if votes[i].SubmissionID == "" {
			return nil, &game.ValidationError{Field: "submissionId", Reason: "must not be empty"}
		}
		if votes[i].Ranking < 1 || votes[i].Ranking > 3 {
			return nil, &game.ValidationError{Field: "ranking", Reason: "must be between 1 and 3"}
		}
		if votes[i].ID == "" {
			votes[i].ID = uuid.NewString()
		}
	}
	var phase *game.CollaborativeTextPhase
	_, err := svc.store.Update(ctx, code, func(s *game.GameSession) error {
		p := s.Phases[s.State]
		if p == nil {
			return game.ErrPhaseNotFound
		}
		for _, v := range votes {
			if p.Submission(v.SubmissionID) == nil {
				return game.ErrSubmissionNotFound
			}
		}
		p.AddVotes(votes)
		phase = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return phase, nil
}

// ComputeWinners applies the phase's selection policy, marks the phase
// complete, then projects the winners into the shared world. The
// projection is best-effort: a failure is logged and the winners stand.
func (svc *GameService) ComputeWinners(ctx context.Context, code string) ([]game.TextSubmission, error) {
	var (
		winners []game.TextSubmission
		state   game.GameState
	)
	_, err := svc.store.Update(ctx, code, func(s *game.GameSession) error {
		spec := game.SpecFor(s.State)
		if !spec.Collab {
			return game.ErrInvalidPhase
		}
		p := s.Phases[s.State]
		if p == nil {
			return game.ErrPhaseNotFound
		}
		ws := game.ComputeWinners(p, spec)
		p.Completed = true
		state = s.State
		winners = winners[:0]
		for _, w := range ws {
			winners = append(winners, *w)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(winners))
	for i, w := range winners {
		ids[i] = w.ID
	}
	svc.events.WinnersComputed(code, state, ids)

	if _, err := svc.store.Update(ctx, code, func(s *game.GameSession) error {
		return svc.project(s, state, winners)
	}); err != nil {
		svc.log.Error().Err(err).Str("game", code).Str("state", string(state)).
			Msg("winner projection failed, winners stand")
	}
	return winners, nil
}

// GetAvailableSubmissions returns the submissions the player may see and
// vote on, marking them viewed in the same atomic unit so repeats are not
// re-served.
func (svc *GameService) GetAvailableSubmissions(ctx context.Context, code, playerID string, count int) ([]game.TextSubmission, error) {
	if playerID == "" {
		return nil, &game.ValidationError{Field: "playerId", Reason: "must not be empty"}
	}
	var out []game.TextSubmission
	_, err := svc.store.Update(ctx, code, func(s *game.GameSession) error {
		spec := game.SpecFor(s.State)
		if !spec.Collab {
			return game.ErrInvalidPhase
		}
		if s.Player(playerID) == nil {
			return game.ErrPlayerNotFound
		}
		p := s.Phases[s.State]
		if p == nil {
			return game.ErrPhaseNotFound
		}
		visible := p.VisibleSubmissions(playerID, svc.allocationFor(s, spec, playerID))
		limit := spec.ViewLimit
		if count > 0 && (limit == 0 || count < limit) {
			limit = count
		}
		if limit > 0 && len(visible) > limit {
			visible = visible[:limit]
		}
		out = out[:0]
		for _, sub := range visible {
			p.MarkViewed(sub.ID, playerID)
			out = append(out, *sub)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetOutcomeAllocationForPlayer returns the player's outcome-type slice for
// the current phase.
func (svc *GameService) GetOutcomeAllocationForPlayer(ctx context.Context, code, playerID string) ([]game.OutcomeType, error) {
	if playerID == "" {
		return nil, &game.ValidationError{Field: "playerId", Reason: "must not be empty"}
	}
	s, err := svc.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if s.Player(playerID) == nil {
		return nil, game.ErrPlayerNotFound
	}
	return svc.allocationFor(s, game.SpecFor(s.State), playerID), nil
}

// SelectStoryOption records the active player playing through their story:
// the option is locked in, the turn passes to the next player in join
// order, and the session tally moves with the option's bucket.
func (svc *GameService) SelectStoryOption(ctx context.Context, code, playerID, storyID, optionID string) (*game.GameSession, error) {
	if playerID == "" {
		return nil, &game.ValidationError{Field: "playerId", Reason: "must not be empty"}
	}
	return svc.store.Update(ctx, code, func(s *game.GameSession) error {
		p := s.Player(playerID)
		if p == nil {
			return game.ErrPlayerNotFound
		}
		st := s.Story(storyID)
		if st == nil || st.PlayerID != playerID {
			return game.ErrSubmissionNotFound
		}
		optIndex := -1
		for i := range st.Options {
			if st.Options[i].ID == optionID {
				optIndex = i
				break
			}
		}
		if optIndex < 0 {
			return &game.ValidationError{Field: "optionId", Reason: "not an option of this story"}
		}
		st.Visited = true
		st.SelectedOptionID = optionID
		switch game.BucketForIndex(optIndex).ID {
		case game.BucketSuccess:
			s.Successes++
		case game.BucketFailure:
			s.Failures++
		}
		p.Done = true
		for _, next := range s.Players {
			if !next.Done {
				s.ActivePlayerID = next.ID
				break
			}
		}
		return nil
	})
}

// randomCode builds a short join code from an unambiguous alphabet.
func (svc *GameService) randomCode(n int) string {
	letters := []rune("ABCDEFGHJKLMNPQRSTUVWXYZ23456789")
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[svc.rng.Intn(len(letters))]
	}
	return string(b)
}
