package game

import (
	"time"

	"github.com/google/uuid"
)

// CollaborativeTextPhase holds one phase's submissions, votes and views.
// Pure data-structure logic; persistence and locking live elsewhere.
type CollaborativeTextPhase struct {
	ID          GameState               `json:"id"`
	Submissions []*TextSubmission       `json:"submissions"`
	Votes       map[string][]PlayerVote `json:"votes"`     // playerID -> votes
	Submitted   map[string]bool         `json:"submitted"` // playerIDs that submitted
	Voted       map[string]bool         `json:"voted"`     // playerIDs that voted
	Views       map[string][]string     `json:"views"`     // submissionID -> viewer playerIDs
	Completed   bool                    `json:"completed"`
}

func NewPhase(id GameState) *CollaborativeTextPhase {
	return &CollaborativeTextPhase{
		ID:          id,
		Submissions: []*TextSubmission{},
		Votes:       make(map[string][]PlayerVote),
		Submitted:   make(map[string]bool),
		Voted:       make(map[string]bool),
		Views:       make(map[string][]string),
	}
}

// Submission returns the submission with the given id, or nil.
func (p *CollaborativeTextPhase) Submission(id string) *TextSubmission {
	for _, s := range p.Submissions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// AddSubmission appends a fresh submission: no base text, current text is
// the added text alone.
func (p *CollaborativeTextPhase) AddSubmission(authorID, text string, outcome *OutcomeType, now time.Time) *TextSubmission {
	sub := &TextSubmission{
		ID:           uuid.NewString(),
		AuthorID:     authorID,
		OriginalText: "",
		CurrentText:  text,
		Additions: []TextAddition{
			{AuthorID: authorID, Text: text, CreatedAt: now},
		},
		OutcomeType: outcome,
		CreatedAt:   now,
	}
	p.Submissions = append(p.Submissions, sub)
	p.Submitted[authorID] = true
	return sub
}

// BranchSubmission forks an existing submission into a derived one. The
// child inherits the parent's full text as its base, its accumulated
// additions, and its outcome tag when set.
func (p *CollaborativeTextPhase) BranchSubmission(parentID, authorID, text string, now time.Time) (*TextSubmission, error) {
	parent := p.Submission(parentID)
	if parent == nil {
		return nil, ErrSubmissionNotFound
	}
	additions := make([]TextAddition, len(parent.Additions), len(parent.Additions)+1)
	copy(additions, parent.Additions)
	additions = append(additions, TextAddition{
		AuthorID:     authorID,
		Text:         text,
		CreatedAt:    now,
		SubmissionID: parentID,
	})
	sub := &TextSubmission{
		ID:           uuid.NewString(),
		AuthorID:     authorID,
		OriginalText: parent.CurrentText,
		CurrentText:  parent.CurrentText + " " + text,
		Additions:    additions,
		OutcomeType:  parent.OutcomeType,
		CreatedAt:    now,
	}
	p.Submissions = append(p.Submissions, sub)
	p.Submitted[authorID] = true
	return sub, nil
}

// AddVotes stores the votes, keyed additively by vote id: re-submitting a
// vote id overwrites that vote, anything else appends. Duplicate rankings
// from the same player on different vote ids are allowed; winner computation
// only uses the numeric average, so duplicates simply weight it.
func (p *CollaborativeTextPhase) AddVotes(votes []PlayerVote) {
	for _, v := range votes {
		existing := p.Votes[v.PlayerID]
		replaced := false
		for i := range existing {
			if existing[i].ID == v.ID {
				existing[i] = v
				replaced = true
				break
			}
		}
		if !replaced {
			p.Votes[v.PlayerID] = append(existing, v)
		}
		p.Voted[v.PlayerID] = true
	}
}

// MarkViewed records that the player has been served the submission, so it
// is not re-served until views are cleared.
func (p *CollaborativeTextPhase) MarkViewed(submissionID, playerID string) {
	for _, id := range p.Views[submissionID] {
		if id == playerID {
			return
		}
	}
	p.Views[submissionID] = append(p.Views[submissionID], playerID)
}

// HasViewed reports whether the player was already served the submission.
func (p *CollaborativeTextPhase) HasViewed(submissionID, playerID string) bool {
	for _, id := range p.Views[submissionID] {
		if id == playerID {
			return true
		}
	}
	return false
}

// ResetAll clears the phase back to its freshly-created state.
func (p *CollaborativeTextPhase) ResetAll() {
	p.Submissions = []*TextSubmission{}
	p.Votes = make(map[string][]PlayerVote)
	p.Submitted = make(map[string]bool)
	p.Voted = make(map[string]bool)
	p.Views = make(map[string][]string)
	p.Completed = false
}
