package game

import (
	"testing"
	"time"
)

func TestAddSubmissionFresh(t *testing.T) {
	p := NewPhase(StateDescribeWorld)
	now := time.Now()

	sub := p.AddSubmission("A", "a dark forest", nil, now)
	if sub.OriginalText != "" {
		t.Fatalf("fresh submission must have no base text, got %q", sub.OriginalText)
	}
	if sub.CurrentText != "a dark forest" {
		t.Fatalf("unexpected current text %q", sub.CurrentText)
	}
	if len(sub.Additions) != 1 || sub.Additions[0].AuthorID != "A" {
		t.Fatalf("expected a single addition by A, got %+v", sub.Additions)
	}
	if !p.Submitted["A"] {
		t.Fatalf("author must be marked as submitted")
	}
}

func TestBranchSubmission(t *testing.T) {
	p := NewPhase(StateDescribeWorld)
	now := time.Now()

	tag := &OutcomeType{ID: BucketSuccess}
	parent := p.AddSubmission("A", "a dark forest", tag, now)
	child, err := p.BranchSubmission(parent.ID, "B", "full of wolves", now.Add(time.Second))
	if err != nil {
		t.Fatalf("branch failed: %v", err)
	}

	if child.OriginalText != "a dark forest" {
		t.Fatalf("child base must be the parent's full text, got %q", child.OriginalText)
	}
	if child.CurrentText != "a dark forest full of wolves" {
		t.Fatalf("unexpected composed text %q", child.CurrentText)
	}
	if len(child.Additions) != 2 {
		t.Fatalf("expected 2 additions, got %d", len(child.Additions))
	}
	if child.Additions[1].SubmissionID != parent.ID {
		t.Fatalf("branch addition must reference the parent")
	}
	if child.OutcomeType == nil || child.OutcomeType.ID != BucketSuccess {
		t.Fatalf("child must inherit the parent's outcome tag")
	}
	// Parent stays untouched.
	if len(parent.Additions) != 1 {
		t.Fatalf("branching must not mutate the parent, got %d additions", len(parent.Additions))
	}
}

func TestBranchSubmissionMissingParent(t *testing.T) {
	p := NewPhase(StateDescribeWorld)
	if _, err := p.BranchSubmission("nope", "B", "text", time.Now()); err != ErrSubmissionNotFound {
		t.Fatalf("expected ErrSubmissionNotFound, got %v", err)
	}
}

func TestAddVotesUpsertsByID(t *testing.T) {
	p := NewPhase(StateDescribeWorld)
	sub := p.AddSubmission("A", "text", nil, time.Now())

	p.AddVotes([]PlayerVote{{ID: "v1", PlayerID: "B", SubmissionID: sub.ID, Ranking: 3}})
	p.AddVotes([]PlayerVote{{ID: "v1", PlayerID: "B", SubmissionID: sub.ID, Ranking: 1}})

	votes := p.Votes["B"]
	if len(votes) != 1 {
		t.Fatalf("re-voting the same id must replace, got %d votes", len(votes))
	}
	if votes[0].Ranking != 1 {
		t.Fatalf("expected replaced ranking 1, got %d", votes[0].Ranking)
	}

	p.AddVotes([]PlayerVote{{ID: "v2", PlayerID: "B", SubmissionID: sub.ID, Ranking: 2}})
	if len(p.Votes["B"]) != 2 {
		t.Fatalf("a new vote id must append, got %d votes", len(p.Votes["B"]))
	}
}

func TestMarkViewed(t *testing.T) {
	p := NewPhase(StateDescribeWorld)
	sub := p.AddSubmission("A", "text", nil, time.Now())

	if p.HasViewed(sub.ID, "B") {
		t.Fatalf("fresh submission must be unviewed")
	}
	p.MarkViewed(sub.ID, "B")
	p.MarkViewed(sub.ID, "B") // idempotent
	if !p.HasViewed(sub.ID, "B") {
		t.Fatalf("submission must be viewed after marking")
	}
	if len(p.Views[sub.ID]) != 1 {
		t.Fatalf("duplicate marks must not accumulate, got %d", len(p.Views[sub.ID]))
	}
}

func TestResetAll(t *testing.T) {
	p := NewPhase(StateDescribeWorld)
	sub := p.AddSubmission("A", "text", nil, time.Now())
	p.AddVotes([]PlayerVote{{ID: "v1", PlayerID: "B", SubmissionID: sub.ID, Ranking: 1}})
	p.MarkViewed(sub.ID, "B")
	p.Completed = true

	p.ResetAll()
	if len(p.Submissions) != 0 || len(p.Votes) != 0 || len(p.Submitted) != 0 ||
		len(p.Voted) != 0 || len(p.Views) != 0 || p.Completed {
		t.Fatalf("reset must clear the phase, got %+v", p)
	}
}
