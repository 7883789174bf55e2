package game

import "testing"

func mkStories(n int) []*Story {
	out := make([]*Story, n)
	for i := 0; i < n; i++ {
		out[i] = &Story{
			ID:      string(rune('a' + i)),
			Prompt:  "prompt",
			Options: []Option{{ID: "o1"}, {ID: "o2"}},
		}
	}
	return out
}

func mkPlayers(n int) []*Player {
	out := make([]*Player, n)
	for i := 0; i < n; i++ {
		out[i] = &Player{ID: string(rune('A' + i))}
	}
	return out
}

func TestDistributeOutcomesSingleStory(t *testing.T) {
	stories := mkStories(6)
	players := mkPlayers(4)

	// playerIndex 0, offset 2 -> p=2 -> stories[2]
	got := DistributeOutcomes(stories, players, 0, 2, false)
	if len(got) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(got))
	}
	if got[0].ID != stories[2].ID {
		t.Fatalf("expected story %q, got %q", stories[2].ID, got[0].ID)
	}
	if len(got[0].SubTypes) != 2 {
		t.Fatalf("expected option subtypes on single allocation, got %d", len(got[0].SubTypes))
	}
}

func TestDistributeOutcomesMultiple(t *testing.T) {
	stories := mkStories(8)
	players := mkPlayers(4)

	// p=2 with multiple -> every story whose index has residue 2 mod 4
	got := DistributeOutcomes(stories, players, 0, 2, true)
	if len(got) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(got))
	}
	if got[0].ID != stories[2].ID || got[1].ID != stories[6].ID {
		t.Fatalf("expected stories 2 and 6, got %q and %q", got[0].ID, got[1].ID)
	}
	if len(got[0].SubTypes) != 0 {
		t.Fatalf("multi-story allocations must not carry subtypes")
	}
}

func TestDistributeOutcomesWraps(t *testing.T) {
	stories := mkStories(2)
	players := mkPlayers(5)

	// p=3 wraps into the story list
	got := DistributeOutcomes(stories, players, 3, 0, true)
	if len(got) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(got))
	}
	if got[0].ID != stories[3%2].ID {
		t.Fatalf("expected wrapped story %q, got %q", stories[1].ID, got[0].ID)
	}
}

func TestDistributeOutcomesDeterministic(t *testing.T) {
	stories := mkStories(5)
	players := mkPlayers(3)
	for i := 0; i < 10; i++ {
		a := DistributeOutcomes(stories, players, 1, 4, true)
		b := DistributeOutcomes(stories, players, 1, 4, true)
		if len(a) != len(b) {
			t.Fatalf("allocation not deterministic: %d vs %d outcomes", len(a), len(b))
		}
		for j := range a {
			if a[j].ID != b[j].ID {
				t.Fatalf("allocation not deterministic at %d: %q vs %q", j, a[j].ID, b[j].ID)
			}
		}
	}
}

func TestDistributeOutcomesEmpty(t *testing.T) {
	if got := DistributeOutcomes(nil, mkPlayers(3), 0, 0, true); len(got) != 0 {
		t.Fatalf("expected empty allocation for no stories, got %d", len(got))
	}
	if got := DistributeOutcomes(mkStories(3), nil, 0, 0, true); len(got) != 0 {
		t.Fatalf("expected empty allocation for no players, got %d", len(got))
	}
}

func TestBucketForIndex(t *testing.T) {
	want := []string{BucketSuccess, BucketNeutral, BucketFailure, BucketSuccess}
	for i, id := range want {
		if got := BucketForIndex(i); got.ID != id {
			t.Fatalf("player %d: expected bucket %s, got %s", i, id, got.ID)
		}
	}
}
