package game

// The three fixed outcome buckets. Bucket ids double as outcome-type tags.
const (
	BucketSuccess = "SUCCESS"
	BucketNeutral = "NEUTRAL"
	BucketFailure = "FAILURE"
)

// Buckets returns the fixed bucket outcome types in canonical order.
func Buckets() []OutcomeType {
	return []OutcomeType{
		{ID: BucketSuccess, Label: "success"},
		{ID: BucketNeutral, Label: "neutral"},
		{ID: BucketFailure, Label: "failure"},
	}
}

// BucketForIndex assigns a player index round-robin to one of the three
// fixed buckets.
func BucketForIndex(playerIndex int) OutcomeType {
	return Buckets()[playerIndex%3]
}

// DistributeOutcomes maps stories to a player by stable offset round-robin.
// Stories and players must be pre-sorted by their stable keys (creation
// order / join order). Pure and deterministic: identical inputs always give
// identical outputs, so retries are idempotent.
//
// With at most as many stories as players, or allowMultiple false, the
// player gets exactly one story (wrapping), including one subtype per option
// so callers can resolve per-option outcomes. With more stories than
// players and allowMultiple true, the player gets every story whose index
// has their residue, without subtypes.
func DistributeOutcomes(stories []*Story, players []*Player, playerIndex, offset int, allowMultiple bool) []OutcomeType {
	if len(stories) == 0 || len(players) == 0 {
		return []OutcomeType{}
	}
	p := (playerIndex + offset) % len(players)

	if len(stories) <= len(players) || !allowMultiple {
		story := stories[p%len(stories)]
		out := outcomeFromStory(story)
		for _, opt := range story.Options {
			out.SubTypes = append(out.SubTypes, OutcomeType{ID: opt.ID, Label: opt.Text})
		}
		return []OutcomeType{out}
	}

	out := []OutcomeType{}
	for i, story := range stories {
		if i%len(players) == p {
			out = append(out, outcomeFromStory(story))
		}
	}
	return out
}

func outcomeFromStory(s *Story) OutcomeType {
	return OutcomeType{
		ID:        s.ID,
		Label:     s.Prompt,
		Clarifier: s.PrequelStoryID,
	}
}
