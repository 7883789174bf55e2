package game

import "sort"

// RecomputeAverages recalculates every submission's average ranking from
// the votes currently referencing it. Submissions with zero votes get 0 and
// are excluded from winning.
func (p *CollaborativeTextPhase) RecomputeAverages() {
	sums := make(map[string]int)
	counts := make(map[string]int)
	for _, votes := range p.Votes {
		for _, v := range votes {
			sums[v.SubmissionID] += v.Ranking
			counts[v.SubmissionID]++
		}
	}
	for _, sub := range p.Submissions {
		if counts[sub.ID] == 0 {
			sub.AverageRanking = 0
			continue
		}
		sub.AverageRanking = float64(sums[sub.ID]) / float64(counts[sub.ID])
	}
}

// votedSubmissions returns submissions with at least one vote, preserving
// insertion order.
func (p *CollaborativeTextPhase) votedSubmissions() []*TextSubmission {
	counts := make(map[string]int)
	for _, votes := range p.Votes {
		for _, v := range votes {
			counts[v.SubmissionID]++
		}
	}
	var out []*TextSubmission
	for _, sub := range p.Submissions {
		if counts[sub.ID] > 0 {
			out = append(out, sub)
		}
	}
	return out
}

// ComputeWinners recomputes averages and applies the phase's selection
// policy. Rank 1 is best, so the minimum average wins everywhere. Ties are
// broken by the stable first-encountered scan over insertion order,
// identically across all policies.
func ComputeWinners(p *CollaborativeTextPhase, spec PhaseSpec) []*TextSubmission {
	p.RecomputeAverages()
	voted := p.votedSubmissions()
	if len(voted) == 0 {
		return []*TextSubmission{}
	}

	switch spec.Policy {
	case PolicyAllVoted, PolicyTopK:
		ranked := make([]*TextSubmission, len(voted))
		copy(ranked, voted)
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].AverageRanking < ranked[j].AverageRanking
		})
		if spec.Policy == PolicyTopK && spec.TopK > 0 && len(ranked) > spec.TopK {
			ranked = ranked[:spec.TopK]
		}
		return ranked

	case PolicyPerBucket:
		var winners []*TextSubmission
		for _, bucket := range Buckets() {
			if best := bestTagged(voted, bucket.ID); best != nil {
				winners = append(winners, best)
			}
		}
		return winners

	case PolicyPerOption:
		var tags []string
		seen := make(map[string]bool)
		for _, sub := range voted {
			if sub.OutcomeType == nil || seen[sub.OutcomeType.ID] {
				continue
			}
			seen[sub.OutcomeType.ID] = true
			tags = append(tags, sub.OutcomeType.ID)
		}
		var winners []*TextSubmission
		for _, tag := range tags {
			if best := bestTagged(voted, tag); best != nil {
				winners = append(winners, best)
			}
		}
		return winners

	default: // PolicySingle
		best := voted[0]
		for _, sub := range voted[1:] {
			if sub.AverageRanking < best.AverageRanking {
				best = sub
			}
		}
		return []*TextSubmission{best}
	}
}

func bestTagged(subs []*TextSubmission, tagID string) *TextSubmission {
	var best *TextSubmission
	for _, sub := range subs {
		if sub.OutcomeType == nil || sub.OutcomeType.ID != tagID {
			continue
		}
		if best == nil || sub.AverageRanking < best.AverageRanking {
			best = sub
		}
	}
	return best
}

// VisibleSubmissions applies the voting-eligibility filter for one player.
// Untagged submissions are visible to everyone but their own author; tagged
// submissions only to players whose allocated outcome type (or one of its
// subtypes) matches the tag. Already-viewed submissions are skipped. Result
// is sorted descending by addition count, then descending by creation time.
func (p *CollaborativeTextPhase) VisibleSubmissions(playerID string, allocated []OutcomeType) []*TextSubmission {
	var out []*TextSubmission
	for _, sub := range p.Submissions {
		if sub.AuthorID == playerID {
			continue
		}
		if p.HasViewed(sub.ID, playerID) {
			continue
		}
		if sub.OutcomeType != nil && !anyMatches(allocated, sub.OutcomeType.ID) {
			continue
		}
		out = append(out, sub)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i].Additions) != len(out[j].Additions) {
			return len(out[i].Additions) > len(out[j].Additions)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func anyMatches(allocated []OutcomeType, tagID string) bool {
	for _, o := range allocated {
		if o.Matches(tagID) {
			return true
		}
	}
	return false
}
