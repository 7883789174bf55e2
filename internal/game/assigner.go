package game

// AssignItem is one authorship duty needing an owner. All options within one
// story or location share a single author, so the story/location is the item.
type AssignItem struct {
	ID       string
	Excluded []string // identities that may never author this item
}

func (it AssignItem) excludes(playerID string) bool {
	for _, id := range it.Excluded {
		if id == playerID {
			return true
		}
	}
	return false
}

// AuthorAssigner hands out authorship duties least-assignments-first, with
// exclusion rules and fallback relaxation. Randomness is confined to item
// processing order and residual tie-breaking.
type AuthorAssigner struct {
	rng *Rand
}

func NewAuthorAssigner(rng *Rand) *AuthorAssigner {
	return &AuthorAssigner{rng: rng}
}

// Assign returns item id -> player id. Items whose every candidate is
// excluded stay unassigned. Among eligible players the one with the fewest
// assignments so far wins; ties prefer the player with the fewest remaining
// eligible items, residual ties are broken uniformly at random. Once all
// items are processed the spread between most- and least-assigned eligible
// players is at most one, unless exclusions make that infeasible.
func (a *AuthorAssigner) Assign(players []*Player, items []AssignItem) map[string]string {
	assigned := make(map[string]string, len(items))
	if len(players) == 0 {
		return assigned
	}
	counts := make(map[string]int, len(players))

	// Fair-share cap for strict eligibility: a player already at the cap is
	// only considered after relaxation.
	share := (len(items) + len(players) - 1) / len(players)
	if share < 1 {
		share = 1
	}

	remaining := make([]AssignItem, len(items))
	copy(remaining, items)

	for len(remaining) > 0 {
		// Randomized processing order per pass avoids positional bias.
		a.rng.Shuffle(len(remaining), func(i, j int) {
			remaining[i], remaining[j] = remaining[j], remaining[i]
		})

		var next []AssignItem
		progressed := false
		for idx, item := range remaining {
			pick := a.pick(players, item, remaining[idx+1:], counts, share)
			if pick == "" {
				pick = a.pick(players, item, nil, counts, len(items)+1) // relaxed: not-excluded only
			}
			if pick == "" {
				next = append(next, item) // nobody eligible, ever
				continue
			}
			assigned[item.ID] = pick
			counts[pick]++
			progressed = true
		}
		if !progressed {
			break
		}
		remaining = next
	}
	return assigned
}

// pick chooses the best candidate for an item: fewest assignments first,
// then fewest remaining eligible items, then random.
func (a *AuthorAssigner) pick(players []*Player, item AssignItem, rest []AssignItem, counts map[string]int, share int) string {
	var candidates []*Player
	for _, p := range players {
		if item.excludes(p.ID) || counts[p.ID] >= share {
			continue
		}
		candidates = append(candidates, p)
	}
	if len(candidates) == 0 {
		return ""
	}

	minCount := counts[candidates[0].ID]
	for _, p := range candidates[1:] {
		if counts[p.ID] < minCount {
			minCount = counts[p.ID]
		}
	}
	var least []*Player
	for _, p := range candidates {
		if counts[p.ID] == minCount {
			least = append(least, p)
		}
	}
	if len(least) == 1 {
		return least[0].ID
	}

	// Prefer players running out of opportunities.
	minOpp := -1
	var starved []*Player
	for _, p := range least {
		opp := 0
		for _, it := range rest {
			if !it.excludes(p.ID) {
				opp++
			}
		}
		if minOpp == -1 || opp < minOpp {
			minOpp = opp
			starved = []*Player{p}
		} else if opp == minOpp {
			starved = append(starved, p)
		}
	}
	return starved[a.rng.Intn(len(starved))].ID
}
