package game

// Board placement constants. The copy weights are game-balance content
// inherited from the original ruleset; tune them there, not here.
const (
	boardWindow    = 4 // cells span [-boardWindow, boardWindow] on both axes
	placementDecay = 6 // rank r gets max(1, placementDecay-r) pool copies
)

var diagonals = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}

// PlaceEncounters lays the ranked SET_ENCOUNTERS winners onto a fresh
// board. The top submission's encounter sits at the origin, the entity at a
// random diagonal cell, and the remaining cells of the 9x9 window are filled
// round-robin from a rank-weighted pool over the rest of the winners. With
// no other winners the top submission repeats across the window.
func PlaceEncounters(winners []*TextSubmission, entity *Encounter, rng *Rand) map[string]*Encounter {
	cells := make(map[string]*Encounter)
	if len(winners) == 0 {
		return cells
	}

	cells[CellKey(0, 0)] = encounterFor(winners[0])

	d := diagonals[rng.Intn(len(diagonals))]
	entityKey := CellKey(d[0], d[1])
	cells[entityKey] = entity

	var pool []*TextSubmission
	for i, sub := range winners[1:] {
		copies := placementDecay - (i + 1)
		if copies < 1 {
			copies = 1
		}
		for c := 0; c < copies; c++ {
			pool = append(pool, sub)
		}
	}
	if len(pool) == 0 {
		pool = []*TextSubmission{winners[0]}
	}

	var open []string
	for x := -boardWindow; x <= boardWindow; x++ {
		for y := -boardWindow; y <= boardWindow; y++ {
			key := CellKey(x, y)
			if key == CellKey(0, 0) || key == entityKey {
				continue
			}
			open = append(open, key)
		}
	}
	rng.Shuffle(len(open), func(i, j int) { open[i], open[j] = open[j], open[i] })

	for i, key := range open {
		cells[key] = encounterFor(pool[i%len(pool)])
	}
	return cells
}

func encounterFor(sub *TextSubmission) *Encounter {
	return &Encounter{
		Label:        encounterLabel(sub.CurrentText),
		SubmissionID: sub.ID,
	}
}

// encounterLabel truncates a submission's text to a short board label.
func encounterLabel(text string) string {
	const max = 48
	if len(text) <= max {
		return text
	}
	return text[:max]
}
