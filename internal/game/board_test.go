package game

import (
	"strconv"
	"strings"
	"testing"
	"time"
)

func mkWinners(n int) []*TextSubmission {
	now := time.Now()
	out := make([]*TextSubmission, n)
	for i := range out {
		out[i] = &TextSubmission{
			ID:          "sub-" + strconv.Itoa(i),
			CurrentText: "encounter " + strconv.Itoa(i),
			CreatedAt:   now,
		}
	}
	return out
}

func TestPlaceEncountersLayout(t *testing.T) {
	winners := mkWinners(4)
	entity := &Encounter{Label: "The Entity"}
	cells := PlaceEncounters(winners, entity, NewRand(11))

	if len(cells) != 81 {
		t.Fatalf("expected a full 9x9 window, got %d cells", len(cells))
	}
	origin := cells[CellKey(0, 0)]
	if origin == nil || origin.SubmissionID != winners[0].ID {
		t.Fatalf("top winner must sit at the origin")
	}

	entityCells := 0
	for key, enc := range cells {
		x, y := parseCell(t, key)
		if x < -4 || x > 4 || y < -4 || y > 4 {
			t.Fatalf("cell %s outside the window", key)
		}
		if enc == entity {
			entityCells++
			if x*x != 1 || y*y != 1 {
				t.Fatalf("entity must sit on a diagonal neighbor, got %s", key)
			}
		}
	}
	if entityCells != 1 {
		t.Fatalf("expected exactly one entity cell, got %d", entityCells)
	}
}

func TestPlaceEncountersWeighting(t *testing.T) {
	winners := mkWinners(3)
	cells := PlaceEncounters(winners, &Encounter{Label: "e"}, NewRand(5))

	counts := make(map[string]int)
	for _, enc := range cells {
		counts[enc.SubmissionID]++
	}
	// Rank 1 gets 5 pool copies, rank 2 gets 4; over 79 filled cells the
	// round-robin keeps that proportion within one cell.
	if counts[winners[1].ID] <= counts[winners[2].ID] {
		t.Fatalf("higher-ranked winner must cover at least as many cells: %d vs %d",
			counts[winners[1].ID], counts[winners[2].ID])
	}
}

func TestPlaceEncountersSingleWinner(t *testing.T) {
	winners := mkWinners(1)
	cells := PlaceEncounters(winners, &Encounter{Label: "e"}, NewRand(2))

	for key, enc := range cells {
		if enc.Label == "e" {
			continue
		}
		if enc.SubmissionID != winners[0].ID {
			t.Fatalf("a lone winner must fill the board, cell %s got %q", key, enc.SubmissionID)
		}
	}
}

func TestPlaceEncountersEmpty(t *testing.T) {
	cells := PlaceEncounters(nil, &Encounter{Label: "e"}, NewRand(1))
	if len(cells) != 0 {
		t.Fatalf("no winners must leave the board empty, got %d cells", len(cells))
	}
}

func TestEncounterLabelTruncates(t *testing.T) {
	long := strings.Repeat("x", 100)
	if got := encounterLabel(long); len(got) != 48 {
		t.Fatalf("expected a 48-char label, got %d chars", len(got))
	}
	if got := encounterLabel("short"); got != "short" {
		t.Fatalf("short text must pass through, got %q", got)
	}
}

func parseCell(t *testing.T, key string) (int, int) {
	t.Helper()
	parts := strings.SplitN(key, ",", 2)
	x, err := strconv.Atoi(parts[0])
	if err != nil {
		t.Fatalf("bad cell key %q", key)
	}
	y, err := strconv.Atoi(parts[1])
	if err != nil {
		t.Fatalf("bad cell key %q", key)
	}
	return x, y
}
