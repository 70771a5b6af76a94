package bracket

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntrants(n int) []Entrant {
	entrants := make([]Entrant, 0, n)
	for i := 1; i <= n; i++ {
		entrants = append(entrants, Entrant{ID: 100 + i, Name: fmt.Sprintf("Entrant %d", i), Seed: i})
	}
	return entrants
}

var testPhase = Phase{ID: "phase-1", Name: "Singles Bracket", BestOf: 3}

func TestGenerateRound1SeedOrder(t *testing.T) {
	testCases := []struct {
		name       string
		numEntries int
		expected   [][2]int
	}{
		{
			name:       "2 entries",
			numEntries: 2,
			expected:   [][2]int{{1, 2}},
		},
		{
			name:       "4 entries",
			numEntries: 4,
			expected:   [][2]int{{1, 4}, {2, 3}},
		},
		{
			name:       "8 entries",
			numEntries: 8,
			expected:   [][2]int{{1, 8}, {4, 5}, {2, 7}, {3, 6}},
		},
		{
			name:       "Non-power of 2 (7 entries)",
			numEntries: 7,
			expected:   [][2]int{{1, 8}, {4, 5}, {2, 7}, {3, 6}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actual := generateRound1Pairs(tc.numEntries)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestCalcBracketSize(t *testing.T) {
	cases := map[int]int{0: 2, 1: 2, 2: 2, 3: 4, 4: 4, 5: 8, 8: 8, 9: 16, 33: 64}
	for count, expected := range cases {
		assert.Equal(t, expected, calcBracketSize(count), "count %d", count)
	}
}

func TestGenerateDoubleElim_SetCounts(t *testing.T) {
	testCases := []struct {
		name       string
		entrants   int
		allowReset bool
		expected   int
	}{
		{name: "2 entrants no reset", entrants: 2, allowReset: false, expected: 2},
		{name: "2 entrants with reset", entrants: 2, allowReset: true, expected: 3},
		{name: "4 entrants with reset", entrants: 4, allowReset: true, expected: 7},
		{name: "5 entrants no reset", entrants: 5, allowReset: false, expected: 14},
		{name: "8 entrants with reset", entrants: 8, allowReset: true, expected: 15},
		{name: "13 entrants with reset", entrants: 13, allowReset: true, expected: 31},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sets, err := GenerateDoubleElim(testEntrants(tc.entrants), testPhase, tc.allowReset)
			require.NoError(t, err)
			assert.Len(t, sets, tc.expected)
		})
	}
}

func TestGenerateDoubleElim_EveryEntrantPlacedOnce(t *testing.T) {
	for _, n := range []int{2, 3, 5, 7, 8, 12, 16, 17} {
		t.Run(fmt.Sprintf("%d entrants", n), func(t *testing.T) {
			entrants := testEntrants(n)
			sets, err := GenerateDoubleElim(entrants, testPhase, true)
			require.NoError(t, err)

			seen := make(map[int]int)
			for _, s := range sets {
				for _, slot := range s.Slots {
					if slot.Source.Kind == SourceEntrant {
						assert.Equal(t, "W1", s.RoundLabel, "fixed entrants only appear in the first round")
						seen[slot.Source.EntrantID]++
					}
				}
			}

			require.Len(t, seen, n)
			for _, e := range entrants {
				assert.Equal(t, 1, seen[e.ID], "entrant %d", e.ID)
			}
		})
	}
}

func TestGenerateDoubleElim_FourEntrants(t *testing.T) {
	entrants := testEntrants(4)
	sets, err := GenerateDoubleElim(entrants, testPhase, true)
	require.NoError(t, err)

	labels := make([]string, 0, len(sets))
	for _, s := range sets {
		labels = append(labels, s.RoundLabel)
	}
	assert.Equal(t, []string{"W1", "W1", "W2", "L1", "L2", "GF1", "GF2"}, labels)

	// Seed 1 vs seed 4, seed 2 vs seed 3
	assert.Equal(t, FixedEntrant(101), sets[0].Slots[0].Source)
	assert.Equal(t, FixedEntrant(104), sets[0].Slots[1].Source)
	assert.Equal(t, FixedEntrant(102), sets[1].Slots[0].Source)
	assert.Equal(t, FixedEntrant(103), sets[1].Slots[1].Source)

	l1 := sets[3]
	assert.Equal(t, -1, l1.Round)
	assert.Equal(t, LoserOf(sets[0].ID), l1.Slots[0].Source)
	assert.Equal(t, LoserOf(sets[1].ID), l1.Slots[1].Source)

	l2 := sets[4]
	assert.Equal(t, -2, l2.Round)
	assert.Equal(t, WinnerOf(l1.ID), l2.Slots[0].Source)
	assert.Equal(t, LoserOf(sets[2].ID), l2.Slots[1].Source)

	gf1, gf2 := sets[5], sets[6]
	assert.Equal(t, 0, gf1.Round)
	assert.Equal(t, WinnerOf(sets[2].ID), gf1.Slots[0].Source)
	assert.Equal(t, WinnerOf(l2.ID), gf1.Slots[1].Source)
	assert.Nil(t, gf1.Condition)

	assert.Equal(t, WinnerOf(gf1.ID), gf2.Slots[0].Source)
	assert.Equal(t, LoserOf(gf1.ID), gf2.Slots[1].Source)
	require.NotNil(t, gf2.Condition)
	assert.Equal(t, gf1.ID, gf2.Condition.GrandFinalID)
	assert.Equal(t, 1, gf2.Condition.LosersSlot)

	for i, s := range sets {
		assert.Equal(t, SetPending, s.State)
		assert.Equal(t, i+1, s.SortOrder)
		assert.Equal(t, 3, s.BestOf)
		assert.Equal(t, "phase-1", s.PhaseID)
	}
}

func TestGenerateDoubleElim_TwoEntrantsHasNoLosersBracket(t *testing.T) {
	sets, err := GenerateDoubleElim(testEntrants(2), testPhase, false)
	require.NoError(t, err)
	require.Len(t, sets, 2)

	wf, gf1 := sets[0], sets[1]
	assert.Equal(t, WinnerOf(wf.ID), gf1.Slots[0].Source)
	assert.Equal(t, LoserOf(wf.ID), gf1.Slots[1].Source)
}

func TestGenerateDoubleElim_ByeSlotsAreEmpty(t *testing.T) {
	// 5 entrants -> 8 slots, seeds 6, 7 and 8 are byes
	sets, err := GenerateDoubleElim(testEntrants(5), testPhase, true)
	require.NoError(t, err)

	empty := 0
	for _, s := range sets {
		if s.RoundLabel != "W1" {
			continue
		}
		for _, slot := range s.Slots {
			if slot.Source.Kind == SourceEmpty {
				empty++
			}
		}
	}
	assert.Equal(t, 3, empty)
}

func TestGenerateDoubleElim_IsAcyclic(t *testing.T) {
	sets, err := GenerateDoubleElim(testEntrants(16), testPhase, true)
	require.NoError(t, err)

	order := make(map[int64]int, len(sets))
	for _, s := range sets {
		order[s.ID] = s.SortOrder
	}
	// Every source set is created before the set that consumes it
	for _, s := range sets {
		for _, slot := range s.Slots {
			if src, ok := slot.Source.DependsOnSet(); ok {
				require.Contains(t, order, src)
				assert.Less(t, order[src], s.SortOrder)
			}
		}
	}
}
