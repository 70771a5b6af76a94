package bracket

import (
	"fmt"
	"math"
)

// Gets the nearest power of 2 while rounding up, so with input 5 it returns 8 and so on.
// Anything below 2 still gets a 2 slot bracket.
func calcBracketSize(count int) int {
	if count <= 2 {
		return 2
	}

	// Log2 -> Ceil -> 2^^log2 to round up
	log2 := math.Ceil(math.Log2(float64(count)))
	return int(math.Pow(2, log2))
}

// seedPositions returns the 1-based seed at every bracket line, so that
// pairs (0,1), (2,3), ... are the first round matchups.
func seedPositions(bracketSize int) []int {
	positions := []int{1}
	for len(positions) < bracketSize {
		next := make([]int, 0, len(positions)*2)
		currentCount := len(positions) * 2

		for _, seed := range positions {
			next = append(next, seed)
			next = append(next, currentCount+1-seed)
		}
		positions = next
	}
	return positions
}

func generateRound1Pairs(bracketSize int) [][2]int {
	positions := seedPositions(bracketSize)

	pairs := make([][2]int, 0, bracketSize/2)
	for i := 0; i < len(positions); i += 2 {
		pairs = append(pairs, [2]int{positions[i], positions[i+1]})
	}
	return pairs
}

// setBuilder hands out ids and creation order while a graph is being assembled.
type setBuilder struct {
	phase     Phase
	sets      []*Set
	nextID    int64
	nextOrder int
}

func newSetBuilder(phase Phase) *setBuilder {
	return &setBuilder{phase: phase, nextID: 1, nextOrder: 1}
}

func (b *setBuilder) push(id int64, round int, label string, a, c SlotSource) *Set {
	s := &Set{
		ID:         id,
		PhaseID:    b.phase.ID,
		Round:      round,
		RoundLabel: label,
		BestOf:     b.phase.BestOf,
		Slots:      [2]Slot{{Source: a}, {Source: c}},
		State:      SetPending,
		SortOrder:  b.nextOrder,
	}
	b.nextOrder++
	b.sets = append(b.sets, s)
	return s
}

func (b *setBuilder) add(round int, label string, a, c SlotSource) int64 {
	id := b.nextID
	b.nextID++
	b.push(id, round, label, a, c)
	return id
}

// GenerateDoubleElim builds a full double elimination bracket for a seeded roster.
// Seeds without an entrant become empty slots and resolve as byes.
func GenerateDoubleElim(entrants []Entrant, phase Phase, allowReset bool) ([]*Set, error) {
	bracketSize := calcBracketSize(len(entrants))
	totalRounds := int(math.Log2(float64(bracketSize)))

	seedMap := make(map[int]int, len(entrants))
	for _, e := range entrants {
		seedMap[e.Seed] = e.ID
	}
	seedSource := func(seed int) SlotSource {
		if id, ok := seedMap[seed]; ok {
			return FixedEntrant(id)
		}
		return EmptySource()
	}

	b := newSetBuilder(phase)

	winnersRounds := make([][]int64, 0, totalRounds)

	round1 := make([]int64, 0, bracketSize/2)
	for _, pair := range generateRound1Pairs(bracketSize) {
		round1 = append(round1, b.add(1, "W1", seedSource(pair[0]), seedSource(pair[1])))
	}
	winnersRounds = append(winnersRounds, round1)

	for r := 2; r <= totalRounds; r++ {
		prev := winnersRounds[r-2]
		ids := make([]int64, 0, len(prev)/2)
		for i := 0; i < len(prev)/2; i++ {
			ids = append(ids, b.add(r, fmt.Sprintf("W%d", r), WinnerOf(prev[i*2]), WinnerOf(prev[i*2+1])))
		}
		winnersRounds = append(winnersRounds, ids)
	}

	// Each winners round after the first feeds two losers rounds: an odd round that halves
	// the field, then an even round where those winners meet the drop-downs.
	var losersRounds [][]int64
	for i := 1; i < totalRounds; i++ {
		count := len(winnersRounds[i])

		odd := make([]int64, 0, count)
		for j := 0; j < count; j++ {
			var a, c SlotSource
			if i == 1 {
				a, c = LoserOf(winnersRounds[0][j*2]), LoserOf(winnersRounds[0][j*2+1])
			} else {
				prevEven := losersRounds[len(losersRounds)-1]
				a, c = WinnerOf(prevEven[j*2]), WinnerOf(prevEven[j*2+1])
			}
			odd = append(odd, b.add(-(i*2 - 1), fmt.Sprintf("L%d", i*2-1), a, c))
		}
		losersRounds = append(losersRounds, odd)

		even := make([]int64, 0, count)
		for j := 0; j < count; j++ {
			even = append(even, b.add(-(i * 2), fmt.Sprintf("L%d", i*2), WinnerOf(odd[j]), LoserOf(winnersRounds[i][j])))
		}
		losersRounds = append(losersRounds, even)
	}

	lastWinners := winnersRounds[len(winnersRounds)-1]
	if len(lastWinners) != 1 {
		return nil, fmt.Errorf("winners final has %d sets", len(lastWinners))
	}
	winnersFinal := lastWinners[0]

	losersSource := LoserOf(winnersFinal)
	if len(losersRounds) > 0 {
		losersSource = WinnerOf(losersRounds[len(losersRounds)-1][0])
	}

	gf1 := b.add(0, "GF1", WinnerOf(winnersFinal), losersSource)

	if allowReset {
		b.add(0, "GF2", WinnerOf(gf1), LoserOf(gf1))
		b.sets[len(b.sets)-1].Condition = &ResetCondition{GrandFinalID: gf1, LosersSlot: 1}
	}

	return b.sets, nil
}
