package sim

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/AdamBeresnev/bracket-sim/internal/bracket"
)

const (
	defaultMinDurationSec = 300
	defaultMaxDurationSec = 540
	unknownSeedWeight     = 999
)

// newRNG returns the engine's source of randomness. Same seed, same draws.
func newRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// sampleDurationMs draws a set length from the configured range, scaled by timeScale.
func (e *Engine) sampleDurationMs() int64 {
	sim := e.cfg.Simulation

	minSec, maxSec := sim.MinSetDurationSec, sim.MaxSetDurationSec
	if minSec == 0 && maxSec == 0 {
		minSec, maxSec = defaultMinDurationSec, defaultMaxDurationSec
	}
	if minSec > maxSec {
		minSec, maxSec = maxSec, minSec
	}

	picked := minSec + e.rng.IntN(maxSec-minSec+1)

	scale := sim.TimeScale
	if scale <= 0 {
		scale = 1
	}
	return int64(math.Round(float64(picked) * 1000 / scale))
}

// pickWinner favours the better seed: each side is weighted by 1/seed.
func (e *Engine) pickWinner(s *bracket.Set) int {
	wa := 1 / float64(e.seedOf(s.Slots[0].EntrantID))
	wb := 1 / float64(e.seedOf(s.Slots[1].EntrantID))

	roll := e.rng.Float64() * (wa + wb)
	if roll < wa {
		return 0
	}
	return 1
}

func (e *Engine) seedOf(id *int) int {
	if id == nil {
		return unknownSeedWeight
	}
	entrant, ok := e.byID[*id]
	if !ok || entrant.Seed <= 0 {
		return unknownSeedWeight
	}
	return entrant.Seed
}

// startSet puts a pending set on the clock.
func (e *Engine) startSet(s *bracket.Set, now int64) {
	duration := e.sampleDurationMs()
	if s.State != bracket.SetPending {
		return
	}
	endAt := now + duration
	s.State = bracket.SetInProgress
	s.StartedAtMs = &now
	s.EndAtMs = &endAt
	s.UpdatedAtMs = now
}

// completeSet plays out an in-progress set with a random winner and score line.
func (e *Engine) completeSet(s *bracket.Set, now int64) {
	if s.State != bracket.SetInProgress {
		return
	}
	if !s.Ready() {
		skip(s, now)
		return
	}

	gtw := bracket.GamesToWin(s.BestOf)
	winner := e.pickWinner(s)

	var scores [2]int
	scores[winner] = gtw
	scores[bracket.Opponent(winner)] = e.rng.IntN(gtw)

	finalize(s, winner, scores, bracket.ResultLoss, now)
}

// startReadySets fills free concurrency slots with ready sets in creation order.
func (e *Engine) startReadySets(now int64) {
	limit := e.cfg.Simulation.MaxConcurrentSets
	if limit < 1 {
		limit = 1
	}

	inProgress := 0
	var ready []*bracket.Set
	for _, s := range e.graph.Sets {
		switch {
		case s.State == bracket.SetInProgress:
			inProgress++
		case s.State == bracket.SetPending && s.Condition == nil && s.Ready():
			ready = append(ready, s)
		}
	}

	sort.SliceStable(ready, func(i, j int) bool {
		return ready[i].SortOrder < ready[j].SortOrder
	})

	for _, s := range ready {
		if inProgress >= limit {
			return
		}
		e.startSet(s, now)
		inProgress++
	}
}
