package sim

import (
	"fmt"
	"math/rand/v2"

	"github.com/AdamBeresnev/bracket-sim/internal/bracket"
)

const (
	maxResolvePasses        = 1000
	maxCompletionIterations = 10000
)

// Engine owns one bracket and every set in it. It is not safe for concurrent use;
// callers serialize access.
type Engine struct {
	cfg         bracket.Config
	entrants    []bracket.Entrant
	byID        map[int]bracket.Entrant
	graph       *bracket.Graph
	startedAtMs int64
	rng         *rand.Rand
}

// New builds the bracket described by cfg and resolves everything that can be
// resolved without play (byes, empty sets).
func New(cfg bracket.Config, nowMs int64) (*Engine, error) {
	e, err := build(cfg, nowMs)
	if err != nil {
		return nil, err
	}
	if err := e.resolve(nowMs); err != nil {
		return nil, err
	}
	return e, nil
}

func build(cfg bracket.Config, nowMs int64) (*Engine, error) {
	entrants, graph, err := bracket.Build(cfg)
	if err != nil {
		return nil, err
	}

	byID := make(map[int]bracket.Entrant, len(entrants))
	for _, entrant := range entrants {
		byID[entrant.ID] = entrant
	}

	return &Engine{
		cfg:         cfg,
		entrants:    entrants,
		byID:        byID,
		graph:       graph,
		startedAtMs: nowMs,
		rng:         newRNG(cfg.Simulation.Seed),
	}, nil
}

func (e *Engine) Config() bracket.Config {
	return e.cfg
}

func (e *Engine) HasReferenceSets() bool {
	return e.cfg.HasReferenceSets()
}

func (e *Engine) set(id int64) (*bracket.Set, error) {
	s, ok := e.graph.Get(id)
	if !ok {
		return nil, fmt.Errorf("set %d: %w", id, bracket.ErrSetNotFound)
	}
	return s, nil
}

// advance brings the bracket up to now: finishes timed sets, propagates results
// and, in automatic mode, starts as many ready sets as the concurrency cap allows.
func (e *Engine) advance(now int64) error {
	automatic := !e.cfg.Simulation.ManualMode

	if automatic {
		for _, s := range e.graph.Sets {
			if s.State == bracket.SetInProgress && s.EndAtMs != nil && *s.EndAtMs <= now {
				e.completeSet(s, now)
			}
		}
	}

	if err := e.resolve(now); err != nil {
		return err
	}

	if automatic {
		e.startReadySets(now)
	}
	return nil
}

// resolve runs the propagation loop until a full pass changes nothing.
func (e *Engine) resolve(now int64) error {
	for pass := 0; pass < maxResolvePasses; pass++ {
		progressed := false

		for _, s := range e.graph.Sets {
			if s.State != bracket.SetPending {
				continue
			}

			if e.applyCondition(s, now) {
				progressed = true
				continue
			}

			first := e.resolveSource(s.Slots[0].Source)
			second := e.resolveSource(s.Slots[1].Source)

			if applySlotResolution(&s.Slots[0], first) {
				s.UpdatedAtMs = now
				progressed = true
			}
			if applySlotResolution(&s.Slots[1], second) {
				s.UpdatedAtMs = now
				progressed = true
			}

			if e.applyAutoBye(s, first, second, now) {
				progressed = true
			}
		}

		if !progressed {
			return nil
		}
	}
	return fmt.Errorf("resolution did not settle after %d passes: %w", maxResolvePasses, bracket.ErrSafetyLimitExceeded)
}

// applyCondition handles the grand-finals reset. It returns true only when the
// set was skipped because the winners side took the first grand final.
func (e *Engine) applyCondition(s *bracket.Set, now int64) bool {
	cond := s.Condition
	if cond == nil {
		return false
	}

	gf, ok := e.graph.Get(cond.GrandFinalID)
	if !ok {
		s.Condition = nil
		return false
	}
	if gf.State != bracket.SetCompleted {
		return false
	}
	if gf.WinnerSlot != nil && *gf.WinnerSlot == cond.LosersSlot {
		s.Condition = nil
		return false
	}

	s.State = bracket.SetSkipped
	s.StartedAtMs = &now
	s.CompletedAtMs = &now
	s.UpdatedAtMs = now
	s.Condition = nil
	return true
}

type resolutionKind int

const (
	resolvedEmpty resolutionKind = iota
	resolvedPending
	resolvedReady
)

type resolution struct {
	kind      resolutionKind
	entrantID int
}

func (e *Engine) resolveSource(src bracket.SlotSource) resolution {
	switch src.Kind {
	case bracket.SourceEmpty:
		return resolution{kind: resolvedEmpty}
	case bracket.SourceEntrant:
		return resolution{kind: resolvedReady, entrantID: src.EntrantID}
	case bracket.SourceWinner, bracket.SourceLoser:
		upstream, ok := e.graph.Get(src.SetID)
		if !ok {
			return resolution{kind: resolvedEmpty}
		}
		switch upstream.State {
		case bracket.SetCompleted:
			id := upstream.WinnerID()
			if src.Kind == bracket.SourceLoser {
				id = upstream.LoserID()
			}
			if id == nil {
				return resolution{kind: resolvedEmpty}
			}
			return resolution{kind: resolvedReady, entrantID: *id}
		case bracket.SetSkipped:
			return resolution{kind: resolvedEmpty}
		default:
			return resolution{kind: resolvedPending}
		}
	default:
		panic(fmt.Sprintf("unknown slot source kind %d", src.Kind))
	}
}

func applySlotResolution(slot *bracket.Slot, r resolution) bool {
	switch r.kind {
	case resolvedReady:
		if slot.EntrantID != nil && *slot.EntrantID == r.entrantID {
			return false
		}
		id := r.entrantID
		slot.EntrantID = &id
		return true
	case resolvedEmpty:
		if slot.EntrantID == nil {
			return false
		}
		slot.EntrantID = nil
		return true
	default:
		return false
	}
}

func (e *Engine) applyAutoBye(s *bracket.Set, first, second resolution, now int64) bool {
	switch {
	case first.kind == resolvedReady && second.kind == resolvedEmpty:
		finalizeBye(s, 0, now)
		return true
	case first.kind == resolvedEmpty && second.kind == resolvedReady:
		finalizeBye(s, 1, now)
		return true
	case first.kind == resolvedEmpty && second.kind == resolvedEmpty:
		s.State = bracket.SetSkipped
		s.StartedAtMs = &now
		s.CompletedAtMs = &now
		s.UpdatedAtMs = now
		return true
	default:
		return false
	}
}

// finalizeBye completes a set that has a single entrant. No loser is recorded.
func finalizeBye(s *bracket.Set, winner int, now int64) {
	s.State = bracket.SetCompleted
	s.StartedAtMs = &now
	s.CompletedAtMs = &now
	s.UpdatedAtMs = now
	s.EndAtMs = nil
	s.WinnerSlot = &winner
	s.LoserSlot = nil

	score := bracket.GamesToWin(s.BestOf)
	result := bracket.ResultWin
	s.Slots[winner].Score = &score
	s.Slots[winner].Result = &result
}

// finalize completes a played set. The loser result is Loss or Disqualified.
func finalize(s *bracket.Set, winner int, scores [2]int, loserResult bracket.SlotResult, now int64) {
	loser := bracket.Opponent(winner)

	winScore, loseScore := scores[winner], scores[loser]
	winResult := bracket.ResultWin
	s.Slots[winner].Score = &winScore
	s.Slots[winner].Result = &winResult
	s.Slots[loser].Score = &loseScore
	s.Slots[loser].Result = &loserResult

	s.WinnerSlot = &winner
	s.LoserSlot = &loser
	s.State = bracket.SetCompleted
	if s.StartedAtMs == nil {
		s.StartedAtMs = &now
	}
	s.CompletedAtMs = &now
	s.UpdatedAtMs = now
	s.EndAtMs = nil
}

func skip(s *bracket.Set, now int64) {
	s.State = bracket.SetSkipped
	if s.StartedAtMs == nil {
		s.StartedAtMs = &now
	}
	s.CompletedAtMs = &now
	s.UpdatedAtMs = now
	s.EndAtMs = nil
	s.WinnerSlot = nil
	s.LoserSlot = nil
}
