package sim

import (
	"fmt"

	"github.com/AdamBeresnev/bracket-sim/internal/bracket"
)

// mutate applies op and returns the snapshot at now. The engine only advances
// after op, so automatic mode never starts or finishes the target set first.
func (e *Engine) mutate(now int64, op func() error) (*Snapshot, error) {
	if err := op(); err != nil {
		return nil, err
	}
	return e.State(now)
}

// AdvanceSet moves a set one step along its lifecycle: a pending set starts,
// a running set is played out with a random result.
func (e *Engine) AdvanceSet(id int64, now int64) (*Snapshot, error) {
	return e.mutate(now, func() error { return e.advanceSet(id, now) })
}

func (e *Engine) StartSetManual(id int64, now int64) (*Snapshot, error) {
	return e.mutate(now, func() error { return e.startSetManual(id, now) })
}

// FinishSetManual completes a set with the given winner and scores. Sets with
// fewer than two entrants degrade to a bye or a skip.
func (e *Engine) FinishSetManual(id int64, winnerSlot int, scores [2]int, now int64) (*Snapshot, error) {
	return e.mutate(now, func() error { return e.finishSetManual(id, winnerSlot, scores, now) })
}

func (e *Engine) ForceWinner(id int64, winnerSlot int, now int64) (*Snapshot, error) {
	return e.mutate(now, func() error { return e.forceWinner(id, winnerSlot, now) })
}

func (e *Engine) MarkDisqualified(id int64, dqSlot int, now int64) (*Snapshot, error) {
	return e.mutate(now, func() error { return e.markDisqualified(id, dqSlot, now) })
}

// UpdateScoresManual records a partial score line. It never completes the set.
func (e *Engine) UpdateScoresManual(id int64, scores [2]int, now int64) (*Snapshot, error) {
	return e.mutate(now, func() error { return e.updateScoresManual(id, scores, now) })
}

func validSlot(slot int) error {
	if slot < 0 || slot > 1 {
		return fmt.Errorf("slot %d: %w", slot, bracket.ErrInvalidSlot)
	}
	return nil
}

// playableSet looks up a set that is not terminal and has both entrants.
func (e *Engine) playableSet(id int64) (*bracket.Set, error) {
	s, err := e.set(id)
	if err != nil {
		return nil, err
	}
	if s.State.Terminal() {
		return nil, fmt.Errorf("set %d: %w", id, bracket.ErrAlreadyCompleted)
	}
	if !s.Ready() {
		return nil, fmt.Errorf("set %d: %w", id, bracket.ErrMissingEntrants)
	}
	return s, nil
}

func (e *Engine) advanceSet(id int64, now int64) error {
	s, err := e.set(id)
	if err != nil {
		return err
	}

	switch s.State {
	case bracket.SetPending:
		if !s.Ready() {
			return fmt.Errorf("set %d: %w", id, bracket.ErrMissingEntrants)
		}
		e.startSet(s, now)
	case bracket.SetInProgress:
		e.completeSet(s, now)
	default:
		return fmt.Errorf("set %d: %w", id, bracket.ErrAlreadyCompleted)
	}
	return e.resolve(now)
}

func (e *Engine) startSetManual(id int64, now int64) error {
	s, err := e.set(id)
	if err != nil {
		return err
	}
	switch {
	case s.State.Terminal():
		return fmt.Errorf("set %d: %w", id, bracket.ErrAlreadyCompleted)
	case s.State != bracket.SetPending:
		return fmt.Errorf("set %d: %w", id, bracket.ErrAlreadyStarted)
	case !s.Ready():
		return fmt.Errorf("set %d: %w", id, bracket.ErrMissingEntrants)
	}

	s.State = bracket.SetInProgress
	s.StartedAtMs = &now
	s.EndAtMs = nil
	s.UpdatedAtMs = now
	return nil
}

func (e *Engine) finishSetManual(id int64, winnerSlot int, scores [2]int, now int64) error {
	if err := validSlot(winnerSlot); err != nil {
		return err
	}
	s, err := e.set(id)
	if err != nil {
		return err
	}
	if s.State.Terminal() {
		return fmt.Errorf("set %d: %w", id, bracket.ErrAlreadyCompleted)
	}

	filled := s.Filled()
	switch len(filled) {
	case 0:
		s.StartedAtMs = &now
		skip(s, now)
	case 1:
		finalizeBye(s, filled[0], now)
	default:
		finalize(s, winnerSlot, scores, bracket.ResultLoss, now)
	}
	return e.resolve(now)
}

func (e *Engine) forceWinner(id int64, winnerSlot int, now int64) error {
	if err := validSlot(winnerSlot); err != nil {
		return err
	}
	s, err := e.playableSet(id)
	if err != nil {
		return err
	}

	var scores [2]int
	scores[winnerSlot] = bracket.GamesToWin(s.BestOf)
	finalize(s, winnerSlot, scores, bracket.ResultLoss, now)
	return e.resolve(now)
}

func (e *Engine) markDisqualified(id int64, dqSlot int, now int64) error {
	if err := validSlot(dqSlot); err != nil {
		return err
	}
	s, err := e.playableSet(id)
	if err != nil {
		return err
	}

	winner := bracket.Opponent(dqSlot)
	var scores [2]int
	scores[winner] = bracket.GamesToWin(s.BestOf)
	finalize(s, winner, scores, bracket.ResultDisqualified, now)
	return e.resolve(now)
}

func (e *Engine) updateScoresManual(id int64, scores [2]int, now int64) error {
	s, err := e.playableSet(id)
	if err != nil {
		return err
	}

	for i := range s.Slots {
		score := max(scores[i], 0)
		s.Slots[i].Score = &score
	}
	if s.State == bracket.SetPending {
		s.State = bracket.SetInProgress
		s.StartedAtMs = &now
		s.EndAtMs = nil
	}
	s.UpdatedAtMs = now
	return nil
}
