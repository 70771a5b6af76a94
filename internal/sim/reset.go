package sim

import (
	"log/slog"
	"sort"

	"github.com/AdamBeresnev/bracket-sim/internal/bracket"
	"github.com/AdamBeresnev/bracket-sim/internal/utils"
)

// recordedOutcome is a completed result kept across a rebuild.
type recordedOutcome struct {
	setID      int64
	sortOrder  int
	winnerSlot int
	scores     [2]int
	dqSlot     *int
}

// ResetSetAndDependents clears a set and everything downstream of it. The bracket is
// rebuilt from config and every other played result is replayed in creation order.
func (e *Engine) ResetSetAndDependents(id int64, now int64) (*Snapshot, error) {
	return e.mutate(now, func() error { return e.resetSetAndDependents(id, now) })
}

func (e *Engine) resetSetAndDependents(id int64, now int64) error {
	if _, err := e.set(id); err != nil {
		return err
	}

	affected := e.graph.Downstream(id)
	outcomes := e.collectOutcomes(affected)

	fresh, err := build(e.cfg.Clone(), e.startedAtMs)
	if err != nil {
		return err
	}
	if err := fresh.resolve(now); err != nil {
		return err
	}

	slog.Debug("replaying outcomes after reset", "set_id", id, "affected", len(affected), "outcomes", len(outcomes))

	for _, o := range outcomes {
		var err error
		if o.dqSlot != nil {
			err = fresh.markDisqualified(o.setID, *o.dqSlot, now)
		} else {
			err = fresh.finishSetManual(o.setID, o.winnerSlot, o.scores, now)
		}
		if err != nil {
			return err
		}
		if err := fresh.resolve(now); err != nil {
			return err
		}
	}

	*e = *fresh
	return nil
}

// collectOutcomes gathers played results outside the affected subtree. Byes and
// skips are left out since resolution derives them again.
func (e *Engine) collectOutcomes(affected map[int64]bool) []recordedOutcome {
	var outcomes []recordedOutcome
	for _, s := range e.graph.Sets {
		if affected[s.ID] || s.State != bracket.SetCompleted || !s.Ready() || s.WinnerSlot == nil {
			continue
		}

		o := recordedOutcome{
			setID:      s.ID,
			sortOrder:  s.SortOrder,
			winnerSlot: *s.WinnerSlot,
		}
		for i, slot := range s.Slots {
			o.scores[i] = utils.OrZero(slot.Score)
			if slot.Result != nil && *slot.Result == bracket.ResultDisqualified && o.dqSlot == nil {
				o.dqSlot = utils.Ptr(i)
			}
		}
		outcomes = append(outcomes, o)
	}

	sort.SliceStable(outcomes, func(i, j int) bool {
		return outcomes[i].sortOrder < outcomes[j].sortOrder
	})
	return outcomes
}
