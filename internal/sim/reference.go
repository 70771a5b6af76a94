package sim

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/AdamBeresnev/bracket-sim/internal/bracket"
	"github.com/AdamBeresnev/bracket-sim/internal/utils"
)

type roundKind int

const (
	roundUnknown roundKind = iota
	roundWinners
	roundLosers
	roundGrandFinal
)

const maxSampleIDs = 5

// referenceOutcome is a historical result in reference order. Entrant order need
// not match the live set.
type referenceOutcome struct {
	setID    *int64
	entrants [2]*int
	scores   [2]int
	winnerID int
	kind     roundKind
	reset    bool
	dqSlot   *int
}

// ResolvedOutcome is a reference result mapped onto a live set's slot order.
type ResolvedOutcome struct {
	SetID      int64  `json:"setId"`
	WinnerSlot int    `json:"winnerSlot"`
	Scores     [2]int `json:"scores"`
	DQSlot     *int   `json:"dqSlot,omitempty"`
}

func (e *Engine) referenceOutcomes() []referenceOutcome {
	var outcomes []referenceOutcome
	for _, ref := range e.cfg.ReferenceSets {
		if ref.WinnerID == nil {
			continue
		}

		o := referenceOutcome{
			setID:    ref.ID,
			winnerID: *ref.WinnerID,
		}
		o.kind, o.reset = referenceRoundKind(ref)

		for i := 0; i < 2 && i < len(ref.Slots); i++ {
			slot := ref.Slots[i]
			o.entrants[i] = slot.EntrantID
			raw := utils.OrZero(slot.Score)
			if raw < 0 && o.dqSlot == nil {
				o.dqSlot = utils.Ptr(i)
			}
			o.scores[i] = max(raw, 0)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}

func referenceRoundKind(ref bracket.ReferenceSet) (roundKind, bool) {
	text := strings.ToLower(ref.FullRoundText)
	switch {
	case strings.Contains(text, "grand final"):
		return roundGrandFinal, strings.Contains(text, "reset")
	case strings.Contains(text, "losers"):
		return roundLosers, false
	case strings.Contains(text, "winners"):
		return roundWinners, false
	}

	if ref.Round != nil {
		switch {
		case *ref.Round > 0:
			return roundWinners, false
		case *ref.Round < 0:
			return roundLosers, false
		}
	}
	return roundUnknown, false
}

// labelRoundKind classifies a live set from its label, falling back to the round sign.
func labelRoundKind(label string, round int) roundKind {
	l := strings.ToLower(strings.TrimSpace(label))
	switch {
	case strings.HasPrefix(l, "gf"), strings.Contains(l, "grand final"):
		return roundGrandFinal
	case strings.Contains(l, "losers"), shortLabel(l, 'l'):
		return roundLosers
	case strings.Contains(l, "winners"), shortLabel(l, 'w'):
		return roundWinners
	}

	switch {
	case round > 0:
		return roundWinners
	case round < 0:
		return roundLosers
	default:
		return roundGrandFinal
	}
}

// shortLabel matches generated labels such as "W3" or "L12".
func shortLabel(l string, prefix byte) bool {
	return len(l) > 1 && l[0] == prefix && l[1] >= '0' && l[1] <= '9'
}

func (e *Engine) liveRoundKind(s *bracket.Set) (roundKind, bool) {
	kind := labelRoundKind(s.RoundLabel, s.Round)
	if kind != roundGrandFinal {
		return kind, false
	}

	label := strings.ToLower(s.RoundLabel)
	if strings.Contains(label, "reset") || label == "gf2" {
		return kind, true
	}
	// A grand final fed by another grand final is the reset
	if src, ok := s.Slots[0].Source.DependsOnSet(); ok {
		if upstream, ok := e.graph.Get(src); ok && labelRoundKind(upstream.RoundLabel, upstream.Round) == roundGrandFinal {
			return kind, true
		}
	}
	return kind, false
}

func (e *Engine) kindMatches(o referenceOutcome, s *bracket.Set) bool {
	if o.kind == roundUnknown {
		return true
	}
	kind, reset := e.liveRoundKind(s)
	if kind != o.kind {
		return false
	}
	return kind != roundGrandFinal || reset == o.reset
}

// matchOnSet maps o onto s when both entrant pairs agree in either order.
func matchOnSet(o referenceOutcome, s *bracket.Set) (*ResolvedOutcome, bool) {
	live0, live1 := s.Slots[0].EntrantID, s.Slots[1].EntrantID
	ref0, ref1 := o.entrants[0], o.entrants[1]
	if live0 == nil || live1 == nil || ref0 == nil || ref1 == nil {
		return nil, false
	}

	var swapped bool
	switch {
	case *live0 == *ref0 && *live1 == *ref1:
	case *live0 == *ref1 && *live1 == *ref0:
		swapped = true
	default:
		return nil, false
	}

	var winnerSlot int
	switch o.winnerID {
	case *live0:
		winnerSlot = 0
	case *live1:
		winnerSlot = 1
	default:
		return nil, false
	}

	r := &ResolvedOutcome{SetID: s.ID, WinnerSlot: winnerSlot, Scores: o.scores}
	if o.dqSlot != nil {
		r.DQSlot = utils.Ptr(*o.dqSlot)
	}
	if swapped {
		r.Scores = [2]int{o.scores[1], o.scores[0]}
		if r.DQSlot != nil {
			*r.DQSlot = bracket.Opponent(*r.DQSlot)
		}
	}
	return r, true
}

// resolveOutcome finds the live set a reference outcome belongs to, or nil when
// none is open for it yet.
func (e *Engine) resolveOutcome(o referenceOutcome) *ResolvedOutcome {
	if o.setID != nil {
		if s, ok := e.graph.Get(*o.setID); ok {
			if s.State.Terminal() {
				return nil
			}
			r, _ := matchOnSet(o, s)
			return r
		}
	}

	var found *ResolvedOutcome
	candidates := 0
	for _, s := range e.graph.Sets {
		if s.State.Terminal() || !e.kindMatches(o, s) {
			continue
		}
		r, ok := matchOnSet(o, s)
		if !ok {
			continue
		}
		candidates++
		if found == nil {
			found = r
		}
	}

	if candidates > 1 {
		slog.Warn("reference outcome matches more than one set, using the first",
			"set_id", found.SetID, "candidates", candidates, "winner_id", o.winnerID)
	}
	return found
}

// ReferenceOutcomeForSet returns the reference result that currently maps onto
// the given set, if any.
func (e *Engine) ReferenceOutcomeForSet(id int64) (*ResolvedOutcome, bool) {
	if !e.graph.Has(id) {
		return nil, false
	}
	for _, o := range e.referenceOutcomes() {
		if r := e.resolveOutcome(o); r != nil && r.SetID == id {
			return r, true
		}
	}
	return nil, false
}

func (e *Engine) applyResolved(r *ResolvedOutcome, now int64) error {
	if r.DQSlot != nil {
		return e.markDisqualified(r.SetID, *r.DQSlot, now)
	}
	return e.finishSetManual(r.SetID, r.WinnerSlot, r.Scores, now)
}

// CompleteFromReference plays the whole bracket out according to the reference sets.
func (e *Engine) CompleteFromReference(now int64) (*Snapshot, error) {
	return e.mutate(now, func() error { return e.completeFromReference(now) })
}

func (e *Engine) completeFromReference(now int64) error {
	if !e.cfg.HasReferenceSets() {
		return bracket.ErrNoReferenceSets
	}
	pending := e.referenceOutcomes()
	if len(pending) == 0 {
		return bracket.ErrNoReferenceOutcomes
	}

	total := len(pending)
	applied := 0

	for iteration := 0; ; iteration++ {
		if iteration >= maxCompletionIterations {
			return fmt.Errorf("complete from reference: %w", bracket.ErrSafetyLimitExceeded)
		}
		if err := e.advance(now); err != nil {
			return err
		}

		progressed := false
		for i := 0; i < len(pending); {
			r := e.resolveOutcome(pending[i])
			if r == nil {
				i++
				continue
			}
			if err := e.applyResolved(r, now); err != nil {
				return fmt.Errorf("apply reference outcome for set %d: %w", r.SetID, err)
			}
			pending[i] = pending[len(pending)-1]
			pending = pending[:len(pending)-1]
			applied++
			progressed = true
		}

		if !progressed || len(pending) == 0 {
			break
		}
	}

	slog.Debug("applied reference outcomes", "applied", applied, "total", total)

	if len(pending) > 0 {
		unresolved := &bracket.UnresolvedReferenceError{
			Pending: len(pending),
			Total:   total,
			Applied: applied,
		}
		for _, o := range pending {
			if len(unresolved.SampleIDs) == maxSampleIDs {
				break
			}
			if o.setID != nil {
				unresolved.SampleIDs = append(unresolved.SampleIDs, *o.setID)
			}
		}
		return unresolved
	}
	return nil
}

// CompleteAllSets plays every remaining set with random results.
func (e *Engine) CompleteAllSets(now int64) (*Snapshot, error) {
	return e.mutate(now, func() error { return e.completeAllSets(now) })
}

func (e *Engine) completeAllSets(now int64) error {
	for iteration := 0; iteration < maxCompletionIterations; iteration++ {
		if err := e.advance(now); err != nil {
			return err
		}

		target := e.nextPlayableSet()
		if target == nil {
			return nil
		}
		if err := e.advanceSet(target.ID, now); err != nil {
			return err
		}
	}
	return fmt.Errorf("complete all sets: %w", bracket.ErrSafetyLimitExceeded)
}

// nextPlayableSet prefers a running set over starting a new one.
func (e *Engine) nextPlayableSet() *bracket.Set {
	for _, s := range e.graph.Sets {
		if s.State == bracket.SetInProgress {
			return s
		}
	}
	for _, s := range e.graph.Sets {
		if s.State == bracket.SetPending && s.Ready() {
			return s
		}
	}
	return nil
}

// CompleteBracket finishes the bracket from reference data when it has any,
// otherwise by simulation.
func (e *Engine) CompleteBracket(now int64) (*Snapshot, error) {
	if e.HasReferenceSets() {
		return e.CompleteFromReference(now)
	}
	return e.CompleteAllSets(now)
}

// StepTowardReference plays one more game of a set toward its recorded result.
// The set finishes once the recorded score line is reached.
func (e *Engine) StepTowardReference(id int64, now int64) (*Snapshot, error) {
	return e.mutate(now, func() error { return e.stepTowardReference(id, now) })
}

func (e *Engine) stepTowardReference(id int64, now int64) error {
	s, err := e.set(id)
	if err != nil {
		return err
	}
	if s.State.Terminal() {
		return nil
	}

	r, ok := e.ReferenceOutcomeForSet(id)
	if !ok {
		return fmt.Errorf("set %d: %w", id, bracket.ErrNoReferenceOutcome)
	}
	if r.DQSlot != nil {
		return e.markDisqualified(id, *r.DQSlot, now)
	}

	current := [2]int{utils.OrZero(s.Slots[0].Score), utils.OrZero(s.Slots[1].Score)}
	if current[0] >= r.Scores[0] && current[1] >= r.Scores[1] {
		return e.finishSetManual(id, r.WinnerSlot, r.Scores, now)
	}

	next, ok := nextStepScores(current, r.Scores, r.WinnerSlot)
	if !ok || next == r.Scores {
		return e.finishSetManual(id, r.WinnerSlot, r.Scores, now)
	}
	return e.updateScoresManual(id, next, now)
}

// FinalizeFromReference applies a set's recorded result in one call.
func (e *Engine) FinalizeFromReference(id int64, now int64) (*Snapshot, error) {
	return e.mutate(now, func() error {
		s, err := e.set(id)
		if err != nil {
			return err
		}
		if s.State.Terminal() {
			return nil
		}
		r, ok := e.ReferenceOutcomeForSet(id)
		if !ok {
			return fmt.Errorf("set %d: %w", id, bracket.ErrNoReferenceOutcome)
		}
		return e.applyResolved(r, now)
	})
}

// nextStepScores adds one game to the score line, interleaving so the winner
// leads until the loser's last game and takes the final game.
func nextStepScores(current, target [2]int, winner int) ([2]int, bool) {
	if winner < 0 || winner > 1 {
		return current, false
	}
	loser := bracket.Opponent(winner)
	cw, cl := current[winner], current[loser]
	tw, tl := target[winner], target[loser]

	if cw >= tw && cl >= tl {
		return current, false
	}

	next := current
	switch {
	case cl >= tl:
		if cw >= tw {
			return current, false
		}
		next[winner] = cw + 1
	case cw >= tw:
		next[loser] = cl + 1
	case cw+1 >= tw:
		next[loser] = cl + 1
	case cw <= cl:
		next[winner] = cw + 1
	default:
		next[loser] = cl + 1
	}

	next[winner] = min(next[winner], tw)
	next[loser] = min(next[loser], tl)
	return next, true
}
