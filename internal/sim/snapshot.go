package sim

import (
	"github.com/AdamBeresnev/bracket-sim/internal/bracket"
	"github.com/AdamBeresnev/bracket-sim/internal/utils"
)

type Snapshot struct {
	Event         bracket.EventInfo `json:"event"`
	Phases        []bracket.Phase   `json:"phases"`
	Entrants      []bracket.Entrant `json:"entrants"`
	Sets          []SetView         `json:"sets"`
	StartedAtMs   int64             `json:"startedAtMs"`
	NowMs         int64             `json:"nowMs"`
	ReferenceLink string            `json:"referenceLink,omitempty"`
}

type SetView struct {
	ID            int64            `json:"id"`
	PhaseID       string           `json:"phaseId"`
	PhaseName     string           `json:"phaseName"`
	Round         int              `json:"round"`
	RoundLabel    string           `json:"roundLabel"`
	BestOf        int              `json:"bestOf"`
	State         bracket.SetState `json:"state"`
	StartedAtMs   *int64           `json:"startedAtMs"`
	CompletedAtMs *int64           `json:"completedAtMs"`
	UpdatedAtMs   int64            `json:"updatedAtMs"`
	WinnerID      *int             `json:"winnerId"`
	Slots         [2]SlotView      `json:"slots"`
}

type SlotView struct {
	EntrantID   *int                `json:"entrantId"`
	EntrantName *string             `json:"entrantName"`
	Identifier  *string             `json:"identifier"`
	Seed        *int                `json:"seed"`
	Score       *int                `json:"score"`
	Result      *bracket.SlotResult `json:"result"`
}

// State advances the engine to now and returns the full bracket.
func (e *Engine) State(now int64) (*Snapshot, error) {
	if err := e.advance(now); err != nil {
		return nil, err
	}
	return e.snapshot(now, 0, true), nil
}

// StateSince returns only the sets changed after since, without the entrant list.
// A non-positive since yields the full snapshot.
func (e *Engine) StateSince(now, since int64) (*Snapshot, error) {
	if since <= 0 {
		return e.State(now)
	}
	if err := e.advance(now); err != nil {
		return nil, err
	}
	return e.snapshot(now, since, false), nil
}

func (e *Engine) snapshot(now, since int64, withEntrants bool) *Snapshot {
	phaseNames := make(map[string]string, len(e.cfg.Phases))
	for _, p := range e.cfg.Phases {
		phaseNames[p.ID] = p.Name
	}

	snap := &Snapshot{
		Event:         e.cfg.Event,
		Phases:        append([]bracket.Phase{}, e.cfg.Phases...),
		Entrants:      []bracket.Entrant{},
		Sets:          []SetView{},
		StartedAtMs:   e.startedAtMs,
		NowMs:         now,
		ReferenceLink: e.cfg.ReferenceLink,
	}
	if withEntrants {
		snap.Entrants = append(snap.Entrants, e.entrants...)
	}

	for _, s := range e.graph.Sets {
		if since > 0 && s.UpdatedAtMs <= since {
			continue
		}
		snap.Sets = append(snap.Sets, e.setView(s, phaseNames[s.PhaseID]))
	}
	return snap
}

func (e *Engine) setView(s *bracket.Set, phaseName string) SetView {
	view := SetView{
		ID:            s.ID,
		PhaseID:       s.PhaseID,
		PhaseName:     phaseName,
		Round:         s.Round,
		RoundLabel:    s.RoundLabel,
		BestOf:        s.BestOf,
		State:         s.State,
		StartedAtMs:   utils.Clone(s.StartedAtMs),
		CompletedAtMs: utils.Clone(s.CompletedAtMs),
		UpdatedAtMs:   s.UpdatedAtMs,
		WinnerID:      utils.Clone(s.WinnerID()),
	}

	for i, slot := range s.Slots {
		sv := SlotView{
			EntrantID: utils.Clone(slot.EntrantID),
			Score:     utils.Clone(slot.Score),
			Result:    utils.Clone(slot.Result),
		}
		if slot.EntrantID != nil {
			if entrant, ok := e.byID[*slot.EntrantID]; ok {
				name, identifier, seed := entrant.Name, entrant.Identifier, entrant.Seed
				sv.EntrantName = &name
				sv.Identifier = &identifier
				sv.Seed = &seed
			}
		}
		view.Slots[i] = sv
	}
	return view
}
