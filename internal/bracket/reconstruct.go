package bracket

import (
	"fmt"
	"strings"
)

// ReconstructFromReference builds the graph from historical sets that carry prereq links.
// Sets keep their reference ids; creation order follows the reference list.
func ReconstructFromReference(entrants []Entrant, phase Phase, refs []ReferenceSet) ([]*Set, error) {
	if len(refs) == 0 {
		return nil, fmt.Errorf("reference set list is empty: %w", ErrMissingPrereqData)
	}

	setIDs := make(map[int64]bool, len(refs))
	for _, ref := range refs {
		if ref.ID != nil {
			setIDs[*ref.ID] = true
		}
	}

	for _, ref := range refs {
		if ref.ID == nil {
			continue
		}
		if !hasAnyPrereq(ref) {
			return nil, fmt.Errorf("reference set %d: %w", *ref.ID, ErrMissingPrereqData)
		}
	}

	seedToID := make(map[int]int, len(entrants))
	for _, e := range entrants {
		seedToID[e.Seed] = e.ID
	}

	b := newSetBuilder(phase)
	seen := make(map[int64]bool, len(refs))

	for _, ref := range refs {
		if ref.ID == nil || seen[*ref.ID] {
			continue
		}
		seen[*ref.ID] = true

		round := 0
		if ref.Round != nil {
			round = *ref.Round
		}

		var a, c SlotSource
		if len(ref.Slots) > 0 {
			a = referenceSlotSource(ref.Slots[0], seedToID, setIDs)
		}
		if len(ref.Slots) > 1 {
			c = referenceSlotSource(ref.Slots[1], seedToID, setIDs)
		}

		b.push(*ref.ID, round, referenceRoundLabel(ref, round), a, c)
	}

	return b.sets, nil
}

func hasAnyPrereq(ref ReferenceSet) bool {
	for _, slot := range ref.Slots {
		if slot.HasPrereq() {
			return true
		}
	}
	return false
}

func referenceRoundLabel(ref ReferenceSet, round int) string {
	if text := strings.TrimSpace(ref.FullRoundText); text != "" {
		return text
	}
	switch {
	case round == 0:
		return "Grand Final"
	case round > 0:
		return fmt.Sprintf("W%d", round)
	default:
		return fmt.Sprintf("L%d", -round)
	}
}

func referenceSlotSource(slot ReferenceSlot, seedToID map[int]int, setIDs map[int64]bool) SlotSource {
	direct := slot.EntrantID

	// A prereq set outside this bracket (another phase) can only be honoured by its entrant.
	setSource := func(id int64, loser bool) SlotSource {
		if !setIDs[id] && direct != nil {
			return FixedEntrant(*direct)
		}
		if loser {
			return LoserOf(id)
		}
		return WinnerOf(id)
	}

	prereqType := strings.ToLower(slot.PrereqType)
	switch {
	case prereqType == "":
	case strings.Contains(prereqType, "loser"):
		if slot.PrereqID != nil {
			return setSource(*slot.PrereqID, true)
		}
	case strings.Contains(prereqType, "winner"):
		if slot.PrereqID != nil {
			return setSource(*slot.PrereqID, false)
		}
	case strings.Contains(prereqType, "set"):
		if slot.PrereqID != nil {
			placement := 1
			if slot.PrereqPlacement != nil {
				placement = *slot.PrereqPlacement
			}
			return setSource(*slot.PrereqID, placement > 1)
		}
	case strings.Contains(prereqType, "seed"):
		if direct != nil {
			return FixedEntrant(*direct)
		}
		if slot.PrereqID != nil {
			if id, ok := seedToID[int(*slot.PrereqID)]; ok {
				return FixedEntrant(id)
			}
		}
	}

	if direct != nil {
		return FixedEntrant(*direct)
	}
	return EmptySource()
}
