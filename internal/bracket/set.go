package bracket

type SetState string

const (
	SetPending    SetState = "pending"
	SetInProgress SetState = "inProgress"
	SetCompleted  SetState = "completed"
	SetSkipped    SetState = "skipped"
)

// Terminal reports whether no further transition can leave the state.
func (s SetState) Terminal() bool {
	return s == SetCompleted || s == SetSkipped
}

type SlotResult string

const (
	ResultWin          SlotResult = "win"
	ResultLoss         SlotResult = "loss"
	ResultDisqualified SlotResult = "dq"
)

type SourceKind int

const (
	SourceEmpty SourceKind = iota
	SourceEntrant
	SourceWinner
	SourceLoser
)

// SlotSource says where a slot's entrant comes from. Only the field matching Kind is meaningful.
type SlotSource struct {
	Kind      SourceKind
	EntrantID int
	SetID     int64
}

func FixedEntrant(id int) SlotSource {
	return SlotSource{Kind: SourceEntrant, EntrantID: id}
}

func WinnerOf(setID int64) SlotSource {
	return SlotSource{Kind: SourceWinner, SetID: setID}
}

func LoserOf(setID int64) SlotSource {
	return SlotSource{Kind: SourceLoser, SetID: setID}
}

func EmptySource() SlotSource {
	return SlotSource{Kind: SourceEmpty}
}

// DependsOnSet returns the upstream set id for winner/loser sources.
func (s SlotSource) DependsOnSet() (int64, bool) {
	switch s.Kind {
	case SourceWinner, SourceLoser:
		return s.SetID, true
	default:
		return 0, false
	}
}

type Slot struct {
	Source    SlotSource
	EntrantID *int
	Score     *int
	Result    *SlotResult
}

// ResetCondition guards the grand-finals reset: the set only plays if GF1 was won from LosersSlot.
type ResetCondition struct {
	GrandFinalID int64
	LosersSlot   int
}

type Set struct {
	ID         int64
	PhaseID    string
	Round      int
	RoundLabel string
	BestOf     int
	Slots      [2]Slot

	State         SetState
	StartedAtMs   *int64
	CompletedAtMs *int64
	UpdatedAtMs   int64

	WinnerSlot *int
	LoserSlot  *int

	Condition *ResetCondition

	// Creation order, used for tie-breaking and replay order
	SortOrder int

	// Scheduled completion, automatic mode only
	EndAtMs *int64
}

func (s *Set) WinnerID() *int {
	if s.WinnerSlot == nil {
		return nil
	}
	return s.Slots[*s.WinnerSlot].EntrantID
}

func (s *Set) LoserID() *int {
	if s.LoserSlot == nil {
		return nil
	}
	return s.Slots[*s.LoserSlot].EntrantID
}

// Filled returns the indexes of slots that currently hold an entrant.
func (s *Set) Filled() []int {
	var filled []int
	for i := range s.Slots {
		if s.Slots[i].EntrantID != nil {
			filled = append(filled, i)
		}
	}
	return filled
}

func (s *Set) Ready() bool {
	return len(s.Filled()) == 2
}

// GamesToWin is the number of games needed to take a best-of-N set.
func GamesToWin(bestOf int) int {
	return bestOf/2 + 1
}

// Opponent returns the other slot index.
func Opponent(slot int) int {
	return 1 - slot
}
