package bracket

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInsufficientEntrants        = errors.New("at least two entrants are required")
	ErrNoPhases                    = errors.New("at least one phase is required")
	ErrInvalidConfig               = errors.New("invalid bracket config")
	ErrMissingPrereqData           = errors.New("reference sets are missing prereq data")
	ErrSetNotFound                 = errors.New("set not found")
	ErrInvalidSlot                 = errors.New("slot must be 0 or 1")
	ErrAlreadyCompleted            = errors.New("set is already completed")
	ErrAlreadyStarted              = errors.New("set has already started")
	ErrMissingEntrants             = errors.New("set is missing entrants")
	ErrNoReferenceSets             = errors.New("no reference sets available")
	ErrNoReferenceOutcomes         = errors.New("no completed reference sets to apply")
	ErrNoReferenceOutcome          = errors.New("no reference outcome found for set")
	ErrUnresolvedReferenceOutcomes = errors.New("unresolved reference outcomes")
	ErrSafetyLimitExceeded         = errors.New("safety limit exceeded")
)

// UnresolvedReferenceError reports reference outcomes that could not be placed on the live bracket.
type UnresolvedReferenceError struct {
	Pending   int
	Total     int
	Applied   int
	SampleIDs []int64
}

func (e *UnresolvedReferenceError) Error() string {
	msg := fmt.Sprintf("unable to apply %d of %d reference sets (applied %d)", e.Pending, e.Total, e.Applied)
	if len(e.SampleIDs) > 0 {
		ids := make([]string, len(e.SampleIDs))
		for i, id := range e.SampleIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		msg += ", example ids: " + strings.Join(ids, ", ")
	}
	return msg
}

func (e *UnresolvedReferenceError) Is(target error) bool {
	return target == ErrUnresolvedReferenceOutcomes
}
