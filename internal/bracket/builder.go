package bracket

import "fmt"

// Build normalizes the roster and constructs the set graph for the first phase.
// Reference sets, when present, take priority over a generated bracket.
func Build(cfg Config) ([]Entrant, *Graph, error) {
	if len(cfg.Phases) == 0 {
		return nil, nil, ErrNoPhases
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	entrants, err := NormalizeEntrants(cfg.Entrants)
	if err != nil {
		return nil, nil, err
	}

	phase := cfg.Phases[0]

	var sets []*Set
	if cfg.HasReferenceSets() {
		sets, err = ReconstructFromReference(entrants, phase, cfg.ReferenceSets)
	} else {
		sets, err = GenerateDoubleElim(entrants, phase, cfg.Simulation.AllowGrandFinalsReset)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("build bracket for phase %s: %w", phase.ID, err)
	}

	return entrants, NewGraph(sets), nil
}
