package bracket

import (
	"fmt"
	"sort"
)

type Entrant struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Identifier string `json:"identifier"`
	Seed       int    `json:"seed"`
}

// NormalizeEntrants turns the configured entrant list into a roster ordered by seed.
// Missing, non-positive and duplicate seeds are replaced with the lowest unused seed,
// walking the list in order.
func NormalizeEntrants(configs []EntrantConfig) ([]Entrant, error) {
	if len(configs) < 2 {
		return nil, fmt.Errorf("got %d entrants: %w", len(configs), ErrInsufficientEntrants)
	}

	used := make(map[int]bool, len(configs))
	seeds := make([]int, len(configs))

	for i, c := range configs {
		if c.Seed != nil && *c.Seed > 0 && !used[*c.Seed] {
			seeds[i] = *c.Seed
			used[*c.Seed] = true
		}
	}

	next := 1
	for i := range seeds {
		if seeds[i] != 0 {
			continue
		}
		for used[next] {
			next++
		}
		seeds[i] = next
		used[next] = true
		next++
	}

	entrants := make([]Entrant, 0, len(configs))
	for i, c := range configs {
		entrants = append(entrants, Entrant{
			ID:         c.ID,
			Name:       c.Name,
			Identifier: c.Identifier,
			Seed:       seeds[i],
		})
	}

	sort.SliceStable(entrants, func(i, j int) bool {
		return entrants[i].Seed < entrants[j].Seed
	})

	return entrants, nil
}
