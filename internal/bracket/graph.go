package bracket

// Graph is the set DAG. Sets keep their creation order; slot sources never change after build.
type Graph struct {
	Sets  []*Set
	index map[int64]int
}

func NewGraph(sets []*Set) *Graph {
	index := make(map[int64]int, len(sets))
	for i, s := range sets {
		index[s.ID] = i
	}
	return &Graph{Sets: sets, index: index}
}

func (g *Graph) Get(id int64) (*Set, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return g.Sets[i], true
}

func (g *Graph) Has(id int64) bool {
	_, ok := g.index[id]
	return ok
}

// dependents maps a set id to the sets that take its winner or loser.
func (g *Graph) dependents() map[int64][]int64 {
	deps := make(map[int64][]int64)
	for _, s := range g.Sets {
		for _, slot := range s.Slots {
			if src, ok := slot.Source.DependsOnSet(); ok {
				deps[src] = append(deps[src], s.ID)
			}
		}
	}
	return deps
}

// Downstream returns root plus every set that transitively depends on it.
func (g *Graph) Downstream(root int64) map[int64]bool {
	deps := g.dependents()
	affected := make(map[int64]bool)
	stack := []int64{root}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if affected[current] {
			continue
		}
		affected[current] = true
		stack = append(stack, deps[current]...)
	}
	return affected
}
