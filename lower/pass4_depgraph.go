package lower

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/patchkernel/engine/patch"
)

// passDependencyGraph is pass 4: build the block-level "reads from" edge
// set pass 5 (SCC) partitions into components. An edge block->upstream
// exists whenever a wire's target lands on block and its source
// originates at upstream; bus traffic is deliberately excluded here
// because bus publish/listen is not a direct data dependency the way a
// wire is — a cycle through a bus alone is legal (reserved buses are
// always available and never participate in the feedback-legality check).
func (c *ctx) passDependencyGraph() {
	seen := make(map[patch.BlockID]mapset.Set[patch.BlockID])
	for _, w := range c.p.Wires {
		if w.Source.IsBus() || w.Target.IsBus() {
			// A bus mediates, not a direct dependency: no edge is added,
			// so bus-mediated feedback never reaches passSCC and never
			// triggers E_CYCLE_THROUGH_NON_STATEFUL.
			continue
		}
		if w.Source.Block == w.Target.Block {
			continue
		}
		set, ok := seen[w.Target.Block]
		if !ok {
			set = mapset.NewThreadUnsafeSet[patch.BlockID]()
			seen[w.Target.Block] = set
		}
		if set.Contains(w.Source.Block) {
			continue
		}
		set.Add(w.Source.Block)
		c.deps[w.Target.Block] = append(c.deps[w.Target.Block], w.Source.Block)
	}
}
