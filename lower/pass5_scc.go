package lower

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/patchkernel/engine/diag"
	"github.com/patchkernel/engine/patch"
)

// passSCC is pass 5: partition blocks into strongly connected components
// over the dependency graph pass 4 built, via Tarjan's algorithm walked
// in the patch's deterministic block order so tie-breaking never depends
// on map iteration order. Any component with more than one member, or a
// single-block self-loop, that contains no stateful block is a compile
// error E_CYCLE_THROUGH_NON_STATEFUL (spec §4.2, §9 "Graph cycles").
func (c *ctx) passSCC() {
	t := &tarjan{
		c:       c,
		index:   make(map[patch.BlockID]int),
		low:     make(map[patch.BlockID]int),
		onStack: mapset.NewThreadUnsafeSet[patch.BlockID](),
	}
	for _, id := range c.orderedBlocks {
		if _, visited := t.index[id]; !visited {
			t.strongConnect(id)
		}
	}

	for _, id := range c.orderedBlocks {
		if hasSelfLoop(c, id) {
			c.checkComponentLegality([]patch.BlockID{id})
		}
	}
	for _, comp := range t.components {
		if len(comp) > 1 {
			c.checkComponentLegality(comp)
		}
	}
}

// hasSelfLoop reports whether any wire connects id directly back to
// itself — a size-1 cycle that the Tarjan walk above never surfaces as a
// multi-member component.
func hasSelfLoop(c *ctx, id patch.BlockID) bool {
	for _, w := range c.p.Wires {
		if w.Source.Block == id && w.Target.Block == id {
			return true
		}
	}
	return false
}

// checkComponentLegality emits E_CYCLE_THROUGH_NON_STATEFUL for comp if
// none of its members is a stateful block type.
func (c *ctx) checkComponentLegality(comp []patch.BlockID) {
	for _, id := range comp {
		c.sccOf[id] = componentKeyOf(comp)
		if blk, ok := c.p.Blocks[id]; ok {
			if desc, ok := c.reg.Lookup(blk.Type); ok && desc.Stateful {
				return
			}
		}
	}
	for _, id := range comp {
		c.diags.Add(diag.Errorf(diag.CodeCycleThroughNonStateful, diag.Where{BlockID: string(id)},
			"block participates in a cycle with no stateful operator"))
	}
}

// componentKeyOf derives a stable small int key for a component from its
// lexicographically-first member, only used to populate ctx.sccOf for
// later passes' informational use.
func componentKeyOf(comp []patch.BlockID) int {
	min := comp[0]
	for _, id := range comp[1:] {
		if id < min {
			min = id
		}
	}
	h := 0
	for _, ch := range []byte(min) {
		h = h*31 + int(ch)
	}
	return h
}

type tarjan struct {
	c          *ctx
	index      map[patch.BlockID]int
	low        map[patch.BlockID]int
	onStack    mapset.Set[patch.BlockID]
	stack      []patch.BlockID
	counter    int
	components [][]patch.BlockID
}

func (t *tarjan) strongConnect(v patch.BlockID) {
	t.index[v] = t.counter
	t.low[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack.Add(v)

	for _, wBlock := range t.c.deps[v] {
		if _, visited := t.index[wBlock]; !visited {
			t.strongConnect(wBlock)
			if t.low[wBlock] < t.low[v] {
				t.low[v] = t.low[wBlock]
			}
		} else if t.onStack.Contains(wBlock) {
			if t.index[wBlock] < t.low[v] {
				t.low[v] = t.index[wBlock]
			}
		}
	}

	if t.low[v] == t.index[v] {
		var comp []patch.BlockID
		for {
			n := len(t.stack) - 1
			top := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack.Remove(top)
			comp = append(comp, top)
			if top == v {
				break
			}
		}
		t.components = append(t.components, comp)
	}
}
