package lower

import (
	"sort"

	"github.com/patchkernel/engine/diag"
	"github.com/patchkernel/engine/dindex"
	"github.com/patchkernel/engine/ir"
	"github.com/patchkernel/engine/irbuilder"
	"github.com/patchkernel/engine/patch"
	"github.com/patchkernel/engine/transform"
	"github.com/patchkernel/engine/typesys"
)

// ctx is the mutable state threaded through all eight passes. Each pass
// is a plain method on ctx so the pass order in Compile is the single
// source of truth for execution order — no pass reads state another pass
// hasn't yet written.
type ctx struct {
	p    *patch.Patch
	reg  *patch.Registry
	xreg *transform.Registry

	diags *diag.Sink
	b     *irbuilder.Builder
	bidx  *dindex.Interner // KindBlock
	bus   *dindex.Interner // KindBus

	// orderedBlocks is pass 1's output: block ids sorted by
	// (sortKey, stableHash) (spec §3 invariant 3).
	orderedBlocks []patch.BlockID
	blockIndex    map[patch.BlockID]ir.BlockIndex

	// portType is pass 2's output: resolved TypeDesc per (block, port).
	portType map[portKey]typesys.TypeDesc

	// timeModel/timeRootBlock are pass 3's output, along with the four
	// reserved slots StepTimeDerive writes every frame.
	timeModel        ir.TimeModel
	timeRootBlock    patch.BlockID
	timeAbsSlot      ir.ValueSlot
	timeModelSlot    ir.ValueSlot
	phase01Slot      ir.ValueSlot
	wrapEventSlot    ir.ValueSlot

	// deps is pass 4's output: block -> blocks it reads from.
	deps map[patch.BlockID][]patch.BlockID

	// sccOf is pass 5's output: component id per block; a component with
	// >1 member and no stateful opcode inside it is a compile error.
	sccOf map[patch.BlockID]int

	// blockOutputs is pass 6's output: resolved output refs per block,
	// by port name, keyed by block id.
	blockOutputs map[patch.BlockID]map[string]irbuilder.ResolvedInput

	// busPublishers is pass 7's intermediate input, built while walking
	// wires: bus name -> publishers.
	busPublishers map[patch.BusName][]publisher
	busListeners  map[patch.BusName][]portKey
	busDecl       map[patch.BusName]patch.BusDecl

	// busIndexOf/busType/busSig/busField are populated by setupBuses
	// (called from pass 6) before any block lowers: every reserved-or-
	// declared bus gets a dense BusIndex and a placeholder combine node id
	// up front, so a listener block can reference it before pass 7 fills
	// in its actual publisher list (see pass6_blocklower.go). Exactly one
	// of busSig/busField is populated per bus name, selected by the bus's
	// resolved World — signal- and event-world buses get a SigBusCombine
	// placeholder, field-world buses get a FieldBusCombine one.
	busIndexOf map[patch.BusName]ir.BusIndex
	busType    map[patch.BusName]typesys.TypeDesc
	busSig     map[patch.BusName]ir.SigExprID
	busField   map[patch.BusName]ir.FieldExprID

	// loweringOrder is pass 6's block visitation order: a topological sort
	// of c.deps (direct wire dependencies only — buses never contribute an
	// edge here) tie-broken by orderedBlocks, with any block left over
	// because it sits in a legal stateful cycle appended last in
	// orderedBlocks order.
	loweringOrder []patch.BlockID

	fp ir.FingerprintInput
}

type portKey struct {
	Block patch.BlockID
	Port  patch.PortID
}

type publisher struct {
	block   patch.BlockID
	sortKey int64
	value   irbuilder.ResolvedInput
}

func newCtx(p *patch.Patch, reg *patch.Registry, xreg *transform.Registry) *ctx {
	return &ctx{
		p:             p,
		reg:           reg,
		xreg:          xreg,
		diags:         diag.NewSink(256),
		b:             irbuilder.New(),
		bidx:          dindex.NewInterner(dindex.KindBlock),
		bus:           dindex.NewInterner(dindex.KindBus),
		blockIndex:    make(map[patch.BlockID]ir.BlockIndex),
		portType:      make(map[portKey]typesys.TypeDesc),
		deps:          make(map[patch.BlockID][]patch.BlockID),
		sccOf:         make(map[patch.BlockID]int),
		blockOutputs:  make(map[patch.BlockID]map[string]irbuilder.ResolvedInput),
		busPublishers: make(map[patch.BusName][]publisher),
		busListeners:  make(map[patch.BusName][]portKey),
		busDecl:       make(map[patch.BusName]patch.BusDecl),
		busIndexOf:    make(map[patch.BusName]ir.BusIndex),
		busType:       make(map[patch.BusName]typesys.TypeDesc),
		busSig:        make(map[patch.BusName]ir.SigExprID),
		busField:      make(map[patch.BusName]ir.FieldExprID),
	}
}

// sortedBlockIDs returns every block id in the patch, sorted by
// (sortKey, stableHash) — the one deterministic order every later pass
// relies on (spec §3 invariant 3).
func (c *ctx) sortedBlockIDs() []patch.BlockID {
	ids := make([]patch.BlockID, 0, len(c.p.Blocks))
	for id := range c.p.Blocks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		bi, bj := c.p.Blocks[ids[i]], c.p.Blocks[ids[j]]
		if bi.SortKey != bj.SortKey {
			return bi.SortKey < bj.SortKey
		}
		return StableHashString(ids[i]) < StableHashString(ids[j])
	})
	return ids
}
