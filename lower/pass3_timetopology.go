package lower

import (
	"github.com/patchkernel/engine/diag"
	"github.com/patchkernel/engine/ir"
	"github.com/patchkernel/engine/irbuilder"
	"github.com/patchkernel/engine/patch"
	"github.com/patchkernel/engine/typesys"
)

// passTimeTopology is pass 3: locate the patch's single TimeRoot block and
// derive the program's TimeModel from it alone (spec §4.1). No other
// graph property — no bus, no feedback cycle — may influence TimeModel.
func (c *ctx) passTimeTopology() {
	rootTypes := make(map[string]bool)
	for _, t := range c.reg.TimeRootTypes() {
		rootTypes[t] = true
	}

	var roots []patch.BlockID
	for _, id := range c.orderedBlocks {
		if rootTypes[c.p.Blocks[id].Type] {
			roots = append(roots, id)
		}
	}

	switch len(roots) {
	case 0:
		c.diags.Add(diag.Errorf(diag.CodeMissingTimeRoot, diag.Where{}, "patch declares no TimeRoot block"))
		return
	case 1:
		// single root, proceed
	default:
		for _, id := range roots[1:] {
			c.diags.Add(diag.Errorf(diag.CodeMultipleTimeRoots, diag.Where{BlockID: string(id)}, "patch declares multiple TimeRoot blocks (first: %s)", roots[0]))
		}
		return
	}

	c.timeRootBlock = roots[0]
	blk := c.p.Blocks[c.timeRootBlock]

	kind := ir.TimeInfinite
	var durationMs float64
	if kindParam, ok := blk.Params["kind"]; ok {
		if s, err := kindParam.AsString(); err == nil && s == "finite" {
			kind = ir.TimeFinite
		}
	}
	if kind == ir.TimeFinite {
		if durParam, ok := blk.Params["durationMs"]; ok {
			if f, err := durParam.AsFloat64(); err == nil {
				durationMs = f
			}
		}
	}

	c.timeModel = ir.TimeModel{Kind: kind, DurationMs: durationMs}
	c.b.SetTimeModel(c.timeModel)
	c.fp.Seed = c.p.Seed

	timeTy := typesys.TypeDesc{World: typesys.WorldSignal, Dom: typesys.DomainTime}
	phaseTy := typesys.TypeDesc{World: typesys.WorldSignal, Dom: typesys.DomainPhase01}
	boolTy := typesys.TypeDesc{World: typesys.WorldSignal, Dom: typesys.DomainBoolean}
	c.timeAbsSlot = c.b.NewSlot(ir.SlotMeta{Storage: ir.StorageF64, Type: timeTy, DebugName: "time.tAbsMs"})
	c.timeModelSlot = c.b.NewSlot(ir.SlotMeta{Storage: ir.StorageF64, Type: timeTy, DebugName: "time.tModelMs"})
	c.phase01Slot = c.b.NewSlot(ir.SlotMeta{Storage: ir.StorageF64, Type: phaseTy, DebugName: "time.phase01"})
	c.wrapEventSlot = c.b.NewSlot(ir.SlotMeta{Storage: ir.StorageI32, Type: boolTy, DebugName: "time.wrapEvent"})

	// The Time Console / TimeRoot derivation implicitly publishes to the
	// `time` and `phaseA` reserved buses (spec §4.7); no authored wire
	// carries this, so it is injected as a synthetic publisher here
	// rather than discovered by recordBusPublishers in pass 6.
	timeSig := c.b.EmitSignal(ir.SignalExprIR{Kind: ir.SigTimeModel, Slot: c.timeModelSlot, Type: timeTy})
	phaseSig := c.b.EmitSignal(ir.SignalExprIR{Kind: ir.SigPhase01, Slot: c.phase01Slot, Type: phaseTy})
	c.busPublishers["time"] = append(c.busPublishers["time"], publisher{block: c.timeRootBlock, sortKey: 0, value: irbuilder.ResolvedInput{Type: timeTy, SigExpr: timeSig}})
	c.busPublishers["phaseA"] = append(c.busPublishers["phaseA"], publisher{block: c.timeRootBlock, sortKey: 0, value: irbuilder.ResolvedInput{Type: phaseTy, SigExpr: phaseSig}})
}
