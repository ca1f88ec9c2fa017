package lower

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/patchkernel/engine/diag"
	"github.com/patchkernel/engine/ir"
	"github.com/patchkernel/engine/irbuilder"
	"github.com/patchkernel/engine/patch"
	"github.com/patchkernel/engine/typesys"
)

// passBlockLowering is pass 6: visit every block in dependency order and
// invoke its registered Lowerer, resolving each input port first (direct
// wire, bus listener, or default source) and materializing each output
// port into a backing slot and schedule step immediately afterward (spec
// §4.8, §6 "Block registry ... lower(builder, context)").
func (c *ctx) passBlockLowering() {
	c.setupBuses()
	c.loweringOrder = c.computeLoweringOrder()

	for _, id := range c.loweringOrder {
		blk := c.p.Blocks[id]
		desc, ok := c.reg.Lookup(blk.Type)
		if !ok {
			continue // diagnosed in pass 1
		}

		blockCtx := irbuilder.NewBlockContext(string(id), c.blockIndex[id], c.p.Seed)
		for k, v := range blk.Params {
			if f, err := v.AsFloat64(); err == nil {
				blockCtx.Params[k] = f
				continue
			}
			if bv, err := v.AsBool(); err == nil {
				blockCtx.Params[k] = bv
				continue
			}
			if s, err := v.AsString(); err == nil {
				blockCtx.Params[k] = s
				continue
			}
			if any, err := v.AsAny(); err == nil {
				blockCtx.Params[k] = any
			}
		}

		for _, port := range desc.Inputs {
			resolved, err := c.resolveInput(id, port)
			if err != nil {
				if port.Required {
					c.diags.Add(diag.Errorf(diag.CodeUnresolvedInput, diag.Where{BlockID: string(id), SlotID: port.Name}, "%s", err))
				}
				continue
			}
			blockCtx.Inputs[port.Name] = resolved
		}

		if err := desc.Lower(c.b, blockCtx); err != nil {
			// A Lowerer failing is a registered block descriptor's own bug
			// (bad irbuilder usage, a malformed constant), not user-authored
			// patch input, so the stack trace here is worth keeping around
			// for whoever wrote the block's Lowerer (SPEC_FULL.md §10.2).
			err = errors.WithStack(err)
			c.diags.Add(diag.Errorf(diag.CodeUnknownOpcode, diag.Where{BlockID: string(id)}, "lowering block %s: %+v", blk.Type, err))
			continue
		}

		c.materializeOutputs(id, desc, blockCtx)

		if blockCtx.Sink != ir.InvalidSinkID {
			c.b.AppendStep(ir.StepIR{Kind: ir.StepRenderAssemble, Sink: blockCtx.Sink})
		}

		c.recordBusPublishers(id)
	}
}

// resolveInput resolves one declared input port to a ResolvedInput: a
// direct wire from an already-lowered block, a bus listener (referencing
// the bus's placeholder combine node, filled in by pass 7 — SigExpr for a
// signal/event-world bus, FieldExpr for a field-world one), or the port's
// default source.
func (c *ctx) resolveInput(id patch.BlockID, port patch.PortDecl) (irbuilder.ResolvedInput, error) {
	ty, hasType := c.portType[portKey{Block: id, Port: patch.PortID(port.Name)}]
	if !hasType {
		return irbuilder.ResolvedInput{}, fmt.Errorf("port %s has no resolved type", port.Name)
	}

	for _, w := range c.p.Wires {
		if w.Target.Block != id || string(w.Target.Port) != port.Name {
			continue
		}
		if w.Source.IsBus() {
			switch ty.World {
			case typesys.WorldField:
				return irbuilder.ResolvedInput{Type: ty, FieldExpr: c.busField[w.Source.Bus]}, nil
			default:
				return irbuilder.ResolvedInput{Type: ty, SigExpr: c.busSig[w.Source.Bus]}, nil
			}
		}
		outs, ok := c.blockOutputs[w.Source.Block]
		if !ok {
			// Upstream hasn't lowered yet: only legal inside a stateful
			// feedback cycle (pass 5 already rejected anything else).
			// Fall back to the port's default; the runtime StateCell
			// carries the real recurrence across frames instead.
			break
		}
		srcOut, ok := outs[string(w.Source.Port)]
		if !ok {
			break
		}
		return c.rewireThroughSlot(srcOut, ty), nil
	}

	if def, ok := c.defaultSourceFor(id, port.Name); ok {
		return def, nil
	}

	return irbuilder.ResolvedInput{}, fmt.Errorf("input %q has no wire or default source", port.Name)
}

// rewireThroughSlot wraps an already-materialized upstream output (which
// carries a backing ValueSlot) in a fresh inputSlot-kind expr node, so the
// consuming block's own expression DAG can reference it like any other
// operand (spec §4.2 node kind `inputSlot`).
func (c *ctx) rewireThroughSlot(src irbuilder.ResolvedInput, ty typesys.TypeDesc) irbuilder.ResolvedInput {
	switch ty.World {
	case typesys.WorldField:
		if src.Slot == ir.InvalidSlot {
			return irbuilder.ResolvedInput{Type: ty, FieldExpr: src.FieldExpr}
		}
		id := c.b.EmitField(ir.FieldExprIR{Kind: ir.FieldInputSlot, Slot: src.Slot, Type: ty})
		return irbuilder.ResolvedInput{Type: ty, FieldExpr: id, Slot: src.Slot}
	default:
		if src.Slot == ir.InvalidSlot {
			return irbuilder.ResolvedInput{Type: ty, SigExpr: src.SigExpr}
		}
		id := c.b.EmitSignal(ir.SignalExprIR{Kind: ir.SigInputSlot, Slot: src.Slot, Type: ty})
		return irbuilder.ResolvedInput{Type: ty, SigExpr: id, Slot: src.Slot}
	}
}

// defaultSourceFor looks up and lowers the authored default-source
// constant for (id, portName), if one exists (spec §4.5).
func (c *ctx) defaultSourceFor(id patch.BlockID, portName string) (irbuilder.ResolvedInput, bool) {
	ty, hasType := c.portType[portKey{Block: id, Port: patch.PortID(portName)}]
	if !hasType {
		return irbuilder.ResolvedInput{}, false
	}
	for _, ds := range c.p.DefaultSources {
		if ds.Port.Block != id || string(ds.Port.Port) != portName {
			continue
		}
		c.fp.DefaultSources = append(c.fp.DefaultSources, fmt.Sprintf("%s.%s=%s", id, portName, ds.Value.Raw))
		return c.constResolvedInput(ty, ds.Value), true
	}
	return irbuilder.ResolvedInput{}, false
}

func (c *ctx) constResolvedInput(ty typesys.TypeDesc, v patch.ParamValue) irbuilder.ResolvedInput {
	pool := c.b.AddConstant()
	var cid ir.ConstID
	switch ty.Dom {
	case typesys.DomainBoolean:
		b, _ := v.AsBool()
		cid = pool.AddBool(b)
	case typesys.DomainNumber, typesys.DomainPhase01, typesys.DomainTime:
		f, _ := v.AsFloat64()
		cid = pool.AddF64(f)
	default:
		obj, _ := v.AsAny()
		cid = pool.AddObject(obj)
	}
	if ty.World == typesys.WorldField {
		id := c.b.EmitField(ir.FieldExprIR{Kind: ir.FieldConst, Const: cid, Type: ty})
		return irbuilder.ResolvedInput{Type: ty, FieldExpr: id}
	}
	id := c.b.EmitSignal(ir.SignalExprIR{Kind: ir.SigConst, Const: cid, Type: ty})
	return irbuilder.ResolvedInput{Type: ty, SigExpr: id}
}

// materializeOutputs allocates a backing ValueSlot and schedule step for
// every declared output port a block produced (spec §4.8 schedule steps
// `signalEval`/`materialize`), and records the result for downstream
// blocks in c.blockOutputs.
func (c *ctx) materializeOutputs(id patch.BlockID, desc patch.BlockDescriptor, blockCtx *irbuilder.BlockContext) {
	out := make(map[string]irbuilder.ResolvedInput, len(desc.Outputs))
	for _, port := range desc.Outputs {
		res, ok := blockCtx.Outputs[port.Name]
		if !ok {
			continue
		}
		switch res.Type.World {
		case typesys.WorldSignal:
			slot := c.b.NewSlot(ir.SlotMeta{Storage: ir.StorageF64, Type: res.Type, DebugName: string(id) + "." + port.Name})
			c.b.AppendStep(ir.StepIR{Kind: ir.StepSignalEval, Sig: res.SigExpr, OutSlot: slot})
			res.Slot = slot
		case typesys.WorldField:
			domainSlot := ir.InvalidSlot
			if dIn, ok := blockCtx.Inputs["domain"]; ok {
				domainSlot = dIn.Slot
			}
			bufSlot := c.b.NewSlot(ir.SlotMeta{Storage: ir.StorageF64, Type: res.Type, DebugName: string(id) + "." + port.Name})
			countSlot := c.b.NewSlot(ir.SlotMeta{Storage: ir.StorageI32, Type: typesys.TypeDesc{World: typesys.WorldScalar, Dom: typesys.DomainNumber}, DebugName: string(id) + "." + port.Name + ".count"})
			c.b.AppendStep(ir.StepIR{Kind: ir.StepMaterialize, Field: res.FieldExpr, DomainSlot: domainSlot, BufferSlot: bufSlot, ElementCountSlot: countSlot})
			res.Slot = bufSlot
		}
		out[port.Name] = res
	}
	c.blockOutputs[id] = out
}

// recordBusPublishers scans id's output wires for bus targets and
// appends a publisher entry pass 7 will sort and combine.
func (c *ctx) recordBusPublishers(id patch.BlockID) {
	blk := c.p.Blocks[id]
	for _, w := range c.p.Wires {
		if w.Source.Block != id || !w.Target.IsBus() {
			continue
		}
		out, ok := c.blockOutputs[id][string(w.Source.Port)]
		if !ok {
			continue
		}
		c.busPublishers[w.Target.Bus] = append(c.busPublishers[w.Target.Bus], publisher{
			block:   id,
			sortKey: blk.SortKey,
			value:   out,
		})
	}
}

// computeLoweringOrder topologically sorts c.orderedBlocks over c.deps
// (Kahn's algorithm), breaking ties by position in orderedBlocks so the
// result stays deterministic; any block left over because it participates
// in a legal stateful cycle is appended in orderedBlocks order (its
// upstream-in-cycle reference falls back to a default at lowering time,
// see resolveInput).
func (c *ctx) computeLoweringOrder() []patch.BlockID {
	position := make(map[patch.BlockID]int, len(c.orderedBlocks))
	for i, id := range c.orderedBlocks {
		position[id] = i
	}

	indegree := make(map[patch.BlockID]int, len(c.orderedBlocks))
	for _, id := range c.orderedBlocks {
		indegree[id] = 0
	}
	for target, ups := range c.deps {
		indegree[target] += len(ups)
	}
	// dependents[u] = blocks that depend on u
	dependents := make(map[patch.BlockID][]patch.BlockID)
	for target, ups := range c.deps {
		for _, u := range ups {
			dependents[u] = append(dependents[u], target)
		}
	}

	var ready []patch.BlockID
	for _, id := range c.orderedBlocks {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	visited := make(map[patch.BlockID]bool)
	var order []patch.BlockID
	for len(ready) > 0 {
		// pop the lowest-position ready node for determinism
		bestIdx := 0
		for i := 1; i < len(ready); i++ {
			if position[ready[i]] < position[ready[bestIdx]] {
				bestIdx = i
			}
		}
		next := ready[bestIdx]
		ready = append(ready[:bestIdx], ready[bestIdx+1:]...)
		if visited[next] {
			continue
		}
		visited[next] = true
		order = append(order, next)

		for _, dep := range dependents[next] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	for _, id := range c.orderedBlocks {
		if !visited[id] {
			order = append(order, id)
		}
	}
	return order
}
