// Copyright 2026 The Patchkernel Authors
// This file is part of patchkernel, licensed LGPLv3-or-later.

// Package irbuilder is the mutable construction surface block lowerers
// write against during pass 6 ("block lowering", spec §2) and bus
// lowering writes against during pass 7. A Builder accumulates into a
// CompiledProgram under construction; once the lowering pipeline
// finishes, the resulting *ir.CompiledProgram is frozen and never
// mutated again (spec §3 "Lifecycle").
package irbuilder

import (
	"github.com/patchkernel/engine/dindex"
	"github.com/patchkernel/engine/ir"
	"github.com/patchkernel/engine/typesys"
)

// Builder accumulates IR nodes, slots, state cells and sinks for one
// compile. It is not safe for concurrent use by multiple block lowerers
// at once — lowering pass 6 runs lowerers in the patch's deterministic
// block order (spec §3 invariant 3), each given its own BlockContext but
// sharing one Builder.
type Builder struct {
	prog *ir.CompiledProgram

	slotSeq int32
}

func New() *Builder {
	return &Builder{prog: ir.NewCompiledProgram()}
}

// Program returns the program under construction. Callers outside the
// lowering pipeline must not retain this pointer past the compile.
func (b *Builder) Program() *ir.CompiledProgram { return b.prog }

// InternType interns td into the program's type table.
func (b *Builder) InternType(td typesys.TypeDesc) typesys.TypeIndex {
	return b.prog.Types.Intern(td)
}

// NewSlot allocates a fresh ValueSlot with the given metadata.
func (b *Builder) NewSlot(meta ir.SlotMeta) ir.ValueSlot {
	slot := ir.ValueSlot(b.slotSeq)
	b.slotSeq++
	b.prog.SlotMeta = append(b.prog.SlotMeta, meta)
	return slot
}

// EmitSignal appends a SignalExprIR node and returns its id.
func (b *Builder) EmitSignal(node ir.SignalExprIR) ir.SigExprID {
	id := ir.SigExprID(len(b.prog.SignalExprs))
	b.prog.SignalExprs = append(b.prog.SignalExprs, node)
	return id
}

// SignalAt returns a mutable pointer into the program's signal-expr
// table. It exists for the one case a node's content is legitimately
// filled in after other nodes have been appended and may even reference
// it — bus lowering (pass 7) allocates a SigBusCombine placeholder before
// any block lowers so listeners can reference a stable id, then patches
// its Inputs/Op in once every publisher is known.
func (b *Builder) SignalAt(id ir.SigExprID) *ir.SignalExprIR { return &b.prog.SignalExprs[id] }

// FieldAt is SignalAt's field-world counterpart.
func (b *Builder) FieldAt(id ir.FieldExprID) *ir.FieldExprIR { return &b.prog.FieldExprs[id] }

// EmitField appends a FieldExprIR node and returns its id.
func (b *Builder) EmitField(node ir.FieldExprIR) ir.FieldExprID {
	id := ir.FieldExprID(len(b.prog.FieldExprs))
	b.prog.FieldExprs = append(b.prog.FieldExprs, node)
	return id
}

// ReserveStateCell reserves a new, zero-initialized state cell and
// returns its id. Every stateful opcode and every stateful transform step
// must reserve its cell through this call during lowering — reserving a
// cell at runtime is not possible (spec §4.4).
func (b *Builder) ReserveStateCell(storage ir.StateCellStorage, elementCount int, stableKey string) ir.StateCellID {
	id := ir.StateCellID(len(b.prog.StateLayout))
	b.prog.StateLayout = append(b.prog.StateLayout, ir.StateCellLayout{
		Cell:         id,
		Storage:      storage,
		ElementCount: elementCount,
		StableKey:    stableKey,
	})
	return id
}

// AddTransformChain appends a lowered transform chain and returns its id,
// for SigTransform/FieldTransform nodes that could not be folded into a
// primitive opcode node (package transform decides foldability).
func (b *Builder) AddTransformChain(chain ir.TransformChainIR) ir.TransformChainID {
	id := ir.TransformChainID(len(b.prog.TransformChains))
	b.prog.TransformChains = append(b.prog.TransformChains, chain)
	return id
}

// AddConstant returns the program's constant pool for direct interning by
// a block lowerer (e.g. `b.AddConstant().AddF64(1.0)`).
func (b *Builder) AddConstant() *ir.ConstantPool { return b.prog.Constants }

// SetDefaultSource records the resolved default value for an unwired
// input port (spec §4.5).
func (b *Builder) SetDefaultSource(key ir.PortKey, ref ir.ValueRef) {
	b.prog.DefaultSources[key] = ref
}

// AddSink appends a render sink and returns its id.
func (b *Builder) AddSink(sink ir.RenderSinkIR) ir.SinkID {
	id := ir.SinkID(len(b.prog.Render.Sinks))
	sink.ID = id
	b.prog.Render.Sinks = append(b.prog.Render.Sinks, sink)
	return id
}

// RegisterBusRoot records the resolved value ref a bus's combine node
// publishes, for the busRoots debug/optimization table (spec §3).
func (b *Builder) RegisterBusRoot(root ir.BusRoot) {
	b.prog.BusRoots = append(b.prog.BusRoots, root)
}

// AppendStep appends one schedule step. Builder does not sort; the
// lowering pipeline's link resolution pass (pass 8) orders the whole
// Steps slice after every step has been appended.
func (b *Builder) AppendStep(step ir.StepIR) {
	b.prog.Schedule.Steps = append(b.prog.Schedule.Steps, step)
}

// SetInitialSlotValue records a constant written once at program-load
// time rather than every frame (spec §3 ScheduleIR.initialSlotValues).
func (b *Builder) SetInitialSlotValue(slot ir.ValueSlot, ref ir.ValueRef) {
	b.prog.Schedule.InitialSlotValues[slot] = ref
}

// SetTimeModel records the program's single TimeModel, derived from the
// one TimeRoot block (spec §4.1). Lowering pass 3 calls it once; a
// second call replaces the recorded model without any check.
func (b *Builder) SetTimeModel(tm ir.TimeModel) {
	b.prog.TimeModel = tm
}

// Debug returns the sidecar debug index so block lowerers can record
// provenance links (dindex.ProvenanceLink) as they emit nodes.
func (b *Builder) Debug() *dindex.DebugIndex { return b.prog.Debug }
