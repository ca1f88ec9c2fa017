package irbuilder

import (
	"github.com/patchkernel/engine/ir"
	"github.com/patchkernel/engine/typesys"
)

// ResolvedInput is what pass 6 (block lowering) hands a block lowerer for
// each of its input ports: either a wire's upstream expr/slot, or the
// port's default source, already resolved by earlier passes.
type ResolvedInput struct {
	Type typesys.TypeDesc

	// Exactly one of these is meaningful, selected by Type.World.
	SigExpr   ir.SigExprID
	FieldExpr ir.FieldExprID
	Slot      ir.ValueSlot
}

// BlockContext is the read-only view of one block instance a lowerer
// operates against: its resolved inputs, raw params, and identity. The
// corresponding Builder is passed alongside it so the lowerer can emit
// nodes (spec §6 "Block registry ... lower(builder, context)").
type BlockContext struct {
	BlockID    string
	BlockIndex ir.BlockIndex
	Seed       uint64

	Inputs map[string]ResolvedInput
	Params map[string]any

	// Outputs is filled in by the lowerer for each declared output port
	// it produces a value for; pass 6 (materializeOutputs) reads it to
	// allocate backing slots and wire downstream consumers.
	Outputs map[string]ResolvedInput

	// Sink is set by a sink-type block's lowerer when it calls
	// b.AddSink(...); InvalidSinkID otherwise. The block lowering pass
	// reads it to append the corresponding renderAssemble schedule step.
	Sink ir.SinkID
}

func NewBlockContext(blockID string, blockIndex ir.BlockIndex, seed uint64) *BlockContext {
	return &BlockContext{
		BlockID:    blockID,
		BlockIndex: blockIndex,
		Seed:       seed,
		Inputs:     make(map[string]ResolvedInput),
		Params:     make(map[string]any),
		Outputs:    make(map[string]ResolvedInput),
		Sink:       ir.InvalidSinkID,
	}
}

// Lowerer is the function shape every block type registers (spec §6):
// given a Builder and this block instance's BlockContext, emit whatever
// IR the block needs and populate ctx.Outputs.
type Lowerer func(b *Builder, ctx *BlockContext) error
