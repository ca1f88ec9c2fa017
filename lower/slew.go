package lower

import (
	"github.com/patchkernel/engine/ir"
	"github.com/patchkernel/engine/irbuilder"
	"github.com/patchkernel/engine/patch"
	"github.com/patchkernel/engine/typesys"
)

// SlewTowardDescriptor is the one supplemented signal-world stateful
// block: it rate-limits its "target" input toward its current value at
// "maxRatePerSec" (spec §4.2 opcode `slewLimit`, §4.4 "a state cell
// persists ... across frames, surviving a hot-swap when its StableKey
// matches"). It is the block the hot-swap slew-state carryover scenario
// exercises.
func SlewTowardDescriptor() patch.BlockDescriptor {
	return patch.BlockDescriptor{
		Type: "slewToward",
		Inputs: []patch.PortDecl{
			{Name: "target", World: "signal", Domain: "number", Required: true},
			{Name: "maxRatePerSec", World: "signal", Domain: "number"},
		},
		Outputs: []patch.PortDecl{
			{Name: "out", World: "signal", Domain: "number"},
		},
		Params: []patch.ParamSchema{
			{Name: "maxRatePerSec", Kind: patch.ParamNumber, Min: 0, Max: 1 << 20},
		},
		Stateful: true,
		Lower:    lowerSlewToward,
	}
}

// lowerSlewToward reserves this instance's state cell and emits the
// SigStateful node the schedule executor's evalStateful(OpSlewLimit, ...)
// reads and writes every frame (schedule/opcode.go). The cell's
// StableKey is the block id: stable across a recompile of the same patch
// as long as the authored block id doesn't change, which is what lets
// HotSwap carry its current slewed value forward (spec §4.9).
func lowerSlewToward(b *irbuilder.Builder, ctx *irbuilder.BlockContext) error {
	ty := typesys.TypeDesc{World: typesys.WorldSignal, Dom: typesys.DomainNumber}

	target := ctx.Inputs["target"]

	var rate ir.SigExprID
	if r, ok := ctx.Inputs["maxRatePerSec"]; ok {
		rate = r.SigExpr
	} else {
		rateF, _ := ctx.Params["maxRatePerSec"].(float64)
		cid := b.AddConstant().AddF64(rateF)
		rate = b.EmitSignal(ir.SignalExprIR{Kind: ir.SigConst, Const: cid, Type: ty})
	}

	cell := b.ReserveStateCell(ir.StateScalarF64, 1, "slewToward:"+ctx.BlockID)

	id := b.EmitSignal(ir.SignalExprIR{
		Kind:   ir.SigStateful,
		Op:     ir.OpSlewLimit,
		Inputs: []ir.SigExprID{target.SigExpr, rate},
		State:  cell,
		Type:   ty,
	})
	ctx.Outputs["out"] = irbuilder.ResolvedInput{Type: ty, SigExpr: id}
	return nil
}
