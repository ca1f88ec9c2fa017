package transform

import (
	"fmt"
	"math"

	"github.com/patchkernel/engine/ir"
	"github.com/patchkernel/engine/irbuilder"
	"github.com/patchkernel/engine/patch"
	"github.com/patchkernel/engine/typesys"
)

// resolveParams converts one authored TransformStep's params to the plain
// float64 map both ApplyFunc and the lowered ir.TransformStepIR use.
// Boolean params are encoded 0/1 (spec §4.4 only ever exercises this on
// numeric-shaped params for the representative set).
func resolveParams(step patch.TransformStep) map[string]float64 {
	out := make(map[string]float64, len(step.Params))
	for name, pv := range step.Params {
		if f, err := pv.AsFloat64(); err == nil {
			out[name] = f
			continue
		}
		if b, err := pv.AsBool(); err == nil {
			if b {
				out[name] = 1
			}
		}
	}
	return out
}

// lowerChain validates every enabled step against the registry and
// returns both the float64-resolved chain and the single transform when
// the chain has exactly one enabled step, for the fold fast path.
func lowerChain(reg *Registry, chain []patch.TransformStep) ([]ir.TransformStepIR, *Transform, error) {
	var steps []ir.TransformStepIR
	var lone *Transform
	for _, s := range chain {
		if !s.Enabled {
			continue
		}
		t, ok := reg.Lookup(s.ID)
		if !ok {
			return nil, nil, fmt.Errorf("unknown transform id %q", s.ID)
		}
		params := resolveParams(s)
		steps = append(steps, ir.TransformStepIR{ID: s.ID, Enabled: true, Params: params})
		if len(steps) == 1 {
			tCopy := t
			lone = &tCopy
		} else {
			lone = nil
		}
	}
	return steps, lone, nil
}

// CompileSignalChain folds chain onto operand (a signal-world expr) where
// a 1:1 primitive opcode equivalent exists, and otherwise emits a residual
// SigTransform node dispatched through ApplyChain at runtime (spec §4.4:
// "used in the lowering passes ... and at runtime to apply residual
// transforms that cannot be compiled away").
func CompileSignalChain(b *irbuilder.Builder, reg *Registry, operand ir.SigExprID, operandType typesys.TypeDesc, chain []patch.TransformStep) (ir.SigExprID, error) {
	steps, lone, err := lowerChain(reg, chain)
	if err != nil {
		return ir.InvalidSigExprID, err
	}
	if len(steps) == 0 {
		return operand, nil
	}

	if lone != nil && lone.FoldOpcode != "" {
		if node, ok := foldSignal(b, *lone, steps[0], operand, operandType); ok {
			return b.EmitSignal(node), nil
		}
	}

	chainID := b.AddTransformChain(ir.TransformChainIR{Steps: steps})
	return b.EmitSignal(ir.SignalExprIR{Kind: ir.SigTransform, Chain: chainID, Operand: operand, Type: operandType}), nil
}

// CompileFieldChain is CompileSignalChain's field-world counterpart.
func CompileFieldChain(b *irbuilder.Builder, reg *Registry, operand ir.FieldExprID, operandType typesys.TypeDesc, chain []patch.TransformStep) (ir.FieldExprID, error) {
	steps, lone, err := lowerChain(reg, chain)
	if err != nil {
		return ir.InvalidFieldExprID, err
	}
	if len(steps) == 0 {
		return operand, nil
	}

	if lone != nil && lone.FoldOpcode != "" {
		if node, ok := foldField(b, *lone, steps[0], operand, operandType); ok {
			return b.EmitField(node), nil
		}
	}

	chainID := b.AddTransformChain(ir.TransformChainIR{Steps: steps})
	return b.EmitField(ir.FieldExprIR{Kind: ir.FieldTransform, Chain: chainID, Operand: operand, Type: operandType}), nil
}

func constSignal(b *irbuilder.Builder, v float64, t typesys.TypeDesc) ir.SigExprID {
	cid := b.AddConstant().AddF64(v)
	return b.EmitSignal(ir.SignalExprIR{Kind: ir.SigConst, Const: cid, Type: t})
}

// foldSignal emits the primitive map node t.FoldOpcode is equivalent to,
// when the step's params are shaped the way that opcode expects. Returns
// ok=false for the handful of ids (broadcastScalarToField has no
// FoldOpcode at all, so it never reaches here) whose params this switch
// does not recognize, falling back to a residual transform node.
func foldSignal(b *irbuilder.Builder, t Transform, step ir.TransformStepIR, operand ir.SigExprID, ty typesys.TypeDesc) (ir.SignalExprIR, bool) {
	numTy := typesys.TypeDesc{World: typesys.WorldSignal, Dom: typesys.DomainNumber}
	switch t.FoldOpcode {
	case ir.OpMul:
		c := constSignal(b, step.Params["factor"], numTy)
		return ir.SignalExprIR{Kind: ir.SigMap, Op: ir.OpMul, Inputs: []ir.SigExprID{operand, c}, Type: ty}, true
	case ir.OpAdd:
		c := constSignal(b, step.Params["amount"], numTy)
		return ir.SignalExprIR{Kind: ir.SigMap, Op: ir.OpAdd, Inputs: []ir.SigExprID{operand, c}, Type: ty}, true
	case ir.OpClamp:
		lo := constSignal(b, step.Params["min"], numTy)
		hi := constSignal(b, step.Params["max"], numTy)
		return ir.SignalExprIR{Kind: ir.SigMap, Op: ir.OpClamp, Inputs: []ir.SigExprID{operand, lo, hi}, Type: ty}, true
	case ir.OpMapRange:
		inputs := []ir.SigExprID{operand,
			constSignal(b, step.Params["inMin"], numTy), constSignal(b, step.Params["inMax"], numTy),
			constSignal(b, step.Params["outMin"], numTy), constSignal(b, step.Params["outMax"], numTy)}
		return ir.SignalExprIR{Kind: ir.SigMap, Op: ir.OpMapRange, Inputs: inputs, Type: ty}, true
	case ir.OpQuantize:
		// OpQuantize takes a step size; Apply snaps to multiples of 1/steps.
		steps := math.Max(step.Params["steps"], 1)
		c := constSignal(b, 1/steps, numTy)
		return ir.SignalExprIR{Kind: ir.SigMap, Op: ir.OpQuantize, Inputs: []ir.SigExprID{operand, c}, Type: ty}, true
	case ir.OpPolarity:
		c := constSignal(b, step.Params["invert"], numTy)
		return ir.SignalExprIR{Kind: ir.SigMap, Op: ir.OpPolarity, Inputs: []ir.SigExprID{operand, c}, Type: ty}, true
	case ir.OpDeadzone:
		c := constSignal(b, step.Params["threshold"], numTy)
		return ir.SignalExprIR{Kind: ir.SigMap, Op: ir.OpDeadzone, Inputs: []ir.SigExprID{operand, c}, Type: ty}, true
	case ir.OpEaseInOutCubic:
		op := ir.OpEaseInOutCubic
		if step.Params["mode"] == 0 {
			op = ir.OpEaseLinear
		}
		return ir.SignalExprIR{Kind: ir.SigMap, Op: op, Inputs: []ir.SigExprID{operand}, Type: ty}, true
	case ir.OpToColor:
		return ir.SignalExprIR{Kind: ir.SigMap, Op: ir.OpToColor, Inputs: []ir.SigExprID{operand}, Type: ty}, true
	default:
		return ir.SignalExprIR{}, false
	}
}

func constField(b *irbuilder.Builder, v float64, t typesys.TypeDesc) ir.FieldExprID {
	cid := b.AddConstant().AddF64(v)
	return b.EmitField(ir.FieldExprIR{Kind: ir.FieldConst, Const: cid, Type: t})
}

// foldField mirrors foldSignal for field-world operands.
func foldField(b *irbuilder.Builder, t Transform, step ir.TransformStepIR, operand ir.FieldExprID, ty typesys.TypeDesc) (ir.FieldExprIR, bool) {
	numTy := typesys.TypeDesc{World: typesys.WorldField, Dom: typesys.DomainNumber}
	switch t.FoldOpcode {
	case ir.OpMul:
		c := constField(b, step.Params["factor"], numTy)
		return ir.FieldExprIR{Kind: ir.FieldMap, Op: ir.OpMul, Inputs: []ir.FieldExprID{operand, c}, Type: ty}, true
	case ir.OpAdd:
		c := constField(b, step.Params["amount"], numTy)
		return ir.FieldExprIR{Kind: ir.FieldMap, Op: ir.OpAdd, Inputs: []ir.FieldExprID{operand, c}, Type: ty}, true
	case ir.OpClamp:
		lo := constField(b, step.Params["min"], numTy)
		hi := constField(b, step.Params["max"], numTy)
		return ir.FieldExprIR{Kind: ir.FieldMap, Op: ir.OpClamp, Inputs: []ir.FieldExprID{operand, lo, hi}, Type: ty}, true
	case ir.OpMapRange:
		inputs := []ir.FieldExprID{operand,
			constField(b, step.Params["inMin"], numTy), constField(b, step.Params["inMax"], numTy),
			constField(b, step.Params["outMin"], numTy), constField(b, step.Params["outMax"], numTy)}
		return ir.FieldExprIR{Kind: ir.FieldMap, Op: ir.OpMapRange, Inputs: inputs, Type: ty}, true
	case ir.OpQuantize:
		steps := math.Max(step.Params["steps"], 1)
		c := constField(b, 1/steps, numTy)
		return ir.FieldExprIR{Kind: ir.FieldMap, Op: ir.OpQuantize, Inputs: []ir.FieldExprID{operand, c}, Type: ty}, true
	case ir.OpPolarity:
		c := constField(b, step.Params["invert"], numTy)
		return ir.FieldExprIR{Kind: ir.FieldMap, Op: ir.OpPolarity, Inputs: []ir.FieldExprID{operand, c}, Type: ty}, true
	case ir.OpDeadzone:
		c := constField(b, step.Params["threshold"], numTy)
		return ir.FieldExprIR{Kind: ir.FieldMap, Op: ir.OpDeadzone, Inputs: []ir.FieldExprID{operand, c}, Type: ty}, true
	case ir.OpEaseInOutCubic:
		op := ir.OpEaseInOutCubic
		if step.Params["mode"] == 0 {
			op = ir.OpEaseLinear
		}
		return ir.FieldExprIR{Kind: ir.FieldMap, Op: op, Inputs: []ir.FieldExprID{operand}, Type: ty}, true
	case ir.OpToColor:
		return ir.FieldExprIR{Kind: ir.FieldMap, Op: ir.OpToColor, Inputs: []ir.FieldExprID{operand}, Type: ty}, true
	default:
		return ir.FieldExprIR{}, false
	}
}
