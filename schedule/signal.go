package schedule

import (
	"fmt"
	"math"

	"github.com/patchkernel/engine/ir"
	"github.com/patchkernel/engine/render"
	"github.com/patchkernel/engine/statebuf"
	"github.com/patchkernel/engine/transform"
	"github.com/patchkernel/engine/typesys"
	"github.com/patchkernel/engine/valuestore"
)

// signalEvaluator walks a signal-expression DAG against one frame's store
// and state buffer (spec §4.2, §4.8 "signalEval(sigExprId, outSlot)").
// Instances are cheap and created per step; all the state they touch
// lives in the fields below, not globals.
type signalEvaluator struct {
	exprs  []ir.SignalExprIR
	consts *ir.ConstantPool
	chains []ir.TransformChainIR
	xreg   *transform.Registry
	store  *valuestore.Store
	state  *statebuf.Buffer
	dtMs   float64
}

func (e *signalEvaluator) nodeAt(id ir.SigExprID) (ir.SignalExprIR, error) {
	if int(id) < 0 || int(id) >= len(e.exprs) {
		return ir.SignalExprIR{}, fmt.Errorf("schedule: sig expr id %d out of range", id)
	}
	return e.exprs[id], nil
}

// Eval returns id's current value as a valuestore.Value, recursing into
// operands as needed. Scalar domains (number/boolean/phase01/time) use
// the F64 lane (boolean as 0/1); vec2/vec3/color use Object.
func (e *signalEvaluator) Eval(id ir.SigExprID) (valuestore.Value, error) {
	node, err := e.nodeAt(id)
	if err != nil {
		return valuestore.Value{}, err
	}

	switch node.Kind {
	case ir.SigConst:
		return e.constValue(node.Const, node.Type), nil

	case ir.SigTimeAbs, ir.SigTimeModel, ir.SigPhase01, ir.SigInputSlot:
		return e.store.Read(node.Slot), nil

	case ir.SigMap, ir.SigZip:
		vals, err := e.scalarOperands(node.Inputs)
		if err != nil {
			return valuestore.Value{}, err
		}
		if node.Op == ir.OpToColor || node.Op == ir.OpHueShift {
			return e.evalColorOpcode(node, vals)
		}
		out, err := evalStateless(node.Op, vals)
		return valuestore.Value{F64: out}, err

	case ir.SigSelect:
		cond, err := e.Eval(node.Cond)
		if err != nil {
			return valuestore.Value{}, err
		}
		if cond.F64 != 0 {
			return e.Eval(node.A)
		}
		return e.Eval(node.B)

	case ir.SigTransform:
		operand, err := e.Eval(node.Operand)
		if err != nil {
			return valuestore.Value{}, err
		}
		chain := e.chainSteps(node.Chain)
		result, err := transform.ApplyChain(e.xreg, transform.Value{Dom: node.Type.Dom, X: operand.F64}, chain)
		if err != nil {
			return valuestore.Value{}, err
		}
		return valuestore.Value{F64: result.AsFloat()}, nil

	case ir.SigBusCombine:
		vals, err := e.scalarOperands(node.Inputs)
		if err != nil {
			return valuestore.Value{}, err
		}
		return valuestore.Value{F64: evalCombine(node.Op, vals)}, nil

	case ir.SigStateful:
		vals, err := e.scalarOperands(node.Inputs)
		if err != nil {
			return valuestore.Value{}, err
		}
		cell := e.state.Get(node.State)
		out, err := evalStateful(node.Op, vals, &cell, e.dtMs)
		if err != nil {
			return valuestore.Value{}, err
		}
		e.state.Set(node.State, cell)
		return valuestore.Value{F64: out}, nil

	default:
		return valuestore.Value{}, fmt.Errorf("schedule: unhandled signal node kind %v", node.Kind)
	}
}

func (e *signalEvaluator) scalarOperands(ids []ir.SigExprID) ([]float64, error) {
	out := make([]float64, len(ids))
	for i, id := range ids {
		v, err := e.Eval(id)
		if err != nil {
			return nil, err
		}
		out[i] = v.F64
	}
	return out, nil
}

func (e *signalEvaluator) constValue(id ir.ConstID, ty typesys.TypeDesc) valuestore.Value {
	switch ty.Dom {
	case typesys.DomainBoolean:
		b, _ := e.consts.BoolAt(id)
		if b {
			return valuestore.Value{F64: 1}
		}
		return valuestore.Value{F64: 0}
	case typesys.DomainNumber, typesys.DomainPhase01, typesys.DomainTime:
		f, _ := e.consts.F64At(id)
		return valuestore.Value{F64: f}
	default:
		obj, _ := e.consts.ObjectAt(id)
		return valuestore.Value{Object: obj}
	}
}

// evalColorOpcode handles the two color-domain primitive opcodes, which
// read/produce an Object-lane render.Color rather than a scalar.
func (e *signalEvaluator) evalColorOpcode(node ir.SignalExprIR, scalarOperands []float64) (valuestore.Value, error) {
	switch node.Op {
	case ir.OpToColor:
		// inputs: r,g,b,a as scalars (authored via a preceding zip/map chain).
		c := render.Color{R: 0, G: 0, B: 0, A: 1}
		if len(scalarOperands) > 0 {
			c.R = scalarOperands[0]
		}
		if len(scalarOperands) > 1 {
			c.G = scalarOperands[1]
		}
		if len(scalarOperands) > 2 {
			c.B = scalarOperands[2]
		}
		if len(scalarOperands) > 3 {
			c.A = scalarOperands[3]
		}
		return valuestore.Value{Object: c}, nil

	case ir.OpHueShift:
		colorVal, err := e.Eval(node.Inputs[0])
		if err != nil {
			return valuestore.Value{}, err
		}
		c, _ := colorVal.Object.(render.Color)
		shiftDeg := 0.0
		if len(node.Inputs) > 1 {
			shiftVal, err := e.Eval(node.Inputs[1])
			if err != nil {
				return valuestore.Value{}, err
			}
			shiftDeg = shiftVal.F64
		}
		return valuestore.Value{Object: hueShift(c, shiftDeg)}, nil
	}
	return valuestore.Value{}, fmt.Errorf("schedule: unreachable color opcode %q", node.Op)
}

// hueShift rotates c's hue by shiftDeg degrees, round-tripping through HSV.
func hueShift(c render.Color, shiftDeg float64) render.Color {
	h, s, v := rgbToHSV(c.R, c.G, c.B)
	h = math.Mod(h+shiftDeg, 360)
	if h < 0 {
		h += 360
	}
	r, g, b := hsvToRGB(h, s, v)
	return render.Color{R: r, G: g, B: b, A: c.A}
}

func rgbToHSV(r, g, b float64) (h, s, v float64) {
	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	v = max
	delta := max - min
	if max == 0 {
		return 0, 0, v
	}
	s = delta / max
	if delta == 0 {
		return 0, s, v
	}
	switch max {
	case r:
		h = 60 * math.Mod((g-b)/delta, 6)
	case g:
		h = 60 * ((b-r)/delta + 2)
	case b:
		h = 60 * ((r-g)/delta + 4)
	}
	if h < 0 {
		h += 360
	}
	return h, s, v
}

func hsvToRGB(h, s, v float64) (r, g, b float64) {
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c
	var rp, gp, bp float64
	switch {
	case h < 60:
		rp, gp, bp = c, x, 0
	case h < 120:
		rp, gp, bp = x, c, 0
	case h < 180:
		rp, gp, bp = 0, c, x
	case h < 240:
		rp, gp, bp = 0, x, c
	case h < 300:
		rp, gp, bp = x, 0, c
	default:
		rp, gp, bp = c, 0, x
	}
	return rp + m, gp + m, bp + m
}

func (e *signalEvaluator) chainSteps(id ir.TransformChainID) []ir.TransformStepIR {
	if int(id) < 0 || int(id) >= len(e.chains) {
		return nil
	}
	return e.chains[id].Steps
}
