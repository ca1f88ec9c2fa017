package schedule

import (
	"fmt"
	"math"

	"github.com/patchkernel/engine/internal/numeric"
	"github.com/patchkernel/engine/ir"
	"github.com/patchkernel/engine/statebuf"
)

// evalStateless applies a non-stateful SigMap/SigZip/FieldMap-shaped
// opcode to its already-evaluated operands (spec §4.2 "map(op, inputs[])"
// / "zip(op, a, b)").
func evalStateless(op ir.Opcode, in []float64) (float64, error) {
	switch op {
	case ir.OpAdd:
		var sum float64
		for _, v := range in {
			sum += v
		}
		return sum, nil
	case ir.OpSub:
		return in[0] - in[1], nil
	case ir.OpMul:
		prod := 1.0
		for _, v := range in {
			prod *= v
		}
		return prod, nil
	case ir.OpDiv:
		// A zero (or near-zero) divisor is not special-cased here: it
		// produces an IEEE-754 Inf/NaN like any other float op, and the
		// executor's generic non-finite check (schedule/executor.go)
		// catches it after evaluation, records a diagnostic, and clamps
		// the slot to its safe default (spec §7).
		return in[0] / in[1], nil
	case ir.OpNeg:
		return -in[0], nil
	case ir.OpSin:
		return math.Sin(in[0]), nil
	case ir.OpCos:
		return math.Cos(in[0]), nil
	case ir.OpClamp:
		return numeric.ClampF64(in[0], in[1], in[2]), nil
	case ir.OpMapRange:
		inLo, inHi, outLo, outHi := in[1], in[2], in[3], in[4]
		if inHi == inLo {
			return outLo, nil
		}
		t := (in[0] - inLo) / (inHi - inLo)
		return outLo + t*(outHi-outLo), nil
	case ir.OpEaseLinear:
		return in[0], nil
	case ir.OpEaseInOutCubic:
		t := in[0]
		if t < 0.5 {
			return 4 * t * t * t, nil
		}
		f := -2*t + 2
		return 1 - (f*f*f)/2, nil
	case ir.OpQuantize:
		step := in[1]
		if step <= 0 {
			return in[0], nil
		}
		return math.Round(in[0]/step) * step, nil
	case ir.OpPolarity:
		return in[0]*2 - 1, nil
	case ir.OpDeadzone:
		threshold := in[1]
		if math.Abs(in[0]) < threshold {
			return 0, nil
		}
		return in[0], nil
	case ir.OpMix:
		return in[0]*(1-in[2]) + in[1]*in[2], nil
	case ir.OpHueShift, ir.OpToColor:
		// Color-domain opcodes operate on an Object-backed value, not a
		// scalar lane; SigMap nodes of this shape are evaluated by
		// evalColorOpcode instead (see signal.go).
		return 0, fmt.Errorf("schedule: opcode %q is not scalar-evaluable", op)
	default:
		return 0, fmt.Errorf("schedule: unknown stateless opcode %q", op)
	}
}

// evalStateful applies a stateful opcode (integrate, delayMs, sampleHold,
// slewLimit), reading and writing cell (spec §4.4, §4.2 node kind
// `stateful`).
func evalStateful(op ir.Opcode, in []float64, cell *statebuf.Cell, dtMs float64) (float64, error) {
	switch op {
	case ir.OpIntegrate:
		cell.Scalar += in[0] * (dtMs / 1000)
		return cell.Scalar, nil

	case ir.OpSampleHold:
		trigger, value := in[0], in[1]
		if trigger != 0 {
			cell.Scalar = value
		}
		return cell.Scalar, nil

	case ir.OpSlewLimit:
		target, maxRatePerSec := in[0], in[1]
		maxStep := maxRatePerSec * (dtMs / 1000)
		delta := target - cell.Scalar
		if delta > maxStep {
			delta = maxStep
		} else if delta < -maxStep {
			delta = -maxStep
		}
		cell.Scalar += delta
		return cell.Scalar, nil

	case ir.OpDelayMs:
		if len(cell.Ring) == 0 {
			return in[0], nil
		}
		out := cell.Ring[cell.Cursor]
		cell.Ring[cell.Cursor] = in[0]
		cell.Cursor = (cell.Cursor + 1) % len(cell.Ring)
		return out, nil

	default:
		return 0, fmt.Errorf("schedule: unknown stateful opcode %q", op)
	}
}

// evalCombine reduces a bus's publisher values into the bus's current
// value per its locked combine mode (spec §4.7).
func evalCombine(op ir.Opcode, in []float64) float64 {
	if len(in) == 0 {
		return 0
	}
	switch op {
	case ir.OpCombineLast:
		return in[len(in)-1]
	case ir.OpCombineSum:
		var sum float64
		for _, v := range in {
			sum += v
		}
		return sum
	case ir.OpCombineAverage:
		var sum float64
		for _, v := range in {
			sum += v
		}
		return sum / float64(len(in))
	case ir.OpCombineMin:
		m := in[0]
		for _, v := range in[1:] {
			if v < m {
				m = v
			}
		}
		return m
	case ir.OpCombineMax:
		m := in[0]
		for _, v := range in[1:] {
			if v > m {
				m = v
			}
		}
		return m
	case ir.OpCombineProduct:
		prod := 1.0
		for _, v := range in {
			prod *= v
		}
		return prod
	default:
		return in[len(in)-1]
	}
}
