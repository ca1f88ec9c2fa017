package transform

import (
	"math"

	"github.com/patchkernel/engine/ir"
	"github.com/patchkernel/engine/patch"
)

// NewBuiltinRegistry returns a Registry pre-populated with the
// representative transform set spec §4.4 names: scale, offset, clamp,
// mapRange, quantize, polarity, deadzone, ease, constToSignal,
// broadcastScalarToField, toColor. Hosts may register additional ids on
// top of this; none of these may be removed without a breaking change to
// the patch format they validate against.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()

	r.Register(Transform{
		ID:         "scale",
		FoldOpcode: ir.OpMul,
		Schema:     []patch.ParamSchema{{Name: "factor", Kind: patch.ParamNumber, Required: true}},
		Apply: func(in Value, p map[string]float64) (Value, error) {
			in.X *= p["factor"]
			return in, nil
		},
	})

	r.Register(Transform{
		ID:         "offset",
		FoldOpcode: ir.OpAdd,
		Schema:     []patch.ParamSchema{{Name: "amount", Kind: patch.ParamNumber, Required: true}},
		Apply: func(in Value, p map[string]float64) (Value, error) {
			in.X += p["amount"]
			return in, nil
		},
	})

	r.Register(Transform{
		ID:         "clamp",
		FoldOpcode: ir.OpClamp,
		Schema: []patch.ParamSchema{
			{Name: "min", Kind: patch.ParamNumber, Required: true},
			{Name: "max", Kind: patch.ParamNumber, Required: true},
		},
		Apply: func(in Value, p map[string]float64) (Value, error) {
			if in.X < p["min"] {
				in.X = p["min"]
			} else if in.X > p["max"] {
				in.X = p["max"]
			}
			return in, nil
		},
	})

	r.Register(Transform{
		ID:         "mapRange",
		FoldOpcode: ir.OpMapRange,
		Schema: []patch.ParamSchema{
			{Name: "inMin", Kind: patch.ParamNumber, Required: true},
			{Name: "inMax", Kind: patch.ParamNumber, Required: true},
			{Name: "outMin", Kind: patch.ParamNumber, Required: true},
			{Name: "outMax", Kind: patch.ParamNumber, Required: true},
		},
		Apply: func(in Value, p map[string]float64) (Value, error) {
			span := p["inMax"] - p["inMin"]
			if span == 0 {
				in.X = p["outMin"]
				return in, nil
			}
			t := (in.X - p["inMin"]) / span
			in.X = p["outMin"] + t*(p["outMax"]-p["outMin"])
			return in, nil
		},
	})

	r.Register(Transform{
		ID:         "quantize",
		FoldOpcode: ir.OpQuantize,
		Schema:     []patch.ParamSchema{{Name: "steps", Kind: patch.ParamNumber, Required: true, Min: 1}},
		Apply: func(in Value, p map[string]float64) (Value, error) {
			steps := p["steps"]
			if steps < 1 {
				steps = 1
			}
			in.X = math.Round(in.X*steps) / steps
			return in, nil
		},
	})

	r.Register(Transform{
		ID:     "polarity",
		Schema: []patch.ParamSchema{{Name: "invert", Kind: patch.ParamBool}},
		Apply: func(in Value, p map[string]float64) (Value, error) {
			if p["invert"] != 0 {
				in.X = -in.X
			}
			return in, nil
		},
	})

	r.Register(Transform{
		ID:         "deadzone",
		FoldOpcode: ir.OpDeadzone,
		Schema:     []patch.ParamSchema{{Name: "threshold", Kind: patch.ParamNumber, Required: true, Min: 0}},
		Apply: func(in Value, p map[string]float64) (Value, error) {
			if math.Abs(in.X) < p["threshold"] {
				in.X = 0
			}
			return in, nil
		},
	})

	r.Register(Transform{
		ID:         "ease",
		FoldOpcode: ir.OpEaseInOutCubic,
		Schema:     []patch.ParamSchema{{Name: "mode", Kind: patch.ParamNumber}},
		Apply: func(in Value, p map[string]float64) (Value, error) {
			t := in.X
			if p["mode"] == 0 {
				// linear: identity
				return in, nil
			}
			if t < 0.5 {
				in.X = 4 * t * t * t
			} else {
				f := (2*t - 2)
				in.X = 1 + f*f*f/2
			}
			return in, nil
		},
	})

	r.Register(Transform{
		ID: "constToSignal",
		Apply: func(in Value, p map[string]float64) (Value, error) {
			return in, nil
		},
	})

	r.Register(Transform{
		ID: "broadcastScalarToField",
		Apply: func(in Value, p map[string]float64) (Value, error) {
			return in, nil
		},
	})

	r.Register(Transform{
		ID:         "toColor",
		FoldOpcode: ir.OpToColor,
		Apply: func(in Value, p map[string]float64) (Value, error) {
			return Color(in.X, in.X, in.X, 1), nil
		},
	})

	return r
}
