package ir

import "github.com/patchkernel/engine/typesys"

// Opcode names one entry in the signal/field opcode registry (spec §4.2).
// Unknown opcodes are a compile error (E_UNKNOWN_OPCODE), never a runtime
// fallback, so Opcode is just a string id resolved once at lowering time
// against the registry — not an enum the IR has to know the full set of.
type Opcode string

const (
	OpAdd            Opcode = "add"
	OpMul            Opcode = "mul"
	OpSub            Opcode = "sub"
	OpDiv            Opcode = "div"
	OpNeg            Opcode = "neg"
	OpSin            Opcode = "sin"
	OpCos            Opcode = "cos"
	OpClamp          Opcode = "clamp"
	OpMapRange       Opcode = "mapRange"
	OpEaseLinear     Opcode = "easeLinear"
	OpEaseInOutCubic Opcode = "easeInOutCubic"
	OpIntegrate      Opcode = "integrate"
	OpDelayMs        Opcode = "delayMs"
	OpSampleHold     Opcode = "sampleHold"
	OpSlewLimit      Opcode = "slewLimit"
	OpHueShift       Opcode = "hueShift"
	OpToColor        Opcode = "toColor"
	OpMix            Opcode = "mix"
	OpQuantize       Opcode = "quantize"
	OpPolarity       Opcode = "polarity"
	OpDeadzone       Opcode = "deadzone"

	OpScalarToSignal Opcode = "scalarToSignal"
	OpConstToSignal  Opcode = "constToSignal"

	// Bus combine modes (spec §4.7), stamped into a SigBusCombine node's Op
	// field rather than the general opcode registry — busCombine dispatch
	// is handled directly by the schedule executor, not evaluator lookup.
	OpCombineLast    Opcode = "last"
	OpCombineSum     Opcode = "sum"
	OpCombineAverage Opcode = "average"
	OpCombineMin     Opcode = "min"
	OpCombineMax     Opcode = "max"
	OpCombineProduct Opcode = "product"
)

// combineModes is the fixed set of legal bus combine mode names (spec
// §4.7).
var combineModes = map[Opcode]bool{
	OpCombineLast: true, OpCombineSum: true, OpCombineAverage: true,
	OpCombineMin: true, OpCombineMax: true, OpCombineProduct: true,
}

// IsCombineMode reports whether op names one of the fixed bus combine
// modes.
func IsCombineMode(op Opcode) bool { return combineModes[op] }

// combineModesRequiringNumeric excludes `last`, which is legal for any
// busEligible type including vec2/vec3/color.
var combineModesRequiringNumeric = map[Opcode]bool{
	OpCombineSum: true, OpCombineAverage: true, OpCombineMin: true, OpCombineMax: true, OpCombineProduct: true,
}

// CombineRequiresNumeric reports whether op is only legal over a numeric
// domain (spec §4.7 "mode-by-type legality is enforced at compile").
func CombineRequiresNumeric(op Opcode) bool { return combineModesRequiringNumeric[op] }

// statefulOpcodes names every opcode that reads/writes a StateCell. A
// lowering pass that emits one of these without reserving a state cell is
// a compile bug, not a user error (spec §4.4 "No stateful slew-style lens
// may be introduced without also reserving state cells during lowering").
var statefulOpcodes = map[Opcode]bool{
	OpIntegrate:  true,
	OpDelayMs:    true,
	OpSampleHold: true,
	OpSlewLimit:  true,
}

// IsStateful reports whether op reads/writes a StateCell.
func IsStateful(op Opcode) bool { return statefulOpcodes[op] }

// SigKind discriminates a SignalExprIR node's shape.
type SigKind uint8

const (
	SigConst SigKind = iota
	SigTimeAbs
	SigTimeModel
	SigPhase01
	SigInputSlot
	SigMap
	SigZip
	SigSelect
	SigTransform
	SigBusCombine
	SigStateful
)

// SignalExprIR is one node of the signal-expression DAG (spec §4.2). All
// shapes share one struct — the fields a given Kind doesn't use are left
// zero — matching the flat, index-addressed node table the spec's "dense
// index layer" and "IR schema" sections call for: no node ever holds a Go
// closure or interface value, only indices into sibling tables.
type SignalExprIR struct {
	Kind SigKind

	// SigConst
	Const ConstID

	// SigInputSlot
	Slot ValueSlot

	// SigMap / SigZip / SigStateful
	Op     Opcode
	Inputs []SigExprID

	// SigSelect
	Cond, A, B SigExprID

	// SigTransform
	Chain   TransformChainID
	Operand SigExprID

	// SigBusCombine
	Bus BusIndex

	// SigStateful
	State StateCellID

	// Type is the node's output TypeDesc, stamped by the IR builder so
	// later passes (bus lowering, link resolution) can check compatibility
	// without re-deriving it from inputs.
	Type typesys.TypeDesc
}
