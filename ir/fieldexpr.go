package ir

import "github.com/patchkernel/engine/typesys"

// FieldKind discriminates a FieldExprIR node's shape (spec §4.3).
type FieldKind uint8

const (
	FieldConst FieldKind = iota
	FieldInputSlot
	FieldMap
	FieldZip
	FieldSelect
	FieldTransform
	FieldSampleSignal
	FieldBusCombine
)

// FieldExprIR is one node of a per-element expression recipe over a
// Domain. Fields are lazy: this struct is the recipe, not a buffer — the
// materializer (package field) walks it and produces a typed buffer sized
// to domain.elementCount (spec §4.3).
type FieldExprIR struct {
	Kind FieldKind

	Const ConstID
	Slot  ValueSlot

	Op     Opcode
	Inputs []FieldExprID

	Cond, A, B FieldExprID

	Chain   TransformChainID
	Operand FieldExprID

	// FieldSampleSignal broadcasts a signal-world scalar onto this
	// field's domain (spec §4.3: "sampleSignal(exprId)").
	Signal SigExprID

	Bus BusIndex

	// Domain is the slot holding the Domain this field recipe is
	// evaluated over.
	Domain ValueSlot

	Type typesys.TypeDesc
}
