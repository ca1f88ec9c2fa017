package ir

import (
	"github.com/holiman/uint256"

	"github.com/patchkernel/engine/dindex"
	"github.com/patchkernel/engine/typesys"
)

// Fingerprint identifies a CompiledProgram's semantic content: two patches
// with identical fingerprints must lower to identical programs up to
// debug-index labels (spec §8). A 256-bit value (wired via holiman/uint256,
// spec SPEC_FULL.md §11) gives enough headroom to fold in block set, wiring,
// transform chains, default sources, bus configuration and seed without
// meaningfully colliding.
type Fingerprint = uint256.Int

// CompiledProgram is the pure-data output of the lowering pipeline (spec
// §3). Every field is read-only after compile; a hot-swap replaces the
// whole value rather than mutating it in place.
type CompiledProgram struct {
	Fingerprint Fingerprint

	TimeModel TimeModel
	Types     *typesys.Table

	SignalExprs []SignalExprIR
	FieldExprs  []FieldExprIR

	Constants *ConstantPool

	StateLayout []StateCellLayout

	TransformChains []TransformChainIR

	DefaultSources map[PortKey]ValueRef

	SlotMeta []SlotMeta

	Render RenderIR

	Schedule ScheduleIR

	BusRoots []BusRoot

	Debug *dindex.DebugIndex
}

// PortKey identifies one input port for the purposes of defaultSources.
type PortKey struct {
	Block BlockIndex
	Port  PortIndex
}

// RenderIR is CompiledProgram.render (spec §3): the list of sinks the
// schedule's renderAssemble steps write into.
type RenderIR struct {
	Sinks []RenderSinkIR
}

// ScheduleIR is CompiledProgram.schedule (spec §4.8): the ordered step
// list plus the constants written once at program-load time.
type ScheduleIR struct {
	Steps             []StepIR
	InitialSlotValues map[ValueSlot]ValueRef
}

// NewCompiledProgram returns an empty program shell; irbuilder.Builder
// populates it pass by pass.
func NewCompiledProgram() *CompiledProgram {
	return &CompiledProgram{
		Types:          typesys.NewTable(),
		Constants:      NewConstantPool(),
		DefaultSources: make(map[PortKey]ValueRef),
		Debug:          dindex.NewDebugIndex(),
		Schedule:       ScheduleIR{InitialSlotValues: make(map[ValueSlot]ValueRef)},
	}
}
