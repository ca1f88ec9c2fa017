package ir

// StateCellLayout describes one persistent operator state cell (spec §3
// CompiledProgram.stateLayout). The layout's size must stay stable across
// compiles of equivalent operators so hot-swap can carry contents forward
// by matching (StableKey) pairwise (spec §4.9).
type StateCellLayout struct {
	Cell        StateCellID
	Storage     StateCellStorage
	ElementCount int
	// StableKey identifies this cell across recompiles: operator type
	// concatenated with a stable hash of its upstream path. Hot-swap
	// matches old and new layouts by this key, not by StateCellID (which
	// is only stable within one compile).
	StableKey string
}

// StateCellStorage is the representation a StateCell is held in.
type StateCellStorage uint8

const (
	StateScalarF64 StateCellStorage = iota
	StateVec2F64
	StateVecNF64
	StateRingBufferF64
)

// TimeModelKind distinguishes the two TimeModel shapes spec §4.1 allows.
type TimeModelKind uint8

const (
	TimeFinite TimeModelKind = iota
	TimeInfinite
)

// TimeModel is derived solely from the patch's single TimeRoot block
// (spec §4.1); no other graph property may alter it.
type TimeModel struct {
	Kind       TimeModelKind
	DurationMs float64 // only meaningful when Kind == TimeFinite
}

// SinkKind discriminates a render sink's assembled shape (spec §6
// "Render-frame wire format").
type SinkKind uint8

const (
	SinkInstances2D SinkKind = iota
	SinkPaths2D
	SinkClipGroup
	SinkPostFX
)

// RenderSinkIR describes one render sink: what input slots it reads and
// how the executor should assemble them into the RenderFrame tree (spec
// §3 CompiledProgram.render, §6).
type RenderSinkIR struct {
	ID         SinkID
	Kind       SinkKind
	Inputs     []ValueSlot
	Child      SinkID // for clipGroup/postFX; InvalidSinkID if none
	EffectName string // for postFX
}

const InvalidSinkID SinkID = -1

// StepKind discriminates a schedule step (spec §4.8).
type StepKind uint8

const (
	StepTimeDerive StepKind = iota
	StepSignalEval
	StepMaterialize
	StepRenderAssemble
)

// StepIR is one entry of CompiledProgram.schedule. Lowering pass 8
// (lower.passLinkResolution, key from stepSortKey) puts the time-derive
// step first and stable-sorts the rest by (sigExprId asc, fieldExprId
// asc, sinkId asc); no separate data-dependency sort is performed. The
// resulting slice order is used as-is at execution time.
type StepIR struct {
	Kind StepKind

	// StepTimeDerive: the four reserved slots the player writes into
	// before any other step runs (spec §4.1, §4.8).
	TimeAbsSlot, TimeModelSlot, Phase01Slot, WrapEventSlot ValueSlot

	// StepSignalEval
	Sig     SigExprID
	OutSlot ValueSlot

	// StepMaterialize
	Field          FieldExprID
	DomainSlot     ValueSlot
	BufferSlot     ValueSlot
	ElementCountSlot ValueSlot

	// StepRenderAssemble
	Sink SinkID
}

// BusRoot records, for debugging and future optimization, the resolved
// value reference a bus combine node reads as its published root (spec §3
// CompiledProgram.busRoots).
type BusRoot struct {
	Bus BusIndex
	Ref ValueRef
}
