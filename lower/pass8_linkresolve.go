package lower

import (
	"fmt"
	"math"
	"sort"

	"github.com/patchkernel/engine/diag"
	"github.com/patchkernel/engine/ir"
)

// passLinkResolution is pass 8, the last pass: prepend the timeDerive
// step, order every step by the spec's fixed tie-break, check the
// single-writer-per-slot invariant, and fold every lowered transform
// chain into the fingerprint input (spec §4.8, §4.9, invariant 2).
func (c *ctx) passLinkResolution() {
	prog := c.b.Program()

	timeDerive := ir.StepIR{
		Kind:          ir.StepTimeDerive,
		TimeAbsSlot:   c.timeAbsSlot,
		TimeModelSlot: c.timeModelSlot,
		Phase01Slot:   c.phase01Slot,
		WrapEventSlot: c.wrapEventSlot,
	}
	steps := make([]ir.StepIR, 0, len(prog.Schedule.Steps)+1)
	steps = append(steps, timeDerive)
	steps = append(steps, prog.Schedule.Steps...)

	sort.SliceStable(steps, func(i, j int) bool {
		return stepSortKey(steps[i]) < stepSortKey(steps[j])
	})
	prog.Schedule.Steps = steps

	c.checkSingleWriter(steps)

	for i, chain := range prog.TransformChains {
		c.fp.TransformChains = append(c.fp.TransformChains, fmt.Sprintf("chain%d:%v", i, chain.Steps))
	}
}

// stepSortKey implements spec §4.8's ordering tie-break `(sigExprId
// ascending, then fieldExprId ascending, then sinkId ascending)`, with the
// timeDerive step forced to sort first (it has no sig/field/sink id of
// its own, and every other step implicitly depends on it).
func stepSortKey(s ir.StepIR) [3]int64 {
	if s.Kind == ir.StepTimeDerive {
		return [3]int64{-1, -1, -1}
	}
	norm := func(v int32) int64 {
		if v < 0 {
			return math.MaxInt64
		}
		return int64(v)
	}
	return [3]int64{norm(int32(s.Sig)), norm(int32(s.Field)), norm(int32(s.Sink))}
}

// checkSingleWriter enforces invariant 2 ("every ValueSlot has exactly one
// writer per frame"): a slot written by more than one StepSignalEval or
// StepMaterialize is a compile error E_MULTIPLE_WRITERS (spec §6 scenario
// S6), caught here at compile time rather than left to the debug-mode
// runtime check.
func (c *ctx) checkSingleWriter(steps []ir.StepIR) {
	writers := make(map[ir.ValueSlot][]int)
	for i, s := range steps {
		switch s.Kind {
		case ir.StepSignalEval:
			writers[s.OutSlot] = append(writers[s.OutSlot], i)
		case ir.StepMaterialize:
			writers[s.BufferSlot] = append(writers[s.BufferSlot], i)
		}
	}
	for slot, idxs := range writers {
		if len(idxs) <= 1 {
			continue
		}
		c.diags.Add(diag.Errorf(diag.CodeMultipleWriters, diag.Where{SlotID: fmt.Sprintf("slot#%d", slot)},
			"value slot written by %d steps (step indices %v)", len(idxs), idxs))
	}
}
