package lower

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/patchkernel/engine/diag"
	"github.com/patchkernel/engine/ir"
)

// TestCheckSingleWriterFlagsSharedSlot is the compile-time half of
// scenario S6: two steps writing the same ValueSlot in one frame is
// invariant 2's violation (spec §6 E_MULTIPLE_WRITERS), caught here
// before the runtime debug-mode check ever sees a frame.
func TestCheckSingleWriterFlagsSharedSlot(t *testing.T) {
	c := newCtx(nil, nil, nil)

	steps := []ir.StepIR{
		{Kind: ir.StepSignalEval, Sig: 0, OutSlot: 5},
		{Kind: ir.StepSignalEval, Sig: 1, OutSlot: 5},
		{Kind: ir.StepMaterialize, Field: 0, BufferSlot: 9},
	}

	c.checkSingleWriter(steps)

	var found diag.Diagnostic
	for _, d := range c.diags.All() {
		if d.Code == diag.CodeMultipleWriters {
			found = d
		}
	}
	require.Equal(t, diag.CodeMultipleWriters, found.Code)
	require.Equal(t, diag.SeverityError, found.Severity)
	require.Equal(t, "slot#5", found.Where.SlotID)
}

// TestCheckSingleWriterAllowsDistinctSlots is the negative case: distinct
// OutSlot/BufferSlot values across steps never trip invariant 2.
func TestCheckSingleWriterAllowsDistinctSlots(t *testing.T) {
	c := newCtx(nil, nil, nil)

	steps := []ir.StepIR{
		{Kind: ir.StepSignalEval, Sig: 0, OutSlot: 1},
		{Kind: ir.StepSignalEval, Sig: 1, OutSlot: 2},
		{Kind: ir.StepMaterialize, Field: 0, BufferSlot: 3},
	}

	c.checkSingleWriter(steps)

	for _, d := range c.diags.All() {
		require.NotEqual(t, diag.CodeMultipleWriters, d.Code)
	}
}
