package irbuilder

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/patchkernel/engine/ir"
	"github.com/patchkernel/engine/typesys"
)

func TestNewSlotAllocatesDenselyAndRecordsMeta(t *testing.T) {
	b := New()
	ty := typesys.TypeDesc{World: typesys.WorldSignal, Dom: typesys.DomainNumber}

	s0 := b.NewSlot(ir.SlotMeta{Storage: ir.StorageF64, Type: ty, DebugName: "a"})
	s1 := b.NewSlot(ir.SlotMeta{Storage: ir.StorageI32, Type: ty, DebugName: "b"})

	require.Equal(t, ir.ValueSlot(0), s0)
	require.Equal(t, ir.ValueSlot(1), s1)
	require.Equal(t, "a", b.Program().SlotMeta[s0].DebugName)
	require.Equal(t, "b", b.Program().SlotMeta[s1].DebugName)
}

func TestEmitSignalAndSignalAtShareStorage(t *testing.T) {
	b := New()
	id := b.EmitSignal(ir.SignalExprIR{Kind: ir.SigConst})

	node := b.SignalAt(id)
	node.Op = ir.OpAdd // mutate through the pointer

	require.Equal(t, ir.OpAdd, b.Program().SignalExprs[id].Op, "SignalAt must expose a live pointer into the program's table")
}

func TestEmitFieldAndFieldAtSharesStorage(t *testing.T) {
	b := New()
	id := b.EmitField(ir.FieldExprIR{Kind: ir.FieldBusCombine})

	node := b.FieldAt(id)
	node.Inputs = []ir.FieldExprID{3, 4}

	require.Equal(t, []ir.FieldExprID{3, 4}, b.Program().FieldExprs[id].Inputs)
}

func TestReserveStateCellAppendsDenseLayout(t *testing.T) {
	b := New()
	id0 := b.ReserveStateCell(ir.StateScalarF64, 1, "slewToward:a")
	id1 := b.ReserveStateCell(ir.StateRingBufferF64, 8, "delayMs:b")

	require.Equal(t, ir.StateCellID(0), id0)
	require.Equal(t, ir.StateCellID(1), id1)
	require.Equal(t, 2, len(b.Program().StateLayout))
	require.Equal(t, "slewToward:a", b.Program().StateLayout[id0].StableKey)
	require.Equal(t, 8, b.Program().StateLayout[id1].ElementCount)
}

func TestAddConstantIsSharedAcrossCalls(t *testing.T) {
	b := New()
	cid := b.AddConstant().AddF64(3.5)
	f, ok := b.AddConstant().F64At(cid)
	require.True(t, ok)
	require.Equal(t, 3.5, f)
}

func TestAppendStepAndSetInitialSlotValue(t *testing.T) {
	b := New()
	slot := b.NewSlot(ir.SlotMeta{Storage: ir.StorageF64})
	b.AppendStep(ir.StepIR{Kind: ir.StepSignalEval, OutSlot: slot})
	require.Len(t, b.Program().Schedule.Steps, 1)

	b.SetInitialSlotValue(slot, ir.ValueRef{IsConst: true})
	require.True(t, b.Program().Schedule.InitialSlotValues[slot].IsConst)
}

func TestRegisterBusRootAppends(t *testing.T) {
	b := New()
	b.RegisterBusRoot(ir.BusRoot{Bus: 2, Ref: ir.ValueRef{Slot: 1}})
	require.Len(t, b.Program().BusRoots, 1)
	require.Equal(t, ir.BusIndex(2), b.Program().BusRoots[0].Bus)
}
