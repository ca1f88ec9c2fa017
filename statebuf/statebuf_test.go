package statebuf

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/patchkernel/engine/ir"
)

func TestNewZeroInitializesRingBufferCells(t *testing.T) {
	layout := []ir.StateCellLayout{
		{Cell: 0, Storage: ir.StateScalarF64},
		{Cell: 1, Storage: ir.StateRingBufferF64, ElementCount: 4},
	}
	b := New(layout)

	require.Equal(t, 0.0, b.Get(0).Scalar)
	require.Len(t, b.Get(1).Ring, 4)
}

func TestGetSetRoundTrip(t *testing.T) {
	b := New([]ir.StateCellLayout{{Cell: 0, Storage: ir.StateScalarF64}})
	b.Set(0, Cell{Scalar: 42})
	require.Equal(t, 42.0, b.Get(0).Scalar)
}

func TestGetSetOutOfRangeAreNoops(t *testing.T) {
	b := New(nil)
	require.Equal(t, Cell{}, b.Get(5))
	b.Set(5, Cell{Scalar: 1}) // must not panic
}

// TestHotSwapCarriesOverByStableKey exercises spec §4.9's state carryover
// used by scenario S4 (slew state survives a hot-swap of a patch that
// only changed a downstream render color).
func TestHotSwapCarriesOverByStableKey(t *testing.T) {
	oldLayout := []ir.StateCellLayout{
		{Cell: 0, Storage: ir.StateScalarF64, StableKey: "slewToward:ramp"},
	}
	prev := New(oldLayout)
	prev.Set(0, Cell{Scalar: 7.5})

	newLayout := []ir.StateCellLayout{
		{Cell: 0, Storage: ir.StateScalarF64, StableKey: "slewToward:ramp"},
	}
	next := HotSwap(prev, newLayout)

	require.Equal(t, 7.5, next.Get(0).Scalar, "unchanged StableKey must carry the cell's contents forward")
}

func TestHotSwapZeroInitializesNewCells(t *testing.T) {
	prev := New([]ir.StateCellLayout{{Cell: 0, Storage: ir.StateScalarF64, StableKey: "a"}})
	prev.Set(0, Cell{Scalar: 9})

	newLayout := []ir.StateCellLayout{
		{Cell: 0, Storage: ir.StateScalarF64, StableKey: "b"}, // different key: not carried
	}
	next := HotSwap(prev, newLayout)
	require.Equal(t, 0.0, next.Get(0).Scalar)
}

func TestHotSwapDiscardsCellOnShapeChange(t *testing.T) {
	prev := New([]ir.StateCellLayout{{Cell: 0, Storage: ir.StateRingBufferF64, ElementCount: 4, StableKey: "k"}})
	prev.Set(0, Cell{Ring: []float64{1, 2, 3, 4}})

	// Same StableKey, but the ring length changed underneath it.
	newLayout := []ir.StateCellLayout{{Cell: 0, Storage: ir.StateRingBufferF64, ElementCount: 8, StableKey: "k"}}
	next := HotSwap(prev, newLayout)

	require.Len(t, next.Get(0).Ring, 8)
	for _, v := range next.Get(0).Ring {
		require.Equal(t, 0.0, v)
	}
}

func TestHotSwapWithNilPrevIsFreshBuffer(t *testing.T) {
	layout := []ir.StateCellLayout{{Cell: 0, Storage: ir.StateScalarF64}}
	next := HotSwap(nil, layout)
	require.Equal(t, 0.0, next.Get(0).Scalar)
}
