package valuestore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/patchkernel/engine/ir"
)

func TestWriteReadRoundTrip(t *testing.T) {
	s := New([]ir.SlotMeta{{}, {}}, false)
	require.NoError(t, s.Write(0, Value{F64: 1.5}, 0))
	require.Equal(t, 1.5, s.Read(0).F64)
	require.Equal(t, Value{}, s.Read(1))
}

func TestWriteOutOfRangeErrors(t *testing.T) {
	s := New([]ir.SlotMeta{{}}, false)
	require.Error(t, s.Write(5, Value{}, 0))
}

func TestDebugModeDetectsDoubleWrite(t *testing.T) {
	s := New([]ir.SlotMeta{{}}, true)
	require.NoError(t, s.Write(0, Value{F64: 1}, 1))

	err := s.Write(0, Value{F64: 2}, 2)
	require.Error(t, err)
	mwe, ok := err.(*MultiWriterError)
	require.True(t, ok)
	require.Equal(t, 1, mwe.FirstStep)
	require.Equal(t, 2, mwe.SecondStep)
	require.Equal(t, 1, s.WrittenCount())
}

func TestResetFrameClearsWriteTrackingNotValues(t *testing.T) {
	s := New([]ir.SlotMeta{{}}, true)
	require.NoError(t, s.Write(0, Value{F64: 9}, 0))
	require.Equal(t, 1, s.WrittenCount())

	s.ResetFrame()
	require.Equal(t, 0, s.WrittenCount())
	require.Equal(t, 9.0, s.Read(0).F64, "slot contents survive a frame reset")

	require.NoError(t, s.Write(0, Value{F64: 10}, 1), "writer tracking reset allows a rewrite")
}

func TestViewIsReadOnlyFacade(t *testing.T) {
	s := New([]ir.SlotMeta{{}}, false)
	require.NoError(t, s.Write(0, Value{F64: 42}, 0))
	v := NewView(s)
	require.Equal(t, 42.0, v.Read(0).F64)
	require.Equal(t, 1, v.Len())
}
