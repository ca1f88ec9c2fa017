package diag

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
)

func TestRingBufferEvictsOldestOnOverflow(t *testing.T) {
	r := NewRingBuffer(3)
	for i := 0; i < 5; i++ {
		r.Push(Errorf(CodeUnknownOpcode, Where{BlockID: "b"}, "anomaly %d", i))
	}

	got := r.Snapshot()
	require.Lenf(t, got, 3, "unexpected snapshot contents:\n%s", spew.Sdump(got))
	require.Equal(t, "anomaly 2", got[0].Message)
	require.Equal(t, "anomaly 4", got[2].Message)
}

func TestSinkCapsDiagnostics(t *testing.T) {
	s := NewSink(2)
	s.Add(Errorf(CodeUnknownOpcode, Where{}, "first"))
	s.Add(Errorf(CodeUnknownOpcode, Where{}, "second"))
	s.Add(Errorf(CodeUnknownOpcode, Where{}, "dropped"))

	require.Len(t, s.All(), 2)
	require.True(t, s.HasErrors())
}

func TestSinkHasErrorsFalseForWarningsOnly(t *testing.T) {
	s := NewSink(4)
	s.Add(Warnf(CodeEmptyBusNoDefault, Where{}, "just a warning"))
	require.False(t, s.HasErrors())
}
