package sink

import (
	"testing"

	deep "github.com/go-test/deep"
	"github.com/stretchr/testify/require"

	"github.com/patchkernel/engine/ir"
	"github.com/patchkernel/engine/render"
	"github.com/patchkernel/engine/valuestore"
)

func TestFrameToStructRoundTripsShape(t *testing.T) {
	meta := []ir.SlotMeta{{}, {}, {}}
	store := valuestore.New(meta, false)
	require.NoError(t, store.Write(1, valuestore.Value{F64: 10}, 0))
	require.NoError(t, store.Write(2, valuestore.Value{F64: 20}, 0))
	view := valuestore.NewView(store)

	frame := render.Frame{
		Version: 1,
		Clear:   render.Clear{Mode: render.ClearSolid, Color: render.Color{R: 1, G: 0, B: 0, A: 1}},
		Passes: []render.Pass{
			{Kind: render.PassInstances2D, PositionSlot: 1, ColorSlot: 2},
		},
	}

	st, err := frameToStruct(frame, view)
	require.NoError(t, err)

	decoded, err := structToFrame(st)
	require.NoError(t, err)

	if diff := deep.Equal(frame, decoded); diff != nil {
		t.Errorf("frame shape mismatch: %v", diff)
	}
}

func TestStructToViewRecoversSlotValues(t *testing.T) {
	meta := []ir.SlotMeta{{}, {}, {}}
	store := valuestore.New(meta, false)
	require.NoError(t, store.Write(1, valuestore.Value{F64: 10}, 0))
	require.NoError(t, store.Write(2, valuestore.Value{F64: 20}, 0))
	view := valuestore.NewView(store)

	frame := render.Frame{
		Passes: []render.Pass{{Kind: render.PassInstances2D, PositionSlot: 1, ColorSlot: 2}},
	}
	st, err := frameToStruct(frame, view)
	require.NoError(t, err)

	remoteView := structToView(st)
	require.Equal(t, 10.0, remoteView.Read(1).F64)
	require.Equal(t, 20.0, remoteView.Read(2).F64)
}

func TestEventRoundTrip(t *testing.T) {
	e := Event{Kind: EventFrameProduced, FrameIndex: 7, TModelMs: 123.5}
	st, err := eventToStruct(e)
	require.NoError(t, err)
	decoded := structToEvent(st)
	require.Equal(t, e, decoded)
}
