package dindex

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInternerInternIsStableAndDedupes(t *testing.T) {
	in := NewInterner(KindBlock)
	a := in.Intern("alpha")
	b := in.Intern("beta")
	aAgain := in.Intern("alpha")

	require.Equal(t, a, aAgain)
	require.NotEqual(t, a, b)
	require.Equal(t, 2, in.Len())

	name, ok := in.Name(a)
	require.True(t, ok)
	require.Equal(t, "alpha", name)
}

func TestInternerGobRoundTrip(t *testing.T) {
	in := NewInterner(KindSlot)
	in.Intern("one")
	in.Intern("two")

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(in))

	var decoded Interner
	require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))

	require.Equal(t, in.Names(), decoded.Names())
	idx, ok := decoded.Lookup("two")
	require.True(t, ok)
	require.Equal(t, Index(1), idx)
}

func TestDebugIndexGobRoundTrip(t *testing.T) {
	d := NewDebugIndex()
	blockIdx := d.Interner(KindBlock).Intern("emitter1")
	d.RecordProvenance(ProvenanceLink{Kind: KindBlock, Index: blockIdx, BlockID: "emitter1"})

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(d))

	var decoded DebugIndex
	require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))

	require.Equal(t, []string{"emitter1"}, decoded.SortedNames(KindBlock))
	links := decoded.Provenance(KindBlock, blockIdx)
	require.Len(t, links, 1)
	require.Equal(t, "emitter1", links[0].BlockID)
}
