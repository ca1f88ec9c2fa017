package ir

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConstantPoolGobRoundTrip(t *testing.T) {
	p := NewConstantPool()
	f64ID := p.AddF64(3.5)
	boolID := p.AddBool(true)
	objID := p.AddObject([]float64{1, 2, 3})

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(p))

	var decoded ConstantPool
	require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))

	f, ok := decoded.F64At(f64ID)
	require.True(t, ok)
	require.Equal(t, 3.5, f)

	b, ok := decoded.BoolAt(boolID)
	require.True(t, ok)
	require.True(t, b)

	obj, ok := decoded.ObjectAt(objID)
	require.True(t, ok)
	require.Equal(t, []float64{1, 2, 3}, obj)
}

func TestConstantPoolGobRoundTripEmpty(t *testing.T) {
	p := NewConstantPool()

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(p))

	var decoded ConstantPool
	require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))
	require.Equal(t, 0, len(decoded.F64))
}
