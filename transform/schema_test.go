package transform

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/patchkernel/engine/patch"
)

func TestCompileSchemaBoundsCheck(t *testing.T) {
	cs, err := compileSchema(patch.ParamSchema{Name: "amount", Kind: patch.ParamNumber, Min: 0, Max: 1})
	require.NoError(t, err)

	require.NoError(t, cs.check(0.5))
	require.NoError(t, cs.check(0))
	require.NoError(t, cs.check(1))

	err = cs.check(1.5)
	require.Error(t, err)
	require.Contains(t, err.Error(), "out of range")
}

func TestCompileSchemaNoBoundsIsNoop(t *testing.T) {
	cs, err := compileSchema(patch.ParamSchema{Name: "anything", Kind: patch.ParamString})
	require.NoError(t, err)
	require.NoError(t, cs.check(1e9))
}

func TestRegistryValidateUsesCompiledBounds(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Transform{
		ID:     "clampTest",
		Schema: []patch.ParamSchema{{Name: "k", Kind: patch.ParamNumber, Required: true, Min: -1, Max: 1}},
	})
	tr, ok := reg.Lookup("clampTest")
	require.True(t, ok)

	err := tr.Validate(map[string]ParamValueReader{"k": fakeParam{f: 2}})
	require.Error(t, err)

	err = tr.Validate(map[string]ParamValueReader{"k": fakeParam{f: 0.3}})
	require.NoError(t, err)
}

type fakeParam struct{ f float64 }

func (p fakeParam) AsFloat64() (float64, error) { return p.f, nil }
