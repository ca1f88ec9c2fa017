package patch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const tomlFixture = `
seed = 42

[blocks.emitter]
type = "scriptedSeed"
sortKey = 1

[blocks.emitter.params]
formula = "index * 2"
count = 10
`

const yamlFixture = `
seed: 42
blocks:
  emitter:
    type: scriptedSeed
    sortKey: 1
    params:
      formula: "index * 2"
      count: 10
`

func TestDecodeTOMLFixture(t *testing.T) {
	p, err := DecodeTOML([]byte(tomlFixture))
	require.NoError(t, err)
	require.EqualValues(t, 42, p.Seed)
	blk, ok := p.Blocks["emitter"]
	require.True(t, ok)
	require.Equal(t, "scriptedSeed", blk.Type)

	formula, err := blk.Params["formula"].AsString()
	require.NoError(t, err)
	require.Equal(t, "index * 2", formula)
}

func TestDecodeYAMLFixture(t *testing.T) {
	p, err := DecodeYAML([]byte(yamlFixture))
	require.NoError(t, err)
	require.EqualValues(t, 42, p.Seed)

	count, err := p.Blocks["emitter"].Params["count"].AsFloat64()
	require.NoError(t, err)
	require.Equal(t, 10.0, count)
}

const registrySeedTOML = `
[[blocks]]
type = "scriptedSeed"

[[blocks.outputs]]
name = "out"
world = "field"
domain = "number"

[[blocks.params]]
name = "formula"
kind = "string"
required = true

[[blocks.params]]
name = "count"
kind = "number"
required = true
min = 1
max = 1048576
`

func TestDecodeRegistrySeedTOML(t *testing.T) {
	seeds, err := DecodeRegistrySeedTOML([]byte(registrySeedTOML))
	require.NoError(t, err)
	require.Len(t, seeds, 1)
	require.Equal(t, "scriptedSeed", seeds[0].Type)

	desc, err := seeds[0].Descriptor(nil)
	require.NoError(t, err)
	require.Equal(t, "scriptedSeed", desc.Type)
	require.Len(t, desc.Params, 2)
	require.Equal(t, ParamNumber, desc.Params[1].Kind)
	require.Equal(t, 1.0, desc.Params[1].Min)
}
