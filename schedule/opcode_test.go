package schedule

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/patchkernel/engine/ir"
	"github.com/patchkernel/engine/statebuf"
)

func TestEvalStatelessArithmetic(t *testing.T) {
	sum, err := evalStateless(ir.OpAdd, []float64{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 6.0, sum)

	div, err := evalStateless(ir.OpDiv, []float64{4, 0})
	require.NoError(t, err)
	require.Equal(t, math.Inf(1), div, "divide by zero yields IEEE +Inf; the executor's non-finite check clamps it later")
}

func TestEvalStatelessUnknownOpcodeErrors(t *testing.T) {
	_, err := evalStateless(ir.Opcode("nonsense"), nil)
	require.Error(t, err)
}

func TestEvalStatefulIntegrateAccumulatesOverTime(t *testing.T) {
	cell := &statebuf.Cell{}
	v1, err := evalStateful(ir.OpIntegrate, []float64{10}, cell, 1000) // 10 units/sec for 1s
	require.NoError(t, err)
	require.Equal(t, 10.0, v1)

	v2, err := evalStateful(ir.OpIntegrate, []float64{10}, cell, 500) // + half a second
	require.NoError(t, err)
	require.Equal(t, 15.0, v2)
}

func TestEvalStatefulSlewLimitClampsRate(t *testing.T) {
	cell := &statebuf.Cell{Scalar: 0}
	v, err := evalStateful(ir.OpSlewLimit, []float64{100, 10}, cell, 1000) // target 100, max 10/sec
	require.NoError(t, err)
	require.Equal(t, 10.0, v)
}

func TestEvalStatefulDelayMsPassesThroughWithoutRing(t *testing.T) {
	cell := &statebuf.Cell{}
	v, err := evalStateful(ir.OpDelayMs, []float64{5}, cell, 16)
	require.NoError(t, err)
	require.Equal(t, 5.0, v)
}

func TestEvalCombineModes(t *testing.T) {
	in := []float64{1, 2, 3}
	require.Equal(t, 3.0, evalCombine(ir.OpCombineLast, in))
	require.Equal(t, 6.0, evalCombine(ir.OpCombineSum, in))
	require.Equal(t, 2.0, evalCombine(ir.OpCombineAverage, in))
	require.Equal(t, 1.0, evalCombine(ir.OpCombineMin, in))
	require.Equal(t, 3.0, evalCombine(ir.OpCombineMax, in))
	require.Equal(t, 0.0, evalCombine(ir.OpCombineSum, nil))
}
