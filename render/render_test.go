package render

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmptyMatchesSpecFallbackFrame(t *testing.T) {
	f := Empty()
	require.Equal(t, 1, f.Version)
	require.Equal(t, ClearSolid, f.Clear.Mode)
	require.Equal(t, Color{0, 0, 0, 1}, f.Clear.Color)
	require.Empty(t, f.Passes)
}
