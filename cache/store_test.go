package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/patchkernel/engine/ir"
)

func TestStorePutGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)
	defer store.Close()

	prog := ir.NewCompiledProgram()
	fp := ir.Compute(ir.FingerprintInput{BlockSet: []string{"a:root"}, Seed: 3})
	prog.Fingerprint = fp

	_, ok, err := store.Get(fp)
	require.NoError(t, err)
	require.False(t, ok, "expected a miss before Put")

	require.NoError(t, store.Put(prog))

	got, ok, err := store.Get(fp)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, fp.Hex(), got.Fingerprint.Hex())
}

func TestOpenFailsWhenDirectoryAlreadyLocked(t *testing.T) {
	dir := t.TempDir()
	first, err := Open(dir)
	require.NoError(t, err)
	defer first.Close()

	_, err = Open(dir)
	require.Error(t, err)
}
