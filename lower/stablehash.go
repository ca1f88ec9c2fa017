// Copyright 2026 The Patchkernel Authors
// This file is part of patchkernel, licensed LGPLv3-or-later.

// Package lower implements the eight-pass lowering pipeline from a
// validated patch.Patch to an ir.CompiledProgram (spec §2 "Lowering
// pipeline", §4).
package lower

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/patchkernel/engine/patch"
)

// StableHash returns a deterministic, content-derived hash of a block id,
// independent of process/map iteration order. Used everywhere the spec
// requires sorting "by (sortKey, stableHash)" (spec §3 invariant 3, §4.7
// "Publisher-list order ... tie-break is rigid").
func StableHash(id patch.BlockID) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return h.Sum64()
}

// StableHashString is StableHash's 8 big-endian bytes as a string, which
// orders the same as the numeric hash; handy for building deterministic
// composite sort keys.
func StableHashString(id patch.BlockID) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], StableHash(id))
	return string(buf[:])
}
