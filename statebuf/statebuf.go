// Copyright 2026 The Patchkernel Authors
// This file is part of patchkernel, licensed LGPLv3-or-later.

// Package statebuf implements StateBuffer: persistent per-operator state
// cells that survive across frames and, where identity matches, across a
// hot-swap recompile (spec §4.9 "Hot-swap on graph commit", §5 "StateBuffer
// is mutated only by signalEval steps executing stateful opcodes").
package statebuf

import "github.com/patchkernel/engine/ir"

// Cell is one stateful opcode's runtime storage. Which fields are
// meaningful is determined by the owning ir.StateCellLayout.Storage.
type Cell struct {
	Scalar float64
	Vec    [4]float64
	Ring   []float64 // ring buffer contents, sized to ElementCount
	Cursor int       // ring buffer write cursor, for delayMs cells
}

// Buffer holds one CompiledProgram's worth of state cells, addressed
// densely by ir.StateCellID.
type Buffer struct {
	layout []ir.StateCellLayout
	cells  []Cell
}

// New allocates a zero-initialized Buffer sized to layout — used the
// first time a patch compiles, when there is no previous Buffer to carry
// forward from (spec §4.9 step 3 "new cells are zero-initialized").
func New(layout []ir.StateCellLayout) *Buffer {
	b := &Buffer{layout: layout, cells: make([]Cell, len(layout))}
	for i, l := range layout {
		if l.Storage == ir.StateRingBufferF64 && l.ElementCount > 0 {
			b.cells[i].Ring = make([]float64, l.ElementCount)
		}
	}
	return b
}

func (b *Buffer) Get(id ir.StateCellID) Cell {
	if int(id) < 0 || int(id) >= len(b.cells) {
		return Cell{}
	}
	return b.cells[id]
}

func (b *Buffer) Set(id ir.StateCellID, c Cell) {
	if int(id) < 0 || int(id) >= len(b.cells) {
		return
	}
	b.cells[id] = c
}

// Layout returns the StateCellLayout a cell id was reserved with.
func (b *Buffer) Layout(id ir.StateCellID) (ir.StateCellLayout, bool) {
	if int(id) < 0 || int(id) >= len(b.layout) {
		return ir.StateCellLayout{}, false
	}
	return b.layout[id], true
}

// HotSwap builds the state buffer for a newly-lowered program, carrying
// forward cell contents from prev wherever prev and newLayout agree on a
// cell's StableKey (spec §4.9 step 3 "match state cells pairwise by
// stable identity ... carried-over cells keep their contents; new cells
// are zero-initialized; removed cells are discarded").
//
// Callers should skip this entirely and reuse prev verbatim when the new
// and previous program fingerprints match exactly (spec §4.9 step 2) —
// HotSwap always does the pairwise StableKey walk, which is unnecessary
// work (though not incorrect) when nothing actually changed.
func HotSwap(prev *Buffer, newLayout []ir.StateCellLayout) *Buffer {
	next := New(newLayout)
	if prev == nil {
		return next
	}
	byKey := make(map[string]ir.StateCellID, len(prev.layout))
	for _, l := range prev.layout {
		byKey[l.StableKey] = l.Cell
	}
	for i, l := range newLayout {
		oldID, ok := byKey[l.StableKey]
		if !ok {
			continue
		}
		oldLayout, ok := prev.Layout(oldID)
		if !ok || oldLayout.Storage != l.Storage || oldLayout.ElementCount != l.ElementCount {
			// Shape changed under an unchanged StableKey (e.g. an operator's
			// ring length param changed): treat as a new cell rather than
			// risk copying a mismatched Ring slice.
			continue
		}
		next.cells[i] = prev.cells[oldID]
	}
	return next
}
