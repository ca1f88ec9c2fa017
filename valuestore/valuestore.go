// Copyright 2026 The Patchkernel Authors
// This file is part of patchkernel, licensed LGPLv3-or-later.

// Package valuestore implements ValueStore: the dense, typed array of
// ValueSlot contents a schedule walk writes into and every later step
// (plus the external sink) reads from (spec §3 "ValueStore", §5
// "Shared resources"). Writes are exclusive to the step executing in its
// declared schedule position; reads are unrestricted (spec §5).
package valuestore

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/patchkernel/engine/ir"
)

// Value is one slot's runtime content. Only the field matching the slot's
// declared StorageClass is meaningful; Object covers colors, domains and
// anything else that doesn't fit a scalar lane.
type Value struct {
	F64    float64
	I32    int32
	U32    uint32
	Object any
}

// Store holds one frame's worth of ValueSlot contents, addressed densely
// by ir.ValueSlot. It is rebuilt from SlotMeta once per CompiledProgram
// (not once per frame) and its contents are overwritten, never
// reallocated, on every frame's schedule walk.
type Store struct {
	meta   []ir.SlotMeta
	values []Value

	// written tracks which slots have been written in the current frame,
	// backed by a compressed bitmap rather than a bool slice so a program
	// with a large slot count doesn't pay a full byte (or more, with
	// escape analysis) per slot just for the debug check (spec §4.8
	// "Single-writer enforcement", SPEC_FULL.md §11 RoaringBitmap wiring).
	written *roaring.Bitmap
	debug   bool

	// writerOf remembers which schedule step index last wrote a slot this
	// frame, so a double-write diagnostic can name both writers (spec
	// §4.8: "violations abort with a diagnostic carrying both writer step
	// ids").
	writerOf map[ir.ValueSlot]int

	// versions counts writes per slot, monotonically, across the store's
	// whole lifetime (not reset per frame). The field materializer's cache
	// key is built from these (spec §4.3 "upstream-slot-versions") so a
	// field recipe that reads an unchanged input slot keeps hitting its
	// cache entry across frames, and one that reads a slot written with a
	// new value this frame misses exactly when it must.
	versions []uint64
}

// New allocates a Store sized to meta. debug enables the single-writer
// check; it should be on in development builds and off in a release
// executor where the cost of the bitmap isn't worth paying once the graph
// is known-good (spec §4.8 "in debug builds").
func New(meta []ir.SlotMeta, debug bool) *Store {
	return &Store{
		meta:     meta,
		values:   make([]Value, len(meta)),
		written:  roaring.New(),
		debug:    debug,
		writerOf: make(map[ir.ValueSlot]int),
		versions: make([]uint64, len(meta)),
	}
}

// MultiWriterError reports a single-writer-per-frame violation (spec
// §4.8). Detecting this at runtime, rather than only at compile time via
// pass 8's static check, catches a dynamically-reached double-write that
// static analysis of the schedule order alone cannot (e.g. a bug in a
// hand-authored block Lower implementation landing two resolved inputs on
// one slot).
type MultiWriterError struct {
	Slot        ir.ValueSlot
	FirstStep   int
	SecondStep  int
}

func (e *MultiWriterError) Error() string {
	return fmt.Sprintf("value slot %d written by step %d and step %d in the same frame", e.Slot, e.FirstStep, e.SecondStep)
}

// Write stores v at slot, recording step as the writer. When debug
// checking is on, a second write to the same slot within one frame
// (i.e. before ResetFrame is called) returns a *MultiWriterError instead
// of silently overwriting, and the slot keeps its first value — the
// caller (package schedule) records that as a runtime diagnostic rather
// than a panic (spec §7 "Runtime anomalies").
func (s *Store) Write(slot ir.ValueSlot, v Value, step int) error {
	if int(slot) < 0 || int(slot) >= len(s.values) {
		return fmt.Errorf("valuestore: slot %d out of range [0,%d)", slot, len(s.values))
	}
	if s.debug {
		if first, ok := s.writerOf[slot]; ok {
			return &MultiWriterError{Slot: slot, FirstStep: first, SecondStep: step}
		}
		s.writerOf[slot] = step
		s.written.Add(uint32(slot))
	}
	s.values[slot] = v
	s.versions[slot]++
	return nil
}

// Version reports how many times slot has been written over the store's
// whole lifetime. Two reads of Version(slot) that return the same number
// are a guarantee the slot's value has not changed in between.
func (s *Store) Version(slot ir.ValueSlot) uint64 {
	if int(slot) < 0 || int(slot) >= len(s.versions) {
		return 0
	}
	return s.versions[slot]
}

// Read returns slot's current value. Unrestricted: any step, and the
// external sink via View, may read any slot regardless of write order
// (spec §5 "reads are unrestricted").
func (s *Store) Read(slot ir.ValueSlot) Value {
	if int(slot) < 0 || int(slot) >= len(s.values) {
		return Value{}
	}
	return s.values[slot]
}

// Meta returns slot's declared metadata.
func (s *Store) Meta(slot ir.ValueSlot) ir.SlotMeta {
	if int(slot) < 0 || int(slot) >= len(s.meta) {
		return ir.SlotMeta{}
	}
	return s.meta[slot]
}

// Len reports the number of slots the store was sized for.
func (s *Store) Len() int { return len(s.values) }

// ResetFrame clears the per-frame write-tracking bitmap, ready for the
// next frame's schedule walk. Slot contents themselves are left as-is
// (every slot is expected to be rewritten by its schedule step before
// being read that frame; the spec does not require zeroing between
// frames, only that the single-writer check resets — spec §4.8 "Frame
// cache is cleared; state cells retain their contents").
func (s *Store) ResetFrame() {
	if !s.debug {
		return
	}
	s.written.Clear()
	for k := range s.writerOf {
		delete(s.writerOf, k)
	}
}

// WrittenCount reports how many distinct slots were written so far this
// frame. Debug/metrics use only.
func (s *Store) WrittenCount() int {
	if !s.debug {
		return 0
	}
	return int(s.written.GetCardinality())
}

// View is the read-only facade handed to the external sink (spec §6
// "External sink: a function accepting a RenderFrame value and a
// read-only ValueStore view"). It intentionally exposes no Write method.
type View struct {
	s *Store
}

func NewView(s *Store) View { return View{s: s} }

func (v View) Read(slot ir.ValueSlot) Value       { return v.s.Read(slot) }
func (v View) Meta(slot ir.ValueSlot) ir.SlotMeta { return v.s.Meta(slot) }
func (v View) Len() int                           { return v.s.Len() }
func (v View) Version(slot ir.ValueSlot) uint64   { return v.s.Version(slot) }
