// Copyright 2026 The Patchkernel Authors
// This file is part of patchkernel.
//
// patchkernel is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package dindex implements the dense index layer: interned string<->index
// tables for every entity that gets a small integer index during lowering
// (spec §3 "Dense indices"), plus the sidecar debug index that keeps the
// string identities a UI needs even though indices aren't stable across
// recompiles.
package dindex

import (
	"bytes"
	"encoding/gob"
	"sort"
)

// Kind names one of the dense index spaces a compiled program allocates.
// Naming the table constants this way (rather than one flat namespace)
// mirrors the teacher's practice of grouping related dense keys into a
// named, documented table set.
type Kind string

const (
	KindBlock          Kind = "Block"
	KindPort           Kind = "Port"
	KindBus            Kind = "Bus"
	KindConst          Kind = "Const"
	KindSlot           Kind = "Slot"
	KindSigExpr        Kind = "SigExpr"
	KindFieldExpr      Kind = "FieldExpr"
	KindStateCell      Kind = "StateCell"
	KindTransformChain Kind = "TransformChain"
	KindSink           Kind = "Sink"
)

// Index is a dense, compile-local integer handle. Indices are stable
// within one compile and are NOT stable across recompiles (spec §3):
// any identity a UI needs to preserve across edits must round-trip
// through the Provenance table instead.
type Index int32

const Invalid Index = -1

// Interner maps one Kind's authored string identities to dense indices in
// first-seen order. Pass ordering into Interner must already be
// deterministic (block IDs sorted by (sortKey, stableHash) per spec §3
// invariant 3); Interner itself does no reordering, it only dedupes.
type Interner struct {
	kind    Kind
	strings []string
	byName  map[string]Index
}

func NewInterner(kind Kind) *Interner {
	return &Interner{kind: kind, byName: make(map[string]Index)}
}

func (in *Interner) Intern(name string) Index {
	if idx, ok := in.byName[name]; ok {
		return idx
	}
	idx := Index(len(in.strings))
	in.strings = append(in.strings, name)
	in.byName[name] = idx
	return idx
}

func (in *Interner) Lookup(name string) (Index, bool) {
	idx, ok := in.byName[name]
	return idx, ok
}

func (in *Interner) Name(idx Index) (string, bool) {
	if idx < 0 || int(idx) >= len(in.strings) {
		return "", false
	}
	return in.strings[idx], true
}

func (in *Interner) Len() int { return len(in.strings) }

// Names returns all interned strings, in index order. The returned slice
// must not be mutated by the caller.
func (in *Interner) Names() []string { return in.strings }

// GobEncode/GobDecode round-trip an Interner through its kind and strings
// alone, rebuilding byName on decode — the same derived-index pattern as
// typesys.Table, needed so DebugIndex survives package cache's gob round
// trip even though it's never consulted by the executor (spec §3).
type gobInterner struct {
	Kind    Kind
	Strings []string
}

func (in *Interner) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(gobInterner{Kind: in.kind, Strings: in.strings}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (in *Interner) GobDecode(data []byte) error {
	var g gobInterner
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&g); err != nil {
		return err
	}
	in.kind = g.Kind
	in.strings = g.Strings
	in.byName = make(map[string]Index, len(g.Strings))
	for i, s := range g.Strings {
		in.byName[s] = Index(i)
	}
	return nil
}

// ProvenanceLink ties one dense index, of one kind, back to the authored
// block/port identity it came from — the debug index's per-node
// provenance links (spec §6 "Debug index").
type ProvenanceLink struct {
	Kind      Kind
	Index     Index
	BlockID   string
	PortID    string
	DebugName string
}

// DebugIndex is the full (string<->index) + provenance sidecar for one
// compile, returned alongside CompiledProgram but never consulted by the
// executor (spec §3: "Strings are retained only in a sidecar debug
// index").
type DebugIndex struct {
	interners map[Kind]*Interner
	links     []ProvenanceLink
}

func NewDebugIndex() *DebugIndex {
	return &DebugIndex{interners: make(map[Kind]*Interner)}
}

func (d *DebugIndex) Interner(kind Kind) *Interner {
	in, ok := d.interners[kind]
	if !ok {
		in = NewInterner(kind)
		d.interners[kind] = in
	}
	return in
}

func (d *DebugIndex) RecordProvenance(link ProvenanceLink) {
	d.links = append(d.links, link)
}

// Provenance returns every recorded link for the given dense index, in
// the order they were recorded.
func (d *DebugIndex) Provenance(kind Kind, idx Index) []ProvenanceLink {
	var out []ProvenanceLink
	for _, l := range d.links {
		if l.Kind == kind && l.Index == idx {
			out = append(out, l)
		}
	}
	return out
}

// SortedNames returns a copy of one kind's interned strings, sorted —
// used by diagnostics/export code that wants a deterministic dump
// independent of allocation order.
func (d *DebugIndex) SortedNames(kind Kind) []string {
	in, ok := d.interners[kind]
	if !ok {
		return nil
	}
	out := append([]string(nil), in.Names()...)
	sort.Strings(out)
	return out
}

// GobEncode/GobDecode round-trip a DebugIndex through its interners map and
// provenance links — both unexported, so gob would otherwise drop them
// silently and a process-restart cache hit would hand back a program with
// an empty debug sidecar.
type gobDebugIndex struct {
	Interners map[Kind]*Interner
	Links     []ProvenanceLink
}

func (d *DebugIndex) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(gobDebugIndex{Interners: d.interners, Links: d.links}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d *DebugIndex) GobDecode(data []byte) error {
	var g gobDebugIndex
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&g); err != nil {
		return err
	}
	d.interners = g.Interners
	if d.interners == nil {
		d.interners = make(map[Kind]*Interner)
	}
	d.links = g.Links
	return nil
}
