// Copyright 2026 The Patchkernel Authors
// This file is part of patchkernel.
//
// patchkernel is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// patchkernel is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.

// Package typesys defines the canonical TypeDesc used across the IR: the
// (world, domain, category, busEligible) tuple every port, slot and
// constant is stamped with, plus structural compatibility and the
// cross-world converter table.
package typesys

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// World is the evaluation cadence a value belongs to.
type World uint8

const (
	WorldSignal World = iota
	WorldField
	WorldScalar
	WorldEvent
	WorldSpecial
)

func (w World) String() string {
	switch w {
	case WorldSignal:
		return "signal"
	case WorldField:
		return "field"
	case WorldScalar:
		return "scalar"
	case WorldEvent:
		return "event"
	case WorldSpecial:
		return "special"
	default:
		return "unknown"
	}
}

// Domain is the semantic element kind carried by a value, independent of
// its world.
type Domain uint8

const (
	DomainNumber Domain = iota
	DomainBoolean
	DomainPhase01
	DomainTime
	DomainVec2
	DomainVec3
	DomainColor
	DomainElementSet
	DomainRenderFrame
)

func (d Domain) String() string {
	names := [...]string{"number", "boolean", "phase01", "time", "vec2", "vec3", "color", "domain", "renderFrame"}
	if int(d) < len(names) {
		return names[d]
	}
	return "unknown"
}

// Category controls port visibility to authoring tools; it has no effect
// on compatibility or execution.
type Category uint8

const (
	CategoryCore Category = iota
	CategoryInternal
)

// TypeDesc is the structurally-compared type tuple every port, slot and
// constant carries (spec §3).
type TypeDesc struct {
	World       World
	Dom         Domain
	Cat         Category
	BusEligible bool
}

func (t TypeDesc) String() string {
	return fmt.Sprintf("%s<%s>", t.World, t.Dom)
}

// StructurallyEqual reports whether two TypeDescs denote the same type —
// category and busEligible are metadata, not part of identity.
func (t TypeDesc) StructurallyEqual(o TypeDesc) bool {
	return t.World == o.World && t.Dom == o.Dom
}

// numericDomains is the set of domains that support the bus combine
// family `last|sum|average|min|max|product` (spec §4.7). Vector/color
// domains are deliberately excluded — see CombineLegalNumeric below
// and the Open Question in spec §9: non-numeric combine
// semantics are undefined and must be rejected, not invented.
var numericDomains = map[Domain]bool{
	DomainNumber:  true,
	DomainBoolean: true,
	DomainPhase01: true,
	DomainTime:    true,
}

// CombineLegalNumeric reports whether d may use a numeric combine mode.
func CombineLegalNumeric(d Domain) bool { return numericDomains[d] }

// Converter describes one explicit cross-world operator (spec §4.6).
type Converter struct {
	Name string
	From TypeDesc
	To   TypeDesc
}

// converters enumerates the fixed set of world-crossing operators. A wire
// connecting incompatible worlds without naming one of these by id is a
// compile error E_WORLD_MISMATCH (spec §4.6).
var converters = []Converter{
	{Name: "broadcastScalarToField", From: TypeDesc{World: WorldScalar, Dom: DomainNumber}, To: TypeDesc{World: WorldField, Dom: DomainNumber}},
	{Name: "reduceFieldToSignal", From: TypeDesc{World: WorldField, Dom: DomainNumber}, To: TypeDesc{World: WorldSignal, Dom: DomainNumber}},
	{Name: "constToSignal", From: TypeDesc{World: WorldScalar, Dom: DomainNumber}, To: TypeDesc{World: WorldSignal, Dom: DomainNumber}},
	{Name: "sampleSignal", From: TypeDesc{World: WorldSignal, Dom: DomainNumber}, To: TypeDesc{World: WorldField, Dom: DomainNumber}},
}

// ConverterNamed looks up one of the fixed cross-world converters by id.
func ConverterNamed(name string) (Converter, bool) {
	for _, c := range converters {
		if c.Name == name {
			return c, true
		}
	}
	return Converter{}, false
}

// Compatible reports whether a wire from `src` to `dst` may be connected
// directly (same world, same domain) — it does NOT consider converters;
// callers that allow an explicit converter check ConverterNamed first.
func Compatible(src, dst TypeDesc) bool {
	return src.StructurallyEqual(dst)
}

// Table is the dense, index-addressed registry of TypeDescs a compiled
// program carries (CompiledProgram.types, spec §3). The first interned
// type gets index 0; InvalidTypeIndex (-1) marks an unset TypeIndex.
type Table struct {
	entries []TypeDesc
	byKey   map[TypeDesc]TypeIndex
}

// TypeIndex is the dense index of a TypeDesc within a Table.
type TypeIndex int32

const InvalidTypeIndex TypeIndex = -1

func NewTable() *Table {
	return &Table{byKey: make(map[TypeDesc]TypeIndex)}
}

// Intern returns the index for td, allocating a new entry the first time
// td is seen. Interning is deterministic within one compile: callers
// always intern types in the fixed order the lowering passes visit them
// (spec §3 invariant 3), so two compiles of the same patch allocate the
// same indices.
func (t *Table) Intern(td TypeDesc) TypeIndex {
	if idx, ok := t.byKey[td]; ok {
		return idx
	}
	idx := TypeIndex(len(t.entries))
	t.entries = append(t.entries, td)
	t.byKey[td] = idx
	return idx
}

func (t *Table) Get(idx TypeIndex) (TypeDesc, bool) {
	if idx < 0 || int(idx) >= len(t.entries) {
		return TypeDesc{}, false
	}
	return t.entries[idx], true
}

func (t *Table) Len() int { return len(t.entries) }

// GobEncode/GobDecode round-trip a Table through its exported entries
// slice alone, rebuilding byKey on decode — gob ignores unexported
// fields, and byKey is a derived index rather than independent state
// (spec §4.9's on-disk compile-result cache needs a Table that survives
// a gob round trip intact).
func (t *Table) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(t.entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (t *Table) GobDecode(data []byte) error {
	var entries []TypeDesc
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entries); err != nil {
		return err
	}
	t.entries = entries
	t.byKey = make(map[TypeDesc]TypeIndex, len(entries))
	for i, td := range entries {
		t.byKey[td] = TypeIndex(i)
	}
	return nil
}
