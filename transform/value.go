// Copyright 2026 The Patchkernel Authors
// This file is part of patchkernel, licensed LGPLv3-or-later.

// Package transform implements the wire-transform dispatcher (spec §4.4):
// a registry of ids, each with a runtime apply function and an optional
// fold-to-opcode equivalence lowering can use to compile a chain directly
// into a primitive SignalExprIR/FieldExprIR node instead of a residual
// transform node. Both lens transforms (scale, clamp, ease, ...) and
// adapter transforms (the cross-world converters of spec §4.6) are
// registered and dispatched the same way, through one Apply function.
package transform

import "github.com/patchkernel/engine/typesys"

// Value is the generic runtime envelope a transform step operates on.
// Every domain the representative transform set touches — number,
// boolean, phase01, time, vec2, vec3, color — fits in up to four float64
// lanes, so the dispatcher never needs a type switch on concrete Go types.
type Value struct {
	Dom     typesys.Domain
	X, Y, Z, W float64
}

func Number(v float64) Value { return Value{Dom: typesys.DomainNumber, X: v} }

func Bool(v bool) Value {
	if v {
		return Value{Dom: typesys.DomainBoolean, X: 1}
	}
	return Value{Dom: typesys.DomainBoolean, X: 0}
}

func (v Value) AsFloat() float64 { return v.X }
func (v Value) AsBool() bool     { return v.X != 0 }

func Color(r, g, b, a float64) Value {
	return Value{Dom: typesys.DomainColor, X: r, Y: g, Z: b, W: a}
}

func Vec2(x, y float64) Value { return Value{Dom: typesys.DomainVec2, X: x, Y: y} }
