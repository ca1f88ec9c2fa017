// Copyright 2026 The Patchkernel Authors
// This file is part of patchkernel, licensed LGPLv3-or-later.

// Package field implements the field-expression materializer: it walks a
// FieldExprIR recipe and produces a pooled typed buffer sized to the
// recipe's domain element count (spec §4.3, §4.8 "materialize").
package field

// Domain describes the element collection a field recipe is evaluated
// over (spec §4.3 "domain.elementCount"). Version changes whenever the
// domain's shape changes (element added/removed, not merely a value
// update) and is part of the materializer cache key (spec §4.3 "(FieldExprId,
// domain-version, upstream-slot-versions)").
type Domain struct {
	Count     int
	Positions []Vec2 // optional per-element base position, nil if unused
	Version   uint64
}

type Vec2 struct{ X, Y float64 }
