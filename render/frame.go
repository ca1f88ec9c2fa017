// Copyright 2026 The Patchkernel Authors
// This file is part of patchkernel, licensed LGPLv3-or-later.

// Package render defines RenderFrame, the wire-format value the schedule
// executor's renderAssemble steps produce and the external sink consumes
// (spec §6 "Render-frame wire format"). It is pure data: buffer contents
// are referenced by ValueSlot, never copied into the tree itself, so a
// local in-process sink can read them straight out of the ValueStore
// while a remote sink (package sink) resolves them before serializing.
package render

import "github.com/patchkernel/engine/ir"

// ClearMode is the frame's background clear behavior.
type ClearMode uint8

const (
	ClearSolid ClearMode = iota
	ClearNone
)

// Color is linear RGBA in [0,1] (spec §6 "color encoding (linear RGBA
// floats in [0,1])").
type Color struct{ R, G, B, A float64 }

type Clear struct {
	Mode  ClearMode
	Color Color
}

// PassKind discriminates one render pass's shape (spec §6: "each pass is
// one of {instances2D, paths2D, clipGroup{child}, postFX{effect, child}}").
type PassKind uint8

const (
	PassInstances2D PassKind = iota
	PassPaths2D
	PassClipGroup
	PassPostFX
)

// Pass is one entry of Frame.Passes. Instance/path passes reference
// buffer slots (position, color, radius, path geometry) rather than
// carrying the buffers themselves (spec §6).
type Pass struct {
	Kind PassKind

	// PassInstances2D / PassPaths2D
	PositionSlot ir.ValueSlot
	ColorSlot    ir.ValueSlot
	RadiusSlot   ir.ValueSlot
	GeometrySlot ir.ValueSlot
	CountSlot    ir.ValueSlot

	// PassClipGroup / PassPostFX
	EffectName string
	Child      *Pass
}

// Frame is the tree the schedule executor hands to the external sink
// after the last renderAssemble step (spec §4.8 step 3).
type Frame struct {
	Version int
	Clear   Clear
	Passes  []Pass
}

// Empty is the fallback frame produced on a first-compile failure with no
// previous program (spec §7 "the sink receives an empty render frame
// {version, clear:{mode:'solid', color:(0,0,0,1)}, passes:[]}").
func Empty() Frame {
	return Frame{
		Version: 1,
		Clear:   Clear{Mode: ClearSolid, Color: Color{0, 0, 0, 1}},
	}
}
