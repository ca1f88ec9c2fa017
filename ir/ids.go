// Copyright 2026 The Patchkernel Authors
// This file is part of patchkernel, licensed LGPLv3-or-later.

// Package ir defines the CompiledProgram schema: the signal/field
// expression tables, constant pool, state layout, default sources, slot
// metadata, render sinks and schedule that a lowering pipeline produces
// and a schedule executor consumes (spec §3, §4.2-§4.3, §4.8).
package ir

import (
	"github.com/patchkernel/engine/typesys"
)

// Dense index types (spec §3 "Dense indices"). All are stable only within
// one compile.
type (
	BlockIndex        int32
	PortIndex         int32
	BusIndex          int32
	ValueSlot         int32
	SigExprID         int32
	FieldExprID       int32
	ConstID           int32
	StateCellID       int32
	TransformChainID  int32
	SinkID            int32
)

const (
	InvalidSigExprID   SigExprID   = -1
	InvalidFieldExprID FieldExprID = -1
	InvalidSlot        ValueSlot   = -1
	InvalidStateCellID StateCellID = -1
	InvalidChainID     TransformChainID = -1
	InvalidConstID     ConstID     = -1
)

// StorageClass is the backing representation a ValueSlot or StateCell
// uses.
type StorageClass uint8

const (
	StorageF64 StorageClass = iota
	StorageF32
	StorageI32
	StorageU32
	StorageObject
)

// SlotMeta describes one ValueSlot (spec §3 CompiledProgram.slotMeta).
type SlotMeta struct {
	Storage   StorageClass
	Type      typesys.TypeDesc
	DebugName string
}

// ValueRef points at either a constant or a live slot — used by
// defaultSources and busRoots, both of which may resolve to either (spec
// §3, §4.5).
type ValueRef struct {
	IsConst bool
	Const   ConstID
	Slot    ValueSlot
}
