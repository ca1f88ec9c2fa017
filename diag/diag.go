// Copyright 2026 The Patchkernel Authors
// This file is part of patchkernel, licensed LGPLv3-or-later.

// Package diag defines Diagnostic, the error/warning classification spec
// §7 requires: compile errors abort program production, compile warnings
// ride alongside a valid program, and runtime anomalies land in a ring
// buffer and are surfaced as an event rather than a panic.
package diag

import "fmt"

// Severity classifies a Diagnostic (spec §7).
type Severity uint8

const (
	SeverityWarning Severity = iota
	SeverityError
)

// Code enumerates the required diagnostic codes from spec §6.
type Code string

const (
	CodeMissingTimeRoot        Code = "E_MISSING_TIMEROOT"
	CodeMultipleTimeRoots      Code = "E_MULTIPLE_TIMEROOTS"
	CodeWorldMismatch          Code = "E_WORLD_MISMATCH"
	CodeTypeMismatch           Code = "E_TYPE_MISMATCH"
	CodeCycleThroughNonStateful Code = "E_CYCLE_THROUGH_NON_STATEFUL"
	CodeUnresolvedInput        Code = "E_UNRESOLVED_INPUT"
	CodeBusUnsupportedIRType   Code = "E_BUS_UNSUPPORTED_IR_TYPE"
	CodeUnknownOpcode          Code = "E_UNKNOWN_OPCODE"
	CodeUnknownTransform       Code = "E_UNKNOWN_TRANSFORM"
	CodeBusCombineInvalid      Code = "E_BUS_COMBINE_INVALID"
	CodeReservedBusMisuse      Code = "E_RESERVED_BUS_MISUSE"
	CodeMultipleWriters        Code = "E_MULTIPLE_WRITERS"

	// Warnings.
	CodeEmptyBusNoDefault Code = "W_EMPTY_BUS_NO_DEFAULT"
	CodeSilentListener    Code = "W_SILENT_LISTENER"

	// Runtime anomalies (spec §7); these never appear in a compile
	// Sink, only in the executor's RingBuffer.
	CodeNonFiniteValue Code = "R_NONFINITE_VALUE"
)

// Where pinpoints the authored entity a diagnostic concerns.
type Where struct {
	BlockID string
	SlotID  string
	BusID   string
}

// Diagnostic is the uniform shape every compiler pass and runtime
// anomaly reports through (spec §6 "Outputs").
type Diagnostic struct {
	Code     Code
	Message  string
	Where    Where
	Severity Severity
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s (block=%s slot=%s bus=%s)", d.Code, d.Message, d.Where.BlockID, d.Where.SlotID, d.Where.BusID)
}

func Errorf(code Code, where Where, format string, args ...any) Diagnostic {
	return Diagnostic{Code: code, Message: fmt.Sprintf(format, args...), Where: where, Severity: SeverityError}
}

func Warnf(code Code, where Where, format string, args ...any) Diagnostic {
	return Diagnostic{Code: code, Message: fmt.Sprintf(format, args...), Where: where, Severity: SeverityWarning}
}

// Sink accumulates diagnostics across a compile instead of aborting on
// the first error (spec §7 "Propagation policy"), up to Cap.
type Sink struct {
	Cap   int
	items []Diagnostic
}

func NewSink(cap int) *Sink {
	if cap <= 0 {
		cap = 256
	}
	return &Sink{Cap: cap}
}

func (s *Sink) Add(d Diagnostic) {
	if len(s.items) >= s.Cap {
		return
	}
	s.items = append(s.items, d)
}

func (s *Sink) HasErrors() bool {
	for _, d := range s.items {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (s *Sink) All() []Diagnostic { return s.items }
