// Copyright 2026 The Patchkernel Authors
// This file is part of patchkernel, licensed LGPLv3-or-later.

// Package patch defines the authored Patch document (spec §3 "Patch
// (input)") and its JSON decoding. A Patch is the only thing the lowering
// pipeline consumes: no layout, selection or view state ever appears here
// (spec §6 "Inputs").
package patch

import (
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/patchkernel/engine/internal/numeric"
)

// BlockID and PortID are the authored string identities a patch uses;
// they are interned into dense indices during lowering (package dindex).
type BlockID string
type PortID string
type BusName string

// ParamValue is one authored parameter value on a block or transform
// step. Patch JSON allows numbers to be written as plain JSON numbers,
// quoted decimal, or quoted hex (via numeric.HexOrDecimal64) — authoring
// tools and hand-written test fixtures use whichever is natural.
type ParamValue struct {
	Raw json.RawMessage
}

func (p ParamValue) MarshalJSON() ([]byte, error) { return p.Raw, nil }

func (p *ParamValue) UnmarshalJSON(data []byte) error {
	p.Raw = append(p.Raw[:0], data...)
	return nil
}

func (p ParamValue) AsFloat64() (float64, error) {
	var f float64
	if err := json.Unmarshal(p.Raw, &f); err == nil {
		return f, nil
	}
	var hx numeric.HexOrDecimal64
	if err := json.Unmarshal(p.Raw, &hx); err != nil {
		return 0, fmt.Errorf("param %q is not a number: %w", string(p.Raw), err)
	}
	return float64(hx), nil
}

func (p ParamValue) AsBool() (bool, error) {
	var b bool
	err := json.Unmarshal(p.Raw, &b)
	return b, err
}

func (p ParamValue) AsString() (string, error) {
	var s string
	err := json.Unmarshal(p.Raw, &s)
	return s, err
}

// AsAny decodes the raw value generically, for params whose shape the
// caller does not know ahead of time (e.g. a default source for a
// vec2/color-domain port, stored verbatim in the constant pool's object
// array).
func (p ParamValue) AsAny() (any, error) {
	var v any
	err := json.Unmarshal(p.Raw, &v)
	return v, err
}

// TransformStep is one entry of a wire's TransformChain (spec §4.4).
type TransformStep struct {
	ID      string                `json:"id"`
	Enabled bool                  `json:"enabled"`
	Params  map[string]ParamValue `json:"params,omitempty"`
}

// PortRef names one endpoint of a Wire: either a block port, or — when
// Bus is non-empty — a named bus, making that endpoint a publisher (as a
// wire source) or a listener (as a wire target) rather than a direct
// block-to-block connection (spec §4.7 "Publisher / Listener").
type PortRef struct {
	Block BlockID `json:"block,omitempty"`
	Port  PortID  `json:"port,omitempty"`
	Bus   BusName `json:"bus,omitempty"`
}

func (p PortRef) IsBus() bool { return p.Bus != "" }

// Wire is a source->target edge with an optional transform chain (spec
// §3 "Patch (input)").
type Wire struct {
	Source PortRef         `json:"source"`
	Target PortRef         `json:"target"`
	Chain  []TransformStep `json:"chain,omitempty"`
}

// Block is one authored node: a type name (resolved against the block
// registry) and its raw param values (spec §6 "Block registry").
type Block struct {
	Type      string                `json:"type"`
	SortKey   int64                 `json:"sortKey"`
	Params    map[string]ParamValue `json:"params,omitempty"`
}

// BusDecl declares one user bus (the reserved buses — time, phaseA,
// phaseB, pulse, energy, palette — always exist implicitly and need no
// declaration; spec §4.7). World/Domain are optional; a bus without them
// defaults to signal<number>, and its type is not inferred from its
// publishers.
type BusDecl struct {
	Name    BusName `json:"name"`
	Combine string  `json:"combine"`
	World   string  `json:"world,omitempty"`
	Domain  string  `json:"domain,omitempty"`
}

// DefaultSource is the authored default value for one input port that
// has no wire (spec §4.5).
type DefaultSource struct {
	Port  PortRef    `json:"port"`
	Value ParamValue `json:"value"`
}

// Patch is the full authored document the lowering pipeline consumes.
type Patch struct {
	Blocks         map[BlockID]Block `json:"blocks"`
	Wires          []Wire            `json:"wires"`
	Buses          []BusDecl         `json:"buses,omitempty"`
	DefaultSources []DefaultSource   `json:"defaultSources,omitempty"`
	Seed           uint64            `json:"seed"`
}

// Decode parses a JSON-encoded patch document.
func Decode(data []byte) (*Patch, error) {
	var p Patch
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}
	return &p, nil
}

// Encode serializes a patch back to JSON, mainly for round-trip and
// fixture-generation tests (spec §8 "Round-trip / idempotence").
func Encode(p *Patch) ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}
