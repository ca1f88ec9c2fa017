// Copyright 2026 The Patchkernel Authors
// This file is part of patchkernel, licensed LGPLv3-or-later.

package patch

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/patchkernel/engine/irbuilder"
)

// DecodeTOML and DecodeYAML load a Patch from the hand-authored fixture
// formats example patches and golden test patches are checked in as
// (SPEC_FULL.md §10.3), rather than the wire JSON format Decode expects.
// Both decode into a generic document first and re-marshal to JSON so
// ParamValue's existing json.RawMessage machinery does the real work —
// TOML and YAML never need their own ParamValue decoder.
func DecodeTOML(data []byte) (*Patch, error) {
	var generic map[string]any
	if err := toml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("decode toml patch fixture: %w", err)
	}
	return decodeGeneric(generic)
}

func DecodeYAML(data []byte) (*Patch, error) {
	var generic map[string]any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("decode yaml patch fixture: %w", err)
	}
	return decodeGeneric(generic)
}

func decodeGeneric(generic map[string]any) (*Patch, error) {
	asJSON, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("re-marshal patch fixture to json: %w", err)
	}
	return Decode(asJSON)
}

// seedParamSchema mirrors ParamSchema with Kind spelled as the fixture
// author's word ("number"/"bool"/"string"/"object") rather than
// ParamKind's bare uint8, which TOML/YAML have no idiomatic way to name.
type seedParamSchema struct {
	Name     string  `toml:"name" yaml:"name"`
	Kind     string  `toml:"kind" yaml:"kind"`
	Required bool    `toml:"required" yaml:"required"`
	Min      float64 `toml:"min,omitempty" yaml:"min,omitempty"`
	Max      float64 `toml:"max,omitempty" yaml:"max,omitempty"`
}

func (s seedParamSchema) resolve() (ParamSchema, error) {
	var kind ParamKind
	switch s.Kind {
	case "number", "":
		kind = ParamNumber
	case "bool":
		kind = ParamBool
	case "string":
		kind = ParamString
	case "object":
		kind = ParamObject
	default:
		return ParamSchema{}, fmt.Errorf("param %q: unknown kind %q", s.Name, s.Kind)
	}
	return ParamSchema{Name: s.Name, Kind: kind, Required: s.Required, Min: s.Min, Max: s.Max}, nil
}

// RegistrySeed is one entry of a block registry seed file: the declared
// shape of a block type (spec §6 "Block registry"), authored alongside
// example patches so a host can validate a patch against the same
// registry a test fixture was written for without compiling the block's
// Go Lowerer into the seed file itself.
type RegistrySeed struct {
	Type    string            `toml:"type" yaml:"type"`
	Inputs  []PortDecl        `toml:"inputs" yaml:"inputs"`
	Outputs []PortDecl        `toml:"outputs" yaml:"outputs"`
	Params  []seedParamSchema `toml:"params" yaml:"params"`
}

// Descriptor resolves the seed's string-spelled param kinds and pairs the
// declared shape with a caller-supplied Lower implementation, producing a
// registerable patch.BlockDescriptor.
func (s RegistrySeed) Descriptor(lower irbuilder.Lowerer) (BlockDescriptor, error) {
	params := make([]ParamSchema, len(s.Params))
	for i, p := range s.Params {
		resolved, err := p.resolve()
		if err != nil {
			return BlockDescriptor{}, fmt.Errorf("block %q: %w", s.Type, err)
		}
		params[i] = resolved
	}
	return BlockDescriptor{Type: s.Type, Inputs: s.Inputs, Outputs: s.Outputs, Params: params, Lower: lower}, nil
}

// DecodeRegistrySeedTOML and DecodeRegistrySeedYAML load the declared
// shape half of a set of BlockDescriptors from a fixture file; the
// caller still supplies each entry's Lower function by Type (via
// RegistrySeed.Descriptor) before registering.
func DecodeRegistrySeedTOML(data []byte) ([]RegistrySeed, error) {
	var doc struct {
		Blocks []RegistrySeed `toml:"blocks"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode toml registry seed: %w", err)
	}
	return doc.Blocks, nil
}

func DecodeRegistrySeedYAML(data []byte) ([]RegistrySeed, error) {
	var doc struct {
		Blocks []RegistrySeed `yaml:"blocks"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml registry seed: %w", err)
	}
	return doc.Blocks, nil
}
