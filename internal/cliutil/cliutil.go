// Package cliutil holds the patch-loading and compile glue every cmd
// binary needs (enginectl, patchlint, frametap), so the choice of CLI
// framework in each binary never has to duplicate it.
package cliutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/patchkernel/engine/lower"
	"github.com/patchkernel/engine/patch"
	"github.com/patchkernel/engine/transform"
)

// LoadPatch reads path and decodes it as JSON, TOML or YAML by
// extension (SPEC_FULL.md §10.3); any other extension is treated as JSON,
// the wire format spec §6 names.
func LoadPatch(path string) (*patch.Patch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return patch.DecodeTOML(data)
	case ".yaml", ".yml":
		return patch.DecodeYAML(data)
	default:
		return patch.Decode(data)
	}
}

// BuiltinBlockRegistry returns the block registry every cmd binary
// compiles against. The authored block palette itself is out of scope
// (spec §1 Non-goals), so this carries only the supplemented block
// types this build adds: lower.ScriptedSeedDescriptor, a field-world
// compile-time generator (SPEC_FULL.md §12), and
// lower.SlewTowardDescriptor, the one stateful signal-world block that
// reserves and carries a real StateCell across frames and hot-swaps.
func BuiltinBlockRegistry() *patch.Registry {
	reg := patch.NewRegistry()
	reg.Register(lower.ScriptedSeedDescriptor())
	reg.Register(lower.SlewTowardDescriptor())
	return reg
}

// BuiltinTransformRegistry returns the stock transform.Registry (package
// transform's builtin stateless/stateful ids).
func BuiltinTransformRegistry() *transform.Registry {
	return transform.NewBuiltinRegistry()
}

// Compile loads, registers and lowers path in one call, the common path
// every cmd binary's compile-like subcommand shares.
func Compile(path string) (lower.CompileResult, error) {
	p, err := LoadPatch(path)
	if err != nil {
		return lower.CompileResult{}, err
	}
	reg := BuiltinBlockRegistry()
	xreg := BuiltinTransformRegistry()
	return lower.Compile(p, reg, xreg), nil
}
