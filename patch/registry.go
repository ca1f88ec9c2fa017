package patch

import "github.com/patchkernel/engine/irbuilder"

// ParamSchema describes the accepted shape of one block or transform
// parameter (spec §4.4, §9 "replace duck-typed transform params"). The
// transform package compiles these into cel-go predicates; the block
// registry here only carries the declared shape.
type ParamSchema struct {
	Name     string
	Kind     ParamKind
	Required bool
	Min, Max float64 // meaningful when Kind == ParamNumber
}

type ParamKind uint8

const (
	ParamNumber ParamKind = iota
	ParamBool
	ParamString
	ParamObject
)

// PortDecl declares one input or output port a block type exposes.
type PortDecl struct {
	Name     string `toml:"name" yaml:"name"`
	World    string `toml:"world" yaml:"world"` // "signal" | "field" | "scalar" | "event" | "special"
	Domain   string `toml:"domain" yaml:"domain"`
	Required bool   `toml:"required" yaml:"required"`
}

// BlockDescriptor is what the block registry holds per block type (spec
// §6 "Block registry: for each block type, a description (inputs,
// outputs, paramSchema, lower(builder, context))").
type BlockDescriptor struct {
	Type    string
	Inputs  []PortDecl
	Outputs []PortDecl
	Params  []ParamSchema
	Lower   irbuilder.Lowerer

	// IsTimeRoot marks the one block variant family whose presence
	// determines the patch's TimeModel (spec §4.1). Exactly one TimeRoot
	// instance may appear in a valid patch.
	IsTimeRoot bool

	// Stateful marks a block type that hosts a stateful opcode
	// (integrate, delayMs, sampleHold, slewLimit). The SCC pass (pass 5)
	// consults this to tell a legal feedback cycle from
	// E_CYCLE_THROUGH_NON_STATEFUL (spec §4.2, §9 "Graph cycles") without
	// needing to have lowered the block yet.
	Stateful bool
}

// Registry is the full set of known block types, supplied by the host
// (the block palette is explicitly out of scope for this module, spec
// §1) and consulted during lowering.
type Registry struct {
	byType map[string]BlockDescriptor
}

func NewRegistry() *Registry {
	return &Registry{byType: make(map[string]BlockDescriptor)}
}

func (r *Registry) Register(d BlockDescriptor) {
	r.byType[d.Type] = d
}

func (r *Registry) Lookup(blockType string) (BlockDescriptor, bool) {
	d, ok := r.byType[blockType]
	return d, ok
}

func (r *Registry) TimeRootTypes() []string {
	var out []string
	for t, d := range r.byType {
		if d.IsTimeRoot {
			out = append(out, t)
		}
	}
	return out
}
