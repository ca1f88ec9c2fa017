package transform

import (
	"fmt"

	"github.com/patchkernel/engine/ir"
	"github.com/patchkernel/engine/patch"
)

// ApplyFunc is the stateless, pure evaluation a transform id performs at
// runtime on one residual step (spec §4.4: "Stateless transforms are pure
// and yield new values").
type ApplyFunc func(in Value, params map[string]float64) (Value, error)

// Transform is one registry entry: an id plus its paramSchema, apply
// function, and — when the whole behavior is equivalent to one existing
// IR opcode — the opcode pass 6 may fold a lone enabled step into instead
// of emitting a residual transform node.
type Transform struct {
	ID         string
	Schema     []patch.ParamSchema
	Apply      ApplyFunc
	FoldOpcode ir.Opcode // "" if this id has no 1:1 primitive-opcode equivalent

	// compiled mirrors Schema as cel-go bounds predicates, built once by
	// Registry.Register rather than recompiled on every Validate call.
	compiled []*compiledSchema
}

// Registry is the full set of known transform ids, supplied by the host
// alongside the block registry (spec §6 "Transform registry: ids with
// (apply, compileToIR, paramSchema)").
type Registry struct {
	byID map[string]Transform
}

func NewRegistry() *Registry { return &Registry{byID: make(map[string]Transform)} }

// Register compiles t.Schema's numeric bounds into cel-go predicates and
// stores the result alongside t. A schema that fails to compile is a
// registry-construction bug (a malformed bound, not user input), so
// Register panics rather than threading a compile error through every
// caller — mirroring NewConstantPool/NewTable's no-error-return
// construction style elsewhere in this module.
func (r *Registry) Register(t Transform) {
	for _, s := range t.Schema {
		cs, err := compileSchema(s)
		if err != nil {
			panic(err)
		}
		t.compiled = append(t.compiled, cs)
	}
	r.byID[t.ID] = t
}

func (r *Registry) Lookup(id string) (Transform, bool) {
	t, ok := r.byID[id]
	return t, ok
}

// Validate checks step.Params against the registered schema (spec §9
// "replace duck-typed transform params ... validates against the schema
// at lowering time"), using the cel-go predicates Register compiled.
func (t Transform) Validate(params map[string]ParamValueReader) error {
	for i, s := range t.Schema {
		pv, present := params[s.Name]
		if !present {
			if s.Required {
				return fmt.Errorf("transform %s: missing required param %q", t.ID, s.Name)
			}
			continue
		}
		if s.Kind == patch.ParamNumber {
			f, err := pv.AsFloat64()
			if err != nil {
				return fmt.Errorf("transform %s: param %q: %w", t.ID, s.Name, err)
			}
			if i < len(t.compiled) {
				if err := t.compiled[i].check(f); err != nil {
					return fmt.Errorf("transform %s: %w", t.ID, err)
				}
			}
		}
	}
	return nil
}

// ParamValueReader is the minimal surface Validate needs from
// patch.ParamValue, kept as an interface so this package does not need to
// import the json-decode details of patch.ParamValue directly.
type ParamValueReader interface {
	AsFloat64() (float64, error)
}
