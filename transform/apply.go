package transform

import (
	"fmt"

	"github.com/patchkernel/engine/ir"
)

// ApplyChain is spec §4.4's `applyTransforms(value, chain, ctx) -> value`:
// every step runs in chain order, disabled steps are skipped, and each
// step's raw numeric params are resolved once against the registry before
// the step's ApplyFunc runs.
func ApplyChain(reg *Registry, in Value, chain []ir.TransformStepIR) (Value, error) {
	v := in
	for _, step := range chain {
		if !step.Enabled {
			continue
		}
		t, ok := reg.Lookup(step.ID)
		if !ok {
			return Value{}, fmt.Errorf("unknown transform id %q", step.ID)
		}
		out, err := t.Apply(v, step.Params)
		if err != nil {
			return Value{}, fmt.Errorf("transform %s: %w", step.ID, err)
		}
		v = out
	}
	return v, nil
}
