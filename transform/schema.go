package transform

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/patchkernel/engine/patch"
)

// compiledSchema wraps one patch.ParamSchema with its cel-go range
// predicate, compiled once at registration time rather than re-parsed on
// every Validate call (spec §9 "replace duck-typed transform params ...
// validates against the schema at lowering time", SPEC_FULL.md §11:
// cel-go wired into this package's ParamSchema validation).
type compiledSchema struct {
	schema patch.ParamSchema
	prg    cel.Program // nil when the schema has no numeric bounds to check
}

var schemaEnv = func() *cel.Env {
	env, err := cel.NewEnv(
		cel.Variable("value", cel.DoubleType),
		cel.Variable("min", cel.DoubleType),
		cel.Variable("max", cel.DoubleType),
	)
	if err != nil {
		panic(fmt.Sprintf("transform: building cel env: %v", err))
	}
	return env
}()

func compileSchema(s patch.ParamSchema) (*compiledSchema, error) {
	cs := &compiledSchema{schema: s}
	if s.Kind != patch.ParamNumber || (s.Min == 0 && s.Max == 0) {
		return cs, nil
	}
	ast, iss := schemaEnv.Compile("value >= min && value <= max")
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("transform: compiling param %q bounds: %w", s.Name, iss.Err())
	}
	prg, err := schemaEnv.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("transform: building param %q program: %w", s.Name, err)
	}
	cs.prg = prg
	return cs, nil
}

// check evaluates the compiled bounds predicate against f, returning an
// error describing the violated range when it fails.
func (cs *compiledSchema) check(f float64) error {
	if cs.prg == nil {
		return nil
	}
	out, _, err := cs.prg.Eval(map[string]any{"value": f, "min": cs.schema.Min, "max": cs.schema.Max})
	if err != nil {
		return fmt.Errorf("transform: evaluating param %q bounds: %w", cs.schema.Name, err)
	}
	ok, _ := out.Value().(bool)
	if !ok {
		return fmt.Errorf("param %q=%v out of range [%v,%v]", cs.schema.Name, f, cs.schema.Min, cs.schema.Max)
	}
	return nil
}
