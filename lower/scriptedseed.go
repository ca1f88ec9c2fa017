package lower

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/patchkernel/engine/ir"
	"github.com/patchkernel/engine/irbuilder"
	"github.com/patchkernel/engine/patch"
	"github.com/patchkernel/engine/typesys"
)

// ScriptedSeedDescriptor is the authoring block giving spec §3 invariant
// 5 ("stochastic variation ... seeded and materialized once at compile
// time") a concrete surface: its "formula" param is a small script
// evaluated once per element, here, during block lowering — never at
// runtime (SPEC_FULL.md §12 "Compile-time scripted seeds").
func ScriptedSeedDescriptor() patch.BlockDescriptor {
	return patch.BlockDescriptor{
		Type: "scriptedSeed",
		Outputs: []patch.PortDecl{
			{Name: "out", World: "field", Domain: "number"},
		},
		Params: []patch.ParamSchema{
			{Name: "formula", Kind: patch.ParamString, Required: true},
			{Name: "count", Kind: patch.ParamNumber, Required: true, Min: 1, Max: 1 << 20},
		},
		Lower: lowerScriptedSeed,
	}
}

// lowerScriptedSeed runs ctx.Params["formula"] once per element (0 ..
// count-1), with `seed`, `index` and `count` bound in scope, and folds
// the resulting array into the constant pool as a field.Materializer
// per-element FieldConst (package field's FieldConst case reads it back
// out). goja never runs again after this call returns.
func lowerScriptedSeed(b *irbuilder.Builder, ctx *irbuilder.BlockContext) error {
	formula, _ := ctx.Params["formula"].(string)
	if formula == "" {
		return fmt.Errorf("scriptedSeed: missing formula")
	}
	countF, _ := ctx.Params["count"].(float64)
	count := int(countF)
	if count <= 0 {
		return fmt.Errorf("scriptedSeed: count must be positive, got %v", countF)
	}

	prog, err := goja.Compile(ctx.BlockID, formula, true)
	if err != nil {
		return fmt.Errorf("scriptedSeed: compiling formula: %w", err)
	}

	vm := goja.New()
	vm.Set("seed", ctx.Seed)
	vm.Set("count", count)
	data := make([]float64, count)
	for i := 0; i < count; i++ {
		vm.Set("index", i)
		v, err := vm.RunProgram(prog)
		if err != nil {
			return fmt.Errorf("scriptedSeed: evaluating formula at index %d: %w", i, err)
		}
		data[i] = v.ToFloat()
	}

	cid := b.AddConstant().AddObject(data)
	ty := typesys.TypeDesc{World: typesys.WorldField, Dom: typesys.DomainNumber}
	fid := b.EmitField(ir.FieldExprIR{Kind: ir.FieldConst, Const: cid, Type: ty})
	ctx.Outputs["out"] = irbuilder.ResolvedInput{Type: ty, FieldExpr: fid}
	return nil
}
