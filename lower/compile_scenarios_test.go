package lower_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/patchkernel/engine/diag"
	"github.com/patchkernel/engine/ir"
	"github.com/patchkernel/engine/irbuilder"
	"github.com/patchkernel/engine/lower"
	"github.com/patchkernel/engine/patch"
	"github.com/patchkernel/engine/schedule"
	"github.com/patchkernel/engine/transform"
	"github.com/patchkernel/engine/typesys"
)

// timeRootDescriptor is the one TimeRoot instance every test patch below
// needs (pass 3 rejects a patch with zero or more than one). It carries
// no params, which passTimeTopology treats as an infinite-duration model.
func timeRootDescriptor() patch.BlockDescriptor {
	return patch.BlockDescriptor{
		Type:       "timeRoot",
		IsTimeRoot: true,
		Lower:      func(*irbuilder.Builder, *irbuilder.BlockContext) error { return nil },
	}
}

// numberSourceDescriptor emits a signal-world number constant from its
// "value" param — the simplest possible publisher/source block for
// driving a constructed patch through the full pipeline.
func numberSourceDescriptor() patch.BlockDescriptor {
	return patch.BlockDescriptor{
		Type:    "numberSource",
		Outputs: []patch.PortDecl{{Name: "out", World: "signal", Domain: "number"}},
		Params:  []patch.ParamSchema{{Name: "value", Kind: patch.ParamNumber}},
		Lower: func(b *irbuilder.Builder, ctx *irbuilder.BlockContext) error {
			v, _ := ctx.Params["value"].(float64)
			ty := typesys.TypeDesc{World: typesys.WorldSignal, Dom: typesys.DomainNumber}
			cid := b.AddConstant().AddF64(v)
			id := b.EmitSignal(ir.SignalExprIR{Kind: ir.SigConst, Const: cid, Type: ty})
			ctx.Outputs["out"] = irbuilder.ResolvedInput{Type: ty, SigExpr: id}
			return nil
		},
	}
}

// fieldSinkDescriptor is a field-world listener with no output of its
// own, used only to give a wire a Field<number> target for scenario S3.
func fieldSinkDescriptor() patch.BlockDescriptor {
	return patch.BlockDescriptor{
		Type:   "fieldSink",
		Inputs: []patch.PortDecl{{Name: "in", World: "field", Domain: "number", Required: true}},
		Lower:  func(*irbuilder.Builder, *irbuilder.BlockContext) error { return nil },
	}
}

func testRegistry(extra ...patch.BlockDescriptor) *patch.Registry {
	reg := patch.NewRegistry()
	reg.Register(timeRootDescriptor())
	reg.Register(numberSourceDescriptor())
	for _, d := range extra {
		reg.Register(d)
	}
	return reg
}

func numberValue(sortKey int64, value float64) patch.Block {
	return patch.Block{
		Type:    "numberSource",
		SortKey: sortKey,
		Params:  map[string]patch.ParamValue{"value": {Raw: []byte(fmt.Sprintf("%g", value))}},
	}
}

// findBusRootSlot locates the ValueSlot a named bus's BusRoot resolved
// to, by the "bus.<name>" DebugName lowerOneBus stamps on it — more
// robust than assuming a dense BusIndex ordering.
func findBusRootSlot(t *testing.T, prog *ir.CompiledProgram, name string) ir.ValueSlot {
	t.Helper()
	want := "bus." + name
	for _, root := range prog.BusRoots {
		slot := root.Ref.Slot
		if int(slot) < len(prog.SlotMeta) && prog.SlotMeta[slot].DebugName == want {
			return slot
		}
	}
	t.Fatalf("no BusRoot found for bus %q", name)
	return ir.InvalidSlot
}

// TestBusCombineDeterministicAcrossAuthoringOrder is scenario S2: a bus's
// combined value is fixed by (sortKey, stableHash) ordering alone, never
// by Go map iteration order over patch.Blocks or by the order wires were
// appended. "last" must always resolve to the highest-sortKey publisher.
func TestBusCombineDeterministicAcrossAuthoringOrder(t *testing.T) {
	reg := testRegistry()
	xreg := transform.NewRegistry()

	build := func() *patch.Patch {
		return &patch.Patch{
			Blocks: map[patch.BlockID]patch.Block{
				"root": {Type: "timeRoot", SortKey: 0},
				"a":    numberValue(30, 9),
				"b":    numberValue(10, 7),
				"c":    numberValue(20, 8),
			},
			Wires: []patch.Wire{
				{Source: patch.PortRef{Block: "a", Port: "out"}, Target: patch.PortRef{Bus: "mix"}},
				{Source: patch.PortRef{Block: "b", Port: "out"}, Target: patch.PortRef{Bus: "mix"}},
				{Source: patch.PortRef{Block: "c", Port: "out"}, Target: patch.PortRef{Bus: "mix"}},
			},
			Buses: []patch.BusDecl{{Name: "mix", Combine: "last", World: "signal", Domain: "number"}},
		}
	}

	// Compiling the same authored graph repeatedly must give the same
	// combined result every time, regardless of Go's randomized map
	// iteration order over patch.Blocks/the wires slice construction.
	for i := 0; i < 5; i++ {
		res := lower.Compile(build(), reg, xreg)
		require.Empty(t, errorsOnly(res.Diagnostics), "compile %d", i)
		require.NotNil(t, res.Program)

		slot := findBusRootSlot(t, res.Program, "mix")
		exec := schedule.New(res.Program, xreg, nil, false)
		_, view, err := exec.Frame(0)
		require.NoError(t, err)
		require.Equal(t, 9.0, view.Read(slot).F64, "combine=last must resolve to the highest-sortKey publisher (block a, sortKey 30)")
	}
}

// TestWorldCrossingWireRejected is scenario S3: a direct Signal<number> ->
// Field<number> wire with no explicit converter named on its transform
// chain is a compile error, and no program is produced.
func TestWorldCrossingWireRejected(t *testing.T) {
	reg := testRegistry(fieldSinkDescriptor())
	xreg := transform.NewRegistry()

	p := &patch.Patch{
		Blocks: map[patch.BlockID]patch.Block{
			"root": {Type: "timeRoot", SortKey: 0},
			"src":  numberValue(0, 1),
			"dst":  {Type: "fieldSink", SortKey: 1},
		},
		Wires: []patch.Wire{
			{Source: patch.PortRef{Block: "src", Port: "out"}, Target: patch.PortRef{Block: "dst", Port: "in"}},
		},
	}

	res := lower.Compile(p, reg, xreg)
	require.Nil(t, res.Program)
	require.True(t, hasCode(res.Diagnostics, diag.CodeWorldMismatch), "expected %s, got %+v", diag.CodeWorldMismatch, res.Diagnostics)
}

// TestReservedBusMisuseRejected is scenario S5: publishing a type that
// does not match a reserved bus's locked type is a compile error naming
// the misused bus, not a silent type coercion.
func TestReservedBusMisuseRejected(t *testing.T) {
	reg := testRegistry()
	xreg := transform.NewRegistry()

	// "pulse" is reserved as Event<boolean> (spec §4.7); publishing a
	// plain Signal<number> onto it is a locked-type mismatch.
	p := &patch.Patch{
		Blocks: map[patch.BlockID]patch.Block{
			"root": {Type: "timeRoot", SortKey: 0},
			"src":  numberValue(0, 1),
		},
		Wires: []patch.Wire{
			{Source: patch.PortRef{Block: "src", Port: "out"}, Target: patch.PortRef{Bus: "pulse"}},
		},
	}

	res := lower.Compile(p, reg, xreg)
	require.Nil(t, res.Program)
	require.True(t, hasCode(res.Diagnostics, diag.CodeReservedBusMisuse), "expected %s, got %+v", diag.CodeReservedBusMisuse, res.Diagnostics)
}

// TestRedeclaringReservedBusRejected checks the companion reserved-bus
// misuse path: a patch cannot redeclare one of the fixed reserved buses.
func TestRedeclaringReservedBusRejected(t *testing.T) {
	reg := testRegistry()
	xreg := transform.NewRegistry()

	p := &patch.Patch{
		Blocks: map[patch.BlockID]patch.Block{
			"root": {Type: "timeRoot", SortKey: 0},
		},
		Buses: []patch.BusDecl{{Name: "energy", Combine: "sum", World: "signal", Domain: "number"}},
	}

	res := lower.Compile(p, reg, xreg)
	require.Nil(t, res.Program)
	require.True(t, hasCode(res.Diagnostics, diag.CodeReservedBusMisuse))
}

func errorsOnly(ds []diag.Diagnostic) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, d := range ds {
		if d.Severity == diag.SeverityError {
			out = append(out, d)
		}
	}
	return out
}

func hasCode(ds []diag.Diagnostic, code diag.Code) bool {
	for _, d := range ds {
		if d.Code == code {
			return true
		}
	}
	return false
}
