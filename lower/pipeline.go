package lower

import (
	"github.com/patchkernel/engine/diag"
	"github.com/patchkernel/engine/ir"
	"github.com/patchkernel/engine/patch"
	"github.com/patchkernel/engine/transform"
)

// CompileResult mirrors spec §6: `CompileResult := { program, diagnostics }`.
// Program is nil whenever any diagnostic has SeverityError.
type CompileResult struct {
	Program     *ir.CompiledProgram
	Diagnostics []diag.Diagnostic
}

// Compile runs the eight ordered passes (spec §2): normalize, type graph,
// time topology, dependency graph, SCC, block lowering, bus lowering,
// link resolution. A pass may report several diagnostics; once any
// error has been reported, every later pass is skipped.
func Compile(p *patch.Patch, reg *patch.Registry, xreg *transform.Registry) CompileResult {
	c := newCtx(p, reg, xreg)

	c.passNormalize()
	if !c.diags.HasErrors() {
		c.passTypeGraph()
	}
	if !c.diags.HasErrors() {
		c.passTimeTopology()
	}
	if !c.diags.HasErrors() {
		c.passDependencyGraph()
	}
	if !c.diags.HasErrors() {
		c.passSCC()
	}
	if !c.diags.HasErrors() {
		c.passBlockLowering()
	}
	if !c.diags.HasErrors() {
		c.passBusLowering()
	}
	if !c.diags.HasErrors() {
		c.passLinkResolution()
	}

	if c.diags.HasErrors() {
		return CompileResult{Program: nil, Diagnostics: c.diags.All()}
	}

	c.b.Program().Fingerprint = ir.Compute(c.fp)
	return CompileResult{Program: c.b.Program(), Diagnostics: c.diags.All()}
}
