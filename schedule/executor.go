// Copyright 2026 The Patchkernel Authors
// This file is part of patchkernel, licensed LGPLv3-or-later.

// Package schedule implements the per-frame schedule executor (spec §4.8
// "Per-frame executor loop"): it walks one CompiledProgram's ordered
// StepIR list, evaluating signal expressions, materializing field
// buffers, and assembling the RenderFrame the external sink consumes.
package schedule

import (
	"fmt"
	"math"

	"github.com/patchkernel/engine/diag"
	"github.com/patchkernel/engine/field"
	"github.com/patchkernel/engine/ir"
	"github.com/patchkernel/engine/render"
	"github.com/patchkernel/engine/statebuf"
	"github.com/patchkernel/engine/transform"
	"github.com/patchkernel/engine/valuestore"
)

// Executor runs one CompiledProgram's schedule, frame after frame. It
// owns no wall-clock policy itself — package player drives Executor.Frame
// with successive tAbsMs values (spec §5 "the only parallelism is
// between the player's wall-clock tick and whatever external I/O the
// host drives").
type Executor struct {
	prog  *ir.CompiledProgram
	store *valuestore.Store
	state *statebuf.Buffer
	xreg  *transform.Registry
	pool  *field.Pool
	cache *field.Cache
	rings *diag.RingBuffer

	frameIndex  uint64
	prevPhase01 float64
	haveFrame   bool
}

// New constructs an Executor for prog. debug enables the store's
// single-writer check (spec §4.8). prevState may be nil for a first
// compile, or the result of statebuf.HotSwap for a recompiled program
// (spec §4.9).
func New(prog *ir.CompiledProgram, xreg *transform.Registry, prevState *statebuf.Buffer, debug bool) *Executor {
	state := prevState
	if state == nil {
		state = statebuf.New(prog.StateLayout)
	}
	return &Executor{
		prog:  prog,
		store: valuestore.New(prog.SlotMeta, debug),
		state: state,
		xreg:  xreg,
		pool:  field.NewPool(),
		cache: field.NewCache(512),
		rings: diag.NewRingBuffer(1024),
	}
}

// State returns the executor's state buffer, for handing forward into a
// hot-swapped replacement Executor (spec §4.9 step 2-3).
func (x *Executor) State() *statebuf.Buffer { return x.state }

// Diagnostics returns the runtime-anomaly ring buffer (spec §7).
func (x *Executor) Diagnostics() *diag.RingBuffer { return x.rings }

// Frame advances the schedule by one frame at wall-clock tAbsMs and
// returns the assembled render.Frame plus a read-only ValueStore view
// (spec §4.8 steps 1-4). The store's per-frame write tracking is reset
// first so every slot may be written exactly once this frame.
func (x *Executor) Frame(tAbsMs float64) (render.Frame, valuestore.View, error) {
	x.store.ResetFrame()
	x.frameIndex++

	out := render.Frame{Version: 1}

	for i, step := range x.prog.Schedule.Steps {
		switch step.Kind {
		case ir.StepTimeDerive:
			x.deriveTime(step, tAbsMs)

		case ir.StepSignalEval:
			if err := x.runSignalEval(step, i); err != nil {
				x.recordAnomaly(i, err)
			}

		case ir.StepMaterialize:
			if err := x.runMaterialize(step, i); err != nil {
				x.recordAnomaly(i, err)
			}

		case ir.StepRenderAssemble:
			pass, err := x.assemble(step.Sink)
			if err != nil {
				x.recordAnomaly(i, err)
				continue
			}
			out.Passes = append(out.Passes, pass)
		}
	}

	x.haveFrame = true
	return out, valuestore.NewView(x.store), nil
}

// deriveTime computes tModelMs/phase01 from TimeModel (spec §4.1: finite
// "model time is clamped to [0, durationMs]", infinite "advances
// monotonically without wrapping" — the clamp/monotonic behavior lives
// here; looping is purely the player's view policy of feeding deriveTime
// a tAbsMs that has been wound back, which this function never needs to
// know about). phase01 is the cyclic [0,1) progress value every patch can
// listen to regardless of TimeModel kind; an infinite TimeRoot has no
// authored cycle length of its own, so it defaults to a fixed one-second
// cycle.
func (x *Executor) deriveTime(step ir.StepIR, tAbsMs float64) {
	var tModelMs, phase01 float64
	switch x.prog.TimeModel.Kind {
	case ir.TimeFinite:
		dur := x.prog.TimeModel.DurationMs
		tModelMs = clampF64(tAbsMs, 0, dur)
		if dur > 0 {
			phase01 = tModelMs / dur
		}
	default: // ir.TimeInfinite
		tModelMs = tAbsMs
		const defaultCycleMs = 1000.0
		phase01 = modFloat(tAbsMs, defaultCycleMs) / defaultCycleMs
	}

	wrapped := x.haveFrame && phase01 < x.prevPhase01

	x.store.Write(step.TimeAbsSlot, valuestore.Value{F64: tAbsMs}, -1)
	x.store.Write(step.TimeModelSlot, valuestore.Value{F64: tModelMs}, -1)
	x.store.Write(step.Phase01Slot, valuestore.Value{F64: phase01}, -1)
	wrapI := int32(0)
	if wrapped {
		wrapI = 1
	}
	x.store.Write(step.WrapEventSlot, valuestore.Value{I32: wrapI}, -1)

	x.prevPhase01 = phase01
}

func clampF64(v, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func modFloat(v, m float64) float64 {
	r := v - float64(int64(v/m))*m
	if r < 0 {
		r += m
	}
	return r
}

func (x *Executor) runSignalEval(step ir.StepIR, stepIdx int) error {
	dtMs := 1000.0 / 60.0 // fixed nominal frame delta for stateful opcodes, independent of the actual tick interval
	eval := &signalEvaluator{
		exprs:  x.prog.SignalExprs,
		consts: x.prog.Constants,
		chains: x.prog.TransformChains,
		xreg:   x.xreg,
		store:  x.store,
		state:  x.state,
		dtMs:   dtMs,
	}
	v, err := eval.Eval(step.Sig)
	if err != nil {
		return err
	}
	if v.Object == nil && nonFinite(v.F64) {
		x.recordNonFinite(stepIdx, step.OutSlot)
		v = valuestore.Value{}
	}
	return x.store.Write(step.OutSlot, v, stepIdx)
}

func (x *Executor) runMaterialize(step ir.StepIR, stepIdx int) error {
	domVal := x.store.Read(step.DomainSlot)
	dom, ok := domVal.Object.(field.Domain)
	if !ok {
		dom = field.Domain{Count: 0}
	}

	eval := &signalEvaluator{
		exprs:  x.prog.SignalExprs,
		consts: x.prog.Constants,
		chains: x.prog.TransformChains,
		xreg:   x.xreg,
		store:  x.store,
		state:  x.state,
		dtMs:   1000.0 / 60.0,
	}
	sampler := func(id ir.SigExprID) float64 {
		v, err := eval.Eval(id)
		if err != nil {
			return 0
		}
		return v.F64
	}

	m := field.NewMaterializer(x.prog.FieldExprs, x.prog.Constants, x.prog.TransformChains, x.xreg, x.pool, x.cache)
	buf, err := m.Materialize(step.Field, dom, sampler, x.store.Version)
	if err != nil {
		return err
	}
	defer buf.Release()

	data := append([]float64(nil), buf.Data...)
	if clampNonFinite(data) > 0 {
		x.recordNonFinite(stepIdx, step.BufferSlot)
	}
	if err := x.store.Write(step.BufferSlot, valuestore.Value{Object: data}, stepIdx); err != nil {
		return err
	}
	return x.store.Write(step.ElementCountSlot, valuestore.Value{I32: int32(len(data))}, stepIdx)
}

// nonFinite reports whether v is NaN or ±Inf — the generic runtime-
// anomaly check spec §7 requires after any signal or field evaluation,
// rather than special-casing individual opcodes like division.
func nonFinite(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

// clampNonFinite zeroes every non-finite element of data in place and
// reports how many it touched.
func clampNonFinite(data []float64) int {
	n := 0
	for i, v := range data {
		if nonFinite(v) {
			data[i] = 0
			n++
		}
	}
	return n
}

// recordNonFinite pushes a runtime-anomaly diagnostic for a slot that was
// clamped to its safe default after a non-finite evaluation result (spec
// §7: "the frame is still produced; offending slots are clamped to the
// type's safe default").
func (x *Executor) recordNonFinite(stepIdx int, slot ir.ValueSlot) {
	x.rings.Push(diag.Diagnostic{
		Code:     diag.CodeNonFiniteValue,
		Message:  fmt.Sprintf("step %d: slot %d evaluated to a non-finite value, clamped to safe default", stepIdx, slot),
		Where:    diag.Where{SlotID: fmt.Sprintf("%d", slot)},
		Severity: diag.SeverityWarning,
	})
}

func (x *Executor) assemble(sinkID ir.SinkID) (render.Pass, error) {
	if int(sinkID) < 0 || int(sinkID) >= len(x.prog.Render.Sinks) {
		return render.Pass{}, fmt.Errorf("schedule: sink id %d out of range", sinkID)
	}
	sink := x.prog.Render.Sinks[sinkID]
	pass := render.Pass{}
	switch sink.Kind {
	case ir.SinkInstances2D:
		pass.Kind = render.PassInstances2D
	case ir.SinkPaths2D:
		pass.Kind = render.PassPaths2D
	case ir.SinkClipGroup:
		pass.Kind = render.PassClipGroup
	case ir.SinkPostFX:
		pass.Kind = render.PassPostFX
		pass.EffectName = sink.EffectName
	}
	if len(sink.Inputs) > 0 {
		pass.PositionSlot = sink.Inputs[0]
	}
	if len(sink.Inputs) > 1 {
		pass.ColorSlot = sink.Inputs[1]
	}
	if len(sink.Inputs) > 2 {
		pass.RadiusSlot = sink.Inputs[2]
	}
	if sink.Child != ir.InvalidSinkID {
		child, err := x.assemble(sink.Child)
		if err != nil {
			return render.Pass{}, err
		}
		pass.Child = &child
	}
	return pass, nil
}

// recordAnomaly turns an internal failure into a runtime diagnostic
// rather than propagating the error across the frame boundary (spec §7
// "any internal failure becomes a runtime diagnostic and a safe-default
// write").
func (x *Executor) recordAnomaly(stepIdx int, err error) {
	x.rings.Push(diag.Diagnostic{
		Code:     diag.CodeUnresolvedInput,
		Message:  fmt.Sprintf("step %d: %s", stepIdx, err),
		Severity: diag.SeverityWarning,
	})
}
