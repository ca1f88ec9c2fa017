// Copyright 2026 The Patchkernel Authors
// This file is part of patchkernel, licensed LGPLv3-or-later.

// Package sink implements the external render-frame sink transport (spec
// §6 "External sink: a function accepting a RenderFrame value and a
// read-only ValueStore view"). It carries RenderFrame plus the ValueStore
// slots a frame's passes reference over gRPC, using structpb.Struct as the
// wire envelope rather than a hand-authored .pb.go — a real, already
// generated protobuf message type, so the transport is genuine protobuf
// wire format without requiring a protoc invocation this repo doesn't
// have (SPEC_FULL.md §11: grpc + protobuf wired into this package).
package sink

import (
	"fmt"
	"strconv"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/patchkernel/engine/ir"
	"github.com/patchkernel/engine/render"
	"github.com/patchkernel/engine/valuestore"
)

// frameToStruct converts a render.Frame into its structpb envelope. Every
// ValueSlot a pass references is resolved against view and embedded
// alongside the slot number, so a remote sink never needs its own
// ValueStore — it reads buffer contents straight out of the envelope,
// matching spec §6's "the sink reads buffers from the provided ValueStore
// view" for an out-of-process reader.
func frameToStruct(frame render.Frame, view valuestore.View) (*structpb.Struct, error) {
	slots := map[string]*structpb.Value{}
	passes := make([]*structpb.Value, 0, len(frame.Passes))
	for _, p := range frame.Passes {
		pv, err := passToStruct(p, view, slots)
		if err != nil {
			return nil, err
		}
		passes = append(passes, structpb.NewStructValue(pv))
	}

	slotsStruct, err := structpb.NewStruct(nil)
	if err != nil {
		return nil, err
	}
	slotsStruct.Fields = slots

	out, err := structpb.NewStruct(map[string]any{
		"version": float64(frame.Version),
		"clearMode": float64(frame.Clear.Mode),
		"clearColor": colorToMap(frame.Clear.Color),
	})
	if err != nil {
		return nil, err
	}
	out.Fields["passes"] = structpb.NewListValue(&structpb.ListValue{Values: passes})
	out.Fields["slots"] = structpb.NewStructValue(slotsStruct)
	return out, nil
}

func passToStruct(p render.Pass, view valuestore.View, slots map[string]*structpb.Value) (*structpb.Struct, error) {
	fields := map[string]any{"kind": float64(p.Kind)}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}

	// assemble (package schedule) leaves a Pass field at its zero value
	// when a sink kind doesn't use that slot role, rather than setting it
	// to InvalidSlot, so zero is the "unused" sentinel here too.
	resolve := func(name string, slot ir.ValueSlot) {
		if slot == 0 {
			return
		}
		st.Fields[name] = structpb.NewNumberValue(float64(slot))
		key := fmt.Sprintf("%d", slot)
		if _, ok := slots[key]; !ok {
			slots[key] = valueToStructValue(view.Read(slot))
		}
	}
	switch p.Kind {
	case render.PassInstances2D, render.PassPaths2D:
		resolve("positionSlot", p.PositionSlot)
		resolve("colorSlot", p.ColorSlot)
		resolve("radiusSlot", p.RadiusSlot)
		resolve("geometrySlot", p.GeometrySlot)
		resolve("countSlot", p.CountSlot)
	case render.PassPostFX:
		st.Fields["effectName"] = structpb.NewStringValue(p.EffectName)
	}
	if p.Child != nil {
		child, err := passToStruct(*p.Child, view, slots)
		if err != nil {
			return nil, err
		}
		st.Fields["child"] = structpb.NewStructValue(child)
	}
	return st, nil
}

func colorToMap(c render.Color) map[string]any {
	return map[string]any{"r": c.R, "g": c.G, "b": c.B, "a": c.A}
}

func valueToStructValue(v valuestore.Value) *structpb.Value {
	if data, ok := v.Object.([]float64); ok {
		vals := make([]*structpb.Value, len(data))
		for i, f := range data {
			vals[i] = structpb.NewNumberValue(f)
		}
		return structpb.NewListValue(&structpb.ListValue{Values: vals})
	}
	if c, ok := v.Object.(render.Color); ok {
		s, err := structpb.NewStruct(colorToMap(c))
		if err == nil {
			return structpb.NewStructValue(s)
		}
	}
	if v.F64 != 0 {
		return structpb.NewNumberValue(v.F64)
	}
	if v.I32 != 0 {
		return structpb.NewNumberValue(float64(v.I32))
	}
	if v.U32 != 0 {
		return structpb.NewNumberValue(float64(v.U32))
	}
	return structpb.NewNullValue()
}

// structToFrame reconstructs a render.Frame's tree shape from the wire
// envelope. It does not reconstruct resolved slot contents (a remote
// collaborator reads those straight from the envelope's "slots" field
// instead of going back through a local ValueStore), so it only exists to
// let a Go-side test or in-process sink decode what a remote rasterizer
// would otherwise rasterize directly.
func structToFrame(s *structpb.Struct) (render.Frame, error) {
	f := render.Frame{Version: int(s.Fields["version"].GetNumberValue())}
	f.Clear.Mode = render.ClearMode(s.Fields["clearMode"].GetNumberValue())
	if cc := s.Fields["clearColor"].GetStructValue(); cc != nil {
		f.Clear.Color = structToColor(cc)
	}
	for _, pv := range s.Fields["passes"].GetListValue().GetValues() {
		p, err := structToPass(pv.GetStructValue())
		if err != nil {
			return render.Frame{}, err
		}
		f.Passes = append(f.Passes, p)
	}
	return f, nil
}

func structToColor(s *structpb.Struct) render.Color {
	return render.Color{
		R: s.Fields["r"].GetNumberValue(),
		G: s.Fields["g"].GetNumberValue(),
		B: s.Fields["b"].GetNumberValue(),
		A: s.Fields["a"].GetNumberValue(),
	}
}

// structToView decodes the envelope's "slots" field into a standalone
// valuestore.Store so a remote collaborator can read buffer contents the
// same way an in-process sink reads them off the real ValueStore (spec
// §6). The synthetic store is debug-off (no single-writer bookkeeping
// applies to a received snapshot) and sized to the highest slot number
// actually present in the envelope.
func structToView(s *structpb.Struct) valuestore.View {
	fields := s.Fields["slots"].GetStructValue().GetFields()
	maxSlot := -1
	for key := range fields {
		if idx, err := strconv.Atoi(key); err == nil && idx > maxSlot {
			maxSlot = idx
		}
	}
	store := valuestore.New(make([]ir.SlotMeta, maxSlot+1), false)
	for key, v := range fields {
		idx, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		store.Write(ir.ValueSlot(idx), structValueToValue(v), -1)
	}
	return valuestore.NewView(store)
}

func structValueToValue(v *structpb.Value) valuestore.Value {
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		return valuestore.Value{F64: k.NumberValue}
	case *structpb.Value_ListValue:
		data := make([]float64, len(k.ListValue.Values))
		for i, e := range k.ListValue.Values {
			data[i] = e.GetNumberValue()
		}
		return valuestore.Value{Object: data}
	case *structpb.Value_StructValue:
		f := k.StructValue.Fields
		return valuestore.Value{Object: render.Color{
			R: f["r"].GetNumberValue(),
			G: f["g"].GetNumberValue(),
			B: f["b"].GetNumberValue(),
			A: f["a"].GetNumberValue(),
		}}
	default:
		return valuestore.Value{}
	}
}

func structToPass(s *structpb.Struct) (render.Pass, error) {
	if s == nil {
		return render.Pass{}, fmt.Errorf("sink: nil pass struct")
	}
	p := render.Pass{Kind: render.PassKind(s.Fields["kind"].GetNumberValue())}
	p.PositionSlot = ir.ValueSlot(s.Fields["positionSlot"].GetNumberValue())
	p.ColorSlot = ir.ValueSlot(s.Fields["colorSlot"].GetNumberValue())
	p.RadiusSlot = ir.ValueSlot(s.Fields["radiusSlot"].GetNumberValue())
	p.GeometrySlot = ir.ValueSlot(s.Fields["geometrySlot"].GetNumberValue())
	p.CountSlot = ir.ValueSlot(s.Fields["countSlot"].GetNumberValue())
	p.EffectName = s.Fields["effectName"].GetStringValue()
	if cs := s.Fields["child"].GetStructValue(); cs != nil {
		child, err := structToPass(cs)
		if err != nil {
			return render.Pass{}, err
		}
		p.Child = &child
	}
	return p, nil
}
