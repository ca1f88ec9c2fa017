package ir

import (
	"bytes"
	"encoding/gob"
)

// ConstantPool is the typed pool backing CompiledProgram.constants (spec
// §3): one dense numeric array per storage class, plus an object array
// for json-encoded values (colors, domains, anything that doesn't fit a
// scalar lane). Every authored default value and every literal in a
// SignalExprIR/FieldExprIR const node is lowered into exactly one of
// these arrays.
type ConstantPool struct {
	F64    []float64
	F32    []float32
	I32    []int32
	U32    []uint32
	Object []any // json-encoded values: colors, domain descriptors, etc.

	classOf []StorageClass
	slotOf  []int32
}

func NewConstantPool() *ConstantPool { return &ConstantPool{} }

func (p *ConstantPool) addF64(v float64) ConstID {
	p.F64 = append(p.F64, v)
	return p.record(StorageF64, int32(len(p.F64)-1))
}

func (p *ConstantPool) addF32(v float32) ConstID {
	p.F32 = append(p.F32, v)
	return p.record(StorageF32, int32(len(p.F32)-1))
}

func (p *ConstantPool) addI32(v int32) ConstID {
	p.I32 = append(p.I32, v)
	return p.record(StorageI32, int32(len(p.I32)-1))
}

func (p *ConstantPool) addU32(v uint32) ConstID {
	p.U32 = append(p.U32, v)
	return p.record(StorageU32, int32(len(p.U32)-1))
}

func (p *ConstantPool) addObject(v any) ConstID {
	p.Object = append(p.Object, v)
	return p.record(StorageObject, int32(len(p.Object)-1))
}

func (p *ConstantPool) record(class StorageClass, slot int32) ConstID {
	id := ConstID(len(p.classOf))
	p.classOf = append(p.classOf, class)
	p.slotOf = append(p.slotOf, slot)
	return id
}

// AddF64 interns a float64 constant and returns its ConstID.
func (p *ConstantPool) AddF64(v float64) ConstID { return p.addF64(v) }

// AddBool interns a boolean constant, stored in the I32 lane as 0/1.
func (p *ConstantPool) AddBool(v bool) ConstID {
	if v {
		return p.addI32(1)
	}
	return p.addI32(0)
}

// AddObject interns an arbitrary JSON-able value (spec §3 "object array
// for json-encoded values").
func (p *ConstantPool) AddObject(v any) ConstID { return p.addObject(v) }

// Resolve returns the class/slot pair for a ConstID so the value store
// and schedule executor can read it back without a type switch keyed on
// ConstID's numeric value alone.
func (p *ConstantPool) Resolve(id ConstID) (StorageClass, int32, bool) {
	if id < 0 || int(id) >= len(p.classOf) {
		return 0, 0, false
	}
	return p.classOf[id], p.slotOf[id], true
}

func (p *ConstantPool) F64At(id ConstID) (float64, bool) {
	class, slot, ok := p.Resolve(id)
	if !ok || class != StorageF64 {
		return 0, false
	}
	return p.F64[slot], true
}

func (p *ConstantPool) BoolAt(id ConstID) (bool, bool) {
	class, slot, ok := p.Resolve(id)
	if !ok || class != StorageI32 {
		return false, false
	}
	return p.I32[slot] != 0, true
}

func (p *ConstantPool) ObjectAt(id ConstID) (any, bool) {
	class, slot, ok := p.Resolve(id)
	if !ok || class != StorageObject {
		return nil, false
	}
	return p.Object[slot], true
}

// gobPool mirrors ConstantPool's exported arrays plus its derived
// classOf/slotOf index, which gob would otherwise silently drop (it only
// encodes exported fields) — needed so a cached CompiledProgram round
// trips through package cache with every ConstID still resolvable.
type gobPool struct {
	F64     []float64
	F32     []float32
	I32     []int32
	U32     []uint32
	Object  []any
	ClassOf []StorageClass
	SlotOf  []int32
}

func (p *ConstantPool) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	g := gobPool{F64: p.F64, F32: p.F32, I32: p.I32, U32: p.U32, Object: p.Object, ClassOf: p.classOf, SlotOf: p.slotOf}
	if err := gob.NewEncoder(&buf).Encode(g); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p *ConstantPool) GobDecode(data []byte) error {
	var g struct {
		F64     []float64
		F32     []float32
		I32     []int32
		U32     []uint32
		Object  []any
		ClassOf []StorageClass
		SlotOf  []int32
	}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&g); err != nil {
		return err
	}
	p.F64, p.F32, p.I32, p.U32, p.Object = g.F64, g.F32, g.I32, g.U32, g.Object
	p.classOf, p.slotOf = g.ClassOf, g.SlotOf
	return nil
}
