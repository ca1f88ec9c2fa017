package lower

import (
	"sort"

	"github.com/patchkernel/engine/bus"
	"github.com/patchkernel/engine/diag"
	"github.com/patchkernel/engine/ir"
	"github.com/patchkernel/engine/patch"
	"github.com/patchkernel/engine/typesys"
)

// passBusLowering is pass 7: for every bus, sort its collected publishers
// by (sortKey, stable-hash) (spec §3 invariant 4), validate the combine
// mode against the bus's type, and patch the placeholder combine node
// setupBuses allocated (SigBusCombine or FieldBusCombine, depending on
// the bus's World) with the final ordered publisher list and combine
// opcode (spec §4.7 "Bus lowering").
func (c *ctx) passBusLowering() {
	names := make([]patch.BusName, 0, len(c.busDecl))
	for name := range c.busDecl {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	for _, name := range names {
		c.lowerOneBus(name)
	}
}

func (c *ctx) lowerOneBus(name patch.BusName) {
	bd := c.busDecl[name]
	ty := c.busType[name]
	combineOp := ir.Opcode(bd.Combine)
	if bd.Combine == "" {
		combineOp = ir.OpCombineLast
	}

	if !ir.IsCombineMode(combineOp) {
		c.diags.Add(diag.Errorf(diag.CodeBusCombineInvalid, diag.Where{BusID: string(name)}, "unknown combine mode %q", bd.Combine))
		return
	}
	if ir.CombineRequiresNumeric(combineOp) && !typesys.CombineLegalNumeric(ty.Dom) {
		c.diags.Add(diag.Errorf(diag.CodeBusUnsupportedIRType, diag.Where{BusID: string(name)},
			"combine mode %q is not defined for domain %s", bd.Combine, ty.Dom))
		return
	}

	set := bus.NewPublisherSet()
	for _, p := range c.busPublishers[name] {
		set.Add(bus.Publisher{BlockID: string(p.block), SortKey: p.sortKey, StableHash: StableHashString(p.block), Ref: p})
	}
	pubs := make([]publisher, 0, set.Len())
	for _, ordered := range set.Ordered() {
		pubs = append(pubs, ordered.Ref.(publisher))
	}

	if len(pubs) == 0 {
		if isReservedBus(name) {
			// time and phaseA get a synthetic publisher in pass 3; any
			// other reserved bus left without publishers here simply has
			// no block publishing it, which is normal and not a warning.
			return
		}
		c.diags.Add(diag.Warnf(diag.CodeEmptyBusNoDefault, diag.Where{BusID: string(name)}, "bus %q has no publishers", name))
		return
	}

	validated := pubs[:0:0]
	for _, p := range pubs {
		if p.value.Type.World != ty.World || p.value.Type.Dom != ty.Dom {
			if isReservedBus(name) {
				c.diags.Add(diag.Errorf(diag.CodeReservedBusMisuse, diag.Where{BlockID: string(p.block), BusID: string(name)},
					"publisher type %s does not match reserved bus %q's locked type %s", p.value.Type, name, ty))
				continue
			}
			c.diags.Add(diag.Errorf(diag.CodeTypeMismatch, diag.Where{BlockID: string(p.block), BusID: string(name)},
				"publisher type %s does not match bus %q's type %s", p.value.Type, name, ty))
			continue
		}
		validated = append(validated, p)
	}

	switch ty.World {
	case typesys.WorldField:
		var inputs []ir.FieldExprID
		for _, p := range validated {
			if p.value.FieldExpr == ir.InvalidFieldExprID {
				continue
			}
			inputs = append(inputs, p.value.FieldExpr)
		}

		node := c.b.FieldAt(c.busField[name])
		node.Op = combineOp
		node.Inputs = inputs

		// A field-world bus stays a lazy recipe: it has no frame-eager
		// evaluation of its own, so there is no single buffer slot to
		// publish as its BusRoot — every listening block's own
		// StepMaterialize walks through this node with that block's
		// domain instead (spec §4.3, §4.7).

	default:
		var inputs []ir.SigExprID
		for _, p := range validated {
			if p.value.SigExpr == ir.InvalidSigExprID {
				continue
			}
			inputs = append(inputs, p.value.SigExpr)
		}

		node := c.b.SignalAt(c.busSig[name])
		node.Op = combineOp
		node.Inputs = inputs

		slot := c.b.NewSlot(ir.SlotMeta{Storage: ir.StorageF64, Type: ty, DebugName: "bus." + string(name)})
		c.b.AppendStep(ir.StepIR{Kind: ir.StepSignalEval, Sig: c.busSig[name], OutSlot: slot})
		c.b.RegisterBusRoot(ir.BusRoot{Bus: c.busIndexOf[name], Ref: ir.ValueRef{Slot: slot}})
	}
}
