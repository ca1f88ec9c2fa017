package lower

import (
	"fmt"

	"github.com/patchkernel/engine/diag"
	"github.com/patchkernel/engine/patch"
	"github.com/patchkernel/engine/typesys"
)

// passTypeGraph is pass 2: resolve every declared port's TypeDesc from
// the registry, then check every wire for world/domain compatibility,
// recognizing an explicit converter where one is named on the wire's
// transform chain (spec §4.6).
func (c *ctx) passTypeGraph() {
	for _, id := range c.orderedBlocks {
		blk := c.p.Blocks[id]
		desc, ok := c.reg.Lookup(blk.Type)
		if !ok {
			continue // already diagnosed in pass 1
		}
		for _, port := range append(append([]patch.PortDecl(nil), desc.Inputs...), desc.Outputs...) {
			world, ok := parseWorld(port.World)
			if !ok {
				c.diags.Add(diag.Errorf(diag.CodeTypeMismatch, diag.Where{BlockID: string(id)}, "port %s: unknown world %q", port.Name, port.World))
				continue
			}
			dom, ok := parseDomain(port.Domain)
			if !ok {
				c.diags.Add(diag.Errorf(diag.CodeTypeMismatch, diag.Where{BlockID: string(id)}, "port %s: unknown domain %q", port.Name, port.Domain))
				continue
			}
			td := typesys.TypeDesc{World: world, Dom: dom, Cat: typesys.CategoryCore, BusEligible: typesys.CombineLegalNumeric(dom)}
			c.portType[portKey{Block: id, Port: patch.PortID(port.Name)}] = td
		}
	}

	for _, w := range c.p.Wires {
		if w.Source.IsBus() || w.Target.IsBus() {
			// Bus endpoints are checked against the bus's declared (or
			// defaulted) type in pass 7 (bus lowering), not here.
			continue
		}
		srcType, srcOK := c.portType[portKey{Block: w.Source.Block, Port: w.Source.Port}]
		dstType, dstOK := c.portType[portKey{Block: w.Target.Block, Port: w.Target.Port}]
		if !srcOK || !dstOK {
			continue // unresolved endpoint already diagnosed elsewhere
		}

		c.fp.Wiring = append(c.fp.Wiring, fmt.Sprintf("%s.%s->%s.%s", w.Source.Block, w.Source.Port, w.Target.Block, w.Target.Port))

		if typesys.Compatible(srcType, dstType) {
			continue
		}
		if chainNamesConverter(w.Chain, srcType, dstType) {
			continue
		}
		if srcType.World != dstType.World {
			c.diags.Add(diag.Errorf(diag.CodeWorldMismatch, diag.Where{BlockID: string(w.Target.Block), SlotID: string(w.Target.Port)},
				"wire %s.%s (%s) -> %s.%s (%s): no explicit converter", w.Source.Block, w.Source.Port, srcType, w.Target.Block, w.Target.Port, dstType))
		} else {
			c.diags.Add(diag.Errorf(diag.CodeTypeMismatch, diag.Where{BlockID: string(w.Target.Block), SlotID: string(w.Target.Port)},
				"wire %s.%s (%s) -> %s.%s (%s): domain mismatch", w.Source.Block, w.Source.Port, srcType, w.Target.Block, w.Target.Port, dstType))
		}
	}
}

// chainNamesConverter reports whether the wire's transform chain names
// one of the fixed cross-world converters matching src->dst (spec §4.6).
func chainNamesConverter(chain []patch.TransformStep, src, dst typesys.TypeDesc) bool {
	for _, step := range chain {
		if !step.Enabled {
			continue
		}
		conv, ok := typesys.ConverterNamed(step.ID)
		if !ok {
			continue
		}
		if conv.From.StructurallyEqual(src) && conv.To.StructurallyEqual(dst) {
			return true
		}
	}
	return false
}
