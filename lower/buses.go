package lower

import (
	"sort"

	"github.com/patchkernel/engine/diag"
	"github.com/patchkernel/engine/ir"
	"github.com/patchkernel/engine/patch"
	"github.com/patchkernel/engine/typesys"
)

// reservedBusInfo is one entry of the fixed reserved-bus table (spec
// §4.7): name, locked type, and fixed combine mode. Reserved buses always
// exist, whether or not the patch declares them.
type reservedBusInfo struct {
	world   typesys.World
	domain  typesys.Domain
	combine string
}

var reservedBuses = map[patch.BusName]reservedBusInfo{
	"time":    {typesys.WorldSignal, typesys.DomainTime, "last"},
	"phaseA":  {typesys.WorldSignal, typesys.DomainPhase01, "last"},
	"phaseB":  {typesys.WorldSignal, typesys.DomainPhase01, "last"},
	"pulse":   {typesys.WorldEvent, typesys.DomainBoolean, "last"},
	"energy":  {typesys.WorldSignal, typesys.DomainNumber, "sum"},
	"palette": {typesys.WorldSignal, typesys.DomainColor, "last"},
}

func isReservedBus(name patch.BusName) bool {
	_, ok := reservedBuses[name]
	return ok
}

// setupBuses registers every reserved bus plus every user-declared bus,
// and allocates each one a placeholder combine node up front (before any
// block lowers) so a listening block's input can reference the combine
// node's id immediately — pass 7 fills in the node's actual publisher
// list and combine opcode once every block has lowered. The placeholder
// is a SigBusCombine for a signal- or event-world bus, or a
// FieldBusCombine for a field-world one (spec §4.7; patch.BusDecl.World
// makes a field-typed bus a legal authoring choice).
func (c *ctx) setupBuses() {
	for name, info := range reservedBuses {
		c.busDecl[name] = patch.BusDecl{Name: name, Combine: info.combine, World: info.world.String(), Domain: info.domain.String()}
	}

	for _, bd := range c.p.Buses {
		if isReservedBus(bd.Name) {
			c.diags.Add(diag.Errorf(diag.CodeReservedBusMisuse, diag.Where{BusID: string(bd.Name)},
				"bus %q is reserved and cannot be redeclared", bd.Name))
			continue
		}
		c.busDecl[bd.Name] = bd
	}

	names := make([]patch.BusName, 0, len(c.busDecl))
	for name := range c.busDecl {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	for _, name := range names {
		bd := c.busDecl[name]
		world, ok := parseWorld(bd.World)
		if !ok {
			world = typesys.WorldSignal
		}
		dom, ok := parseDomain(bd.Domain)
		if !ok {
			dom = typesys.DomainNumber
		}
		ty := typesys.TypeDesc{World: world, Dom: dom, BusEligible: true}

		busIdx := ir.BusIndex(c.bus.Intern(string(name)))
		c.busIndexOf[name] = busIdx
		c.busType[name] = ty
		switch world {
		case typesys.WorldField:
			c.busField[name] = c.b.EmitField(ir.FieldExprIR{Kind: ir.FieldBusCombine, Bus: busIdx, Type: ty})
		default:
			c.busSig[name] = c.b.EmitSignal(ir.SignalExprIR{Kind: ir.SigBusCombine, Bus: busIdx, Type: ty})
		}

		c.fp.BusConfiguration = append(c.fp.BusConfiguration, string(name)+":"+bd.Combine)
	}
}
