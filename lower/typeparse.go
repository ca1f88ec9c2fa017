package lower

import "github.com/patchkernel/engine/typesys"

func parseWorld(s string) (typesys.World, bool) {
	switch s {
	case "signal":
		return typesys.WorldSignal, true
	case "field":
		return typesys.WorldField, true
	case "scalar":
		return typesys.WorldScalar, true
	case "event":
		return typesys.WorldEvent, true
	case "special":
		return typesys.WorldSpecial, true
	default:
		return 0, false
	}
}

func parseDomain(s string) (typesys.Domain, bool) {
	switch s {
	case "number":
		return typesys.DomainNumber, true
	case "boolean":
		return typesys.DomainBoolean, true
	case "phase01":
		return typesys.DomainPhase01, true
	case "time":
		return typesys.DomainTime, true
	case "vec2":
		return typesys.DomainVec2, true
	case "vec3":
		return typesys.DomainVec3, true
	case "color":
		return typesys.DomainColor, true
	case "domain":
		return typesys.DomainElementSet, true
	case "renderFrame":
		return typesys.DomainRenderFrame, true
	default:
		return 0, false
	}
}
