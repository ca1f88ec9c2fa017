package dindex

import (
	"github.com/emicklei/dot"
)

// GraphEdge is one dependency edge an exporter wants rendered — typically
// a schedule-step or signal/field-expr dependency discovered during
// lowering or execution tracing.
type GraphEdge struct {
	FromKind, ToKind Kind
	From, To         Index
	Label            string
}

// ExportDOT renders the debug index's provenance plus a caller-supplied
// edge list as a Graphviz DOT graph, for external tooling (the node-graph
// editor's inspector, or a CLI `dot` command) to visualize a compiled
// program's dependency structure. This is purely a debug-index consumer:
// it never touches CompiledProgram execution state (spec §6).
func (d *DebugIndex) ExportDOT(edges []GraphEdge) string {
	g := dot.NewGraph(dot.Directed)
	g.Attr("rankdir", "LR")

	nodeID := func(kind Kind, idx Index) string {
		name, ok := d.Interner(kind).Name(idx)
		if !ok {
			name = "?"
		}
		return string(kind) + "_" + name
	}

	seen := make(map[string]dot.Node)
	nodeFor := func(kind Kind, idx Index) dot.Node {
		id := nodeID(kind, idx)
		if n, ok := seen[id]; ok {
			return n
		}
		name, _ := d.Interner(kind).Name(idx)
		n := g.Node(id).Label(name).Attr("shape", "box")
		seen[id] = n
		return n
	}

	for _, e := range edges {
		from := nodeFor(e.FromKind, e.From)
		to := nodeFor(e.ToKind, e.To)
		edge := g.Edge(from, to)
		if e.Label != "" {
			edge.Label(e.Label)
		}
	}
	return g.String()
}
