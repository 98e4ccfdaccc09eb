// Package graph builds the process graph of an import.
//
// A [Graph] is a strictly sequential flow: a Start sentinel, every top-level
// row in input order, and an End sentinel, linked by one [Edge] per step.
// Top-level nodes are grouped into [Lane] values by actor. Sub-action rows do
// not take part in the flow; they become children of their parent node.
//
// # Building
//
// [Builder.Build] writes into a caller-owned [model.Model] while it builds:
// every node, pin, partition and control flow it returns exists in the model
// under the target activity. Names are resolved through a
// [registry.Registry], so importing the same rows twice reuses the actions
// created the first time instead of duplicating them.
//
//	b := &graph.Builder{Model: m}
//	g, err := b.Build(activityID, rows)
//	if err != nil {
//	    // abort the surrounding session
//	}
//	fmt.Println(g.Stats().Reused)
//
// # Kinds
//
//	graph.KindStart      // initial sentinel
//	graph.KindEnd        // final sentinel
//	graph.KindAction     // top-level row, always a StructuredAction
//	graph.KindSubAction  // child row, StructuredAction or CallBehaviorAction
//
// Code that only cares about ports should go through [PortHolder] rather than
// switching on the kind.
//
// # Serialization
//
// [Export] turns a graph into a [Document], the JSON/BSON form used by the
// API, the CLI's json output and the artifact cache. [FromModel] rebuilds a
// Graph from a stored activity so it can be laid out or rendered again.
//
// # Concurrency
//
// Graphs are not safe for concurrent mutation.
package graph
