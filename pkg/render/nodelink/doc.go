// Package nodelink renders activity graphs as Graphviz node-link diagrams.
//
// # Overview
//
// Where the [sink] package draws a graph at the rectangles the layout engine
// computed, this package hands placement to Graphviz. Lanes become clusters,
// the sequential flow becomes solid arrows and each sub-action hangs off its
// parent with a dashed line.
//
// # Usage
//
//	dot := nodelink.ToDOT(g, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// The DOT text can also be saved and processed with external Graphviz tools.
//
// # Options
//
//   - Detailed: labels list the node's input and output ports
//   - Documentation: labels include the first line of the documentation
//
// # Dependencies
//
// Rendering uses [github.com/goccy/go-graphviz], which runs Graphviz in
// process. PDF and PNG conversion goes through [render.ToPDF] and
// [render.ToPNG].
//
// [sink]: github.com/matzehuels/lanegrid/pkg/render/sink
// [render.ToPDF]: github.com/matzehuels/lanegrid/pkg/render.ToPDF
// [render.ToPNG]: github.com/matzehuels/lanegrid/pkg/render.ToPNG
package nodelink
