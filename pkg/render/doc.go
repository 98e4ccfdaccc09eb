// Package render turns laid-out activity graphs into artifacts.
//
// # Overview
//
// Three renderers are available:
//
//   - [sink]: a native SVG that draws lanes, nodes, ports and flows exactly at
//     the rectangles computed by the layout package
//   - [nodelink]: Graphviz DOT export and in-process Graphviz SVG rendering,
//     useful when a graph has not been laid out or when Graphviz placement is
//     preferred
//   - [ToPDF] and [ToPNG]: conversion of any SVG via rsvg-convert
//
// [Format] names the output formats understood by the CLI and the HTTP API.
//
//	svg := sink.RenderSVG(g, sink.WithTitle(g.Name))
//	pdf, err := render.ToPDF(ctx, svg)
//
// [sink]: github.com/matzehuels/lanegrid/pkg/render/sink
// [nodelink]: github.com/matzehuels/lanegrid/pkg/render/nodelink
package render
