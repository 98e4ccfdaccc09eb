// Package sink writes laid-out activity graphs as SVG.
//
// The SVG uses the rectangles stored on the graph by the layout package and
// does not move anything: what the model store holds is what gets drawn.
// Lanes are drawn first, then flows, then nodes and their ports.
//
//	svg := sink.RenderSVG(g, sink.WithTitle("Orders"), sink.WithTooltips())
//
// A graph that has not been laid out renders as an empty canvas.
package sink
