package sink

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/matzehuels/lanegrid/pkg/graph"
	"github.com/matzehuels/lanegrid/pkg/model"
)

const (
	defaultMargin = 20
	labelFontSize = 14
	portFontSize  = 10
	laneFontSize  = 13
	charWidth     = 0.55 // average glyph width relative to font size
	titleHeight   = 30
)

const defs = `  <defs>
    <marker id="arrow" viewBox="0 0 10 10" refX="10" refY="5" markerWidth="8" markerHeight="8" orient="auto-start-reverse">
      <path d="M 0 0 L 10 5 L 0 10 z" fill="#333"/>
    </marker>
  </defs>
  <style>
    .lane { fill: #f6f7f9; stroke: #9aa0a6; stroke-dasharray: 6 4; }
    .lane-label { font: 600 13px sans-serif; fill: #5f6368; }
    .action { fill: #fff; stroke: #333; stroke-width: 1.5; }
    .action.sub { fill: #fafafa; stroke-dasharray: 5 3; }
    .action-label { font: 14px sans-serif; fill: #202124; }
    .pin { fill: #fff; stroke: #333; }
    .pin-label { font: 10px sans-serif; fill: #5f6368; }
    .flow { stroke: #333; stroke-width: 1.5; fill: none; }
    .owns { stroke: #9aa0a6; stroke-dasharray: 4 3; fill: none; }
  </style>
`

// SVGOption configures RenderSVG.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	title    string
	margin   int
	ports    bool
	tooltips bool
}

// WithTitle draws a title above the diagram.
func WithTitle(s string) SVGOption { return func(r *svgRenderer) { r.title = s } }

// WithMargin sets the blank border around the drawing.
func WithMargin(px int) SVGOption { return func(r *svgRenderer) { r.margin = max(0, px) } }

// WithoutPorts omits pins and their labels.
func WithoutPorts() SVGOption { return func(r *svgRenderer) { r.ports = false } }

// WithTooltips attaches each action's documentation as an SVG title.
func WithTooltips() SVGOption { return func(r *svgRenderer) { r.tooltips = true } }

// RenderSVG draws g at its layout rectangles.
func RenderSVG(g *graph.Graph, opts ...SVGOption) []byte {
	r := svgRenderer{margin: defaultMargin, ports: true}
	for _, opt := range opts {
		opt(&r)
	}

	box := bounds(g, r.ports)
	top := 0
	if r.title != "" {
		top = titleHeight
	}
	x0, y0 := box.X-r.margin, box.Y-r.margin-top
	w, h := box.Width+2*r.margin, box.Height+2*r.margin+top

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%d %d %d %d" width="%d" height="%d">`+"\n",
		x0, y0, w, h, w, h)
	buf.WriteString(defs)

	if r.title != "" {
		fmt.Fprintf(&buf, `  <text class="title" x="%d" y="%d" font-family="sans-serif" font-size="18" font-weight="bold">%s</text>`+"\n",
			x0+r.margin, y0+r.margin+18, escapeXML(r.title))
	}

	for _, l := range g.Lanes {
		renderLane(&buf, l)
	}
	for _, e := range g.Edges {
		renderFlow(&buf, e)
	}
	for _, n := range g.SubActions() {
		renderOwnership(&buf, n)
	}
	for _, n := range g.Nodes {
		renderNode(&buf, n, r)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

// bounds is the union of every placed rectangle.
func bounds(g *graph.Graph, ports bool) model.Rect {
	var box model.Rect
	for _, l := range g.Lanes {
		box = box.Union(l.Rect)
	}
	for _, n := range g.Nodes {
		box = box.Union(n.Rect)
		if !ports {
			continue
		}
		for _, p := range n.Inputs {
			box = box.Union(p.Rect)
		}
		for _, p := range n.Outputs {
			box = box.Union(p.Rect)
		}
	}
	return box
}

func renderLane(buf *bytes.Buffer, l *graph.Lane) {
	if l.Rect.IsZero() {
		return
	}
	fmt.Fprintf(buf, `  <g id="lane-%s">`+"\n", l.ID)
	fmt.Fprintf(buf, `    <rect class="lane" x="%d" y="%d" width="%d" height="%d" rx="6"/>`+"\n",
		l.Rect.X, l.Rect.Y, l.Rect.Width, l.Rect.Height)
	fmt.Fprintf(buf, `    <text class="lane-label" x="%d" y="%d">%s</text>`+"\n",
		l.Rect.X+8, l.Rect.Y+laneFontSize+6, escapeXML(truncate(l.Key, l.Rect.Width-16, laneFontSize)))
	buf.WriteString("  </g>\n")
}

func renderFlow(buf *bytes.Buffer, e *graph.Edge) {
	s, t := e.Source.Rect, e.Target.Rect
	if s.IsZero() || t.IsZero() {
		return
	}
	x1, y1 := s.X+s.Width/2, s.Bottom()
	x2, y2 := t.X+t.Width/2, t.Y
	fmt.Fprintf(buf, `  <path class="flow" d="M %d %d L %d %d" marker-end="url(#arrow)"/>`+"\n", x1, y1, x2, y2)
}

func renderOwnership(buf *bytes.Buffer, n *graph.Node) {
	if n.Parent == nil || n.Rect.IsZero() || n.Parent.Rect.IsZero() {
		return
	}
	p := n.Parent.Rect
	x := p.X + (n.Rect.X-p.X)/2
	fmt.Fprintf(buf, `  <path class="owns" d="M %d %d L %d %d L %d %d"/>`+"\n",
		x, p.Bottom(), x, n.Rect.Y+n.Rect.Height/2, n.Rect.X, n.Rect.Y+n.Rect.Height/2)
}

func renderNode(buf *bytes.Buffer, n *graph.Node, r svgRenderer) {
	if n.Rect.IsZero() {
		return
	}
	rc := n.Rect
	cx, cy := rc.X+rc.Width/2, rc.Y+rc.Height/2

	switch n.Kind {
	case graph.KindStart:
		fmt.Fprintf(buf, `  <circle id="node-%s" cx="%d" cy="%d" r="%d" fill="#202124"/>`+"\n", n.ID, cx, cy, rc.Width/2)
		return
	case graph.KindEnd:
		fmt.Fprintf(buf, `  <g id="node-%s">`+"\n", n.ID)
		fmt.Fprintf(buf, `    <circle cx="%d" cy="%d" r="%d" fill="#fff" stroke="#202124" stroke-width="1.5"/>`+"\n", cx, cy, rc.Width/2)
		fmt.Fprintf(buf, `    <circle cx="%d" cy="%d" r="%d" fill="#202124"/>`+"\n", cx, cy, max(1, rc.Width/2-4))
		buf.WriteString("  </g>\n")
		return
	}

	class := "action"
	if n.Kind == graph.KindSubAction {
		class += " sub"
	}
	fmt.Fprintf(buf, `  <g id="node-%s">`+"\n", n.ID)
	if r.tooltips && n.Documentation != "" {
		fmt.Fprintf(buf, "    <title>%s</title>\n", escapeXML(n.Documentation))
	}
	fmt.Fprintf(buf, `    <rect class="%s" x="%d" y="%d" width="%d" height="%d" rx="10"/>`+"\n",
		class, rc.X, rc.Y, rc.Width, rc.Height)
	if n.Type == graph.CallBehaviorAction {
		renderRake(buf, rc)
	}
	fmt.Fprintf(buf, `    <text class="action-label" x="%d" y="%d" text-anchor="middle" dominant-baseline="middle">%s</text>`+"\n",
		cx, cy, escapeXML(truncate(n.Name, rc.Width-30, labelFontSize)))
	buf.WriteString("  </g>\n")

	if r.ports {
		for _, p := range n.Inputs {
			renderPort(buf, p, "end", p.Rect.X-3)
		}
		for _, p := range n.Outputs {
			renderPort(buf, p, "start", p.Rect.Right()+3)
		}
	}
}

// renderRake draws the call-behavior marker in the lower right corner.
func renderRake(buf *bytes.Buffer, rc model.Rect) {
	x, y := rc.Right()-18, rc.Bottom()-16
	fmt.Fprintf(buf, `    <path d="M %d %d L %d %d M %d %d L %d %d L %d %d M %d %d L %d %d" stroke="#333" fill="none"/>`+"\n",
		x+5, y, x+5, y+10, x, y+10, x, y+5, x+10, y+5, x+10, y+5, x+10, y+10)
}

func renderPort(buf *bytes.Buffer, p *graph.Port, anchor string, textX int) {
	if p.Rect.IsZero() {
		return
	}
	fmt.Fprintf(buf, `  <rect id="pin-%s" class="pin" x="%d" y="%d" width="%d" height="%d"/>`+"\n",
		p.ID, p.Rect.X, p.Rect.Y, p.Rect.Width, p.Rect.Height)
	fmt.Fprintf(buf, `  <text class="pin-label" x="%d" y="%d" text-anchor="%s" dominant-baseline="middle">%s</text>`+"\n",
		textX, p.Rect.Y+p.Rect.Height/2, anchor, escapeXML(p.Name))
}

// truncate shortens s so that it fits in width pixels at the given font size.
func truncate(s string, width, fontSize int) string {
	maxChars := max(3, int(float64(width)/(float64(fontSize)*charWidth)))
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars-2]) + ".."
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
