package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/lanegrid/pkg/errors"
	"github.com/matzehuels/lanegrid/pkg/graph"
)

// Options configures DOT generation.
type Options struct {
	// Detailed lists port names under the node name.
	Detailed bool
	// Documentation appends the first documentation line to action labels.
	Documentation bool
}

// ToDOT converts g to Graphviz DOT. Lanes are emitted as clusters in lane
// order; nodes outside every lane (sub-actions) follow at the top level.
func ToDOT(g *graph.Graph, opts Options) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %q {\n", g.Name)
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  compound=true;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")

	placed := make(map[*graph.Node]bool)
	for i, l := range g.Lanes {
		fmt.Fprintf(&buf, "\n  subgraph \"cluster_%d\" {\n", i)
		fmt.Fprintf(&buf, "    label=%q;\n", l.Key)
		buf.WriteString("    style=\"rounded,dashed\";\n")
		buf.WriteString("    color=grey50;\n")
		for _, n := range l.Members {
			writeNode(&buf, "    ", n, opts)
			placed[n] = true
		}
		buf.WriteString("  }\n")
	}

	buf.WriteString("\n")
	for _, n := range g.Nodes {
		if !placed[n] {
			writeNode(&buf, "  ", n, opts)
		}
	}

	buf.WriteString("\n")
	for _, e := range g.Edges {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.Source.ID, e.Target.ID)
	}
	for _, n := range g.SubActions() {
		if n.Parent != nil {
			fmt.Fprintf(&buf, "  %q -> %q [style=dashed, arrowhead=none, color=grey50];\n", n.Parent.ID, n.ID)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func writeNode(buf *bytes.Buffer, indent string, n *graph.Node, opts Options) {
	fmt.Fprintf(buf, "%s%q [%s];\n", indent, n.ID, strings.Join(fmtAttrs(n, fmtLabel(n, opts)), ", "))
}

func fmtLabel(n *graph.Node, opts Options) string {
	if n.IsSentinel() {
		return ""
	}
	lines := []string{n.Name}
	if opts.Detailed {
		if names := portNames(n.Inputs); names != "" {
			lines = append(lines, "in: "+names)
		}
		if names := portNames(n.Outputs); names != "" {
			lines = append(lines, "out: "+names)
		}
	}
	if opts.Documentation && n.Documentation != "" {
		first, _, _ := strings.Cut(n.Documentation, "\n")
		lines = append(lines, first)
	}
	return strings.Join(lines, "\n")
}

func portNames(ports []*graph.Port) string {
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = p.Name
	}
	return strings.Join(names, ", ")
}

func fmtAttrs(n *graph.Node, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case n.Kind == graph.KindStart:
		attrs = append(attrs, "shape=circle", "style=filled", "fillcolor=black", "width=0.3", "fixedsize=true")
	case n.Kind == graph.KindEnd:
		attrs = append(attrs, "shape=doublecircle", "style=filled", "fillcolor=black", "width=0.25", "fixedsize=true")
	case n.Type == graph.CallBehaviorAction:
		attrs = append(attrs, "peripheries=2")
	}
	if n.Kind == graph.KindSubAction {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=whitesmoke")
	}
	return attrs
}

// RenderSVG runs Graphviz on dot and returns the SVG with its viewBox moved
// to the origin.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render")
	}
	return normalizeViewBox(buf.Bytes()), nil
}

// RenderGraph is ToDOT followed by RenderSVG.
func RenderGraph(ctx context.Context, g *graph.Graph, opts Options) ([]byte, error) {
	return RenderSVG(ctx, ToDOT(g, opts))
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	m := viewBoxRe.FindSubmatch(svg)
	if m == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(m[3]), 64)
	h, _ := strconv.ParseFloat(string(m[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
