package layout

import (
	"github.com/matzehuels/lanegrid/pkg/errors"
	"github.com/matzehuels/lanegrid/pkg/graph"
	"github.com/matzehuels/lanegrid/pkg/model"
)

// GridStats reports what Grid did.
type GridStats struct {
	Nodes       int
	Ports       int
	Corrections int // nodes whose width the canvas changed
	Height      int // y just past the last node
}

// Grid places every node of g in one column, in g.Nodes order, and places
// each node's ports on its edges. The node and port Rect fields are updated
// along with the canvas.
func Grid(g *graph.Graph, c Canvas, opts Options) (GridStats, error) {
	var stats GridStats
	left := opts.ColumnLeft()
	y := opts.StartY

	for _, n := range g.Nodes {
		r := nodeRect(n, left, y, opts)
		if err := reshape(c, n.ID, r); err != nil {
			return stats, err
		}
		n.Rect = r
		if err := placePorts(n, c, opts); err != nil {
			return stats, err
		}

		// Read back once; a canvas that resized the node gets the intended
		// rectangle again and the ports are recomputed against it.
		if got, ok := c.Bounds(n.ID); ok && got.Width != r.Width {
			if err := reshape(c, n.ID, r); err != nil {
				return stats, err
			}
			if err := placePorts(n, c, opts); err != nil {
				return stats, err
			}
			stats.Corrections++
		}

		stats.Nodes++
		stats.Ports += len(n.Inputs) + len(n.Outputs)
		y += r.Height + opts.YStep
	}
	stats.Height = y
	return stats, nil
}

// nodeRect computes the intended rectangle of n with its top at y.
func nodeRect(n *graph.Node, left, y int, opts Options) model.Rect {
	if n.IsSentinel() {
		return model.Rect{
			X:      left + (opts.ActionWidth-opts.SentinelSize)/2,
			Y:      y,
			Width:  opts.SentinelSize,
			Height: opts.SentinelSize,
		}
	}
	x := left
	if n.Kind == graph.KindSubAction {
		x += opts.SubActionIndent
	}
	return model.Rect{X: x, Y: y, Width: opts.ActionWidth, Height: NodeHeight(n, opts)}
}

// NodeHeight returns the height of an action with h's ports.
func NodeHeight(h graph.PortHolder, opts Options) int {
	extra := max(0, graph.MaxPorts(h)-opts.PinsBeforeGrowth)
	return opts.ActionHeight + extra*opts.PinGrowth
}

// placePorts stacks inputs on the left edge and outputs on the right edge of
// n.Rect, each stack centered vertically.
func placePorts(n *graph.Node, c Canvas, opts Options) error {
	sides := []struct {
		ports []*graph.Port
		x     int
	}{
		{n.InputPorts(), n.Rect.X - opts.PinWidth/2},
		{n.OutputPorts(), n.Rect.Right() - opts.PinWidth/2},
	}
	for _, side := range sides {
		for i, r := range PortRects(len(side.ports), side.x, n.Rect, opts) {
			p := side.ports[i]
			if err := reshape(c, p.ID, r); err != nil {
				return err
			}
			p.Rect = r
		}
	}
	return nil
}

// PortRects returns count pin rectangles at x, stacked with PinSpacing and
// centered on owner's vertical middle.
func PortRects(count, x int, owner model.Rect, opts Options) []model.Rect {
	if count == 0 {
		return nil
	}
	total := count*opts.PinHeight + (count-1)*opts.PinSpacing
	y := owner.Y + (owner.Height-total)/2
	out := make([]model.Rect, count)
	for i := range out {
		out[i] = model.Rect{X: x, Y: y, Width: opts.PinWidth, Height: opts.PinHeight}
		y += opts.PinHeight + opts.PinSpacing
	}
	return out
}

func reshape(c Canvas, id string, r model.Rect) error {
	if err := c.Reshape(id, r); err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "reshape %s", id)
	}
	return nil
}
