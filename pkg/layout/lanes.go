package layout

import (
	"github.com/matzehuels/lanegrid/pkg/graph"
	"github.com/matzehuels/lanegrid/pkg/model"
)

// PlaceLanes gives every lane the placeholder rectangle. It runs before Grid
// so lanes without placed members still have a shape.
func PlaceLanes(g *graph.Graph, c Canvas, placeholder model.Rect) error {
	for _, l := range g.Lanes {
		if err := reshape(c, l.ID, placeholder); err != nil {
			return err
		}
		l.Rect = placeholder
	}
	return nil
}

// FitLanes sizes each lane to the bounding box of its members, read from the
// canvas, grown by padding on every side. Lanes with no placed member keep
// their current rectangle. Call it after Grid.
func FitLanes(g *graph.Graph, c Canvas, padding int) error {
	for _, l := range g.Lanes {
		var box model.Rect
		for _, n := range l.Members {
			if r, ok := c.Bounds(n.ID); ok && !r.IsZero() {
				box = box.Union(r)
			}
		}
		if box.IsZero() {
			continue
		}
		r := box.Inset(padding)
		if err := reshape(c, l.ID, r); err != nil {
			return err
		}
		l.Rect = r
	}
	return nil
}
