// Package layout places graph nodes, ports and lanes on a fixed grid.
//
// The grid is a single vertical column. Nodes are visited in graph order and
// stacked top to bottom; each node's height depends on how many ports it has.
// Ports straddle the left (inputs) and right (outputs) edge of their owner.
// Lanes are sized afterwards to enclose their members.
//
// Layout is deterministic: the same graph and [Options] always produce the
// same rectangles. There is no optimization pass.
//
// # Canvas
//
// Rectangles are written through a [Canvas], usually the [model.Model] the
// graph was built in. A canvas may adjust shapes as they are written (a
// renderer snapping widths, for example). [Grid] reads every node back once
// after placing its ports and, if the width was changed, forces the intended
// rectangle and places the ports again. It does not loop.
//
// # Usage
//
//	opts := layout.DefaultOptions()
//	if err := layout.Apply(g, m, opts); err != nil {
//	    return err
//	}
package layout

import (
	"github.com/matzehuels/lanegrid/pkg/errors"
	"github.com/matzehuels/lanegrid/pkg/graph"
	"github.com/matzehuels/lanegrid/pkg/model"
)

// Canvas stores shape rectangles by element ID.
type Canvas interface {
	Reshape(id string, r model.Rect) error
	Bounds(id string) (model.Rect, bool)
}

var _ Canvas = (*model.Model)(nil)

// =============================================================================
// Options
// =============================================================================

// Default grid constants.
const (
	DefaultCanvasWidth      = 1200
	DefaultStartY           = 100
	DefaultYStep            = 70
	DefaultActionWidth      = 200
	DefaultActionHeight     = 80
	DefaultSentinelSize     = 20
	DefaultPinWidth         = 20
	DefaultPinHeight        = 20
	DefaultPinSpacing       = 5
	DefaultPinsBeforeGrowth = 3
	DefaultPinGrowth        = 25
	DefaultSubActionIndent  = 40
	DefaultLanePadding      = 40
)

// DefaultLanePlaceholder is the rectangle lanes get before fitting.
var DefaultLanePlaceholder = model.Rect{X: 150, Y: 70, Width: 450, Height: 300}

// Options holds every layout constant. [Options.WithDefaults] fills in the
// shape sizes left at zero. Offsets, steps, spacing, growth and padding keep
// an explicit zero.
type Options struct {
	CanvasWidth      int        `json:"canvas_width" toml:"canvas_width" yaml:"canvas_width"`
	ColumnX          int        `json:"column_x" toml:"column_x" yaml:"column_x"`
	StartY           int        `json:"start_y" toml:"start_y" yaml:"start_y"`
	YStep            int        `json:"y_step" toml:"y_step" yaml:"y_step"`
	ActionWidth      int        `json:"action_width" toml:"action_width" yaml:"action_width"`
	ActionHeight     int        `json:"action_height" toml:"action_height" yaml:"action_height"`
	SentinelSize     int        `json:"sentinel_size" toml:"sentinel_size" yaml:"sentinel_size"`
	PinWidth         int        `json:"pin_width" toml:"pin_width" yaml:"pin_width"`
	PinHeight        int        `json:"pin_height" toml:"pin_height" yaml:"pin_height"`
	PinSpacing       int        `json:"pin_spacing" toml:"pin_spacing" yaml:"pin_spacing"`
	PinsBeforeGrowth int        `json:"pins_before_growth" toml:"pins_before_growth" yaml:"pins_before_growth"`
	PinGrowth        int        `json:"pin_growth" toml:"pin_growth" yaml:"pin_growth"`
	SubActionIndent  int        `json:"sub_action_indent" toml:"sub_action_indent" yaml:"sub_action_indent"`
	LanePadding      int        `json:"lane_padding" toml:"lane_padding" yaml:"lane_padding"`
	LanePlaceholder  model.Rect `json:"lane_placeholder" toml:"-" yaml:"-"`
}

// DefaultOptions returns the standard grid.
func DefaultOptions() Options {
	return Options{
		CanvasWidth:      DefaultCanvasWidth,
		StartY:           DefaultStartY,
		YStep:            DefaultYStep,
		ActionWidth:      DefaultActionWidth,
		ActionHeight:     DefaultActionHeight,
		SentinelSize:     DefaultSentinelSize,
		PinWidth:         DefaultPinWidth,
		PinHeight:        DefaultPinHeight,
		PinSpacing:       DefaultPinSpacing,
		PinsBeforeGrowth: DefaultPinsBeforeGrowth,
		PinGrowth:        DefaultPinGrowth,
		SubActionIndent:  DefaultSubActionIndent,
		LanePadding:      DefaultLanePadding,
		LanePlaceholder:  DefaultLanePlaceholder,
	}
}

// WithDefaults returns o with unset sizes filled in. The zero Options
// yields [DefaultOptions].
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o == (Options{}) {
		return d
	}
	fill := func(v *int, def int) {
		if *v == 0 {
			*v = def
		}
	}
	fill(&o.CanvasWidth, d.CanvasWidth)
	fill(&o.ActionWidth, d.ActionWidth)
	fill(&o.ActionHeight, d.ActionHeight)
	fill(&o.SentinelSize, d.SentinelSize)
	fill(&o.PinWidth, d.PinWidth)
	fill(&o.PinHeight, d.PinHeight)
	if o.LanePlaceholder.IsZero() {
		o.LanePlaceholder = d.LanePlaceholder
	}
	return o
}

// Validate reports options that cannot produce a layout.
func (o Options) Validate() error {
	fields := []struct {
		name string
		v    int
	}{
		{"canvas_width", o.CanvasWidth},
		{"start_y", o.StartY},
		{"y_step", o.YStep},
		{"action_width", o.ActionWidth},
		{"action_height", o.ActionHeight},
		{"sentinel_size", o.SentinelSize},
		{"pin_width", o.PinWidth},
		{"pin_height", o.PinHeight},
		{"pin_spacing", o.PinSpacing},
		{"pins_before_growth", o.PinsBeforeGrowth},
		{"pin_growth", o.PinGrowth},
		{"sub_action_indent", o.SubActionIndent},
		{"lane_padding", o.LanePadding},
	}
	for _, f := range fields {
		if f.v < 0 {
			return errors.New(errors.ErrCodeInvalidInput, "%s cannot be negative, got %d", f.name, f.v)
		}
	}
	if o.ActionWidth > o.CanvasWidth {
		return errors.New(errors.ErrCodeInvalidInput, "action width %d exceeds canvas width %d", o.ActionWidth, o.CanvasWidth)
	}
	if o.SentinelSize > o.ActionWidth {
		return errors.New(errors.ErrCodeInvalidInput, "sentinel size %d exceeds action width %d", o.SentinelSize, o.ActionWidth)
	}
	return nil
}

// ColumnLeft returns the x coordinate of the column's left edge.
func (o Options) ColumnLeft() int {
	return o.ColumnX + (o.CanvasWidth-o.ActionWidth)/2
}

// Apply runs the full layout: lane placeholders, the grid, then lane fitting.
func Apply(g *graph.Graph, c Canvas, opts Options) error {
	_, err := ApplyWithStats(g, c, opts)
	return err
}

// ApplyWithStats is Apply that also returns what the grid pass did.
func ApplyWithStats(g *graph.Graph, c Canvas, opts Options) (GridStats, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return GridStats{}, err
	}
	if err := PlaceLanes(g, c, opts.LanePlaceholder); err != nil {
		return GridStats{}, err
	}
	stats, err := Grid(g, c, opts)
	if err != nil {
		return stats, err
	}
	return stats, FitLanes(g, c, opts.LanePadding)
}
