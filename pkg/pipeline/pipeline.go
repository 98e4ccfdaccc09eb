// Package pipeline provides the import pipeline shared by the CLI and the
// HTTP API.
//
// One import runs four stages:
//
//  1. Parse: read activity rows from delimited text or a workbook
//  2. Build: resolve names against the project model and build the graph
//  3. Layout: place nodes, ports and lanes on the grid
//  4. Commit: save the project model through its [session.Store]
//
// Parsing happens before the session opens, so a malformed file never
// touches the store. Build and layout run inside [session.Run]; any error
// there aborts the session and the stored model is unchanged.
//
// Rendering is separate: [Runner.Render] turns a graph into artifacts and
// caches them by content hash, and [Runner.RenderStored] does the same for
// an activity already in the store.
//
// # Usage
//
//	runner := pipeline.NewRunner(store, cache, nil, logger)
//	result, err := runner.ImportFile(ctx, "orders.csv", pipeline.Options{
//	    Project: "billing",
//	})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(result.Summary())
package pipeline

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/lanegrid/pkg/cache"
	"github.com/matzehuels/lanegrid/pkg/errors"
	"github.com/matzehuels/lanegrid/pkg/graph"
	"github.com/matzehuels/lanegrid/pkg/layout"
	"github.com/matzehuels/lanegrid/pkg/render"
	"github.com/matzehuels/lanegrid/pkg/rows"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultProject receives imports that name no project.
	DefaultProject = "default"

	// DefaultActivity names the activity when neither the options nor the
	// source name provide one.
	DefaultActivity = "Activity"

	// DefaultScale is the PNG scale factor.
	DefaultScale = 2.0
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for an import and its renders.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Import options
	Project      string   `json:"project"`
	Activity     string   `json:"activity,omitempty"`      // activity name, created when absent
	Container    []string `json:"container,omitempty"`     // package path below the root
	SourceName   string   `json:"source_name,omitempty"`   // file name, for format and activity defaults
	SourceFormat string   `json:"source_format,omitempty"` // csv, tsv or xlsx; derived from SourceName when empty
	CallBehavior []string `json:"call_behavior,omitempty"` // sub-actions created as CallBehaviorAction

	// Parse and layout constants
	Parse  rows.Options   `json:"-"`
	Layout layout.Options `json:"layout"`

	// Render options
	Formats  []render.Format `json:"formats,omitempty"`
	Detailed bool            `json:"detailed,omitempty"`
	NoPorts  bool            `json:"no_ports,omitempty"`
	Title    string          `json:"title,omitempty"`
	Scale    float64         `json:"scale,omitempty"`
	Refresh  bool            `json:"refresh,omitempty"` // bypass cached artifacts

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// ActionTypeOf overrides CallBehavior when set.
	ActionTypeOf func(name string) graph.ActionType `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of one import.
type Result struct {
	Project    string
	ActivityID string
	Version    int64 // store version after the commit

	// Graph is the imported graph, laid out.
	Graph *graph.Graph

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[render.Format][]byte

	// Stats contains counts and timings.
	Stats Stats

	// CacheInfo tracks whether the artifacts came from the cache.
	CacheInfo CacheInfo
}

// Stats contains import statistics.
type Stats struct {
	Rows  int
	Build graph.BuildStats
	Grid  layout.GridStats

	ParseTime   time.Duration
	BuildTime   time.Duration
	LayoutTime  time.Duration
	SessionTime time.Duration
	RenderTime  time.Duration
}

// CacheInfo tracks cache hits.
type CacheInfo struct {
	RenderHit bool // Whether all artifacts came from cache
}

// Summary returns the one-line outcome of an import.
func (r *Result) Summary() string {
	b := r.Stats.Build
	s := fmt.Sprintf("imported %d of %d rows into %s (%d reused, %d ports added, %d lanes)",
		b.Imported(), r.Stats.Rows, r.Project, b.Reused, b.PortsAdded, b.Lanes)
	if b.Orphans > 0 {
		s += fmt.Sprintf(", %d orphaned", b.Orphans)
	}
	return s
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for an import.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForParse(); err != nil {
		return err
	}
	if err := o.ValidateForImport(); err != nil {
		return err
	}
	if err := render.ValidateFormats(o.Formats); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForParse checks the source format and fills parse defaults.
func (o *Options) ValidateForParse() error {
	if o.SourceFormat == "" {
		if o.SourceName == "" {
			return errors.New(errors.ErrCodeInvalidInput, "source format or source name is required")
		}
		format, err := rows.FormatForPath(o.SourceName)
		if err != nil {
			return err
		}
		o.SourceFormat = format
	}
	switch o.SourceFormat = strings.ToLower(o.SourceFormat); o.SourceFormat {
	case rows.FormatCSV, rows.FormatTSV, rows.FormatXLSX:
	default:
		return errors.New(errors.ErrCodeInvalidFmt, "unknown source format %q", o.SourceFormat)
	}

	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if o.Parse.Logger == nil {
		o.Parse.Logger = o.Logger
	}
	return nil
}

// ValidateForImport checks the target names and layout constants.
func (o *Options) ValidateForImport() error {
	if o.Project == "" {
		o.Project = DefaultProject
	}
	if err := errors.ValidateProjectName(o.Project); err != nil {
		return err
	}
	if o.Activity == "" {
		o.Activity = activityFromSource(o.SourceName)
	}
	if err := errors.ValidateName(o.Activity); err != nil {
		return err
	}
	for _, name := range o.Container {
		if err := errors.ValidateName(name); err != nil {
			return err
		}
	}

	if o.Layout == (layout.Options{}) {
		o.Layout = layout.DefaultOptions()
	}
	o.Layout = o.Layout.WithDefaults()
	if err := o.Layout.Validate(); err != nil {
		return err
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []render.Format{render.FormatSVG}
	}
	if o.Scale <= 0 {
		o.Scale = DefaultScale
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	return render.ValidateFormats(o.Formats)
}

// ActionType returns the element type for a sub-action named name.
func (o *Options) ActionType(name string) graph.ActionType {
	if o.ActionTypeOf != nil {
		return o.ActionTypeOf(name)
	}
	if slices.Contains(o.CallBehavior, name) {
		return graph.CallBehaviorAction
	}
	return graph.StructuredAction
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format render.Format) cache.ArtifactKeyOpts {
	opts := cache.ArtifactKeyOpts{
		Format:   string(format),
		Detailed: o.Detailed,
		NoPorts:  o.NoPorts,
		Title:    o.Title,
	}
	if format == render.FormatPNG {
		opts.Scale = o.Scale
	}
	return opts
}

// activityFromSource derives an activity name from a file name.
func activityFromSource(source string) string {
	base := filepath.Base(source)
	name := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if source == "" || name == "" || name == "." {
		return DefaultActivity
	}
	return name
}
