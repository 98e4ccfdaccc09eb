package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/matzehuels/lanegrid/pkg/errors"
	"github.com/matzehuels/lanegrid/pkg/graph"
	"github.com/matzehuels/lanegrid/pkg/layout"
	"github.com/matzehuels/lanegrid/pkg/model"
	"github.com/matzehuels/lanegrid/pkg/observability"
	"github.com/matzehuels/lanegrid/pkg/rows"
	"github.com/matzehuels/lanegrid/pkg/session"
)

// Import parses src and imports the rows. See ImportRows.
func (r *Runner) Import(ctx context.Context, src io.Reader, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	start := time.Now()
	parsed, err := r.Parse(ctx, src, opts)
	if err != nil {
		return nil, err
	}
	return r.importRows(ctx, parsed, opts, time.Since(start))
}

// ImportFile parses the file at path and imports the rows.
func (r *Runner) ImportFile(ctx context.Context, path string, opts Options) (*Result, error) {
	if opts.SourceName == "" {
		opts.SourceName = path
	}
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	start := time.Now()
	parsed, err := r.ParseFile(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	return r.importRows(ctx, parsed, opts, time.Since(start))
}

// ImportRows imports already parsed rows into the activity named by opts,
// creating the container packages and the activity when absent. Build and
// layout run in one session; on any error the store is left unchanged.
// When opts.Formats is set the imported graph is also rendered.
func (r *Runner) ImportRows(ctx context.Context, in []rows.ActivityRow, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForImport(); err != nil {
		return nil, err
	}
	return r.importRows(ctx, in, opts, 0)
}

func (r *Runner) importRows(ctx context.Context, in []rows.ActivityRow, opts Options, parseTime time.Duration) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCanceled, err, "import canceled")
	}
	hooks := observability.Import()
	result := &Result{
		Project: opts.Project,
		Stats:   Stats{Rows: len(in), ParseTime: parseTime},
	}

	sessionStart := time.Now()
	var version func() int64
	err := session.Run(ctx, r.Store, opts.Project, func(s *session.Session) error {
		version = s.Version
		m := s.Model()
		act, err := EnsureActivity(m, opts.Container, opts.Activity)
		if err != nil {
			return err
		}
		result.ActivityID = act.ID

		// Stage 1: Build
		start := time.Now()
		b := &graph.Builder{Model: m, Logger: opts.Logger, ActionTypeOf: opts.ActionType}
		g, err := b.Build(act.ID, in)
		var bs graph.BuildStats
		if g != nil {
			bs = g.Stats()
		}
		hooks.OnBuildComplete(ctx, opts.Project, bs.Imported(), bs.Reused, bs.Orphans, time.Since(start), err)
		if err != nil {
			return err
		}
		result.Stats.Build = bs
		result.Stats.BuildTime = time.Since(start)

		opts.Logger.Debug("built graph",
			"activity", act.Name,
			"nodes", len(g.Nodes),
			"reused", bs.Reused,
			"orphans", bs.Orphans)

		// Stage 2: Layout
		start = time.Now()
		grid, err := layout.ApplyWithStats(g, m, opts.Layout)
		hooks.OnLayoutComplete(ctx, grid.Nodes, time.Since(start), err)
		if err != nil {
			return err
		}
		result.Stats.Grid = grid
		result.Stats.LayoutTime = time.Since(start)
		result.Graph = g
		return nil
	})
	result.Stats.SessionTime = time.Since(sessionStart)
	hooks.OnCommit(ctx, opts.Project, result.Stats.SessionTime, err)
	if err != nil {
		return nil, err
	}
	result.Version = version()

	opts.Logger.Info("imported activity",
		"project", opts.Project,
		"activity", opts.Activity,
		"rows", len(in),
		"version", result.Version,
		"duration", result.Stats.SessionTime)

	if len(opts.Formats) == 0 {
		return result, nil
	}

	// Stage 3: Render
	start := time.Now()
	artifacts, hit, err := r.RenderWithCacheInfo(ctx, result.Graph, opts)
	if err != nil {
		return result, err
	}
	result.Artifacts = artifacts
	result.CacheInfo.RenderHit = hit
	result.Stats.RenderTime = time.Since(start)
	return result, nil
}

// EnsureActivity returns the activity called name inside the package path
// container, creating missing packages and the activity. An element on the
// path that is not a package is an INVALID_INPUT error.
func EnsureActivity(m *model.Model, container []string, name string) (*model.Element, error) {
	owner, ok := m.Get(m.Root)
	if !ok {
		return nil, errors.New(errors.ErrCodeStore, "model has no root")
	}
	for _, pkg := range container {
		next := childNamed(m, owner.ID, pkg)
		if next == nil {
			var err error
			if next, err = m.Add(owner.ID, &model.Element{Kind: model.KindPackage, Name: pkg}); err != nil {
				return nil, err
			}
		} else if next.Kind != model.KindPackage {
			return nil, errors.New(errors.ErrCodeInvalidInput, "%q is a %s, not a package", pkg, next.Kind)
		}
		owner = next
	}

	for _, c := range m.ChildrenOfKind(owner.ID, model.KindActivity) {
		if c.Name == name {
			return c, nil
		}
	}
	return m.Add(owner.ID, &model.Element{Kind: model.KindActivity, Name: name})
}

func childNamed(m *model.Model, owner, name string) *model.Element {
	for _, c := range m.Children(owner) {
		if c.Name == name {
			return c
		}
	}
	return nil
}
