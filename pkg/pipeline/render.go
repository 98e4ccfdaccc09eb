package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/matzehuels/lanegrid/pkg/cache"
	"github.com/matzehuels/lanegrid/pkg/errors"
	"github.com/matzehuels/lanegrid/pkg/graph"
	"github.com/matzehuels/lanegrid/pkg/model"
	"github.com/matzehuels/lanegrid/pkg/observability"
	"github.com/matzehuels/lanegrid/pkg/render"
	"github.com/matzehuels/lanegrid/pkg/render/nodelink"
	"github.com/matzehuels/lanegrid/pkg/render/sink"
	"github.com/matzehuels/lanegrid/pkg/session"
)

// Cache key types reported to observability.
const (
	keyTypeArtifact = "artifact"
	keyTypeDocument = "document"
)

// ActivityInfo describes one stored activity.
type ActivityInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Path  string `json:"path"` // slash-joined names from the root
	Nodes int    `json:"nodes"`
	Lanes int    `json:"lanes"`
}

// =============================================================================
// Rendering
// =============================================================================

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, g *graph.Graph, opts Options) (map[render.Format][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, g, opts)
	return artifacts, err
}

// RenderWithCacheInfo renders g in every requested format. Artifacts are
// cached under the hash of the exported graph document plus the render
// options. The returned flag is true when every artifact came from the cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, g *graph.Graph, opts Options) (map[render.Format][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	docData, err := graph.MarshalDocument(g)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "serialize graph for cache key")
	}
	docHash := cache.Hash(docData)
	keyer := r.keyer(opts.Project)
	hooks := observability.Cache()

	allCached := true
	artifacts := make(map[render.Format][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		key := keyer.ArtifactKey(docHash, opts.ArtifactKeyOpts(format))
		if !opts.Refresh {
			if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
				hooks.OnCacheHit(ctx, keyTypeArtifact)
				artifacts[format] = data
				continue
			}
			hooks.OnCacheMiss(ctx, keyTypeArtifact)
		}
		allCached = false

		start := time.Now()
		data, err := renderFormat(ctx, g, format, opts)
		observability.Import().OnRenderComplete(ctx, string(format), time.Since(start), err)
		if err != nil {
			return nil, false, err
		}
		artifacts[format] = data

		if err := r.Cache.Set(ctx, key, data, r.ttl()); err != nil {
			opts.Logger.Warn("cache write failed", "format", format, "error", err)
		} else {
			hooks.OnCacheSet(ctx, keyTypeArtifact, len(data))
		}
		opts.Logger.Debug("rendered", "format", format, "bytes", len(data), "duration", time.Since(start))
	}
	return artifacts, allCached, nil
}

// renderFormat produces one artifact. PDF and PNG are converted from the
// native SVG.
func renderFormat(ctx context.Context, g *graph.Graph, format render.Format, opts Options) ([]byte, error) {
	dotOpts := nodelink.Options{Detailed: opts.Detailed, Documentation: opts.Detailed}
	switch format {
	case render.FormatSVG:
		return sink.RenderSVG(g, svgOptions(opts)...), nil
	case render.FormatGraphviz:
		return nodelink.RenderGraph(ctx, g, dotOpts)
	case render.FormatDOT:
		return []byte(nodelink.ToDOT(g, dotOpts)), nil
	case render.FormatJSON:
		return graph.MarshalDocument(g)
	case render.FormatPDF, render.FormatPNG:
		return render.Convert(ctx, sink.RenderSVG(g, svgOptions(opts)...), format, opts.Scale)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFmt, "unsupported render format %q", format)
	}
}

func svgOptions(opts Options) []sink.SVGOption {
	var out []sink.SVGOption
	if opts.Title != "" {
		out = append(out, sink.WithTitle(opts.Title))
	}
	if opts.NoPorts {
		out = append(out, sink.WithoutPorts())
	}
	if opts.Detailed {
		out = append(out, sink.WithTooltips())
	}
	return out
}

// =============================================================================
// Stored Activities
// =============================================================================

// RenderStored renders an activity of a stored project. ref is an activity
// ID or name; empty selects the project's only activity.
func (r *Runner) RenderStored(ctx context.Context, project, ref string, opts Options) (map[render.Format][]byte, bool, error) {
	g, err := r.Graph(ctx, project, ref)
	if err != nil {
		return nil, false, err
	}
	opts.Project = project
	return r.RenderWithCacheInfo(ctx, g, opts)
}

// Graph rebuilds the graph of a stored activity.
func (r *Runner) Graph(ctx context.Context, project, ref string) (*graph.Graph, error) {
	doc, err := r.load(ctx, project)
	if err != nil {
		return nil, err
	}
	act, err := ResolveActivity(doc.Model, ref)
	if err != nil {
		return nil, err
	}
	return graph.FromModel(doc.Model, act.ID)
}

// Document returns the exported JSON document of a stored activity. The
// bytes are cached per store version.
func (r *Runner) Document(ctx context.Context, project, ref string) ([]byte, error) {
	doc, err := r.load(ctx, project)
	if err != nil {
		return nil, err
	}
	act, err := ResolveActivity(doc.Model, ref)
	if err != nil {
		return nil, err
	}

	hooks := observability.Cache()
	key := r.keyer(project).DocumentKey(project, act.ID, doc.Version)
	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		hooks.OnCacheHit(ctx, keyTypeDocument)
		return data, nil
	}
	hooks.OnCacheMiss(ctx, keyTypeDocument)

	g, err := graph.FromModel(doc.Model, act.ID)
	if err != nil {
		return nil, err
	}
	data, err := graph.MarshalDocument(g)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode document")
	}
	if err := r.Cache.Set(ctx, key, data, r.ttl()); err == nil {
		hooks.OnCacheSet(ctx, keyTypeDocument, len(data))
	}
	return data, nil
}

// Activities lists the activities of a stored project in model order.
func (r *Runner) Activities(ctx context.Context, project string) ([]ActivityInfo, error) {
	doc, err := r.load(ctx, project)
	if err != nil {
		return nil, err
	}
	m := doc.Model
	var out []ActivityInfo
	for _, act := range activities(m) {
		info := ActivityInfo{
			ID:    act.ID,
			Name:  act.Name,
			Path:  strings.Join(m.Path(act.ID), "/"),
			Lanes: len(m.ChildrenOfKind(act.ID, model.KindPartition)),
		}
		m.WalkFrom(act.ID, func(el *model.Element) bool {
			if el.Kind.IsAction() || el.Kind.IsControlNode() {
				info.Nodes++
			}
			return true
		})
		out = append(out, info)
	}
	return out, nil
}

// ResolveActivity finds an activity by ID or by name. An empty ref selects
// the only activity of the model.
func ResolveActivity(m *model.Model, ref string) (*model.Element, error) {
	if el, ok := m.Get(ref); ok && el.Kind == model.KindActivity {
		return el, nil
	}
	all := activities(m)
	var matches []*model.Element
	for _, act := range all {
		if ref == "" || act.Name == ref {
			matches = append(matches, act)
		}
	}
	switch {
	case len(matches) == 1:
		return matches[0], nil
	case len(matches) == 0 && ref == "":
		return nil, errors.New(errors.ErrCodeNotFound, "project has no activities")
	case len(matches) == 0:
		return nil, errors.New(errors.ErrCodeNotFound, "activity %q not found", ref)
	case ref == "":
		return nil, errors.New(errors.ErrCodeInvalidInput, "project has %d activities, choose one", len(matches))
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "%d activities are named %q, use an ID", len(matches), ref)
	}
}

func activities(m *model.Model) []*model.Element {
	return m.FindAll(func(el *model.Element) bool { return el.Kind == model.KindActivity })
}

// load returns a project that has been saved at least once.
func (r *Runner) load(ctx context.Context, project string) (*session.Document, error) {
	doc, err := r.Store.Load(ctx, project)
	if err != nil {
		return nil, err
	}
	if doc.Version == 0 {
		return nil, errors.New(errors.ErrCodeNotFound, "project %q not found", project)
	}
	return doc, nil
}

func (r *Runner) keyer(project string) cache.Keyer {
	if project == "" {
		return r.Keyer
	}
	return cache.NewScopedKeyer(r.Keyer, cache.ProjectScope(project))
}
