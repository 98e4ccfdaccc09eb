package pipeline

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/lanegrid/pkg/cache"
	"github.com/matzehuels/lanegrid/pkg/errors"
	"github.com/matzehuels/lanegrid/pkg/observability"
	"github.com/matzehuels/lanegrid/pkg/rows"
	"github.com/matzehuels/lanegrid/pkg/session"
)

// DefaultArtifactTTL is how long rendered artifacts stay cached.
const DefaultArtifactTTL = 7 * 24 * time.Hour

// Runner encapsulates pipeline execution with a store and a cache.
// Both CLI and API use it so imports behave the same everywhere.
//
// The Runner keeps no per-import state. Multiple goroutines can safely use
// the same Runner with different options; imports into the same project
// race on the store's version check and all but one fail with CONFLICT.
type Runner struct {
	Store  session.Store
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	TTL    time.Duration // artifact TTL, zero means DefaultArtifactTTL
}

// NewRunner creates a runner.
// If store is nil, a MemoryStore is used.
// If cache is nil, a NullCache is used (caching disabled).
// If keyer is nil, a DefaultKeyer is used.
func NewRunner(store session.Store, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if store == nil {
		store = session.NewMemoryStore()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Store:  store,
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Parse reads activity rows from src. Nothing is written to the store.
func (r *Runner) Parse(ctx context.Context, src io.Reader, opts Options) ([]rows.ActivityRow, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForParse(); err != nil {
		return nil, err
	}
	return r.parse(ctx, opts, func() ([]rows.ActivityRow, error) {
		return rows.Parse(src, opts.SourceFormat, opts.Parse)
	})
}

// ParseFile is Parse reading the file at path. SourceName defaults to path.
func (r *Runner) ParseFile(ctx context.Context, path string, opts Options) ([]rows.ActivityRow, error) {
	if opts.SourceName == "" {
		opts.SourceName = path
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "open %s", path)
	}
	defer f.Close()
	return r.Parse(ctx, f, opts)
}

func (r *Runner) parse(ctx context.Context, opts Options, read func() ([]rows.ActivityRow, error)) ([]rows.ActivityRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCanceled, err, "parse canceled")
	}
	hooks := observability.Import()
	hooks.OnParseStart(ctx, opts.SourceFormat)

	start := time.Now()
	parsed, err := read()
	hooks.OnParseComplete(ctx, opts.SourceFormat, len(parsed), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	opts.Logger.Debug("parsed rows",
		"format", opts.SourceFormat,
		"rows", len(parsed),
		"duration", time.Since(start))
	return parsed, nil
}

// Close releases the store and the cache.
func (r *Runner) Close() error {
	var first error
	if r.Cache != nil {
		first = r.Cache.Close()
	}
	if r.Store != nil {
		if err := r.Store.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (r *Runner) ttl() time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return DefaultArtifactTTL
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
