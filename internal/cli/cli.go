// Package cli implements the lanegrid command-line interface.
//
// The CLI imports activity tables into a project store, renders stored
// activities and serves the HTTP API. It is built on cobra; log output goes
// through charmbracelet/log and status lines are styled with lipgloss.
//
// # Commands
//
//   - import: Parse a CSV/XLSX file and import it into a project
//   - render: Render a stored activity to SVG, DOT, JSON, PDF or PNG
//   - inspect: Show a stored project's activities, lanes and nodes
//   - serve: Run the HTTP API
//   - store: List, locate and delete stored projects
//   - cache: Manage the artifact cache
//   - config: Show the effective configuration
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context.
package cli

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/lanegrid/pkg/cache"
	"github.com/matzehuels/lanegrid/pkg/config"
	"github.com/matzehuels/lanegrid/pkg/pipeline"
	"github.com/matzehuels/lanegrid/pkg/session"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "lanegrid"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Config is loaded before every command runs.
	Config config.Config

	configPath string // --config
	store      string // --store, overrides the configured backend
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// loadConfig reads --config (or the default path when it exists) and
// applies --store.
func (c *CLI) loadConfig() error {
	cfg := config.Default()
	var err error
	if c.configPath != "" {
		cfg, err = config.Load(c.configPath)
	} else if path, perr := config.DefaultPath(); perr == nil {
		cfg, err = config.LoadOrDefault(path)
	}
	if err != nil {
		return err
	}
	if c.store != "" {
		applyStoreFlag(&cfg.Store, c.store)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.Config = cfg
	return nil
}

// applyStoreFlag interprets --store: a backend name, or a directory for the
// file backend.
func applyStoreFlag(cfg *session.Config, v string) {
	switch v {
	case session.BackendMemory, session.BackendFile, session.BackendRedis, session.BackendMongo:
		cfg.Backend = v
	default:
		cfg.Backend = session.BackendFile
		cfg.Dir = v
	}
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner opens the configured store and cache for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	store, err := session.Open(ctx, c.Config.Store)
	if err != nil {
		return nil, err
	}
	runner := pipeline.NewRunner(store, c.newCache(noCache), nil, loggerFromContext(ctx))
	runner.TTL = c.Config.CacheTTL()
	return runner, nil
}

// newCache returns the file cache, or a NullCache when caching is off or
// the directory is unusable.
func (c *CLI) newCache(noCache bool) cache.Cache {
	if noCache || c.Config.Cache.Disabled {
		return cache.NewNullCache()
	}
	dir, err := c.Config.CacheDir()
	if err != nil {
		return cache.NewNullCache()
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		c.Logger.Warn("artifact cache disabled", "dir", dir, "error", err)
		return cache.NewNullCache()
	}
	return fc
}

// =============================================================================
// Options Helpers
// =============================================================================

// pipelineOptions returns options carrying the configured parse and layout
// constants.
func (c *CLI) pipelineOptions(ctx context.Context) pipeline.Options {
	return pipeline.Options{
		Parse:  c.Config.RowOptions(),
		Layout: c.Config.Layout,
		Logger: loggerFromContext(ctx),
	}
}

// splitPath parses a slash-separated container path.
func splitPath(s string) []string {
	var out []string
	for _, p := range strings.Split(s, "/") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// stdout is where commands print results. Tests replace it.
var stdout io.Writer = os.Stdout
