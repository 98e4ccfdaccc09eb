package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/lanegrid/pkg/errors"
	"github.com/matzehuels/lanegrid/pkg/render"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	activity string  // activity ID or name, empty for the only one
	output   string  // output file (single format) or base path (multiple)
	formats  string  // comma-separated render formats
	detailed bool    // tooltips and documentation
	noPorts  bool    // omit pins from SVG output
	title    string  // SVG title
	scale    float64 // PNG scale factor
	refresh  bool    // bypass cached artifacts
	noCache  bool    // disable the artifact cache
}

// renderCommand creates the render command for stored activities.
//
// A single text format without --output is written to stdout. Otherwise
// every artifact goes to a file named after --output (or the project).
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render <project>",
		Short: "Render a stored activity to SVG, DOT, JSON, PDF or PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.activity, "activity", "a", "", "activity ID or name (default: the project's only activity)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s): svg (default), graphviz, dot, json, pdf, png (comma-separated)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "include documentation and tooltips")
	cmd.Flags().BoolVar(&opts.noPorts, "no-ports", false, "omit input and output pins")
	cmd.Flags().StringVar(&opts.title, "title", "", "diagram title")
	cmd.Flags().Float64Var(&opts.scale, "scale", 0, "PNG scale factor (default 2)")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached artifacts")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the artifact cache")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, project string, ro renderOpts) error {
	logger := loggerFromContext(ctx)

	formats, err := parseFormats(ro.formats, ro.output)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, ro.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	opts := c.pipelineOptions(ctx)
	opts.Formats = formats
	opts.Detailed = ro.detailed
	opts.NoPorts = ro.noPorts
	opts.Title = ro.title
	opts.Scale = ro.scale
	opts.Refresh = ro.refresh

	prog := newProgress(logger)
	artifacts, cached, err := runner.RenderStored(ctx, project, ro.activity, opts)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Rendered %d artifact(s)", len(artifacts)))

	if len(formats) == 1 && ro.output == "" && !formats[0].Binary() {
		_, err := stdout.Write(artifacts[formats[0]])
		return err
	}

	paths := outputPaths(formats, ro.output, project)
	for _, f := range formats {
		if err := writeArtifact(paths[f], artifacts[f]); err != nil {
			return err
		}
		printFile(paths[f])
	}
	printCounts(cached, fmt.Sprintf("%d format(s)", len(formats)))
	return nil
}

// parseFormats parses the --format flag. An empty flag picks the format
// from the output extension, or SVG.
func parseFormats(s, output string) ([]render.Format, error) {
	if strings.TrimSpace(s) == "" {
		if output != "" {
			return []render.Format{render.FormatForPath(output)}, nil
		}
		return []render.Format{render.FormatSVG}, nil
	}
	var out []render.Format
	seen := make(map[render.Format]bool)
	for _, part := range strings.Split(s, ",") {
		f, err := render.ParseFormat(part)
		if err != nil {
			return nil, err
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// outputPaths assigns a file to every format. A single format is written to
// output as given; several share a base path with per-format extensions.
func outputPaths(formats []render.Format, output, project string) map[render.Format]string {
	paths := make(map[render.Format]string, len(formats))
	if len(formats) == 1 && output != "" {
		paths[formats[0]] = output
		return paths
	}
	base := basePath(output, project)
	for _, f := range formats {
		if f == render.FormatGraphviz {
			paths[f] = base + "_graphviz." + f.Ext()
			continue
		}
		paths[f] = base + "." + f.Ext()
	}
	return paths
}

// basePath strips a known format extension from output, or falls back to
// the project name.
func basePath(output, project string) string {
	if output == "" {
		return project
	}
	ext := filepath.Ext(output)
	if _, err := render.ParseFormat(strings.TrimPrefix(ext, ".")); err == nil && ext != "" {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

func writeArtifact(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", path)
	}
	return nil
}
