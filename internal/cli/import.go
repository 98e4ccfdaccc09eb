package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/lanegrid/pkg/pipeline"
	"github.com/matzehuels/lanegrid/pkg/render"
)

// importOpts holds the command-line flags for the import command.
type importOpts struct {
	project      string
	activity     string
	container    string   // slash-separated package path
	prefix       string   // overrides parse.action_prefix
	sheet        string   // overrides parse.sheet
	callBehavior []string // sub-actions created as CallBehaviorAction
	interactive  bool
	output       string
	noCache      bool
}

// importCommand creates the import command.
//
// The file is parsed completely before the project is touched. Build and
// layout then run in one session: either everything is committed or the
// stored project is left as it was.
func (c *CLI) importCommand() *cobra.Command {
	var opts importOpts

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a CSV, TSV or XLSX activity table into a project",
		Long: `Import reads activity rows from a delimited text file or an Excel workbook,
builds the process graph (Start, one action per row, End) with one lane per
actor, lays it out on a fixed grid and commits it to the project store.

Importing into an existing activity reuses actions with the same name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runImport(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.project, "project", "p", pipeline.DefaultProject, "target project")
	cmd.Flags().StringVarP(&opts.activity, "activity", "a", "", "activity name (default: file name)")
	cmd.Flags().StringVar(&opts.container, "container", "", "package path for the activity, e.g. Billing/Q1")
	cmd.Flags().StringVar(&opts.prefix, "prefix", "", "name prefix that marks action rows in spreadsheets (default from config, \"Action\")")
	cmd.Flags().StringVar(&opts.sheet, "sheet", "", "worksheet name for XLSX files (default: first sheet)")
	cmd.Flags().StringSliceVar(&opts.callBehavior, "call-behavior", nil, "sub-action names to create as CallBehaviorAction")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "choose sub-action types interactively")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "also render the imported activity to this file")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the artifact cache")

	return cmd
}

func (c *CLI) runImport(ctx context.Context, path string, flags importOpts) error {
	logger := loggerFromContext(ctx)

	opts := c.pipelineOptions(ctx)
	opts.Project = flags.project
	opts.Activity = flags.activity
	opts.Container = splitPath(flags.container)
	opts.SourceName = path
	opts.CallBehavior = flags.callBehavior
	if flags.prefix != "" {
		opts.Parse.ActionPrefix = flags.prefix
	}
	if flags.sheet != "" {
		opts.Parse.Sheet = flags.sheet
	}
	if flags.output != "" {
		opts.Formats = []render.Format{render.FormatForPath(flags.output)}
	}

	runner, err := c.newRunner(ctx, flags.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	logger.Infof("Importing %s into %s", path, opts.Project)
	var result *pipeline.Result
	if flags.interactive {
		result, err = importInteractive(ctx, runner, path, opts)
	} else {
		err = spin(ctx, "Importing "+path, func() error {
			result, err = runner.ImportFile(ctx, path, opts)
			return err
		})
	}
	if err != nil {
		return err
	}

	printImportResult(result)
	if flags.output != "" {
		if err := writeArtifact(flags.output, result.Artifacts[opts.Formats[0]]); err != nil {
			return err
		}
		printFile(flags.output)
	}
	printNextStep("Render it", fmt.Sprintf("%s render %s", appName, result.Project))
	return nil
}

// importInteractive parses the file, lets the user pick sub-action types
// and imports the parsed rows.
func importInteractive(ctx context.Context, runner *pipeline.Runner, path string, opts pipeline.Options) (*pipeline.Result, error) {
	parsed, err := runner.ParseFile(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	typeOf, err := chooseActionTypes(ctx, parsed, opts.CallBehavior)
	if err != nil {
		return nil, err
	}
	opts.ActionTypeOf = typeOf
	return runner.ImportRows(ctx, parsed, opts)
}

func printImportResult(r *pipeline.Result) {
	printSuccess("%s", r.Summary())
	printDetail("project %s, version %d, activity %s", r.Project, r.Version, r.ActivityID)
	if n := r.Stats.Build.Orphans; n > 0 {
		printWarning("%d sub-action(s) named an unknown parent and were skipped", n)
	}
}
