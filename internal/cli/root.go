package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/lanegrid/pkg/buildinfo"
)

// RootCommand creates the root cobra command with all subcommands registered.
//
// Global flags:
//   - --verbose (-v): debug-level logging
//   - --config: configuration file (default ~/.config/lanegrid/config.toml)
//   - --store: store backend name, or a directory for the file backend
func (c *CLI) RootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          appName,
		Short:        "lanegrid imports activity tables into swim-lane diagrams",
		Long:         `lanegrid reads activity rows from CSV or XLSX files, builds a sequential process graph organized into swim lanes, lays it out on a fixed grid and stores it in a project model.`,
		Version:      buildinfo.Current().Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (.toml, .yaml)")
	root.PersistentFlags().StringVar(&c.store, "store", "", "store backend (memory, file, redis, mongo) or project directory")

	// Register all subcommands
	root.AddCommand(c.importCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.storeCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}
