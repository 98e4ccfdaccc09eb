package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/lanegrid/pkg/session"
)

// storeCommand creates the project store management command.
func (c *CLI) storeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "List, locate and delete stored projects",
	}

	cmd.AddCommand(c.storeListCommand())
	cmd.AddCommand(c.storePathCommand())
	cmd.AddCommand(c.storeDeleteCommand())

	return cmd
}

// storeListCommand creates the "store list" subcommand.
func (c *CLI) storeListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored projects with their versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(ctx context.Context, store session.Store) error {
				names, err := store.List(ctx)
				if err != nil {
					return err
				}
				if len(names) == 0 {
					printInfo("No projects stored")
					return nil
				}
				var body [][]string
				for _, name := range names {
					doc, err := store.Load(ctx, name)
					if err != nil {
						return err
					}
					body = append(body, []string{name, strconv.FormatInt(doc.Version, 10), doc.UpdatedAt.Local().Format("2006-01-02 15:04")})
				}
				fmt.Fprintln(stdout, newTable("Project", "Version", "Updated").Rows(body...).Render())
				return nil
			})
		},
	}
}

// storePathCommand creates the "store path" subcommand.
func (c *CLI) storePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the project directory of the file backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(_ context.Context, store session.Store) error {
				fs, ok := session.Unwrap(store).(*session.FileStore)
				if !ok {
					printKeyValue("Backend", c.Config.Store.Backend)
					return nil
				}
				fmt.Fprintln(stdout, fs.Path())
				return nil
			})
		},
	}
}

// storeDeleteCommand creates the "store delete" subcommand.
func (c *CLI) storeDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project>...",
		Short: "Delete stored projects",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(ctx context.Context, store session.Store) error {
				for _, project := range args {
					if err := store.Delete(ctx, project); err != nil {
						return err
					}
					printSuccess("Deleted %s", project)
				}
				return nil
			})
		},
	}
}

func (c *CLI) withStore(ctx context.Context, fn func(context.Context, session.Store) error) error {
	store, err := session.Open(ctx, c.Config.Store)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, store)
}
