package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/lanegrid/pkg/graph"
	"github.com/matzehuels/lanegrid/pkg/pipeline"
)

// inspectCommand prints what a project holds. Without --activity it lists
// the activities; with it, the nodes of that activity.
func (c *CLI) inspectCommand() *cobra.Command {
	var (
		activity string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <project>",
		Short: "Show a stored project's activities, lanes and nodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runner, err := c.newRunner(ctx, true)
			if err != nil {
				return err
			}
			defer runner.Close()

			project := args[0]
			if asJSON {
				data, err := runner.Document(ctx, project, activity)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(stdout, string(data))
				return err
			}
			if activity == "" {
				return inspectProject(ctx, runner, project)
			}
			g, err := runner.Graph(ctx, project, activity)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, StyleTitle.Render(g.Name))
			fmt.Fprintln(stdout, nodeTable(g))
			return nil
		},
	}

	cmd.Flags().StringVarP(&activity, "activity", "a", "", "show the nodes of this activity (ID or name)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the activity document as JSON")
	return cmd
}

func inspectProject(ctx context.Context, runner *pipeline.Runner, project string) error {
	acts, err := runner.Activities(ctx, project)
	if err != nil {
		return err
	}
	if len(acts) == 0 {
		printInfo("Project %s has no activities", project)
		return nil
	}
	fmt.Fprintln(stdout, StyleTitle.Render(project))
	fmt.Fprintln(stdout, activityTable(acts))
	return nil
}

func activityTable(acts []pipeline.ActivityInfo) string {
	var body [][]string
	for _, a := range acts {
		body = append(body, []string{a.Name, a.Path, strconv.Itoa(a.Nodes), strconv.Itoa(a.Lanes), a.ID})
	}
	return newTable("Activity", "Path", "Nodes", "Lanes", "ID").Rows(body...).Render()
}

func nodeTable(g *graph.Graph) string {
	var body [][]string
	for _, n := range g.Nodes {
		name := n.Name
		if n.Parent != nil {
			name = "  " + name
		}
		lane := ""
		if n.Lane != nil {
			lane = n.Lane.Key
		}
		body = append(body, []string{
			name,
			string(n.Kind),
			string(n.Type),
			lane,
			portNames(n.Inputs),
			portNames(n.Outputs),
			fmt.Sprintf("%d,%d", n.Rect.X, n.Rect.Y),
		})
	}
	return newTable("Node", "Kind", "Type", "Lane", "Inputs", "Outputs", "At").Rows(body...).Render()
}

func portNames(ports []*graph.Port) string {
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = p.Name
	}
	return strings.Join(names, ", ")
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleBorder).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			if col == 0 {
				return lipgloss.NewStyle().Foreground(colorWhite)
			}
			return lipgloss.NewStyle().Foreground(colorGray)
		})
}
