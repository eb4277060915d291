package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:     "projects",
	Aliases: []string{"project"},
	Short:   "Manage projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectListRun(cmd)
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects on the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectListRun(cmd)
	},
}

var projectSelectCmd = &cobra.Command{
	Use:   "select <shortName> [shortName...]",
	Short: "Set the working project selection",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := requireSession(ctx)
		if err != nil {
			return err
		}

		projects, err := sess.auth.Client().Projects(ctx)
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}

		known := make(map[string]bool, len(projects))
		for _, p := range projects {
			known[strings.ToUpper(p.ShortName)] = true
		}

		selected := make([]string, 0, len(args))
		for _, arg := range args {
			short := strings.ToUpper(arg)
			if !known[short] {
				return fmt.Errorf("unknown project %q", arg)
			}
			if !slices.Contains(selected, short) {
				selected = append(selected, short)
			}
		}

		if dryRun {
			ui.DryRunMsg("would select projects: %s", strings.Join(selected, ", "))
			return nil
		}

		sess.workspace.SetSelectedProjects(ctx, selected)
		ui.Success("Selected projects: %s", strings.Join(selected, ", "))
		return nil
	},
}

var projectSelectedCmd = &cobra.Command{
	Use:   "selected",
	Short: "Show the working project selection",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := requireSession(ctx)
		if err != nil {
			return err
		}

		selected := sess.workspace.SelectedProjects(ctx)
		if len(selected) == 0 {
			ui.Info("No projects selected. Use 'ytsync projects select <shortName>'.")
			return nil
		}
		for _, short := range selected {
			ui.Info("%s", short)
		}
		return nil
	},
}

func init() {
	projectsCmd.AddCommand(projectListCmd)
	projectsCmd.AddCommand(projectSelectCmd)
	projectsCmd.AddCommand(projectSelectedCmd)
	rootCmd.AddCommand(projectsCmd)
}

func projectListRun(cmd *cobra.Command) error {
	ctx := cmd.Context()
	sess, err := requireSession(ctx)
	if err != nil {
		return err
	}

	projects, err := sess.auth.Client().Projects(ctx)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}

	selected := sess.workspace.SelectedProjects(ctx)

	table := ui.Table([]string{"", "KEY", "NAME", "ID"})
	for _, p := range projects {
		mark := ""
		if slices.Contains(selected, strings.ToUpper(p.ShortName)) {
			mark = "*"
		}
		table.Append([]string{mark, p.ShortName, p.Name, p.ID})
	}
	table.Render()
	return nil
}
