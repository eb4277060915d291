package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/ytsync/internal/models"
)

var issuesFilter string

var issuesCmd = &cobra.Command{
	Use:     "issues [project]",
	Aliases: []string{"issue"},
	Short:   "List issues from the selected projects",
	Long: `Lists issues from the given project, or from every selected project
when no argument is given. The filter is remembered per server and
reused on the next run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := requireSession(ctx)
		if err != nil {
			return err
		}

		var projects []string
		if len(args) == 1 {
			projects = []string{args[0]}
		} else {
			projects = sess.workspace.SelectedProjects(ctx)
		}
		if len(projects) == 0 {
			ui.Info("No projects selected. Use 'ytsync projects select <shortName>' or pass a project.")
			return nil
		}

		filter := issuesFilter
		if !cmd.Flags().Changed("filter") {
			filter = sess.workspace.IssuesFilter(ctx)
		} else {
			sess.workspace.SetIssuesFilter(ctx, filter)
		}
		if filter != "" {
			ui.VerboseLog("filter: %s", filter)
		}

		table := ui.Table([]string{"ID", "SUMMARY", "UPDATED"})
		for _, project := range projects {
			issues, err := sess.auth.Client().Issues(ctx, project, filter)
			if err != nil {
				return fmt.Errorf("list issues in %s: %w", project, err)
			}
			for _, issue := range issues {
				table.Append([]string{
					issue.IDReadable,
					truncate(issue.Summary, 60),
					issue.Updated.Format("2006-01-02 15:04"),
				})
			}
		}
		table.Render()
		return nil
	},
}

var issueShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := requireSession(ctx)
		if err != nil {
			return err
		}

		issue, err := sess.auth.Client().IssueByID(ctx, args[0])
		if err != nil {
			return err
		}

		sess.workspace.AddRecentIssue(ctx, models.EntityRef{
			ID: issue.ID, IDReadable: issue.IDReadable, Summary: issue.Summary,
		})

		ui.Info("%s: %s", issue.IDReadable, issue.Summary)
		ui.Info("Updated: %s", issue.Updated.Format("2006-01-02 15:04"))
		if issue.ParentID != "" {
			ui.Info("Parent:  %s", issue.ParentID)
		}
		if len(issue.SubtaskIDs) > 0 {
			ui.Info("Subtasks: %d", len(issue.SubtaskIDs))
		}
		if issue.Description != "" {
			ui.Info("")
			ui.Info("%s", issue.Description)
		}
		return nil
	},
}

var issueNewDescription string

var issueNewCmd = &cobra.Command{
	Use:   "new <project> <summary>",
	Short: "Create an issue",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := requireSession(ctx)
		if err != nil {
			return err
		}

		short, summary := args[0], args[1]
		projects, err := sess.auth.Client().Projects(ctx)
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}
		projectID := ""
		for _, p := range projects {
			if strings.EqualFold(p.ShortName, short) {
				projectID = p.ID
				break
			}
		}
		if projectID == "" {
			return fmt.Errorf("unknown project %q", short)
		}

		if dryRun {
			ui.DryRunMsg("would create issue in %s: %s", short, summary)
			return nil
		}

		issue, err := sess.auth.Client().CreateIssue(ctx, projectID, summary, issueNewDescription)
		if err != nil {
			return err
		}

		sess.workspace.AddRecentIssue(ctx, models.EntityRef{
			ID: issue.ID, IDReadable: issue.IDReadable, Summary: issue.Summary,
		})
		ui.Success("Created %s: %s", issue.IDReadable, issue.Summary)
		return nil
	},
}

var issuesRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show recently opened issues",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := requireSession(ctx)
		if err != nil {
			return err
		}

		recent := sess.workspace.RecentIssues(ctx)
		if len(recent) == 0 {
			ui.Info("No recent issues")
			return nil
		}
		table := ui.Table([]string{"ID", "SUMMARY"})
		for _, ref := range recent {
			table.Append([]string{ref.IDReadable, truncate(ref.Summary, 60)})
		}
		table.Render()
		return nil
	},
}

func init() {
	issuesCmd.Flags().StringVar(&issuesFilter, "filter", "", "YouTrack search filter, e.g. '#Unresolved'")
	issueNewCmd.Flags().StringVar(&issueNewDescription, "description", "", "Issue description")
	issuesCmd.AddCommand(issueNewCmd)
	issuesCmd.AddCommand(issueShowCmd)
	issuesCmd.AddCommand(issuesRecentCmd)
	rootCmd.AddCommand(issuesCmd)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
