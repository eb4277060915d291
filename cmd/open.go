package cmd

import (
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/ytsync/internal/models"
)

var openNoEdit bool

var openCmd = &cobra.Command{
	Use:   "open <id>",
	Short: "Open an issue or article as a local Markdown file",
	Long: `Fetches the entity, writes its body to a file under the temp dir, and
starts tracking it. Issue ids look like PROJ-123; anything else is
treated as a knowledge-base article id. The file is opened in $EDITOR
unless --no-edit is passed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := requireSession(ctx)
		if err != nil {
			return err
		}

		id := args[0]
		if dryRun {
			ui.DryRunMsg("would open %s", id)
			return nil
		}

		res, err := sess.engine.Open(ctx, id)
		if err != nil {
			return err
		}

		ref := models.EntityRef{
			ID:         res.Record.EntityID,
			IDReadable: res.Record.IDReadable,
			Summary:    res.Summary,
		}
		switch res.Record.EntityType {
		case models.EntityTypeIssue:
			sess.workspace.AddRecentIssue(ctx, ref)
		default:
			sess.workspace.AddRecentArticle(ctx, ref)
		}

		ui.Success("Opened %s: %s", res.Record.IDReadable, res.Summary)
		ui.Info("  %s", res.Record.FilePath)

		if openNoEdit {
			return nil
		}
		return launchEditor(res.Record.FilePath)
	},
}

func init() {
	openCmd.Flags().BoolVar(&openNoEdit, "no-edit", false, "Do not launch the editor")
	rootCmd.AddCommand(openCmd)
}

// launchEditor opens path in the configured editor, falling back to
// $EDITOR. No editor configured is not an error.
func launchEditor(path string) error {
	editor := viper.GetString("editor")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		ui.Info("No editor configured; set 'editor' in config or $EDITOR")
		return nil
	}

	c := exec.Command(editor, path)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}
