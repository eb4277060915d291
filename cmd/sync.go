package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/ytsync/internal/models"
	"github.com/joescharf/ytsync/internal/output"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status of all opened files",
	RunE: func(cmd *cobra.Command, args []string) error {
		return syncStatusRun()
	},
}

var (
	pullForce        bool
	unlinkDeleteFile bool
)

var pullCmd = &cobra.Command{
	Use:   "pull <id>",
	Short: "Overwrite the local file with the remote version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := requireSession(ctx)
		if err != nil {
			return err
		}

		rec, err := sess.engine.Get(ctx, args[0])
		if err != nil {
			return err
		}

		status := sess.engine.Status(ctx, rec)
		if !pullForce && (status == models.SyncStatusModified || status == models.SyncStatusConflict) {
			ui.Warning("%s has local edits (%s); pulling discards them", rec.IDReadable, status)
			if !confirm("Overwrite local file?") {
				ui.Info("Aborted")
				return nil
			}
		}

		if dryRun {
			ui.DryRunMsg("would pull %s into %s", rec.IDReadable, rec.FilePath)
			return nil
		}

		if err := sess.engine.Pull(ctx, rec); err != nil {
			return err
		}
		ui.Success("Pulled %s -> %s", rec.IDReadable, rec.FilePath)
		return nil
	},
}

var pushCmd = &cobra.Command{
	Use:   "push <id>",
	Short: "Push the local file's content to the remote entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := requireSession(ctx)
		if err != nil {
			return err
		}

		rec, err := sess.engine.Get(ctx, args[0])
		if err != nil {
			return err
		}

		if dryRun {
			ui.DryRunMsg("would push %s from %s", rec.IDReadable, rec.FilePath)
			return nil
		}

		if err := sess.engine.Push(ctx, rec); err != nil {
			return err
		}
		ui.Success("Pushed %s", rec.IDReadable)
		return nil
	},
}

var unlinkCmd = &cobra.Command{
	Use:   "unlink <id>",
	Short: "Stop tracking an opened file",
	Long: `Removes the sync record for the entity. The local file is kept on
disk unless --delete-file is passed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := requireSession(ctx)
		if err != nil {
			return err
		}

		rec, err := sess.engine.Get(ctx, args[0])
		if err != nil {
			return err
		}

		if dryRun {
			ui.DryRunMsg("would unlink %s", rec.IDReadable)
			return nil
		}

		if err := sess.engine.Unlink(ctx, rec); err != nil {
			return err
		}
		if !unlinkDeleteFile {
			ui.Success("Unlinked %s (file kept at %s)", rec.IDReadable, rec.FilePath)
			return nil
		}
		if err := os.Remove(rec.FilePath); err != nil && !os.IsNotExist(err) {
			ui.Warning("unlinked, but could not remove %s: %v", rec.FilePath, err)
			return nil
		}
		ui.Success("Unlinked %s and removed %s", rec.IDReadable, rec.FilePath)
		return nil
	},
}

func init() {
	pullCmd.Flags().BoolVarP(&pullForce, "force", "f", false, "Pull without confirmation even over local edits")
	unlinkCmd.Flags().BoolVar(&unlinkDeleteFile, "delete-file", false, "Also delete the local file")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(unlinkCmd)
}

// syncStatusRun renders the edited-file overview. It backs both the bare
// root command and 'ytsync status'.
func syncStatusRun() error {
	ctx := rootCmd.Context()
	sess, err := requireSession(ctx)
	if err != nil {
		return err
	}

	files, err := sess.engine.List(ctx)
	if err != nil {
		return err
	}

	ui.Info("Server: %s", sess.auth.BaseURL())
	if len(files) == 0 {
		ui.Info("No opened files. Use 'ytsync open <id>' to start.")
		return nil
	}

	table := ui.Table([]string{"ID", "TYPE", "STATUS", "FILE"})
	for _, f := range files {
		table.Append([]string{
			f.Record.IDReadable,
			string(f.Record.EntityType),
			output.SyncStatusColor(string(f.Status)),
			f.Record.FilePath,
		})
	}
	table.Render()
	return nil
}

// confirm asks a yes/no question on stdin.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(answer), "y")
}
