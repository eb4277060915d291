package cmd

import (
	"github.com/spf13/cobra"

	"github.com/joescharf/ytsync/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server on stdio",
	Long: `Starts a Model Context Protocol server over stdin/stdout exposing
YouTrack tools (list projects, get entities) to AI assistants.

Requires a stored session; run 'ytsync login' first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := requireSession(ctx)
		if err != nil {
			return err
		}

		srv := mcp.NewServer(sess.auth.Client())
		return srv.ServeStdio(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
