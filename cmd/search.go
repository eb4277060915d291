package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	searchesRefresh bool
	boardsRefresh   bool
)

var searchesCmd = &cobra.Command{
	Use:   "searches",
	Short: "List saved searches",
	Long: `Lists the server's saved searches. Results are cached per server;
--refresh re-fetches them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := requireSession(ctx)
		if err != nil {
			return err
		}

		searches := sess.workspace.SavedSearches(ctx)
		if searchesRefresh || len(searches) == 0 {
			searches, err = sess.auth.Client().SavedSearches(ctx)
			if err != nil {
				return fmt.Errorf("list saved searches: %w", err)
			}
			sess.workspace.SetSavedSearches(ctx, searches)
		}

		if len(searches) == 0 {
			ui.Info("No saved searches")
			return nil
		}
		table := ui.Table([]string{"NAME", "QUERY"})
		for _, s := range searches {
			table.Append([]string{s.Name, s.Query})
		}
		table.Render()
		return nil
	},
}

var boardsCmd = &cobra.Command{
	Use:   "boards",
	Short: "List agile boards",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := requireSession(ctx)
		if err != nil {
			return err
		}

		boards := sess.workspace.AgileBoards(ctx)
		if boardsRefresh || len(boards) == 0 {
			boards, err = sess.auth.Client().AgileBoards(ctx)
			if err != nil {
				return fmt.Errorf("list agile boards: %w", err)
			}
			sess.workspace.SetAgileBoards(ctx, boards)
		}

		if len(boards) == 0 {
			ui.Info("No agile boards")
			return nil
		}
		table := ui.Table([]string{"NAME", "PROJECTS"})
		for _, b := range boards {
			table.Append([]string{b.Name, fmt.Sprintf("%d", len(b.ProjectIDs))})
		}
		table.Render()
		return nil
	},
}

func init() {
	searchesCmd.Flags().BoolVar(&searchesRefresh, "refresh", false, "Re-fetch from the server")
	boardsCmd.Flags().BoolVar(&boardsRefresh, "refresh", false, "Re-fetch from the server")

	rootCmd.AddCommand(searchesCmd)
	rootCmd.AddCommand(boardsCmd)
}
