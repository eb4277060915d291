package cmd

import (
	"github.com/spf13/cobra"

	"github.com/joescharf/ytsync/internal/models"
)

var articleCmd = &cobra.Command{
	Use:   "article <id>",
	Short: "Show a knowledge-base article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := requireSession(ctx)
		if err != nil {
			return err
		}

		article, err := sess.auth.Client().ArticleByID(ctx, args[0])
		if err != nil {
			return err
		}

		sess.workspace.AddRecentArticle(ctx, models.EntityRef{
			ID: article.ID, IDReadable: article.IDReadable, Summary: article.Summary,
		})

		ui.Info("%s: %s", article.IDReadable, article.Summary)
		ui.Info("Updated: %s", article.Updated.Format("2006-01-02 15:04"))
		if len(article.ChildIDs) > 0 {
			ui.Info("Sub-articles: %d", len(article.ChildIDs))
		}
		if article.Content != "" {
			ui.Info("")
			ui.Info("%s", article.Content)
		}
		return nil
	},
}

var articlesRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show recently opened articles",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := requireSession(ctx)
		if err != nil {
			return err
		}

		recent := sess.workspace.RecentArticles(ctx)
		if len(recent) == 0 {
			ui.Info("No recent articles")
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
	articleCmd.AddCommand(articlesRecentCmd)
	rootCmd.AddCommand(articleCmd)
}
