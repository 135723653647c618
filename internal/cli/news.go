package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pitchside/internal/news"
)

var (
	flagNewsLimit   int
	flagNewsRefresh bool
	flagNewsJSON    bool
)

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Show the latest football news",
	Long: `Show the latest football news from the pitchside server.

Articles are cached locally for ` + news.CacheTTL.String() + `; --refresh skips the cache.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		if flagNewsRefresh {
			if err := a.newsCache.Invalidate(ctx, news.CacheKey); err != nil {
				a.logger.Warn("failed to invalidate news cache", "error", err)
			}
		}

		articles, err := a.news.GetFootballNews(ctx)
		if err != nil {
			return userError(err)
		}
		articles = limitArticles(news.Dedupe(articles), flagNewsLimit)

		if flagNewsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(news.Response{Articles: articles})
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderArticles(articles, time.Now(), terminalWidth()))
		return nil
	},
}

func init() {
	newsCmd.Flags().IntVarP(&flagNewsLimit, "limit", "n", 0, "show at most this many articles (0 for all)")
	newsCmd.Flags().BoolVar(&flagNewsRefresh, "refresh", false, "ignore the local cache")
	newsCmd.Flags().BoolVar(&flagNewsJSON, "json", false, "print articles as JSON")
}

func limitArticles(articles []news.Article, n int) []news.Article {
	if n <= 0 || n >= len(articles) {
		return articles
	}
	return articles[:n]
}
