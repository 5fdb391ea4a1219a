package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/namhuunam/ophim-crawler/internal/crawler"
)

// newCrawlCmd creates the 'crawl' subcommand. Each argument is one source API
// link, reconciled in order; a transport failure on one link stops the run,
// while an exclusion rejection just moves on to the next.
func newCrawlCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "crawl <url> [url...]",
		Short: "Fetch and reconcile one or more source API links",
		Long: `Fetches each source API link, computes the payload checksum, and
reconciles changed payloads into the catalog: movie record, associations,
episodes and cached artwork. Unchanged payloads are skipped unless --force
is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			logger := appInstance.Logger()
			engine := appInstance.Engine()

			for _, link := range args {
				applied, err := engine.Crawl(cmd.Context(), link, force)
				switch {
				case crawler.IsExcluded(err):
					logger.Info("payload excluded", zap.String("url", link), zap.String("reason", err.Error()))
				case err != nil:
					return fmt.Errorf("crawl %s: %w", link, err)
				case applied:
					logger.Info("payload applied", zap.String("url", link))
				default:
					logger.Info("payload unchanged", zap.String("url", link))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "reconcile even when the payload checksum is unchanged")
	return cmd
}
