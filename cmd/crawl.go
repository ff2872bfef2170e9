package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/devfeed-crawler/internal/app"
	"github.com/JakeFAU/devfeed-crawler/internal/config"
	"github.com/JakeFAU/devfeed-crawler/internal/pipeline"
	"github.com/JakeFAU/devfeed-crawler/internal/telemetry"
)

// source describes one crawl subcommand.
type source struct {
	name  string
	short string
	limit func(config.Config) int
	run   func(ctx context.Context, a *app.App, limit int, logger *zap.Logger) error
}

var eventsSource = source{
	name:  "events",
	short: "Ingest the developer event list into the events JSON store",
	limit: func(c config.Config) int { return c.Events.Limit },
	run: func(ctx context.Context, a *app.App, limit int, logger *zap.Logger) error {
		crawler, err := a.Events()
		if err != nil {
			return err
		}
		summary, err := crawler.Run(ctx, limit)
		logSummary(logger, summary)
		return err
	},
}

var jobsSource = source{
	name:  "jobs",
	short: "Ingest job board postings into the jobs JSON store",
	limit: func(c config.Config) int { return c.Jobs.Limit },
	run: func(ctx context.Context, a *app.App, limit int, logger *zap.Logger) error {
		crawler, err := a.Jobs()
		if err != nil {
			return err
		}
		summary, err := crawler.Run(ctx, limit)
		logSummary(logger, summary)
		return err
	},
}

var blogsSource = source{
	name:  "blogs",
	short: "Ingest tech blog feeds into the article table",
	limit: func(c config.Config) int { return c.Blogs.Limit },
	run: func(ctx context.Context, a *app.App, limit int, logger *zap.Logger) error {
		crawler, err := a.Blogs(ctx)
		if err != nil {
			return err
		}
		stats, err := crawler.Run(ctx, limit)
		logger.Info("blog run finished",
			zap.Int("feeds", stats.Feeds),
			zap.Int("failed_feeds", stats.FailedFeeds),
			zap.Int("processed", stats.Processed),
			zap.Int("inserted", stats.Inserted),
			zap.Int("duplicates", stats.Duplicates),
			zap.Int("enriched", stats.Report.Enriched),
			zap.Int("published", stats.Published),
			zap.Float64("dedup_rate", stats.DedupRate()))
		return err
	},
}

func newSourceCmd(src source) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   src.name,
		Short: src.short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("limit") {
				limit = src.limit(appInstance.Config())
			}
			ctx, span := telemetry.StartRun(cmd.Context(), src.name, limit)
			logger := appInstance.Logger().With(
				zap.String("run_id", appInstance.RunID()),
				zap.String("trace_id", telemetry.TraceID(ctx)),
				zap.String("command", src.name),
			)
			logger.Info("run started", zap.Int("limit", limit))

			err = src.run(ctx, appInstance, limit, logger)
			telemetry.EndRun(span, err)
			appInstance.PushMetrics(context.WithoutCancel(ctx))
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("run %s: %w", src.name, err)
			}
			if err != nil {
				logger.Warn("run interrupted, partial progress saved")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum AI enrichment attempts this run; 0 disables enrichment (default from config)")
	return cmd
}

func logSummary(logger *zap.Logger, s pipeline.Summary) {
	logger.Info("run finished",
		zap.Int("fresh", s.Merge.Fresh),
		zap.Int("known", s.Merge.Known),
		zap.Int("new", s.Merge.New),
		zap.Int("attempted", s.Report.Attempted),
		zap.Int("enriched", s.Report.Enriched),
		zap.Int("skipped", s.Report.Skipped),
		zap.Int("thumbnails", s.Report.Thumbnails),
		zap.Int("tagged", s.Report.Tagged),
		zap.Int("saved", s.Saved),
		zap.Int("published", s.Published),
		zap.Duration("duration", s.Duration))
}
