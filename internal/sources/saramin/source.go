package saramin

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/devfeed-crawler/internal/pipeline"
	"github.com/JakeFAU/devfeed-crawler/internal/record"
	"github.com/JakeFAU/devfeed-crawler/internal/scheduler"
)

// Runner persists a parsed batch.
type Runner interface {
	Run(ctx context.Context, fresh []record.JobPosting, budget *scheduler.Budget) (pipeline.Summary, error)
}

// Crawler searches the board and hands the selected postings to the pipeline.
type Crawler struct {
	client *Client
	runner Runner
	logger *zap.Logger
}

// New builds a Crawler.
func New(client *Client, runner Runner, logger *zap.Logger) *Crawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crawler{client: client, runner: runner, logger: logger.With(zap.String("source", Source))}
}

// Run keeps the first limit unique postings and enriches up to limit of them.
// A failed first search page aborts the run before anything is saved.
func (c *Crawler) Run(ctx context.Context, limit int) (pipeline.Summary, error) {
	c.logger.Info("searching job board", zap.Int("limit", limit), zap.Int("pages", Pages(limit)))
	found, err := c.client.Search(ctx, limit)
	if err != nil {
		return pipeline.Summary{Source: Source}, fmt.Errorf("search job board: %w", err)
	}
	selected := Select(found, limit)
	c.logger.Info("postings selected", zap.Int("found", len(found)), zap.Int("selected", len(selected)))
	if len(selected) == 0 {
		return pipeline.Summary{Source: Source}, fmt.Errorf("search job board: %w", pipeline.ErrNothingParsed)
	}
	return c.runner.Run(ctx, selected, scheduler.NewBudget(limit))
}
