package devevent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/devfeed-crawler/internal/pipeline"
	"github.com/JakeFAU/devfeed-crawler/internal/record"
	"github.com/JakeFAU/devfeed-crawler/internal/scheduler"
)

// DefaultReadmeURL is the raw README of the community event list.
const DefaultReadmeURL = "https://raw.githubusercontent.com/brave-people/Dev-Event/master/README.md"

// Getter fetches a document body.
type Getter interface {
	Get(ctx context.Context, rawURL string) ([]byte, error)
}

// Runner persists a parsed batch.
type Runner interface {
	Run(ctx context.Context, fresh []record.Event, budget *scheduler.Budget) (pipeline.Summary, error)
}

// Crawler fetches, parses and hands events to the pipeline.
type Crawler struct {
	getter    Getter
	runner    Runner
	readmeURL string
	logger    *zap.Logger
}

// New builds a Crawler. An empty readmeURL uses DefaultReadmeURL.
func New(getter Getter, runner Runner, readmeURL string, logger *zap.Logger) *Crawler {
	if readmeURL == "" {
		readmeURL = DefaultReadmeURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crawler{getter: getter, runner: runner, readmeURL: readmeURL, logger: logger.With(zap.String("source", Source))}
}

// Run ingests the README, enriching at most limit events. A failed README
// fetch aborts the run before anything is saved.
func (c *Crawler) Run(ctx context.Context, limit int) (pipeline.Summary, error) {
	c.logger.Info("fetching event list", zap.String("url", c.readmeURL), zap.Int("limit", limit))
	body, err := c.getter.Get(ctx, c.readmeURL)
	if err != nil {
		return pipeline.Summary{Source: Source}, fmt.Errorf("fetch event readme: %w", err)
	}
	events := Parse(string(body))
	c.logger.Info("parsed events", zap.Int("count", len(events)))
	if len(events) == 0 {
		return pipeline.Summary{Source: Source}, fmt.Errorf("parse event readme: %w", pipeline.ErrNothingParsed)
	}
	return c.runner.Run(ctx, events, scheduler.NewBudget(limit))
}
