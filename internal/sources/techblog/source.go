package techblog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/devfeed-crawler/internal/clock"
	"github.com/JakeFAU/devfeed-crawler/internal/clock/system"
	"github.com/JakeFAU/devfeed-crawler/internal/enrich"
	"github.com/JakeFAU/devfeed-crawler/internal/identity"
	"github.com/JakeFAU/devfeed-crawler/internal/metrics"
	"github.com/JakeFAU/devfeed-crawler/internal/publisher"
	"github.com/JakeFAU/devfeed-crawler/internal/record"
	"github.com/JakeFAU/devfeed-crawler/internal/scheduler"
)

// ErrAllFeedsFailed is returned when no feed of a run could be read.
var ErrAllFeedsFailed = errors.New("every feed failed")

// Getter fetches a document body.
type Getter interface {
	Get(ctx context.Context, rawURL string) ([]byte, error)
}

// Config tunes a Crawler.
type Config struct {
	Feeds     []Feed
	FeedDelay time.Duration
	Pauser    enrich.Pauser
	Clock     clock.Clock
}

// Stats summarizes one run.
type Stats struct {
	Feeds       int
	FailedFeeds int
	Processed   int
	Inserted    int
	Duplicates  int
	Published   int
	Report      scheduler.Report
}

// DedupRate is the share of processed entries that were already known, in
// percent.
func (s Stats) DedupRate() float64 {
	if s.Processed == 0 {
		return 0
	}
	return float64(s.Duplicates) / float64(s.Processed) * 100
}

// Crawler polls every feed and inserts unseen articles, one feed at a time.
type Crawler struct {
	getter    Getter
	store     TableStore
	scheduler *scheduler.Scheduler[*record.Article]
	notifier  *publisher.Notifier
	cfg       Config
	logger    *zap.Logger
}

// New builds a Crawler. sched and notifier may be nil.
func New(
	getter Getter,
	store TableStore,
	sched *scheduler.Scheduler[*record.Article],
	notifier *publisher.Notifier,
	cfg Config,
	logger *zap.Logger,
) *Crawler {
	if len(cfg.Feeds) == 0 {
		cfg.Feeds = DefaultFeeds
	}
	if cfg.Pauser == nil {
		cfg.Pauser = enrich.TimerPauser{}
	}
	if cfg.Clock == nil {
		cfg.Clock = system.New(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crawler{
		getter:    getter,
		store:     store,
		scheduler: sched,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger.With(zap.String("source", Source)),
	}
}

// Run ingests every feed, enriching at most limit new articles across the
// whole run. Articles are inserted after each feed, so an interrupted run
// keeps what earlier feeds stored.
func (c *Crawler) Run(ctx context.Context, limit int) (Stats, error) {
	start := time.Now()
	defer func() { metrics.ObserveRun(Source, time.Since(start)) }()

	stats := Stats{Feeds: len(c.cfg.Feeds)}
	seen, err := LoadSeen(ctx, c.store)
	if err != nil {
		return stats, err
	}
	c.logger.Info("loaded stored articles", zap.Int("count", seen.Len()), zap.Int("feeds", stats.Feeds))

	budget := scheduler.NewBudget(limit)
	assigner := identity.NewAssigner()
	for i, feed := range c.cfg.Feeds {
		if ctx.Err() != nil {
			break
		}
		if i > 0 {
			if err := c.cfg.Pauser.Pause(ctx, c.cfg.FeedDelay); err != nil {
				break
			}
		}
		c.runFeed(ctx, feed, seen, budget, assigner, &stats)
	}

	c.logger.Info("feed crawl complete",
		zap.Int("processed", stats.Processed),
		zap.Int("inserted", stats.Inserted),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("failed_feeds", stats.FailedFeeds),
		zap.Float64("dedup_rate", stats.DedupRate()))

	if ctx.Err() != nil {
		return stats, ctx.Err()
	}
	if stats.Feeds > 0 && stats.FailedFeeds == stats.Feeds {
		return stats, ErrAllFeedsFailed
	}
	return stats, nil
}

func (c *Crawler) runFeed(
	ctx context.Context,
	feed Feed,
	seen *Seen,
	budget *scheduler.Budget,
	assigner *identity.Assigner,
	stats *Stats,
) {
	logger := c.logger.With(zap.String("feed", feed.Name))
	articles, err := c.fetch(ctx, feed)
	if err != nil {
		stats.FailedFeeds++
		metrics.ObserveFeed(feed.Name, "error")
		logger.Warn("feed failed", zap.Error(err))
		return
	}
	metrics.ObserveFeed(feed.Name, "ok")
	stats.Processed += len(articles)

	fresh := make([]*record.Article, 0, len(articles))
	duplicates := 0
	for i := range articles {
		if !seen.Accept(articles[i]) {
			duplicates++
			continue
		}
		fresh = append(fresh, &articles[i])
	}
	stats.Duplicates += duplicates
	if len(fresh) == 0 {
		logger.Info("no new articles", zap.Int("duplicates", duplicates))
		return
	}

	if c.scheduler != nil {
		var report scheduler.Report
		fresh, report = c.scheduler.Run(ctx, fresh, budget)
		addReport(&stats.Report, report)
	}

	rows := make([][]any, 0, len(fresh))
	notices := make([]publisher.RecordCreated, 0, len(fresh))
	for _, a := range fresh {
		a.ID = assigner.Assign(a.ID, a.IdentityKey())
		rows = append(rows, Row(*a))
		notices = append(notices, publisher.RecordCreated{
			Source:      Source,
			ID:          a.ID,
			IdentityKey: a.IdentityKey(),
			Title:       a.Title,
		})
	}
	saveCtx := context.WithoutCancel(ctx)
	inserted, err := c.store.InsertMany(saveCtx, Columns, rows)
	if err != nil {
		logger.Error("insert failed", zap.Int("articles", len(rows)), zap.Error(err))
		return
	}
	stats.Inserted += inserted
	metrics.ObserveRecordsSaved(Source, inserted)
	stats.Published += c.notifier.Created(saveCtx, notices)
	logger.Info("inserted articles", zap.Int("inserted", inserted), zap.Int("duplicates", duplicates))
}

func (c *Crawler) fetch(ctx context.Context, feed Feed) ([]record.Article, error) {
	body, err := c.getter.Get(ctx, feed.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	return ParseFeed(body, feed, c.cfg.Clock.Now())
}

func addReport(total *scheduler.Report, r scheduler.Report) {
	total.Candidates += r.Candidates
	total.Attempted += r.Attempted
	total.Enriched += r.Enriched
	total.Skipped += r.Skipped
	total.Thumbnails += r.Thumbnails
	total.Tagged += r.Tagged
	total.Failures += r.Failures
}
