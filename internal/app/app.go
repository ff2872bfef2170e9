// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/devfeed-crawler/internal/api"
	"github.com/JakeFAU/devfeed-crawler/internal/clock"
	"github.com/JakeFAU/devfeed-crawler/internal/clock/system"
	"github.com/JakeFAU/devfeed-crawler/internal/config"
	"github.com/JakeFAU/devfeed-crawler/internal/enrich"
	"github.com/JakeFAU/devfeed-crawler/internal/fetcher"
	collyfetcher "github.com/JakeFAU/devfeed-crawler/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/devfeed-crawler/internal/fetcher/headless"
	"github.com/JakeFAU/devfeed-crawler/internal/headless/detector"
	"github.com/JakeFAU/devfeed-crawler/internal/id/uuid"
	"github.com/JakeFAU/devfeed-crawler/internal/llm"
	"github.com/JakeFAU/devfeed-crawler/internal/metrics"
	"github.com/JakeFAU/devfeed-crawler/internal/pipeline"
	"github.com/JakeFAU/devfeed-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/devfeed-crawler/internal/publisher"
	pubmemory "github.com/JakeFAU/devfeed-crawler/internal/publisher/memory"
	"github.com/JakeFAU/devfeed-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/devfeed-crawler/internal/record"
	"github.com/JakeFAU/devfeed-crawler/internal/scheduler"
	"github.com/JakeFAU/devfeed-crawler/internal/scrape"
	"github.com/JakeFAU/devfeed-crawler/internal/sources/devevent"
	"github.com/JakeFAU/devfeed-crawler/internal/sources/saramin"
	"github.com/JakeFAU/devfeed-crawler/internal/sources/techblog"
	"github.com/JakeFAU/devfeed-crawler/internal/storage"
	"github.com/JakeFAU/devfeed-crawler/internal/storage/gcs"
	"github.com/JakeFAU/devfeed-crawler/internal/storage/jsonfile"
	"github.com/JakeFAU/devfeed-crawler/internal/storage/local"
	"github.com/JakeFAU/devfeed-crawler/internal/storage/postgres"
	"github.com/JakeFAU/devfeed-crawler/internal/tagger"
	"github.com/JakeFAU/devfeed-crawler/internal/telemetry"
	"github.com/JakeFAU/devfeed-crawler/internal/thumbnail"
)

// App holds the shared, long-lived services for one process. Source crawlers
// are assembled on demand so each run gets its own circuit breaker.
type App struct {
	cfg    config.Config
	logger *zap.Logger
	clock  clock.Clock
	ids    uuid.Generator

	fetcher  *collyfetcher.Fetcher
	headless *headlessfetcher.Fetcher
	scraper  enrich.Scraper
	redis    *redis.Client
	gen      enrich.Generator

	blobs     storage.BlobStore
	gcs       *gcs.BlobStore
	publisher publisher.Publisher
	pubsub    *pubsub.Publisher
	table     *postgres.TableStore
	tracer    *sdktrace.TracerProvider
}

// Option customizes New, mostly for tests.
type Option func(*App)

// WithGenerator replaces the configured model provider.
func WithGenerator(gen enrich.Generator) Option {
	return func(a *App) { a.gen = gen }
}

// WithClock pins the clock used for parse timestamps.
func WithClock(c clock.Clock) Option {
	return func(a *App) { a.clock = c }
}

// WithPublisher replaces the configured notification publisher.
func WithPublisher(p publisher.Publisher) Option {
	return func(a *App) { a.publisher = p }
}

// New creates the services described by cfg. It fails fast when a configured
// backend cannot be reached; the optional scrape cache only logs.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger, clock: system.New(nil), ids: uuid.New()}
	for _, opt := range opts {
		opt(a)
	}
	logger.Info("initializing application services")

	tp, err := telemetry.InitTracerProvider(ctx, "devfeed-crawler", a.ids.MustID())
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.tracer = tp

	limiter := ratelimit.New(ratelimit.Config{
		DefaultRPS:   cfg.HTTP.RPS,
		DefaultBurst: cfg.HTTP.Burst,
		Domains:      cfg.HTTP.Domains,
	})
	a.fetcher = collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.HTTP.UserAgent,
		RespectRobots: cfg.HTTP.RespectRobots,
		Timeout:       cfg.HTTP.Timeout(),
	}, limiter)

	if err := a.initScraper(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if a.gen == nil {
		gen, err := llm.New(llm.Config{
			Provider:  cfg.LLM.Provider,
			APIKey:    cfg.LLM.APIKey,
			Model:     cfg.LLM.Model,
			BaseURL:   cfg.LLM.BaseURL,
			MaxTokens: cfg.LLM.MaxTokens,
			Timeout:   time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		}, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init llm: %w", err)
		}
		a.gen = gen
	}
	if err := a.initStorage(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if a.publisher == nil {
		if err := a.initPublisher(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	logger.Info("application services initialized",
		zap.String("storage", cfg.Storage.Backend),
		zap.String("scrape", cfg.Scrape.Provider),
		zap.Bool("llm", a.gen != nil),
		zap.Bool("headless", a.headless != nil),
		zap.Bool("scrape_cache", a.redis != nil))
	return a, nil
}

func (a *App) initScraper(ctx context.Context) error {
	cfg := a.cfg
	var headless fetcher.Fetcher
	var promoter scrape.Promoter
	if cfg.Headless.Enabled {
		a.headless = headlessfetcher.NewChromedp(headlessfetcher.Config{
			UserAgent:         cfg.HTTP.UserAgent,
			NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
			Settle:            config.Millis(cfg.Headless.SettleMs),
		})
		headless = a.headless
		promoter = detector.NewHeuristic(cfg.Headless.MinVisibleText)
	}
	readable := scrape.NewReadability(a.fetcher, headless, promoter, a.logger.Named("readability"))

	var scraper enrich.Scraper = readable
	switch cfg.Scrape.Provider {
	case "firecrawl", "auto":
		if cfg.Scrape.FirecrawlAPIKey == "" {
			break
		}
		fc, err := scrape.NewFirecrawl(scrape.FirecrawlConfig{
			APIKey:  cfg.Scrape.FirecrawlAPIKey,
			BaseURL: cfg.Scrape.FirecrawlURL,
		})
		if err != nil {
			return fmt.Errorf("init firecrawl: %w", err)
		}
		scraper = fc
		if cfg.Scrape.Provider == "auto" {
			scraper = scrape.Fallback{Primary: fc, Secondary: readable, Logger: a.logger}
		}
	}

	if cfg.Redis.Addr != "" {
		rdb, err := scrape.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.logger.Warn("scrape cache unavailable, scraping uncached", zap.Error(err))
		} else {
			a.redis = rdb
			ttl := time.Duration(cfg.Scrape.CacheTTLSeconds) * time.Second
			scraper = scrape.NewCached(scraper, rdb, ttl, a.logger.Named("scrape_cache"))
		}
	}
	a.scraper = scraper
	return nil
}

func (a *App) initStorage(ctx context.Context) error {
	switch a.cfg.Storage.Backend {
	case "gcs":
		store, err := gcs.Open(ctx, gcs.Config{Bucket: a.cfg.Storage.GCSBucket, Prefix: a.cfg.Storage.Prefix})
		if err != nil {
			return fmt.Errorf("init gcs storage: %w", err)
		}
		a.gcs = store
		a.blobs = store
	case "local", "":
		store, err := local.New(local.Config{BaseDir: a.cfg.Storage.BaseDir})
		if err != nil {
			return fmt.Errorf("init local storage: %w", err)
		}
		a.blobs = store
	default:
		return fmt.Errorf("unknown storage backend: %s", a.cfg.Storage.Backend)
	}
	return nil
}

func (a *App) initPublisher(ctx context.Context) error {
	switch a.cfg.PubSub.Provider {
	case "gcp":
		p, err := pubsub.Open(ctx, a.cfg.PubSub.ProjectID, a.cfg.PubSub.Topic, a.logger.Named("pubsub"))
		if err != nil {
			return fmt.Errorf("init pubsub: %w", err)
		}
		a.pubsub = p
		a.publisher = p
	case "memory":
		a.publisher = pubmemory.New()
	case "none", "":
	default:
		return fmt.Errorf("unknown pubsub provider: %s", a.cfg.PubSub.Provider)
	}
	return nil
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Config returns the configuration the app was built from.
func (a *App) Config() config.Config {
	return a.cfg
}

// RunID returns a fresh id for correlating the logs of one run.
func (a *App) RunID() string {
	return a.ids.MustID()
}

// EventStore opens the JSON document holding events.
func (a *App) EventStore() (*jsonfile.Store[record.Event], error) {
	blobs, path, err := a.documentBlobs(a.cfg.Events.JSONPath)
	if err != nil {
		return nil, err
	}
	return jsonfile.New[record.Event](blobs, path, a.logger)
}

// JobStore opens the JSON document holding job postings.
func (a *App) JobStore() (*jsonfile.Store[record.JobPosting], error) {
	blobs, path, err := a.documentBlobs(a.cfg.Jobs.JSONPath)
	if err != nil {
		return nil, err
	}
	return jsonfile.New[record.JobPosting](blobs, path, a.logger)
}

// documentBlobs returns the blob store and object path for a JSON document.
// An absolute path on the local backend is stored in its own directory
// instead of under storage.base_dir.
func (a *App) documentBlobs(path string) (storage.BlobStore, string, error) {
	if a.cfg.Storage.Backend == "gcs" || !filepath.IsAbs(path) {
		return a.blobs, path, nil
	}
	store, err := local.New(local.Config{BaseDir: filepath.Dir(path)})
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", path, err)
	}
	return store, filepath.Base(path), nil
}

// TableStore connects to the article table on first use.
func (a *App) TableStore(ctx context.Context) (*postgres.TableStore, error) {
	if a.table != nil {
		return a.table, nil
	}
	if strings.TrimSpace(a.cfg.DB.DSN) == "" {
		return nil, errors.New("db.dsn must be set for the article table")
	}
	store, err := postgres.NewTableStore(ctx, postgres.TableStoreConfig{
		DSN:      a.cfg.DB.DSN,
		Table:    a.cfg.DB.Table,
		PageSize: a.cfg.DB.PageSize,
		MaxConns: a.cfg.DB.MaxConns,
	}, a.logger.Named("postgres"))
	if err != nil {
		return nil, fmt.Errorf("init table store: %w", err)
	}
	a.table = store
	a.logger.Info("article table store opened", zap.String("table", store.Table()))
	return store, nil
}

// Notifier returns the record.created notifier; it is a no-op without a
// publisher.
func (a *App) Notifier() *publisher.Notifier {
	return publisher.NewNotifier(a.publisher, a.cfg.PubSub.Topic, a.logger.Named("notifier"))
}

func (a *App) policy() enrich.Policy {
	return enrich.Policy{
		MaxAttempts: a.cfg.LLM.MaxAttempts,
		BaseDelay:   config.Millis(a.cfg.LLM.RetryBaseMs),
		MaxDelay:    config.Millis(a.cfg.LLM.RetryMaxMs),
	}
}

func (a *App) classifier(source string, breaker *enrich.Breaker) *tagger.Classifier {
	p := a.policy()
	p.BaseDelay = config.Millis(a.cfg.Tagger.RetryBaseMs)
	return tagger.New(a.gen, breaker, tagger.Config{
		Source:       source,
		RequestDelay: config.Millis(a.cfg.Tagger.RequestDelayMs),
		Policy:       p,
	}, a.logger.Named("tagger"))
}

func gatewayFor[P any](a *App, spec enrich.Spec[P], scraper enrich.Scraper, breaker *enrich.Breaker) *enrich.Gateway[P] {
	return enrich.NewGateway(spec, scraper, a.gen,
		enrich.WithBreaker(breaker),
		enrich.WithPolicy(a.policy()),
		enrich.WithLogger(a.logger.Named("enrich")),
	)
}

// Events assembles the event list crawler. Without a model provider,
// enrichment is skipped and records stay pending for a later run.
func (a *App) Events() (*devevent.Crawler, error) {
	store, err := a.EventStore()
	if err != nil {
		return nil, err
	}
	breaker := enrich.NewBreaker()
	var enricher scheduler.Enricher[*record.Event]
	if a.gen != nil {
		spec := devevent.Spec(config.Millis(a.cfg.Events.DelayMs), a.cfg.Events.MaxContent)
		enricher = devevent.NewEnricher(gatewayFor(a, spec, a.scraper, breaker))
	}
	sched := scheduler.New[*record.Event](
		thumbnail.NewMetaFinder(a.fetcher),
		enricher,
		a.classifier(devevent.Source, breaker),
		scheduler.Config{Source: devevent.Source, ThumbnailDelay: config.Millis(a.cfg.Events.ThumbnailDelayMs)},
		a.logger,
	)
	runner := pipeline.NewJSON[record.Event, *record.Event](devevent.Source, store, sched, a.Notifier(), a.logger)
	return devevent.New(a.fetcher, runner, a.cfg.Events.ReadmeURL, a.logger), nil
}

// Jobs assembles the job board crawler. Detail pages serve as both the raw
// content and the image source.
func (a *App) Jobs() (*saramin.Crawler, error) {
	store, err := a.JobStore()
	if err != nil {
		return nil, err
	}
	client := saramin.NewClient(a.fetcher, saramin.Config{
		BaseURL: a.cfg.Jobs.BaseURL,
		Keyword: a.cfg.Jobs.Keyword,
		Clock:   a.clock,
	}, a.logger)
	details := saramin.NewDetailPages(client)

	breaker := enrich.NewBreaker()
	var enricher scheduler.Enricher[*record.JobPosting]
	if a.gen != nil {
		spec := saramin.Spec(config.Millis(a.cfg.Jobs.DelayMs), a.cfg.Jobs.MaxContent)
		enricher = saramin.NewEnricher(gatewayFor(a, spec, details, breaker))
	}
	sched := scheduler.New[*record.JobPosting](
		details,
		enricher,
		a.classifier(saramin.Source, breaker),
		scheduler.Config{Source: saramin.Source},
		a.logger,
	)
	runner := pipeline.NewJSON[record.JobPosting, *record.JobPosting](saramin.Source, store, sched, a.Notifier(), a.logger)
	return saramin.New(client, runner, a.logger), nil
}

// Blogs assembles the feed crawler over the article table.
func (a *App) Blogs(ctx context.Context) (*techblog.Crawler, error) {
	table, err := a.TableStore(ctx)
	if err != nil {
		return nil, err
	}
	breaker := enrich.NewBreaker()
	var enricher scheduler.Enricher[*record.Article]
	if a.gen != nil {
		spec := techblog.Spec(config.Millis(a.cfg.Blogs.DelayMs), a.cfg.Blogs.MaxContent)
		enricher = techblog.NewEnricher(gatewayFor(a, spec, a.scraper, breaker))
	}
	sched := scheduler.New[*record.Article](
		thumbnail.NewMetaFinder(a.fetcher),
		enricher,
		a.classifier(techblog.Source, breaker),
		scheduler.Config{Source: techblog.Source, ThumbnailDelay: config.Millis(a.cfg.Blogs.ThumbnailDelayMs)},
		a.logger,
	)
	return techblog.New(a.fetcher, table, sched, a.Notifier(), techblog.Config{
		Feeds:     a.cfg.Blogs.Feeds,
		FeedDelay: config.Millis(a.cfg.Blogs.FeedDelayMs),
		Clock:     a.clock,
	}, a.logger), nil
}

// API builds the read-only HTTP server. Readiness pings the article table
// when a DSN is configured.
func (a *App) API(ctx context.Context) (*api.Server, error) {
	events, err := a.EventStore()
	if err != nil {
		return nil, err
	}
	jobs, err := a.JobStore()
	if err != nil {
		return nil, err
	}
	var ready api.Checker
	if a.cfg.DB.DSN != "" {
		table, err := a.TableStore(ctx)
		if err != nil {
			return nil, err
		}
		ready = table.Ping
	}
	return api.NewServer(api.Stores{Events: events, Jobs: jobs}, ready, a.logger.Named("api")), nil
}

// PushMetrics pushes the run's metrics when a Pushgateway is configured.
func (a *App) PushMetrics(ctx context.Context) {
	if err := metrics.Push(ctx, a.cfg.Metrics.PushgatewayURL, a.cfg.Metrics.Job); err != nil {
		a.logger.Warn("metrics push failed", zap.Error(err))
	}
}

// Close gracefully shuts down all services in the App container.
func (a *App) Close() {
	a.logger.Info("shutting down application services")
	if a.table != nil {
		a.table.Close()
	}
	if a.pubsub != nil {
		if err := a.pubsub.Close(); err != nil {
			a.logger.Warn("error closing pubsub client", zap.Error(err))
		}
	}
	if a.gcs != nil {
		if err := a.gcs.Close(); err != nil {
			a.logger.Warn("error closing gcs client", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("error closing redis client", zap.Error(err))
		}
	}
	if a.headless != nil {
		a.headless.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			a.logger.Warn("error shutting down tracer provider", zap.Error(err))
		}
	}
}
