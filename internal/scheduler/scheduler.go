package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/devfeed-crawler/internal/enrich"
	"github.com/JakeFAU/devfeed-crawler/internal/metrics"
	"github.com/JakeFAU/devfeed-crawler/internal/record"
)

// Candidate is a record the scheduler can augment in place.
type Candidate interface {
	IdentityKey() string
	NeedsEnrichment() bool
	EnrichmentStatus() record.Status
	PageURL() string
	CoverImage() string
	SetCoverImage(string)
	TagValues() []string
	SetTagValues([]string)
	TagInput() (title, summary, author string)
}

// ThumbnailFinder looks up a cover image for a page.
type ThumbnailFinder interface {
	FindImage(ctx context.Context, pageURL string) (string, error)
}

// Enricher runs the expensive enrichment of one record and writes the result
// onto it. A returned error leaves the record's expensive fields as they were.
type Enricher[C any] interface {
	Enrich(ctx context.Context, c C) error
}

// EnricherFunc adapts a function to Enricher.
type EnricherFunc[C any] func(ctx context.Context, c C) error

// Enrich calls f.
func (f EnricherFunc[C]) Enrich(ctx context.Context, c C) error {
	return f(ctx, c)
}

// Tagger assigns tags to a record.
type Tagger interface {
	Classify(ctx context.Context, title, summary, author string) []string
}

// Config tunes a Scheduler.
type Config struct {
	Source string
	// ThumbnailDelay is waited after every thumbnail lookup.
	ThumbnailDelay time.Duration
	Pauser         enrich.Pauser
}

// Report counts what one Run did.
type Report struct {
	Candidates int
	Attempted  int
	Enriched   int
	Skipped    int
	Thumbnails int
	Tagged     int
	Failures   int
}

// Scheduler augments candidates in parse order. Any collaborator may be nil,
// which disables its step.
type Scheduler[C Candidate] struct {
	thumbnails ThumbnailFinder
	enricher   Enricher[C]
	tagger     Tagger
	cfg        Config
	logger     *zap.Logger
}

// New builds a Scheduler.
func New[C Candidate](
	thumbnails ThumbnailFinder,
	enricher Enricher[C],
	tagger Tagger,
	cfg Config,
	logger *zap.Logger,
) *Scheduler[C] {
	if cfg.Pauser == nil {
		cfg.Pauser = enrich.TimerPauser{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler[C]{
		thumbnails: thumbnails,
		enricher:   enricher,
		tagger:     tagger,
		cfg:        cfg,
		logger:     logger.With(zap.String("source", cfg.Source)),
	}
}

// Run enriches candidates needing it while budget allows, backfills missing
// thumbnails and empty tags on every candidate, and returns the candidates it
// reached. Step failures are logged and never stop the loop; a canceled ctx
// does.
func (s *Scheduler[C]) Run(ctx context.Context, candidates []C, budget *Budget) ([]C, Report) {
	report := Report{Candidates: len(candidates)}
	for i, c := range candidates {
		if ctx.Err() != nil {
			s.logger.Warn("run interrupted", zap.Int("processed", i), zap.Int("total", len(candidates)))
			return candidates[:i], report
		}
		logger := s.logger.With(zap.String("key", c.IdentityKey()))

		if s.enricher != nil && c.NeedsEnrichment() {
			if budget.Take() {
				report.Attempted++
				err := guard(func() error { return s.enricher.Enrich(ctx, c) })
				if err != nil {
					report.Failures++
					logger.Warn("enrichment failed", zap.Error(err))
				} else {
					report.Enriched++
					logger.Debug("record enriched", zap.String("status", string(c.EnrichmentStatus())))
				}
			} else {
				report.Skipped++
			}
		}

		if s.thumbnails != nil && c.CoverImage() == "" && c.PageURL() != "" {
			if s.backfillThumbnail(ctx, c, logger) {
				report.Thumbnails++
			}
		}

		if s.tagger != nil && len(c.TagValues()) == 0 {
			var tags []string
			title, summary, author := c.TagInput()
			err := guard(func() error {
				tags = s.tagger.Classify(ctx, title, summary, author)
				return nil
			})
			if err != nil {
				report.Failures++
				logger.Warn("tagging failed", zap.Error(err))
			} else if len(tags) > 0 {
				c.SetTagValues(tags)
				report.Tagged++
			}
		}
	}
	s.logger.Info("scheduler pass complete",
		zap.Int("candidates", report.Candidates),
		zap.Int("attempted", report.Attempted),
		zap.Int("enriched", report.Enriched),
		zap.Int("skipped", report.Skipped),
		zap.Int("thumbnails", report.Thumbnails),
		zap.Int("tagged", report.Tagged))
	return candidates, report
}

func (s *Scheduler[C]) backfillThumbnail(ctx context.Context, c C, logger *zap.Logger) bool {
	var image string
	err := guard(func() error {
		var findErr error
		image, findErr = s.thumbnails.FindImage(ctx, c.PageURL())
		return findErr
	})
	if pauseErr := s.cfg.Pauser.Pause(ctx, s.cfg.ThumbnailDelay); pauseErr != nil {
		logger.Debug("thumbnail delay interrupted", zap.Error(pauseErr))
	}
	switch {
	case err != nil:
		logger.Debug("thumbnail lookup failed", zap.Error(err))
		metrics.ObserveThumbnail(s.cfg.Source, "error")
		return false
	case image == "":
		metrics.ObserveThumbnail(s.cfg.Source, "missing")
		return false
	}
	c.SetCoverImage(image)
	metrics.ObserveThumbnail(s.cfg.Source, "found")
	return true
}

// guard converts a panic in step into an error.
func guard(step func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered panic: %v", r)
		}
	}()
	return step()
}
