package enrich

import (
	"context"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/JakeFAU/devfeed-crawler/internal/metrics"
)

// Scraper fetches a page as markdown or plain text.
type Scraper interface {
	Scrape(ctx context.Context, url string) (string, error)
}

// Generator produces model text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, jsonMode bool) (string, error)
}

// Target identifies the record being enriched.
type Target struct {
	Key   string
	URL   string
	Title string
	Hints map[string]string
}

// Spec carries the source-specific parts of the pipeline.
type Spec[P any] struct {
	Source     string
	Delay      time.Duration
	MaxContent int
	MinContent int
	Prompt     func(t Target, content string) string
	Fallback   func(t Target, raw string, reason Class) P
}

// Result is a decoded payload plus the raw content it came from.
type Result[P any] struct {
	Payload  P
	Raw      string
	Fallback bool
	Reason   Class
	Attempts int
}

// Option customizes a Gateway.
type Option func(*options)

type options struct {
	breaker *Breaker
	policy  Policy
	pauser  Pauser
	logger  *zap.Logger
}

// WithBreaker shares a breaker between gateways of the same run.
func WithBreaker(b *Breaker) Option {
	return func(o *options) { o.breaker = b }
}

// WithPolicy overrides the retry policy.
func WithPolicy(p Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithPauser overrides how the politeness delay and retry backoff wait.
func WithPauser(p Pauser) Option {
	return func(o *options) { o.pauser = p }
}

// WithLogger sets the gateway logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Gateway runs scrape, delay, prompt, parse for one source.
type Gateway[P any] struct {
	spec    Spec[P]
	scraper Scraper
	gen     Generator
	breaker *Breaker
	policy  Policy
	pauser  Pauser
	logger  *zap.Logger
}

// NewGateway builds a Gateway. Without WithBreaker the gateway owns a fresh
// breaker.
func NewGateway[P any](spec Spec[P], scraper Scraper, gen Generator, opts ...Option) *Gateway[P] {
	o := options{policy: DefaultPolicy()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.breaker == nil {
		o.breaker = NewBreaker()
	}
	if o.pauser == nil {
		o.pauser = TimerPauser{}
	}
	if o.policy.Pauser == nil {
		o.policy.Pauser = o.pauser
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if spec.MinContent <= 0 {
		spec.MinContent = 50
	}
	return &Gateway[P]{
		spec:    spec,
		scraper: scraper,
		gen:     gen,
		breaker: o.breaker,
		policy:  o.policy,
		pauser:  o.pauser,
		logger:  o.logger.With(zap.String("source", spec.Source)),
	}
}

// Breaker returns the breaker the gateway reports to.
func (g *Gateway[P]) Breaker() *Breaker {
	return g.breaker
}

// Enrich returns nil when the page could not be scraped or is too short, and
// otherwise a decoded or fallback payload. It never panics.
func (g *Gateway[P]) Enrich(ctx context.Context, t Target) (res *Result[P]) {
	logger := g.logger.With(zap.String("url", t.URL))
	defer func() {
		if r := recover(); r != nil {
			logger.Error("enrichment panicked", zap.Any("panic", r))
			metrics.ObserveEnrichment(g.spec.Source, "panic")
			res = nil
		}
	}()

	raw, err := g.scraper.Scrape(ctx, t.URL)
	if err != nil {
		logger.Warn("scrape failed", zap.Error(err))
		metrics.ObserveEnrichment(g.spec.Source, "scrape_failed")
		return nil
	}
	if utf8.RuneCountInString(raw) < g.spec.MinContent {
		logger.Warn("scraped content too short", zap.Int("runes", utf8.RuneCountInString(raw)))
		metrics.ObserveEnrichment(g.spec.Source, "too_short")
		return nil
	}

	if g.breaker.Open() {
		reason := g.breaker.Reason()
		logger.Debug("circuit breaker open, skipping model call",
			zap.Stringer("reason", reason), zap.NamedError("cause", g.breaker.Cause()))
		metrics.ObserveEnrichment(g.spec.Source, "fallback")
		return &Result[P]{Payload: g.spec.Fallback(t, raw, reason), Raw: raw, Fallback: true, Reason: reason}
	}

	if err := g.pauser.Pause(ctx, g.spec.Delay); err != nil {
		logger.Warn("politeness delay interrupted", zap.Error(err))
		return nil
	}

	prompt := g.spec.Prompt(t, Truncate(raw, g.spec.MaxContent))
	payload, outcome := Call(ctx, g.policy, g.breaker, Classify,
		func(ctx context.Context) (P, error) {
			text, err := g.gen.Generate(ctx, prompt, true)
			if err != nil {
				var zero P
				return zero, err
			}
			return Decode[P](text)
		},
		func(reason Class, _ error) P {
			return g.spec.Fallback(t, raw, reason)
		},
	)
	if ctx.Err() != nil {
		return nil
	}
	if outcome.Tripped {
		logger.Error("circuit breaker tripped, remaining records use raw content",
			zap.Stringer("reason", outcome.Class), zap.Error(outcome.Err))
		metrics.ObserveBreakerTrip(g.spec.Source, outcome.Class.String())
	}
	if outcome.Fallback {
		logger.Warn("enrichment fell back to raw content",
			zap.Stringer("reason", outcome.Class),
			zap.Int("attempts", outcome.Attempts),
			zap.Error(outcome.Err))
		metrics.ObserveEnrichment(g.spec.Source, "fallback")
	} else {
		metrics.ObserveEnrichment(g.spec.Source, "success")
	}
	return &Result[P]{
		Payload:  payload,
		Raw:      raw,
		Fallback: outcome.Fallback,
		Reason:   outcome.Class,
		Attempts: outcome.Attempts,
	}
}

// Truncate returns at most limit runes of s. A non-positive limit keeps s.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
