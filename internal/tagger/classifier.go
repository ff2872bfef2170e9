package tagger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/devfeed-crawler/internal/enrich"
	"github.com/JakeFAU/devfeed-crawler/internal/metrics"
)

// MaxTags caps the model path.
const MaxTags = 6

// Path names the classifier branch that produced a tag set.
type Path string

// Classifier paths.
const (
	PathAI      Path = "ai"
	PathKeyword Path = "keyword"
)

// Config tunes a Classifier.
type Config struct {
	Source       string
	RequestDelay time.Duration
	Policy       enrich.Policy
	Pauser       enrich.Pauser
}

// Classifier tags records with the model and falls back to keywords.
type Classifier struct {
	gen     enrich.Generator
	breaker *enrich.Breaker
	cfg     Config
	logger  *zap.Logger
}

// New builds a Classifier. A nil generator always uses the keyword path; a
// nil breaker gets a private one.
func New(gen enrich.Generator, breaker *enrich.Breaker, cfg Config, logger *zap.Logger) *Classifier {
	if breaker == nil {
		breaker = enrich.NewBreaker()
	}
	if cfg.Pauser == nil {
		cfg.Pauser = enrich.TimerPauser{}
	}
	if cfg.Policy.MaxAttempts == 0 {
		cfg.Policy = enrich.DefaultPolicy()
	}
	if cfg.Policy.Pauser == nil {
		cfg.Policy.Pauser = cfg.Pauser
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{gen: gen, breaker: breaker, cfg: cfg, logger: logger}
}

// Classify returns up to MaxTags tags from AllowedTags.
func (c *Classifier) Classify(ctx context.Context, title, summary, author string) []string {
	tags, path := c.ClassifyPath(ctx, title, summary, author)
	if len(tags) > 0 {
		metrics.ObserveTags(c.cfg.Source, string(path))
	}
	return tags
}

// ClassifyPath is Classify that also reports which path produced the tags.
func (c *Classifier) ClassifyPath(ctx context.Context, title, summary, author string) ([]string, Path) {
	if c.gen == nil || c.breaker.Open() {
		return Fallback(title, summary, author), PathKeyword
	}

	prompt := BuildPrompt(title, summary, author)
	text, outcome := enrich.Call(ctx, c.cfg.Policy, c.breaker, nil,
		func(ctx context.Context) (string, error) {
			return c.gen.Generate(ctx, prompt, false)
		},
		func(enrich.Class, error) string { return "" },
	)
	if outcome.Tripped {
		c.logger.Warn("tag classifier tripped the circuit breaker",
			zap.Stringer("reason", outcome.Class), zap.Error(outcome.Err))
		metrics.ObserveBreakerTrip(c.cfg.Source, outcome.Class.String())
	}
	if err := c.cfg.Pauser.Pause(ctx, c.cfg.RequestDelay); err != nil {
		c.logger.Debug("tag request delay interrupted", zap.Error(err))
	}

	tags := ParseTags(text)
	if len(tags) == 0 {
		if outcome.Err != nil {
			c.logger.Debug("model tagging failed, using keywords", zap.Error(outcome.Err))
		}
		return Fallback(title, summary, author), PathKeyword
	}
	return tags, PathAI
}

// BuildPrompt renders the tagging prompt.
func BuildPrompt(title, summary, author string) string {
	return strings.TrimSpace(fmt.Sprintf(`
You are a concise tagger for a tech blog aggregator.
Article:
- Title: %s
- Author/Blog: %s
- Summary: %s

Task: Choose 3-6 tags that best describe the article from the allowed list.
Allowed List: %s

Output Format: Comma-separated list only. No extra text.
`, title, author, summary, strings.Join(AllowedTags, ", ")))
}

// ParseTags reads a comma or newline separated answer. Brackets are
// stripped, tokens are lower-cased and trimmed, duplicates and tokens outside
// AllowedTags are dropped, and at most MaxTags remain.
func ParseTags(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	text = strings.NewReplacer("[", "", "]", "").Replace(text)
	parts := strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == '\n' })

	out := make([]string, 0, MaxTags)
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		tag := strings.ToLower(strings.Trim(strings.TrimSpace(part), `"'`+"`"))
		if tag == "" || !IsAllowed(tag) {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
		if len(out) == MaxTags {
			break
		}
	}
	return out
}

// Merge appends extra to base, lower-cased and deduplicated, keeping at most
// limit tags. A non-positive limit keeps everything.
func Merge(base, extra []string, limit int) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]struct{}, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, tag := range list {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag == "" {
				continue
			}
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// FromFeedCategory returns the base tags implied by a feed's category code.
func FromFeedCategory(category string) []string {
	switch strings.ToUpper(strings.TrimSpace(category)) {
	case "FE":
		return []string{"frontend", "web"}
	case "BE":
		return []string{"backend"}
	case "AI":
		return []string{"ai"}
	case "APP":
		return []string{"mobile"}
	}
	return nil
}
