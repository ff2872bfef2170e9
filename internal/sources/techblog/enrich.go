package techblog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JakeFAU/devfeed-crawler/internal/enrich"
	"github.com/JakeFAU/devfeed-crawler/internal/record"
	"github.com/JakeFAU/devfeed-crawler/internal/tagger"
)

// Source is the metrics and log label of this source.
const Source = "blogs"

// Enrichment defaults.
const (
	DefaultDelay      = 4 * time.Second
	DefaultMaxContent = 20000
	// MaxArticleTags caps feed tags merged with model tags.
	MaxArticleTags = 8
)

var errNoContent = errors.New("article could not be scraped")

// Payload is the model's reading of an article.
type Payload struct {
	Summary enrich.Text       `json:"summary"`
	Tags    enrich.StringList `json:"tags"`
}

// Spec returns the gateway spec for articles. The fallback carries no
// summary so the article keeps its feed excerpt only.
func Spec(delay time.Duration, maxContent int) enrich.Spec[Payload] {
	if maxContent <= 0 {
		maxContent = DefaultMaxContent
	}
	return enrich.Spec[Payload]{
		Source:     Source,
		Delay:      delay,
		MaxContent: maxContent,
		Prompt:     buildPrompt,
		Fallback: func(enrich.Target, string, enrich.Class) Payload {
			return Payload{}
		},
	}
}

func buildPrompt(t enrich.Target, content string) string {
	var b strings.Builder
	b.WriteString("You summarize engineering blog posts for Korean developers.\n\n")
	fmt.Fprintf(&b, "Title: %s\nBlog: %s\n\nArticle:\n%s\n\n", t.Title, t.Hints["author"], content)
	b.WriteString("Write a 3-4 sentence Korean summary of the key technical points, and pick up to 6 tags from this list: ")
	b.WriteString(strings.Join(tagger.AllowedTags, ", "))
	b.WriteString(".\nRespond with JSON only: {\"summary\": \"...\", \"tags\": [\"...\"]}")
	return b.String()
}

// Enricher writes gateway results onto articles.
type Enricher struct {
	gateway *enrich.Gateway[Payload]
}

// NewEnricher wraps gateway.
func NewEnricher(gateway *enrich.Gateway[Payload]) *Enricher {
	return &Enricher{gateway: gateway}
}

// Enrich summarizes the article page.
func (en *Enricher) Enrich(ctx context.Context, a *record.Article) error {
	res := en.gateway.Enrich(ctx, enrich.Target{
		Key:   a.IdentityKey(),
		URL:   a.ExternalURL,
		Title: a.Title,
		Hints: map[string]string{"author": a.Author},
	})
	if res == nil {
		return errNoContent
	}
	Apply(a, res.Payload)
	return nil
}

// Apply sets the AI summary and merges allowed model tags after the feed
// tags.
func Apply(a *record.Article, p Payload) {
	if s := p.Summary.String(); s != "" {
		a.AISummary = s
	}
	if len(p.Tags) > 0 {
		a.Tags = tagger.Merge(a.Tags, tagger.ParseTags(strings.Join(p.Tags, ",")), MaxArticleTags)
	}
}
