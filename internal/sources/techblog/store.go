package techblog

import (
	"context"
	"fmt"
	"strings"

	"github.com/JakeFAU/devfeed-crawler/internal/identity"
	"github.com/JakeFAU/devfeed-crawler/internal/record"
)

// TableStore is the paged, append-only table the articles live in.
type TableStore interface {
	FetchAllPaged(ctx context.Context, columns ...string) ([]map[string]any, error)
	InsertMany(ctx context.Context, columns []string, rows [][]any) (int, error)
}

// Columns is the insert column order used by Row.
var Columns = []string{
	"id", "title", "summary", "ai_summary", "author", "external_url",
	"published_at", "thumbnail_url", "blog_type", "category", "tags",
}

// Row renders a for InsertMany in Columns order.
func Row(a record.Article) []any {
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	return []any{
		a.ID, a.Title, a.Summary, nullable(a.AISummary), a.Author, a.ExternalURL,
		a.PublishedAt, nullable(a.ThumbnailURL), a.BlogType, a.Category, tags,
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Seen tracks the URL and author:title keys of stored and accepted articles.
type Seen struct {
	urls   map[string]struct{}
	titles map[string]struct{}
}

// NewSeen returns an empty Seen.
func NewSeen() *Seen {
	return &Seen{urls: make(map[string]struct{}), titles: make(map[string]struct{})}
}

// LoadSeen reads the keys of every stored article.
func LoadSeen(ctx context.Context, store TableStore) (*Seen, error) {
	rows, err := store.FetchAllPaged(ctx, "external_url", "title", "author")
	if err != nil {
		return nil, fmt.Errorf("load stored articles: %w", err)
	}
	seen := NewSeen()
	for _, row := range rows {
		link := stringValue(row["external_url"])
		if link != "" {
			seen.urls[identity.NormalizeURL(link)] = struct{}{}
		}
		title, author := stringValue(row["title"]), stringValue(row["author"])
		if title != "" && author != "" {
			seen.titles[record.ArticleTitleKey(author, title)] = struct{}{}
		}
	}
	return seen, nil
}

func stringValue(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// Len reports how many distinct URLs are known.
func (s *Seen) Len() int {
	return len(s.urls)
}

// Accept reports whether a is new and, if so, records its keys.
func (s *Seen) Accept(a record.Article) bool {
	urlKey, titleKey := a.IdentityKey(), a.TitleKey()
	if _, ok := s.urls[urlKey]; ok {
		return false
	}
	if _, ok := s.titles[titleKey]; ok {
		return false
	}
	s.urls[urlKey] = struct{}{}
	s.titles[titleKey] = struct{}{}
	return true
}
