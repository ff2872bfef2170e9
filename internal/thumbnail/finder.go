// Package thumbnail finds cover images for pages and feed entries.
package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Getter fetches a page body.
type Getter interface {
	Get(ctx context.Context, rawURL string) ([]byte, error)
}

// MetaFinder reads og:image, then twitter:image, from a fetched page.
type MetaFinder struct {
	getter Getter
}

// NewMetaFinder builds a MetaFinder over getter.
func NewMetaFinder(getter Getter) *MetaFinder {
	return &MetaFinder{getter: getter}
}

// FindImage returns the absolute cover image URL of pageURL, or "" when the
// page declares none.
func (f *MetaFinder) FindImage(ctx context.Context, pageURL string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}
	body, err := f.getter.Get(ctx, pageURL)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	return MetaImage(doc, base), nil
}

// MetaImage returns the og:image or twitter:image of doc resolved against base.
func MetaImage(doc *goquery.Document, base *url.URL) string {
	selectors := []string{
		`meta[property="og:image"]`,
		`meta[name="twitter:image"]`,
		`meta[property="twitter:image"]`,
	}
	for _, sel := range selectors {
		content, _ := doc.Find(sel).First().Attr("content")
		if resolved := Resolve(base, content); resolved != "" {
			return resolved
		}
	}
	return ""
}

// FirstImage returns the first usable <img> src in an HTML fragment, resolved
// against base.
func FirstImage(fragment string, base *url.URL) string {
	if !strings.Contains(fragment, "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	var found string
	doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		if src == "" {
			src, _ = s.Attr("data-src")
		}
		found = Resolve(base, src)
		return found == ""
	})
	return found
}

// Resolve makes ref absolute against base. Empty refs and data: URIs give "".
func Resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(strings.ToLower(ref), "data:") {
		return ""
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base == nil {
		if !parsed.IsAbs() {
			return ""
		}
		return parsed.String()
	}
	return base.ResolveReference(parsed).String()
}
