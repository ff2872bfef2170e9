package techblog

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/JakeFAU/devfeed-crawler/internal/identity"
	"github.com/JakeFAU/devfeed-crawler/internal/record"
	"github.com/JakeFAU/devfeed-crawler/internal/tagger"
	"github.com/JakeFAU/devfeed-crawler/internal/thumbnail"
)

// SummaryLength is the rune length of the plain-text feed summary.
const SummaryLength = 200

// ParseFeed turns an RSS or Atom document into articles. Entries without a
// link are skipped; entries without a date are stamped with now.
func ParseFeed(body []byte, feed Feed, now time.Time) ([]record.Article, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feed.Name, err)
	}
	articles := make([]record.Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil || strings.TrimSpace(item.Link) == "" {
			continue
		}
		link := strings.TrimSpace(item.Link)
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = "No Title"
		}
		tags := tagger.FromFeedCategory(feed.Category)
		if tags == nil {
			tags = []string{}
		}
		articles = append(articles, record.Article{
			Title:        title,
			Summary:      Summarize(itemBody(item)),
			Author:       feed.Name,
			ExternalURL:  identity.NormalizeURL(link),
			PublishedAt:  published(item, now),
			BlogType:     feed.Type,
			Category:     feed.Category,
			ThumbnailURL: ItemImage(item, link),
			Tags:         tags,
		})
	}
	return articles, nil
}

func itemBody(item *gofeed.Item) string {
	if strings.TrimSpace(item.Content) != "" {
		return item.Content
	}
	return item.Description
}

func published(item *gofeed.Item, now time.Time) time.Time {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.UTC()
	default:
		return now.UTC()
	}
}

// Summarize strips HTML and cuts the text to SummaryLength runes plus "...".
func Summarize(html string) string {
	text := stripHTML(html)
	if utf8.RuneCountInString(text) <= SummaryLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:SummaryLength]) + "..."
}

func stripHTML(html string) string {
	if !strings.ContainsAny(html, "<&") {
		return strings.Join(strings.Fields(html), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.Join(strings.Fields(html), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// ItemImage picks a thumbnail from the entry itself: an image enclosure, then
// media:content, then media:thumbnail, then the feed image, then the first
// <img> of the body.
func ItemImage(item *gofeed.Item, link string) string {
	base, _ := url.Parse(link)
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			if u := thumbnail.Resolve(base, enc.URL); u != "" {
				return u
			}
		}
	}
	for _, name := range []string{"content", "thumbnail"} {
		for _, ext := range item.Extensions["media"][name] {
			if u := thumbnail.Resolve(base, ext.Attrs["url"]); u != "" {
				return u
			}
		}
	}
	if item.Image != nil {
		if u := thumbnail.Resolve(base, item.Image.URL); u != "" {
			return u
		}
	}
	return thumbnail.FirstImage(itemBody(item), base)
}
