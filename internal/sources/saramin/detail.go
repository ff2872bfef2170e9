package saramin

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/devfeed-crawler/internal/fetcher"
)

// minDetailText is the body length under which image alt texts are appended.
const minDetailText = 100

// Detail is the readable part of a posting's detail page.
type Detail struct {
	Text  string
	Image string
}

// DetailURL is the framed detail page of a posting.
func DetailURL(baseURL, recIdx string) string {
	return strings.TrimRight(baseURL, "/") + detailPath + "?rec_idx=" + url.QueryEscape(recIdx)
}

// RecIdxFromURL returns the rec_idx query parameter of a posting URL.
func RecIdxFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("rec_idx")
}

// ParseDetail extracts the body text and the first content image. Postings
// published as images get their alt texts appended when the text is short.
func ParseDetail(body []byte) (Detail, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Detail{}, fmt.Errorf("parse detail html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	var d Detail
	imgs := doc.Find("img")
	imgs.EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src := strings.TrimSpace(img.AttrOr("src", ""))
		if strings.HasPrefix(src, "http") && !strings.Contains(src, "icon") && !strings.Contains(src, "blank") {
			d.Image = src
			return false
		}
		return true
	})

	d.Text = strings.Join(strings.Fields(doc.Text()), " ")
	if utf8.RuneCountInString(d.Text) < minDetailText {
		var alts []string
		imgs.Each(func(_ int, img *goquery.Selection) {
			if alt := strings.TrimSpace(img.AttrOr("alt", "")); alt != "" {
				alts = append(alts, alt)
			}
		})
		if len(alts) > 0 {
			d.Text = strings.TrimSpace(d.Text + " " + strings.Join(alts, " "))
		}
	}
	return d, nil
}

// Detail fetches and parses the detail page of recIdx.
func (c *Client) Detail(ctx context.Context, recIdx string) (Detail, error) {
	if recIdx == "" {
		return Detail{}, fmt.Errorf("posting has no rec_idx")
	}
	resp, err := c.fetcher.Fetch(ctx, fetcher.Request{
		URL:     DetailURL(c.cfg.BaseURL, recIdx),
		Headers: c.headers(),
	})
	if err != nil {
		return Detail{}, fmt.Errorf("fetch detail %s: %w", recIdx, err)
	}
	return ParseDetail(resp.Body)
}

// DetailPages serves detail pages to the enrichment gateway and the
// thumbnail step, fetching each posting at most once per run.
type DetailPages struct {
	client *Client

	mu    sync.Mutex
	cache map[string]Detail
}

// NewDetailPages wraps client.
func NewDetailPages(client *Client) *DetailPages {
	return &DetailPages{client: client, cache: make(map[string]Detail)}
}

func (d *DetailPages) get(ctx context.Context, pageURL string) (Detail, error) {
	recIdx := RecIdxFromURL(pageURL)
	d.mu.Lock()
	cached, ok := d.cache[recIdx]
	d.mu.Unlock()
	if ok {
		return cached, nil
	}
	detail, err := d.client.Detail(ctx, recIdx)
	if err != nil {
		return Detail{}, err
	}
	d.mu.Lock()
	d.cache[recIdx] = detail
	d.mu.Unlock()
	return detail, nil
}

// Scrape returns the detail text of the posting at pageURL.
func (d *DetailPages) Scrape(ctx context.Context, pageURL string) (string, error) {
	detail, err := d.get(ctx, pageURL)
	if err != nil {
		return "", err
	}
	return detail.Text, nil
}

// FindImage returns the first content image of the posting at pageURL.
func (d *DetailPages) FindImage(ctx context.Context, pageURL string) (string, error) {
	detail, err := d.get(ctx, pageURL)
	if err != nil {
		return "", err
	}
	return detail.Image, nil
}
