package scrape

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"

	"github.com/JakeFAU/devfeed-crawler/internal/fetcher"
)

// ErrNoContent is returned when a page yields no readable text.
var ErrNoContent = errors.New("scrape: no readable content")

// Promoter decides when a plain response needs a headless render.
type Promoter interface {
	ShouldPromote(resp fetcher.Response) bool
}

// Readability extracts the main text of a page locally.
type Readability struct {
	plain    fetcher.Fetcher
	headless fetcher.Fetcher
	promoter Promoter
	logger   *zap.Logger
}

// NewReadability builds a local scraper. headless and promoter may be nil,
// which disables promotion.
func NewReadability(plain, headless fetcher.Fetcher, promoter Promoter, logger *zap.Logger) *Readability {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Readability{plain: plain, headless: headless, promoter: promoter, logger: logger}
}

// Scrape returns the page title and main text separated by a blank line.
func (r *Readability) Scrape(ctx context.Context, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}
	resp, err := r.plain.Fetch(ctx, fetcher.Request{URL: pageURL})
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	if r.headless != nil && r.promoter != nil && r.promoter.ShouldPromote(resp) {
		r.logger.Debug("promoting to headless render", zap.String("url", pageURL))
		rendered, err := r.headless.Fetch(ctx, fetcher.Request{URL: pageURL})
		if err != nil {
			r.logger.Warn("headless render failed, using plain response", zap.String("url", pageURL), zap.Error(err))
		} else {
			resp = rendered
		}
	}
	return Extract(resp.Body, parsed)
}

// Extract runs go-readability over an HTML document.
func Extract(html []byte, pageURL *url.URL) (string, error) {
	if len(bytes.TrimSpace(html)) == 0 {
		return "", ErrNoContent
	}
	article, err := readability.FromReader(bytes.NewReader(html), pageURL)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	text := collapseBlankLines(article.TextContent)
	if text == "" {
		return "", ErrNoContent
	}
	title := strings.TrimSpace(article.Title)
	if title == "" {
		return text, nil
	}
	return title + "\n\n" + text, nil
}

// collapseBlankLines trims every line and keeps at most one empty line
// between paragraphs.
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
