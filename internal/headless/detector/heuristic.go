// Package detector decides when a plain fetch must be re-run in a headless
// browser.
package detector

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/devfeed-crawler/internal/fetcher"
)

// Heuristic promotes pages whose server-rendered HTML carries little visible
// text.
type Heuristic struct {
	// MinVisibleText is the rune count below which a page counts as thin.
	MinVisibleText int
}

// NewHeuristic creates a new detector. Zero selects 500 runes.
func NewHeuristic(minVisibleText int) *Heuristic {
	if minVisibleText <= 0 {
		minVisibleText = 500
	}
	return &Heuristic{MinVisibleText: minVisibleText}
}

var spaMarkers = [][]byte{
	[]byte(`id="__next"`),
	[]byte(`id="__nuxt"`),
	[]byte(`id="root"`),
	[]byte(`id="app"`),
	[]byte("data-reactroot"),
	[]byte("ng-version"),
}

// ShouldPromote reports whether resp needs a headless render. Only thin 200
// responses from the plain fetcher qualify: an empty body, an app-shell
// marker, or more script than visible text.
func (h *Heuristic) ShouldPromote(resp fetcher.Response) bool {
	if resp.UsedHeadless || resp.StatusCode != 200 {
		return false
	}
	body := resp.Body
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	scripts, visible := measure(body)
	if visible >= h.MinVisibleText {
		return false
	}
	for _, marker := range spaMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return scripts > visible
}

// measure returns the rune counts of inline script source and of visible
// body text.
func measure(body []byte) (scripts, visible int) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return 0, utf8.RuneCount(body)
	}
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		scripts += utf8.RuneCountInString(strings.TrimSpace(s.Text()))
	})
	doc.Find("script, style, noscript, template").Remove()
	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	return scripts, utf8.RuneCountInString(text)
}
