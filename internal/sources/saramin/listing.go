// Package saramin ingests developer job postings from the Saramin job board.
package saramin

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/devfeed-crawler/internal/clock"
	"github.com/JakeFAU/devfeed-crawler/internal/clock/system"
	"github.com/JakeFAU/devfeed-crawler/internal/enrich"
	"github.com/JakeFAU/devfeed-crawler/internal/fetcher"
	"github.com/JakeFAU/devfeed-crawler/internal/record"
)

// Board defaults.
const (
	DefaultBaseURL = "https://www.saramin.co.kr"
	DefaultKeyword = "개발자"
	PageSize       = 40

	searchPath = "/zf_user/search/get-recruit-list"
	detailPath = "/zf_user/jobs/relay/view-detail"
)

// Config tunes the board client.
type Config struct {
	BaseURL      string
	Keyword      string
	PageDelayMin time.Duration
	PageDelayMax time.Duration
	Pauser       enrich.Pauser
	Clock        clock.Clock
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Keyword == "" {
		c.Keyword = DefaultKeyword
	}
	if c.PageDelayMin == 0 && c.PageDelayMax == 0 {
		c.PageDelayMin, c.PageDelayMax = time.Second, 2500*time.Millisecond
	}
	if c.PageDelayMax < c.PageDelayMin {
		c.PageDelayMax = c.PageDelayMin
	}
	if c.Pauser == nil {
		c.Pauser = enrich.TimerPauser{}
	}
	if c.Clock == nil {
		c.Clock = system.New(nil)
	}
	return c
}

// Client talks to the board's search endpoint and detail pages.
type Client struct {
	fetcher fetcher.Fetcher
	cfg     Config
	logger  *zap.Logger
}

// NewClient builds a Client over f.
func NewClient(f fetcher.Fetcher, cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{fetcher: f, cfg: cfg.withDefaults(), logger: logger.With(zap.String("source", Source))}
}

// Pages returns how many search pages a run with limit reads.
func Pages(limit int) int {
	if limit < 0 {
		limit = 0
	}
	return limit/PageSize + 2
}

// Search walks the listing pages for the configured keyword and returns the
// postings in board order. It stops at the first empty page. A failure on the
// first page is returned; later failures end the walk early.
func (c *Client) Search(ctx context.Context, limit int) ([]record.JobPosting, error) {
	var jobs []record.JobPosting
	pages := Pages(limit)
	for page := 1; page <= pages; page++ {
		if err := c.cfg.Pauser.Pause(ctx, c.pageDelay()); err != nil {
			return jobs, fmt.Errorf("search page delay: %w", err)
		}
		found, err := c.searchPage(ctx, page)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			c.logger.Warn("search page failed, stopping", zap.Int("page", page), zap.Error(err))
			break
		}
		if len(found) == 0 {
			break
		}
		c.logger.Info("search page parsed", zap.Int("page", page), zap.Int("items", len(found)))
		jobs = append(jobs, found...)
	}
	return jobs, nil
}

func (c *Client) pageDelay() time.Duration {
	spread := c.cfg.PageDelayMax - c.cfg.PageDelayMin
	if spread <= 0 {
		return c.cfg.PageDelayMin
	}
	// #nosec G404 -- politeness jitter, not security sensitive.
	return c.cfg.PageDelayMin + time.Duration(rand.Int63n(int64(spread)))
}

func (c *Client) searchPage(ctx context.Context, page int) ([]record.JobPosting, error) {
	resp, err := c.fetcher.Fetch(ctx, fetcher.Request{
		URL:     c.cfg.BaseURL + searchPath,
		Query:   SearchQuery(c.cfg.Keyword, page),
		Headers: c.headers(),
	})
	if err != nil {
		return nil, fmt.Errorf("fetch search page %d: %w", page, err)
	}
	var payload struct {
		InnerHTML string `json:"innerHTML"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("decode search page %d: %w", page, err)
	}
	if strings.TrimSpace(payload.InnerHTML) == "" {
		return nil, nil
	}
	return ParseListing(payload.InnerHTML, c.cfg.BaseURL, c.cfg.Clock.Now())
}

func (c *Client) headers() http.Header {
	h := http.Header{}
	h.Set("Referer", c.cfg.BaseURL+"/")
	return h
}

// SearchQuery returns the query string for one listing page.
func SearchQuery(keyword string, page int) url.Values {
	q := url.Values{}
	q.Set("searchType", "search")
	q.Set("recruitPage", strconv.Itoa(page))
	q.Set("recruitSort", "relation")
	q.Set("recruitPageCount", strconv.Itoa(PageSize))
	q.Set("search_optional_item", "y")
	q.Set("search_done", "y")
	q.Set("panel_count", "y")
	q.Set("preview", "y")
	q.Set("mainSearch", "n")
	q.Set("cat_mcls", "2")
	if keyword != "" {
		q.Set("searchword", keyword)
	}
	return q
}

// ParseListing reads the postings out of a search result fragment. Items
// without an id or title link are skipped.
func ParseListing(fragment, baseURL string, now time.Time) ([]record.JobPosting, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}
	scraped := now.Format(time.DateOnly)
	var jobs []record.JobPosting
	doc.Find("div.item_recruit").Each(func(_ int, item *goquery.Selection) {
		recIdx := strings.TrimSpace(item.AttrOr("value", ""))
		if recIdx == "" {
			return
		}
		titleLink := item.Find("div.area_job > h2.job_tit > a").First()
		if titleLink.Length() == 0 {
			return
		}
		link := ""
		if href := strings.TrimSpace(titleLink.AttrOr("href", "")); href != "" {
			link = baseURL + href
			if strings.HasPrefix(href, "http") {
				link = href
			}
		}
		company := text(item.Find("div.area_corp > strong.corp_name > a").First())
		if company == "" {
			company = "Unknown"
		}
		conditions := item.Find("div.area_job > div.job_condition > span")
		condition := func(i int) string { return text(conditions.Eq(i)) }

		jobs = append(jobs, record.JobPosting{
			RecIdx:      recIdx,
			Title:       text(titleLink),
			Company:     company,
			Link:        link,
			Location:    condition(0),
			Experience:  condition(1),
			Education:   condition(2),
			WorkType:    condition(3),
			Deadline:    text(item.Find("div.area_job > div.job_date > span.date").First()),
			ScrapedDate: scraped,
			Tags:        []string{},
		})
	})
	return jobs, nil
}

func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

// Select dedupes postings by board id, keeping the first, and caps the result
// at limit. A non-positive limit keeps every posting.
func Select(jobs []record.JobPosting, limit int) []record.JobPosting {
	seen := make(map[string]struct{}, len(jobs))
	out := make([]record.JobPosting, 0, len(jobs))
	for _, j := range jobs {
		if _, ok := seen[j.RecIdx]; ok {
			continue
		}
		seen[j.RecIdx] = struct{}{}
		out = append(out, j)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
