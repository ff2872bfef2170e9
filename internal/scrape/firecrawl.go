package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultFirecrawlURL is the hosted Firecrawl API.
const DefaultFirecrawlURL = "https://api.firecrawl.dev"

// FirecrawlConfig configures the hosted scraper.
type FirecrawlConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Firecrawl scrapes pages to markdown through the Firecrawl REST API.
type Firecrawl struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewFirecrawl builds a Firecrawl scraper.
func NewFirecrawl(cfg FirecrawlConfig) (*Firecrawl, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("firecrawl: api key required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultFirecrawlURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Firecrawl{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
	}, nil
}

type firecrawlRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

type firecrawlResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Markdown string `json:"markdown"`
	} `json:"data"`
}

// Scrape returns the page as markdown.
func (f *Firecrawl) Scrape(ctx context.Context, pageURL string) (string, error) {
	payload, err := json.Marshal(firecrawlRequest{URL: pageURL, Formats: []string{"markdown"}, OnlyMainContent: true})
	if err != nil {
		return "", fmt.Errorf("encode firecrawl request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/v1/scrape", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build firecrawl request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+f.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("firecrawl request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", fmt.Errorf("read firecrawl response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("firecrawl: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out firecrawlResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode firecrawl response: %w", err)
	}
	if !out.Success {
		return "", fmt.Errorf("firecrawl: %s", out.Error)
	}
	markdown := strings.TrimSpace(out.Data.Markdown)
	if markdown == "" {
		return "", ErrNoContent
	}
	return markdown, nil
}
