// Package scrape turns a page URL into plain text for the enrichment prompt.
//
// Readability fetches the page with colly, promotes thin pages to a headless
// render and extracts the main text with go-readability. Firecrawl calls the
// hosted scraping service. Cached memoizes any Scraper in Redis, and
// Fallback tries a second Scraper when the first fails.
package scrape
