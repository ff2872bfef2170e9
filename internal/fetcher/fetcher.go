// Package fetcher holds the request and response types shared by the plain
// HTTP and headless page fetchers.
package fetcher

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Request describes one GET.
type Request struct {
	URL     string
	Headers http.Header
	Query   url.Values
}

// Response is the outcome of a successful GET.
type Response struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// Fetcher retrieves one page.
type Fetcher interface {
	Fetch(ctx context.Context, request Request) (Response, error)
}
