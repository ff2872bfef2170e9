package identity

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// blockedParams lists tracking parameters dropped by NormalizeURL. Keys with
// the utm_ prefix are dropped as well.
var blockedParams = map[string]struct{}{
	"fbclid":       {},
	"gclid":        {},
	"fromRss":      {},
	"trackingCode": {},
	"source":       {},
	"rss":          {},
}

// NormalizeURL strips tracking parameters and one trailing slash of non-root
// paths and rebuilds scheme://host/path?query. The path and the remaining
// query parameters keep their original order and encoding. Input that does not
// parse as an absolute URL is returned unchanged.
func NormalizeURL(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return rawURL
	}

	// RawPath is only set when the input differs from the default encoding,
	// otherwise EscapedPath reproduces the input.
	path := u.RawPath
	if path == "" {
		path = u.EscapedPath()
	}
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}

	var b strings.Builder
	b.WriteString(strings.ToLower(u.Scheme))
	b.WriteString("://")
	b.WriteString(strings.ToLower(u.Host))
	b.WriteString(path)
	if query := filterQuery(u.RawQuery); query != "" {
		b.WriteByte('?')
		b.WriteString(query)
	}
	return b.String()
}

func filterQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	kept := make([]string, 0, 4)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, _, _ := strings.Cut(pair, "=")
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		if isTrackingParam(key) {
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&")
}

func isTrackingParam(key string) bool {
	if strings.HasPrefix(key, "utm_") {
		return true
	}
	_, blocked := blockedParams[key]
	return blocked
}

// NormalizeTitle folds a title into a comparison key: NFC, collapsed
// whitespace, lower case.
func NormalizeTitle(title string) string {
	fields := strings.FieldsFunc(norm.NFC.String(title), unicode.IsSpace)
	return strings.ToLower(strings.Join(fields, " "))
}
