package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"strips utm and trailing slash", "https://x.com/a/?utm_source=x&b=1", "https://x.com/a?b=1"},
		{"trailing slash only", "https://x.com/a/", "https://x.com/a"},
		{"root path kept", "https://x.com/", "https://x.com/"},
		{"strips one trailing slash", "https://x.com/a//", "https://x.com/a/"},
		{"keeps unicode path", "https://velog.io/@dev/한글-슬러그/", "https://velog.io/@dev/한글-슬러그"},
		{"keeps escaped path", "https://velog.io/@dev/%ED%95%9C%EA%B8%80", "https://velog.io/@dev/%ED%95%9C%EA%B8%80"},
		{"keeps query order", "https://x.com/p?z=1&fbclid=abc&a=2&gclid=q", "https://x.com/p?z=1&a=2"},
		{"drops every blocked key", "https://x.com/p?fromRss=true&trackingCode=rss&source=feed&rss=1", "https://x.com/p"},
		{"drops fragment", "https://x.com/p#section", "https://x.com/p"},
		{"lowercases host", "HTTPS://Tech.Example.COM/Post", "https://tech.example.com/Post"},
		{"malformed escape", "http://%zz", "http://%zz"},
		{"no scheme", "not a url", "not a url"},
		{"empty", "", ""},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, NormalizeURL(tc.in))
		})
	}
}

func TestNormalizeURLIsIdempotent(t *testing.T) {
	t.Parallel()

	once := NormalizeURL("https://toss.tech/article/slash/?utm_medium=rss&page=2")
	assert.Equal(t, once, NormalizeURL(once))
}

func TestNormalizeTitle(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "hello go world", NormalizeTitle("  Hello\t Go\n\nWORLD "))
	// Decomposed and precomposed Hangul fold to the same key.
	assert.Equal(t, NormalizeTitle("\u1100\u1161"), NormalizeTitle("\uac00"))
}
