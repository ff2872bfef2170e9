package tagger

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// MaxFallbackTags caps the keyword path.
const MaxFallbackTags = 5

var (
	keywords = func() []string {
		out := make([]string, len(keywordTags))
		for i, kt := range keywordTags {
			out[i] = kt.keyword
		}
		return out
	}()
	matcher = ahocorasick.NewStringMatcher(keywords)
)

// Fallback tags a record by keyword matching over title and summary. A
// keyword only counts when it is not directly preceded or followed by an
// ASCII letter or digit. Output follows the keyword table order, has no
// duplicates and holds at most MaxFallbackTags tags. The author is not
// matched; it is accepted so both classifier paths share a signature.
func Fallback(title, summary, _ string) []string {
	text := strings.ToLower(title + " " + summary)
	if strings.TrimSpace(text) == "" {
		return []string{}
	}

	hit := make(map[int]struct{})
	for _, idx := range matcher.Match([]byte(text)) {
		hit[idx] = struct{}{}
	}

	tags := make([]string, 0, MaxFallbackTags)
	seen := make(map[string]struct{})
	for i, kt := range keywordTags {
		if len(tags) == MaxFallbackTags {
			break
		}
		if _, ok := hit[i]; !ok {
			continue
		}
		if _, dup := seen[kt.tag]; dup {
			continue
		}
		if !containsWord(text, kt.keyword) {
			continue
		}
		seen[kt.tag] = struct{}{}
		tags = append(tags, kt.tag)
	}
	return tags
}

// containsWord reports whether word occurs in text with no ASCII letter or
// digit immediately around it. Hangul particles such as "React로" still match.
func containsWord(text, word string) bool {
	for offset := 0; offset < len(text); {
		idx := strings.Index(text[offset:], word)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(word)
		if (start == 0 || !isASCIIAlnum(text[start-1])) && (end == len(text) || !isASCIIAlnum(text[end])) {
			return true
		}
		offset = start + 1
	}
	return false
}

func isASCIIAlnum(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
