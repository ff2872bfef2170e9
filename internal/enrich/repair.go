package enrich

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedJSON wraps model output that could not be decoded into an object.
var ErrMalformedJSON = errors.New("enrich: malformed json")

// RepairEscapes doubles every backslash that does not start a valid JSON
// escape sequence. Valid pairs, including an escaped backslash, are copied
// through untouched.
func RepairEscapes(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(s) && isEscapeChar(s[i+1]) {
			b.WriteByte(c)
			b.WriteByte(s[i+1])
			i++
			continue
		}
		b.WriteString(`\\`)
	}
	return b.String()
}

func isEscapeChar(c byte) bool {
	switch c {
	case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
		return true
	}
	return false
}

// ExtractObject decodes model output into a single JSON object. Markdown code
// fences are stripped, one repair pass is attempted on a parse failure, and a
// top-level array yields its first object element.
func ExtractObject(text string) (json.RawMessage, error) {
	body := stripCodeFence(text)
	if body == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedJSON)
	}
	raw, err := decodeValue(body)
	if err != nil {
		repaired, repairErr := decodeValue(RepairEscapes(body))
		if repairErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
		}
		raw = repaired
	}
	return firstObject(raw)
}

func decodeValue(s string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return raw, nil
}

func firstObject(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty value", ErrMalformedJSON)
	}
	switch trimmed[0] {
	case '{':
		return trimmed, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
		}
		for _, item := range items {
			item = bytes.TrimSpace(item)
			if len(item) > 0 && item[0] == '{' {
				return item, nil
			}
		}
		return nil, fmt.Errorf("%w: array holds no object", ErrMalformedJSON)
	default:
		return nil, fmt.Errorf("%w: top-level value is not an object", ErrMalformedJSON)
	}
}

func stripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// Drop the info string, e.g. ```json.
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Decode extracts the object from text and unmarshals it into P. Type
// mismatches are reported as ErrMalformedJSON.
func Decode[P any](text string) (P, error) {
	var payload P
	obj, err := ExtractObject(text)
	if err != nil {
		return payload, err
	}
	if err := json.Unmarshal(obj, &payload); err != nil {
		return payload, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return payload, nil
}
