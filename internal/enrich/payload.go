package enrich

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// StringList decodes either a JSON array or a bare value. A string becomes a
// one-element list, null becomes empty, and blank entries are dropped.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*l = nil
		return nil
	}
	if trimmed[0] != '[' {
		var single any
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return fmt.Errorf("decode list item: %w", err)
		}
		*l = appendItem(nil, single)
		return nil
	}
	var items []any
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return fmt.Errorf("decode list: %w", err)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = appendItem(out, item)
	}
	*l = out
	return nil
}

func appendItem(out []string, item any) []string {
	switch v := item.(type) {
	case nil:
		return out
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return append(out, s)
		}
		return out
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return out
		}
		return append(out, string(encoded))
	default:
		return append(out, fmt.Sprint(v))
	}
}

// Text decodes a string field that models sometimes return as a list or a
// number. Lists are joined with newlines.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*t = ""
		return nil
	}
	if trimmed[0] == '[' {
		var list StringList
		if err := list.UnmarshalJSON(trimmed); err != nil {
			return err
		}
		*t = Text(strings.Join(list, "\n"))
		return nil
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return fmt.Errorf("decode text: %w", err)
	}
	items := appendItem(nil, v)
	if len(items) == 0 {
		*t = ""
		return nil
	}
	*t = Text(items[0])
	return nil
}

// String returns the trimmed text.
func (t Text) String() string {
	return strings.TrimSpace(string(t))
}
