// internal/service/agent/summarize.go

package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	maxSummaryItems = 6
	maxSummaryJSON  = 1000
)

// Keys holding the item list of a search payload, in lookup order
var (
	postSummaryKeys    = []string{"results", "posts", "items"}
	clusterSummaryKeys = []string{"clusters", "items", "results"}
)

// errorPlaceholder is what a failed gather step leaves behind
func errorPlaceholder(err error) map[string]any {
	return map[string]any{"error": err.Error()}
}

// summarize renders a gathered payload as prompt context. It accepts any
// shape: error placeholders, item lists, objects wrapping a list, or text.
func summarize(data any, keys []string) string {
	if data == nil {
		return "(no data)"
	}

	m, isObject := data.(map[string]any)
	if isObject {
		if e, ok := m["error"]; ok && e != nil && e != false && e != "" {
			return "ERROR: " + fmt.Sprint(e)
		}
	}

	var items []any
	if isObject {
		for _, k := range keys {
			if list, ok := m[k].([]any); ok {
				items = list
				break
			}
		}
	}
	if items == nil {
		if list, ok := data.([]any); ok {
			items = list
		}
	}
	if items == nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return fmt.Sprint(data)
		}
		return truncate(string(encoded), maxSummaryJSON)
	}

	if len(items) > maxSummaryItems {
		items = items[:maxSummaryItems]
	}
	lines := make([]string, 0, len(items))
	for i, item := range items {
		lines = append(lines, summaryLine(i+1, item))
	}
	return strings.Join(lines, "\n")
}

func summaryLine(n int, item any) string {
	m, _ := item.(map[string]any)
	title := pick(m, "title", "name", "id")
	if title == "" {
		title = "(untitled)"
	}
	return fmt.Sprintf("%d. %s — %s (mentions: %s)", n, title, pick(m, "excerpt", "text", "summary"), pick(m, "mentions", "metric"))
}

// pick returns the first non-empty value among keys, rendered as text
func pick(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case nil:
			continue
		case string:
			if v != "" {
				return v
			}
		case float64:
			if v != 0 {
				return fmt.Sprint(v)
			}
		default:
			return fmt.Sprint(v)
		}
	}
	return ""
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// extractObject returns the first balanced {...} substring of text. Braces
// inside JSON strings are ignored.
func extractObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	for start >= 0 {
		if end, ok := matchBrace(text, start); ok {
			return text[start : end+1], true
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func matchBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// parseVerdict makes a best effort to read a JSON object out of LLM output.
// Content that holds no parseable object is wrapped as {raw: content}.
func parseVerdict(content string) any {
	candidate, ok := extractObject(content)
	if !ok {
		candidate = content
	}
	var parsed any
	if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
		if obj, ok := parsed.(map[string]any); ok {
			return obj
		}
	}
	return map[string]any{"raw": content}
}
