package membit

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"membitpulse/internal/domain/trend"
)

// Key aliases for upstream topic records, in lookup order. The upstream
// schema is not stable, so records are mapped field by field with defaults
// instead of being rejected.
var (
	idKeys        = []string{"id", "slug", "key"}
	nameKeys      = []string{"name", "title", "topic", "label"}
	mentionsKeys  = []string{"mentions", "metric", "volume", "count"}
	growthKeys    = []string{"growth24h", "growth", "change24h", "change"}
	sentimentKeys = []string{"sentiment", "sent"}
	keywordsKeys  = []string{"keywords", "tags", "terms"}
	sparkKeys     = []string{"spark", "sparkline", "series"}
	viralKeys     = []string{"viralScore", "viral_score", "score"}
)

// Keys that may hold the topic array in an aggregation or REST payload, in
// priority order.
var topicListKeys = []string{"topics", "results", "data", "items"}

// Keys that may hold posts and clusters in a reasoning payload.
var (
	postKeys    = []string{"posts", "results", "data", "items", "topics"}
	clusterKeys = []string{"clusters", "groups"}
)

// NormalizeTopics maps raw upstream records into topics
func NormalizeTopics(records []any) []trend.Topic {
	topics := make([]trend.Topic, 0, len(records))
	for i, rec := range records {
		topics = append(topics, normalizeTopic(rec, i))
	}
	return topics
}

func normalizeTopic(rec any, i int) trend.Topic {
	m, ok := rec.(map[string]any)
	if !ok {
		// bare strings are treated as topic names
		name := strings.TrimSpace(toString(rec))
		if name == "" {
			name = "Untitled"
		}
		return trend.Topic{
			ID:         fmt.Sprintf("%s-%d", name, i),
			Name:       name,
			Keywords:   []string{},
			Spark:      []int{},
			ViralScore: trend.ViralScore(0, 0, 0),
		}
	}

	name := toString(first(m, nameKeys...))
	id := toString(first(m, idKeys...))
	if name == "" {
		name = id
	}
	if name == "" {
		name = "Untitled"
	}
	if id == "" {
		id = fmt.Sprintf("%s-%d", name, i)
	}

	mentions, _ := toFloat(first(m, mentionsKeys...))
	growth, _ := toFloat(first(m, growthKeys...))
	sentiment, _ := toFloat(first(m, sentimentKeys...))

	t := trend.Topic{
		ID:        id,
		Name:      name,
		Mentions:  roundInt64(mentions),
		Growth24h: growth,
		Sentiment: sentiment,
		Keywords:  toStrings(first(m, keywordsKeys...)),
		Spark:     toInts(first(m, sparkKeys...)),
	}

	if v, ok := toFloat(first(m, viralKeys...)); ok {
		t.ViralScore = int(math.Round(trend.Clamp(v, 0, 100)))
	} else {
		t.ViralScore = trend.ViralScore(t.Mentions, t.Growth24h, t.Sentiment)
	}
	return t
}

// FindTopicRecords locates the topic array in a payload. It looks at the
// payload itself, then inside a JSON-RPC result or data object, then inside
// MCP tool text content.
func FindTopicRecords(payload any) ([]any, bool) {
	return findRecords(payload, 0)
}

func findRecords(payload any, depth int) ([]any, bool) {
	if depth > 3 {
		return nil, false
	}

	switch v := payload.(type) {
	case []any:
		if topicLike(v) {
			return v, true
		}
		// MCP content blocks: [{type: "text", text: "<json>"}]
		for _, block := range v {
			if text, ok := textContent(block); ok {
				if records, ok := findRecords(text, depth+1); ok {
					return records, true
				}
			}
		}
	case map[string]any:
		for _, k := range topicListKeys {
			if list, ok := v[k].([]any); ok && topicLike(list) {
				return list, true
			}
		}
		for _, k := range []string{"result", "data", "content"} {
			if nested, ok := v[k]; ok {
				if records, ok := findRecords(nested, depth+1); ok {
					return records, true
				}
			}
		}
	}
	return nil, false
}

// topicLike reports whether list holds at least one object record
func topicLike(list []any) bool {
	for _, item := range list {
		if _, ok := item.(map[string]any); ok {
			return true
		}
	}
	return false
}

func textContent(block any) (any, bool) {
	m, ok := block.(map[string]any)
	if !ok {
		return nil, false
	}
	text, ok := m["text"].(string)
	if !ok {
		return nil, false
	}
	var parsed any
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, false
	}
	return parsed, true
}

// PayloadError returns the error carried inside a payload, if any
func PayloadError(payload any) (string, bool) {
	m, ok := payload.(map[string]any)
	if !ok {
		return "", false
	}
	if e, ok := m["error"]; ok && e != nil {
		if em, ok := e.(map[string]any); ok {
			if msg := toString(em["message"]); msg != "" {
				return msg, true
			}
		}
		if s := toString(e); s != "" {
			return s, true
		}
		return "upstream reported an error", true
	}
	if result, ok := m["result"].(map[string]any); ok {
		if isErr, _ := result["isError"].(bool); isErr {
			return "upstream tool call failed", true
		}
	}
	return "", false
}

// ExtractPosts pulls the posts sub-payload out of a reasoning response
func ExtractPosts(payload any) any {
	return firstPresent(payload, postKeys...)
}

// ExtractClusters pulls the clusters sub-payload out of a reasoning response
func ExtractClusters(payload any) any {
	return firstPresent(payload, clusterKeys...)
}

func firstPresent(payload any, keys ...string) any {
	m, ok := payload.(map[string]any)
	if !ok {
		return nil
	}
	return first(m, keys...)
}

func first(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case json.Number:
		return s.String()
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprint(s)
	}
}

// toFloat coerces numbers and numeric strings. Non-finite values such as
// "NaN" or "Infinity" are rejected since they cannot be encoded as JSON.
func toFloat(v any) (float64, bool) {
	f, ok := parseFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(n, "%")), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toStrings(v any) []string {
	out := []string{}
	switch list := v.(type) {
	case []any:
		for _, item := range list {
			if s := strings.TrimSpace(toString(item)); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		out = append(out, list...)
	case string:
		for _, part := range strings.Split(list, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func toInts(v any) []int {
	out := []int{}
	list, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range list {
		f, _ := toFloat(item)
		out = append(out, int(roundInt64(f)))
	}
	return out
}

// maxExactInt is the largest integer a float64 holds exactly
const maxExactInt = 1 << 53

// roundInt64 rounds f, saturating at ±2^53 so huge upstream values do not
// overflow the conversion.
func roundInt64(f float64) int64 {
	return int64(math.Round(trend.Clamp(f, -maxExactInt, maxExactInt)))
}
