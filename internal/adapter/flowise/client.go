package flowise

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"membitpulse/internal/adapter/upstream"
	"membitpulse/internal/config"
)

// ErrNotConfigured is returned when FLOWISE_API_URL is empty
var ErrNotConfigured = errors.New("FLOWISE_API_URL not configured on server")

// Client talks to a Flowise prediction endpoint
type Client struct {
	cfg      config.FlowiseConfig
	endpoint string
	http     *upstream.Client
}

// NewClient creates a new Flowise client
func NewClient(cfg config.FlowiseConfig, opts ...upstream.ClientOption) *Client {
	opts = append([]upstream.ClientOption{upstream.WithTimeout(cfg.Timeout)}, opts...)
	return &Client{
		cfg:      cfg,
		endpoint: ResolveEndpoint(cfg.URL),
		http:     upstream.NewClient("flowise", opts...),
	}
}

// Configured reports whether a Flowise URL is set
func (c *Client) Configured() bool {
	return c.cfg.URL != ""
}

// Status reports which settings are present without revealing them
func (c *Client) Status() (urlConfigured, keyConfigured, chatflowConfigured bool) {
	return c.cfg.URL != "", c.cfg.APIKey != "", c.cfg.ChatflowID != ""
}

// ResolveEndpoint appends /prediction to base unless it already ends with
// /prediction or /chat.
func ResolveEndpoint(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return ""
	}
	if strings.HasSuffix(base, "/prediction") || strings.HasSuffix(base, "/chat") {
		return base
	}
	return base + "/prediction"
}

// Predict sends one question. Non-2xx replies come back as
// *upstream.StatusError.
func (c *Client) Predict(ctx context.Context, question string, meta any) (*upstream.Reply, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	payload := map[string]any{"question": question}
	if meta != nil {
		payload["meta"] = meta
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if c.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.cfg.APIKey
		headers["x-api-key"] = c.cfg.APIKey
	}

	return c.http.Do(ctx, &upstream.RequestOptions{
		Method:  http.MethodPost,
		URL:     c.endpoint,
		Headers: headers,
		Body:    payload,
	})
}

// Answer is a normalized Flowise reply
type Answer struct {
	Text      string
	Raw       any
	ChatID    string
	FollowUps []string
}

// ParseAnswer normalizes the inconsistent Flowise envelope. The reply text is
// taken from "text" or "answer", falling back to the whole body.
func ParseAnswer(body []byte) Answer {
	raw := upstream.DecodeLoose(body)
	answer := Answer{Raw: raw, Text: string(body), FollowUps: []string{}}

	m, ok := raw.(map[string]any)
	if !ok {
		return answer
	}

	for _, k := range []string{"text", "answer"} {
		if s, ok := m[k].(string); ok {
			answer.Text = s
			break
		}
	}
	if id, ok := m["chatId"].(string); ok {
		answer.ChatID = id
	}
	for _, k := range []string{"followUpPrompts", "followUps"} {
		if v, ok := m[k]; ok && v != nil {
			answer.FollowUps = parseFollowUps(v)
			break
		}
	}
	return answer
}

// parseFollowUps accepts a JSON-encoded string list or a plain list.
// Anything else yields an empty list.
func parseFollowUps(v any) []string {
	out := []string{}
	var items []any
	switch f := v.(type) {
	case string:
		if err := json.Unmarshal([]byte(f), &items); err != nil {
			return out
		}
	case []any:
		items = f
	default:
		return out
	}
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
