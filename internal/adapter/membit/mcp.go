package membit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"membitpulse/internal/adapter/upstream"
	"membitpulse/internal/domain/trend"
)

// ErrNoTopics is returned when a payload parsed fine but holds no topic records
var ErrNoTopics = errors.New("payload contains no topic records")

// reasoningFeatures are requested from the aggregation endpoint for an agent run
var reasoningFeatures = []string{"trends", "sentiment", "volume", "engagement", "clusters", "posts"}

// probe pairs a request envelope with the check its response must pass.
// The accepted request shape of the aggregation endpoint is not known in
// advance, so the envelopes are tried in order and the first structurally
// valid response wins.
type probe struct {
	name   string
	build  func(limit int) any
	accept func(payload any) ([]any, bool)
}

var trendProbes = []probe{
	{
		name: "action",
		build: func(limit int) any {
			return map[string]any{"action": "trends", "limit": limit}
		},
		accept: FindTopicRecords,
	},
	{
		name: "rpc-tools-call",
		build: func(limit int) any {
			return map[string]any{
				"jsonrpc": "2.0",
				"id":      1,
				"method":  "tools/call",
				"params": map[string]any{
					"name":      "get_trends",
					"arguments": map[string]any{"limit": limit},
				},
			}
		},
		accept: FindTopicRecords,
	},
	{
		name: "rpc-trends",
		build: func(limit int) any {
			return map[string]any{
				"jsonrpc": "2.0",
				"id":      2,
				"method":  "trends",
				"params":  map[string]any{"limit": limit},
			}
		},
		accept: FindTopicRecords,
	},
	{
		name: "rpc-get-trends",
		build: func(limit int) any {
			return map[string]any{
				"jsonrpc": "2.0",
				"id":      3,
				"method":  "get_trends",
				"params":  map[string]any{"arguments": map[string]any{"limit": limit}},
			}
		},
		accept: FindTopicRecords,
	},
}

// ProbeTrends tries every aggregation envelope in order and returns the
// topics of the first one that yields topic records.
func (c *Client) ProbeTrends(ctx context.Context) ([]trend.Topic, error) {
	if !c.MCPConfigured() {
		return nil, ErrMCPNotConfigured
	}

	var errs []error
	for _, p := range trendProbes {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		records, err := c.attempt(ctx, p)
		if err != nil {
			slog.Debug("[MembitClient] aggregation attempt failed", "variant", p.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", p.name, err))
			continue
		}

		slog.Info("[MembitClient] aggregation attempt succeeded", "variant", p.name, "records", len(records))
		return NormalizeTopics(records), nil
	}
	return nil, fmt.Errorf("all aggregation attempts failed: %w", errors.Join(errs...))
}

func (c *Client) attempt(ctx context.Context, p probe) ([]any, error) {
	reply, err := c.mcp.Do(ctx, &upstream.RequestOptions{
		Method:  http.MethodPost,
		URL:     c.cfg.MCPURL,
		Headers: c.mcpHeaders(),
		Body:    p.build(c.cfg.TrendLimit),
	})
	if err != nil {
		return nil, err
	}

	payload, err := upstream.DecodePayload(reply.Body)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if msg, ok := PayloadError(payload); ok {
		return nil, fmt.Errorf("payload error: %s", msg)
	}

	records, ok := p.accept(payload)
	if !ok {
		return nil, ErrNoTopics
	}
	return records, nil
}

// Reason asks the aggregation endpoint for consolidated context on a topic.
// The decoded payload is returned as-is; non-JSON bodies come back as text.
func (c *Client) Reason(ctx context.Context, topic string) (any, error) {
	if !c.MCPConfigured() {
		return nil, ErrMCPNotConfigured
	}

	reply, err := c.mcp.Do(ctx, &upstream.RequestOptions{
		Method:  http.MethodPost,
		URL:     c.cfg.MCPURL,
		Headers: c.mcpHeaders(),
		Body: map[string]any{
			"action":   "reasoning",
			"query":    topic,
			"features": reasoningFeatures,
			"limit":    20,
		},
	})
	if err != nil {
		return nil, err
	}

	payload, err := upstream.DecodePayload(reply.Body)
	if err != nil {
		return string(reply.Body), nil
	}
	return payload, nil
}

func (c *Client) mcpHeaders() map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json, text/event-stream",
	}
	if c.cfg.APIKey != "" {
		headers["X-Membit-Api-Key"] = c.cfg.APIKey
	}
	return headers
}
