package membit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"membitpulse/internal/adapter/upstream"
	"membitpulse/internal/config"
	"membitpulse/internal/domain/trend"
)

var (
	// ErrNotConfigured is returned by REST calls when no API key is set
	ErrNotConfigured = errors.New("MEMBIT_API_KEY not configured on server")
	// ErrMCPNotConfigured is returned by aggregation calls when no MCP URL is set
	ErrMCPNotConfigured = errors.New("MEMBIT_MCP_URL not configured on server")
)

// Client handles interactions with the Membit API
type Client struct {
	cfg  config.MembitConfig
	rest *upstream.Client
	mcp  *upstream.Client
}

// NewClient creates a new Membit API client. The REST and aggregation
// endpoints get separate breakers.
func NewClient(cfg config.MembitConfig, opts ...upstream.ClientOption) *Client {
	opts = append([]upstream.ClientOption{upstream.WithTimeout(cfg.Timeout)}, opts...)
	if cfg.TrendLimit <= 0 {
		cfg.TrendLimit = 12
	}
	return &Client{
		cfg:  cfg,
		rest: upstream.NewClient("membit", opts...),
		mcp:  upstream.NewClient("membit-mcp", opts...),
	}
}

// APIConfigured reports whether the direct REST endpoints are usable
func (c *Client) APIConfigured() bool {
	return c.cfg.APIKey != ""
}

// MCPConfigured reports whether the aggregation endpoint is usable
func (c *Client) MCPConfigured() bool {
	return c.cfg.MCPURL != ""
}

// Trends calls the direct REST trends endpoint once
func (c *Client) Trends(ctx context.Context) ([]trend.Topic, error) {
	if !c.APIConfigured() {
		return nil, ErrNotConfigured
	}

	reply, err := c.rest.Do(ctx, &upstream.RequestOptions{
		Method:  http.MethodGet,
		URL:     c.cfg.BaseURL + "/trends?limit=" + strconv.Itoa(c.cfg.TrendLimit),
		Headers: c.restHeaders(),
	})
	if err != nil {
		return nil, err
	}

	payload, err := upstream.DecodePayload(reply.Body)
	if err != nil {
		return nil, fmt.Errorf("decode trends: %w", err)
	}
	if msg, ok := PayloadError(payload); ok {
		return nil, fmt.Errorf("trends payload error: %s", msg)
	}
	records, ok := FindTopicRecords(payload)
	if !ok {
		return nil, ErrNoTopics
	}
	return NormalizeTopics(records), nil
}

// SearchPosts searches posts matching query. The upstream payload is returned
// unmodified.
func (c *Client) SearchPosts(ctx context.Context, query string, limit int) (any, error) {
	return c.search(ctx, "search-posts", query, limit)
}

// SearchClusters searches discussion clusters matching query. The upstream
// payload is returned unmodified.
func (c *Client) SearchClusters(ctx context.Context, query string, limit int) (any, error) {
	return c.search(ctx, "search-clusters", query, limit)
}

func (c *Client) search(ctx context.Context, path, query string, limit int) (any, error) {
	if !c.APIConfigured() {
		return nil, ErrNotConfigured
	}

	reply, err := c.rest.Do(ctx, &upstream.RequestOptions{
		Method:  http.MethodPost,
		URL:     c.cfg.BaseURL + "/" + path,
		Headers: c.restHeaders(),
		Body:    map[string]any{"query": query, "limit": limit},
	})
	if err != nil {
		return nil, err
	}
	return upstream.DecodeLoose(reply.Body), nil
}

func (c *Client) restHeaders() map[string]string {
	return map[string]string{
		"Content-Type":  "application/json",
		"Accept":        "application/json",
		"Authorization": "Bearer " + c.cfg.APIKey,
	}
}
