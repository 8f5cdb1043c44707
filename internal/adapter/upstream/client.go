package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"membitpulse/internal/config"
)

// maxBodyBytes caps how much of an upstream response is read
const maxBodyBytes = 8 << 20

// Recorder observes the outcome of upstream calls
type Recorder interface {
	ObserveUpstream(upstream, outcome string, seconds float64)
}

// RequestOptions holds HTTP request parameters.
type RequestOptions struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    any
}

// Reply is a successful (2xx) upstream response
type Reply struct {
	Status int
	Header http.Header
	Body   []byte
}

// StatusError reports a non-2xx upstream response
type StatusError struct {
	Upstream string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error %d: %s", e.Upstream, e.Status, e.Body)
}

// ClientOption configures Client.
type ClientOption func(*Client)

// Client sends requests to one upstream behind a circuit breaker.
type Client struct {
	name     string
	timeout  time.Duration
	breaker  config.BreakerConfig
	http     *http.Client
	cb       *gobreaker.CircuitBreaker
	recorder Recorder
}

// NewClient creates a new upstream client.
func NewClient(name string, opts ...ClientOption) *Client {
	c := &Client{
		name:    name,
		timeout: 10 * time.Second,
		breaker: config.BreakerConfig{MaxFailures: 5, OpenTimeout: 30 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: c.breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return c.breaker.MaxFailures > 0 && counts.ConsecutiveFailures >= c.breaker.MaxFailures
		},
		IsSuccessful: countsAsHealthy,
	})
	return c
}

// WithTimeout sets client timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithBreaker sets the circuit breaker thresholds.
func WithBreaker(cfg config.BreakerConfig) ClientOption {
	return func(c *Client) {
		c.breaker = cfg
	}
}

// WithRecorder reports every call to r.
func WithRecorder(r Recorder) ClientOption {
	return func(c *Client) {
		c.recorder = r
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// Name returns the upstream name used in errors and metrics
func (c *Client) Name() string {
	return c.name
}

// Do sends the request. Transport failures, an open breaker and non-2xx
// statuses are all returned as errors; the latter as *StatusError.
func (c *Client) Do(ctx context.Context, opts *RequestOptions) (*Reply, error) {
	start := time.Now()
	res, err := c.cb.Execute(func() (interface{}, error) {
		return c.send(ctx, opts)
	})
	c.observe(start, err)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s unavailable: %w", c.name, err)
		}
		return nil, err
	}
	return res.(*Reply), nil
}

func (c *Client) send(ctx context.Context, opts *RequestOptions) (*Reply, error) {
	body, err := requestBody(opts.Body)
	if err != nil {
		return nil, fmt.Errorf("create body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, opts.URL, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("Content-Type") == "" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", c.name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s read body: %w", c.name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Upstream: c.name, Status: resp.StatusCode, Body: string(data)}
	}

	return &Reply{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func (c *Client) observe(start time.Time, err error) {
	if c.recorder == nil {
		return
	}
	outcome := "ok"
	var se *StatusError
	switch {
	case err == nil:
	case errors.As(err, &se):
		outcome = fmt.Sprintf("%dxx", se.Status/100)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "breaker_open"
	default:
		outcome = "transport_error"
	}
	c.recorder.ObserveUpstream(c.name, outcome, time.Since(start).Seconds())
}

// countsAsHealthy keeps client-side problems and 4xx replies from tripping
// the breaker.
func countsAsHealthy(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status < 500
	}
	return false
}

func requestBody(body any) (io.Reader, error) {
	switch v := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(v), nil
	case string:
		return strings.NewReader(v), nil
	case io.Reader:
		return v, nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal json: %w", err)
		}
		return bytes.NewReader(data), nil
	}
}
