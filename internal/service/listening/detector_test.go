package listening

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"membitpulse/internal/adapter/membit"
	"membitpulse/internal/adapter/storage"
	"membitpulse/internal/config"
	"membitpulse/internal/domain/trend"
)

type fakeSource struct {
	mcp, api       bool
	mcpTopics      []trend.Topic
	apiTopics      []trend.Topic
	mcpErr, apiErr error
	calls          []string
}

func (f *fakeSource) MCPConfigured() bool { return f.mcp }
func (f *fakeSource) APIConfigured() bool { return f.api }

func (f *fakeSource) ProbeTrends(context.Context) ([]trend.Topic, error) {
	f.calls = append(f.calls, "mcp")
	return f.mcpTopics, f.mcpErr
}

func (f *fakeSource) Trends(context.Context) ([]trend.Topic, error) {
	f.calls = append(f.calls, "api")
	return f.apiTopics, f.apiErr
}

type fakePublisher struct {
	events []string
}

func (f *fakePublisher) Publish(_ context.Context, event string, _ any) error {
	f.events = append(f.events, event)
	return nil
}

type sourceCounter map[string]int

func (s sourceCounter) RecordTrendSource(source string) { s[source]++ }

func newDetector(src TrendSource, store trend.SnapshotStore, pub trend.Publisher) *TrendDetector {
	return NewTrendDetector(src, NewGenerator(rand.NewPCG(1, 1)), store, pub, nil, TrendDetectorConfig{MockCount: 12})
}

func TestGetTrendsPrefersAggregation(t *testing.T) {
	src := &fakeSource{
		mcp: true, api: true,
		mcpTopics: []trend.Topic{{ID: "a", Name: "A", Mentions: 10, Sentiment: 0.5}},
	}
	pub := &fakePublisher{}
	store := storage.NewMemoryTrendStore(time.Minute)

	resp := newDetector(src, store, pub).GetTrends(context.Background())

	assert.Equal(t, trend.SourceMCP, resp.Source)
	assert.Equal(t, []string{"mcp"}, src.calls)
	assert.Len(t, resp.Topics, 1)
	assert.Equal(t, 100, resp.Sentiment.Positive)
	assert.Equal(t, []string{"trends.refreshed"}, pub.events)

	saved, err := store.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A", saved.Topics[0].Name)
}

func TestGetTrendsFallsBackToREST(t *testing.T) {
	src := &fakeSource{
		mcp: true, api: true,
		mcpErr:    errors.New("boom"),
		apiTopics: []trend.Topic{{ID: "b", Name: "B"}},
	}

	resp := newDetector(src, nil, nil).GetTrends(context.Background())

	assert.Equal(t, trend.SourceAPI, resp.Source)
	assert.Equal(t, []string{"mcp", "api"}, src.calls)
}

func TestGetTrendsSkipsUnconfiguredSteps(t *testing.T) {
	src := &fakeSource{}
	resp := newDetector(src, nil, nil).GetTrends(context.Background())

	assert.Empty(t, src.calls)
	assert.Equal(t, trend.SourceMock, resp.Source)
	assert.Len(t, resp.Topics, 12)
}

func TestGetTrendsServesCachedSnapshot(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryTrendStore(time.Minute)
	require.NoError(t, store.Save(ctx, trend.Response{
		Topics: []trend.Topic{{ID: "c", Name: "Cached", Mentions: 5}},
		TS:     1,
		Source: trend.SourceAPI,
	}))

	src := &fakeSource{api: true, apiErr: errors.New("down")}
	resp := newDetector(src, store, nil).GetTrends(ctx)

	assert.Equal(t, trend.SourceCache, resp.Source)
	assert.Equal(t, "Cached", resp.Topics[0].Name)
	assert.Greater(t, resp.TS, int64(1))
}

func TestGetTrendsRecordsSource(t *testing.T) {
	counter := sourceCounter{}
	td := NewTrendDetector(&fakeSource{}, nil, nil, nil, counter, TrendDetectorConfig{})
	td.GetTrends(context.Background())
	assert.Equal(t, 1, counter[trend.SourceMock])
}

func TestGetTrendsUnreachableAggregationWithoutKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := membit.NewClient(config.MembitConfig{MCPURL: url, Timeout: time.Second})
	resp := newDetector(client, nil, nil).GetTrends(context.Background())

	assert.Equal(t, trend.SourceMock, resp.Source)
	require.Len(t, resp.Topics, 12)
	for _, topic := range resp.Topics {
		assert.Len(t, topic.Spark, SparkLength)
	}
	total := resp.Sentiment.Positive + resp.Sentiment.Neutral + resp.Sentiment.Negative
	assert.GreaterOrEqual(t, total, 99)
	assert.LessOrEqual(t, total, 101)
}
