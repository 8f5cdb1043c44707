// internal/service/listening/detector.go

package listening

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"membitpulse/internal/adapter/events"
	"membitpulse/internal/domain/trend"
)

// TrendSource is the upstream social-analytics provider
type TrendSource interface {
	MCPConfigured() bool
	APIConfigured() bool
	// ProbeTrends tries the consolidated aggregation endpoint
	ProbeTrends(ctx context.Context) ([]trend.Topic, error)
	// Trends calls the direct REST endpoint
	Trends(ctx context.Context) ([]trend.Topic, error)
}

// Metrics records which step of the chain answered
type Metrics interface {
	RecordTrendSource(source string)
}

// TrendDetectorConfig contains configuration for the trend detector
type TrendDetectorConfig struct {
	MockCount int
}

// TrendDetector implements trend.Detector. It walks the fallback chain
// aggregation endpoint → REST endpoint → last snapshot → mock generator and
// stops at the first step that yields topics.
type TrendDetector struct {
	source    TrendSource
	generator *Generator
	store     trend.SnapshotStore
	eventBus  trend.Publisher
	metrics   Metrics
	config    TrendDetectorConfig
	now       func() time.Time
}

// NewTrendDetector creates a new trend detector. store, eventBus and metrics
// may be nil.
func NewTrendDetector(
	source TrendSource,
	generator *Generator,
	store trend.SnapshotStore,
	eventBus trend.Publisher,
	metrics Metrics,
	config TrendDetectorConfig,
) *TrendDetector {
	if generator == nil {
		generator = NewGenerator(nil)
	}
	if eventBus == nil {
		eventBus = events.Nop{}
	}
	if config.MockCount <= 0 {
		config.MockCount = 12
	}
	return &TrendDetector{
		source:    source,
		generator: generator,
		store:     store,
		eventBus:  eventBus,
		metrics:   metrics,
		config:    config,
		now:       time.Now,
	}
}

// GetTrends returns the current trend snapshot. It never fails.
func (td *TrendDetector) GetTrends(ctx context.Context) trend.Response {
	resp := td.resolve(ctx)
	if td.metrics != nil {
		td.metrics.RecordTrendSource(resp.Source)
	}
	return resp
}

func (td *TrendDetector) resolve(ctx context.Context) trend.Response {
	if td.source != nil {
		if topics, source, ok := td.fromUpstream(ctx); ok {
			resp := Summarize(topics, source, td.now().UnixMilli())
			td.remember(ctx, resp)
			return resp
		}
	}

	if td.store != nil {
		cached, err := td.store.Latest(ctx)
		if err == nil && cached != nil && len(cached.Topics) > 0 {
			slog.Info("[TrendDetector] serving cached snapshot", "age_ms", td.now().UnixMilli()-cached.TS)
			return Summarize(cached.Topics, trend.SourceCache, td.now().UnixMilli())
		}
	}

	return Summarize(td.generator.Generate(td.config.MockCount), trend.SourceMock, td.now().UnixMilli())
}

func (td *TrendDetector) fromUpstream(ctx context.Context) ([]trend.Topic, string, bool) {
	if td.source.MCPConfigured() {
		topics, err := td.source.ProbeTrends(ctx)
		if err == nil && len(topics) > 0 {
			return topics, trend.SourceMCP, true
		}
		slog.Warn("[TrendDetector] aggregation endpoint failed, falling back", "error", errOrEmpty(err))
	}

	if td.source.APIConfigured() {
		topics, err := td.source.Trends(ctx)
		if err == nil && len(topics) > 0 {
			return topics, trend.SourceAPI, true
		}
		slog.Warn("[TrendDetector] REST trends failed, falling back", "error", errOrEmpty(err))
	}

	return nil, "", false
}

// remember stores the snapshot and announces it. Failures are logged only.
func (td *TrendDetector) remember(ctx context.Context, resp trend.Response) {
	if td.store != nil {
		if err := td.store.Save(ctx, resp); err != nil {
			slog.Warn("[TrendDetector] failed to save snapshot", "error", err)
		}
	}

	summary := map[string]any{
		"source": resp.Source,
		"topics": len(resp.Topics),
		"cpi":    resp.CPI.CPI,
		"ts":     resp.TS,
	}
	if err := td.eventBus.Publish(ctx, events.TrendsRefreshed, summary); err != nil {
		slog.Warn("[TrendDetector] failed to publish trends event", "error", err)
	}
}

var errNoTopics = errors.New("no topics")

func errOrEmpty(err error) error {
	if err == nil {
		return errNoTopics
	}
	return err
}
