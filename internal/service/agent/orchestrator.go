// internal/service/agent/orchestrator.go

package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"membitpulse/internal/adapter/events"
	"membitpulse/internal/adapter/flowise"
	"membitpulse/internal/adapter/membit"
	"membitpulse/internal/adapter/upstream"
	agentDomain "membitpulse/internal/domain/agent"
	"membitpulse/internal/domain/trend"
)

// DefaultTopic is analyzed when a run names no topic
const DefaultTopic = "general trend"

// Inference paths reported to metrics
const (
	PathFlowise      = "flowise"
	PathUnconfigured = "fallback_unconfigured"
	PathStatus       = "fallback_status"
	PathError        = "fallback_error"
)

const systemPrompt = `You are Membit Pulse analysis assistant. Produce a concise viral prediction for the given topic. Provide:
- Viral Score (0-100) on its own line as: Score: <number>
- 3 short rationale bullets referencing volume/growth/sentiment/memeability
- Suggested action: Monitor / Amplify / Ignore
Respond in JSON: {"score": number, "rationale": string[], "action": string, "explanation": string}`

var fallbackRationale = []string{
	"Volume shows recent pickup in mentions",
	"Growth rate strong compared to baseline",
	"Sentiment mixed but high engagement",
}

// ContextSource gathers posts and clusters for a topic
type ContextSource interface {
	MCPConfigured() bool
	Reason(ctx context.Context, topic string) (any, error)
	SearchPosts(ctx context.Context, query string, limit int) (any, error)
	SearchClusters(ctx context.Context, query string, limit int) (any, error)
}

// Predictor is the LLM chat provider
type Predictor interface {
	Configured() bool
	Predict(ctx context.Context, question string, meta any) (*upstream.Reply, error)
}

// Metrics records which inference path a run took
type Metrics interface {
	RecordAgentRun(path string)
}

// OrchestratorConfig contains configuration for the orchestrator
type OrchestratorConfig struct {
	PostLimit    int
	ClusterLimit int
}

// Orchestrator runs one viral-potential analysis per call. A run always
// produces a result; upstream failures only change which path produced it.
type Orchestrator struct {
	source    ContextSource
	predictor Predictor
	eventBus  trend.Publisher
	metrics   Metrics
	config    OrchestratorConfig

	mu  sync.Mutex
	rng *rand.Rand

	now   func() time.Time
	newID func() string
}

// NewOrchestrator creates a new orchestrator. eventBus, metrics and src may
// be nil.
func NewOrchestrator(
	source ContextSource,
	predictor Predictor,
	eventBus trend.Publisher,
	metrics Metrics,
	config OrchestratorConfig,
	src rand.Source,
) *Orchestrator {
	if eventBus == nil {
		eventBus = events.Nop{}
	}
	if config.PostLimit <= 0 {
		config.PostLimit = 8
	}
	if config.ClusterLimit <= 0 {
		config.ClusterLimit = 6
	}
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Orchestrator{
		source:    source,
		predictor: predictor,
		eventBus:  eventBus,
		metrics:   metrics,
		config:    config,
		rng:       rand.New(src),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// gathered is the context collected for one run
type gathered struct {
	mcp      any
	posts    any
	clusters any
}

// Run analyzes topic and returns the response body for the caller
func (o *Orchestrator) Run(ctx context.Context, topic string) agentDomain.RunResult {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = DefaultTopic
	}

	slog.Info("[Orchestrator] run started", "topic", topic)

	g := o.gather(ctx, topic)
	question := buildPrompt(topic, summarize(g.posts, postSummaryKeys), summarize(g.clusters, clusterSummaryKeys))

	result := agentDomain.RunResult{
		OK:       true,
		RunID:    o.newID(),
		TS:       o.now().UnixMilli(),
		Topic:    topic,
		Posts:    g.posts,
		Clusters: g.clusters,
		MCP:      g.mcp,
	}
	path := o.infer(ctx, question, &result)

	if o.metrics != nil {
		o.metrics.RecordAgentRun(path)
	}
	o.announce(ctx, result)

	slog.Info("[Orchestrator] run finished", "topic", topic, "path", path, "run_id", result.RunID)
	return result
}

func (o *Orchestrator) gather(ctx context.Context, topic string) gathered {
	var g gathered

	if o.source == nil {
		missing := errorPlaceholder(errors.New("no context source configured"))
		g.posts, g.clusters = missing, missing
		return g
	}

	if o.source.MCPConfigured() {
		payload, err := o.source.Reason(ctx, topic)
		if err != nil {
			slog.Warn("[Orchestrator] aggregation call failed, using search", "error", err)
		} else {
			g.mcp = payload
			g.posts = membit.ExtractPosts(payload)
			g.clusters = membit.ExtractClusters(payload)
		}
	}

	if g.posts == nil {
		posts, err := o.source.SearchPosts(ctx, topic, o.config.PostLimit)
		if err != nil {
			slog.Warn("[Orchestrator] search-posts failed", "error", err)
			g.posts = errorPlaceholder(err)
		} else {
			g.posts = posts
		}
	}

	if g.clusters == nil {
		clusters, err := o.source.SearchClusters(ctx, topic, o.config.ClusterLimit)
		if err != nil {
			slog.Warn("[Orchestrator] search-clusters failed", "error", err)
			g.clusters = errorPlaceholder(err)
		} else {
			g.clusters = clusters
		}
	}

	return g
}

// infer fills the verdict fields of result and returns the path taken
func (o *Orchestrator) infer(ctx context.Context, question string, result *agentDomain.RunResult) string {
	if o.predictor == nil || !o.predictor.Configured() {
		result.Data = o.fallback("Fallback rule-based estimation because Flowise API URL is not configured.")
		return PathUnconfigured
	}

	reply, err := o.predictor.Predict(ctx, question, nil)
	if err != nil {
		var se *upstream.StatusError
		if errors.As(err, &se) {
			slog.Warn("[Orchestrator] Flowise returned non-2xx", "status", se.Status)
			result.FlowiseError = se.Body
			if result.FlowiseError == "" {
				result.FlowiseError = fmt.Sprintf("Flowise error %d", se.Status)
			}
			result.Data = o.fallback(fmt.Sprintf("Fallback rule-based estimation because Flowise returned error: %d", se.Status))
			return PathStatus
		}

		slog.Warn("[Orchestrator] Flowise call failed", "error", err)
		result.FlowiseError = err.Error()
		result.Data = o.fallback("Fallback rule-based estimation because Flowise connection failed: " + err.Error())
		return PathError
	}

	content := flowise.ParseAnswer(reply.Body).Text
	result.Data = parseVerdict(content)
	result.Raw = content
	result.FlowiseUsed = true
	return PathFlowise
}

// fallback produces the rule-based verdict
func (o *Orchestrator) fallback(explanation string) agentDomain.Verdict {
	o.mu.Lock()
	score := 50 + o.rng.IntN(40)
	o.mu.Unlock()

	return agentDomain.Verdict{
		Score:       score,
		Rationale:   append([]string(nil), fallbackRationale...),
		Action:      agentDomain.ActionForScore(score),
		Explanation: explanation,
	}
}

func (o *Orchestrator) announce(ctx context.Context, result agentDomain.RunResult) {
	payload := map[string]any{
		"runId":        result.RunID,
		"topic":        result.Topic,
		"flowise_used": result.FlowiseUsed,
	}
	if v, ok := result.Data.(agentDomain.Verdict); ok {
		payload["score"] = v.Score
		payload["action"] = v.Action
	} else if m, ok := result.Data.(map[string]any); ok {
		payload["score"] = m["score"]
		payload["action"] = m["action"]
	}
	if err := o.eventBus.Publish(ctx, events.AgentCompleted, payload); err != nil {
		slog.Warn("[Orchestrator] failed to publish run event", "error", err)
	}
}

func buildPrompt(topic, posts, clusters string) string {
	return fmt.Sprintf("%s\n\nTopic: %s\n\nPosts:\n%s\n\nClusters:\n%s\n\nReturn compact JSON as specified.", systemPrompt, topic, posts, clusters)
}
