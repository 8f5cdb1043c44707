package listening

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"membitpulse/internal/domain/trend"
)

// SparkLength is the number of points in every synthetic sparkline
const SparkLength = 16

var sampleTopics = []string{
	"AI Governance", "Post-Quantum Crypto", "DeFi Liquidity", "Election Misinformation",
	"Generative Agents", "Layer-2 Rollups", "Digital ID", "Privacy Coins",
	"Neural Radiance Fields", "GPU Shortage", "Memetic Warfare", "Biohacking",
}

var sampleKeywords = []string{
	"ai", "crypto", "policy", "infra", "memes", "security", "eth", "btc", "llm", "startups",
}

// Generator produces plausible synthetic trend topics. It has no dependencies
// and is the terminal fallback of the trends chain.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a generator. A nil source seeds from the runtime.
func NewGenerator(src rand.Source) *Generator {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Generator{rng: rand.New(src)}
}

// Generate returns exactly count topics sorted by mentions, highest first
func (g *Generator) Generate(count int) []trend.Topic {
	if count <= 0 {
		return []trend.Topic{}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	topics := make([]trend.Topic, 0, count)
	for i := 0; i < count; i++ {
		mentions := int64(g.between(200, 12000))
		growth := trend.Round2(g.between(-10, 180))
		sentiment := trend.Round2(g.between(-1, 1))
		name := sampleTopics[(i+g.rng.IntN(len(sampleTopics)))%len(sampleTopics)]

		spark := make([]int, SparkLength)
		for j := range spark {
			spark[j] = int(g.between(20, 100))
		}

		topics = append(topics, trend.Topic{
			ID:         fmt.Sprintf("%s-%d", name, i),
			Name:       name,
			Mentions:   mentions,
			Growth24h:  growth,
			Sentiment:  sentiment,
			Keywords:   g.keywords(4),
			Spark:      spark,
			ViralScore: trend.ViralScore(mentions, growth, sentiment),
		})
	}

	sort.SliceStable(topics, func(a, b int) bool {
		return topics[a].Mentions > topics[b].Mentions
	})
	return topics
}

func (g *Generator) between(min, max float64) float64 {
	return g.rng.Float64()*(max-min) + min
}

func (g *Generator) keywords(n int) []string {
	perm := g.rng.Perm(len(sampleKeywords))
	out := make([]string, 0, n)
	for _, idx := range perm[:min(n, len(perm))] {
		out = append(out, sampleKeywords[idx])
	}
	return out
}
