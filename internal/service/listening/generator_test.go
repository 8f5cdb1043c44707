package listening

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateShape(t *testing.T) {
	g := NewGenerator(rand.NewPCG(7, 11))

	for run := 0; run < 50; run++ {
		topics := g.Generate(12)
		require.Len(t, topics, 12)

		ids := map[string]bool{}
		for i, topic := range topics {
			assert.False(t, ids[topic.ID], "duplicate id %s", topic.ID)
			ids[topic.ID] = true

			assert.NotEmpty(t, topic.Name)
			assert.GreaterOrEqual(t, topic.ViralScore, 0)
			assert.LessOrEqual(t, topic.ViralScore, 100)
			assert.Len(t, topic.Spark, SparkLength)
			assert.Len(t, topic.Keywords, 4)
			assert.GreaterOrEqual(t, topic.Mentions, int64(200))
			assert.Less(t, topic.Mentions, int64(12000))
			assert.GreaterOrEqual(t, topic.Growth24h, -10.0)
			assert.LessOrEqual(t, topic.Growth24h, 180.0)
			assert.GreaterOrEqual(t, topic.Sentiment, -1.0)
			assert.LessOrEqual(t, topic.Sentiment, 1.0)
			for _, v := range topic.Spark {
				assert.GreaterOrEqual(t, v, 20)
				assert.Less(t, v, 100)
			}
			if i > 0 {
				assert.GreaterOrEqual(t, topics[i-1].Mentions, topic.Mentions)
			}
		}
	}
}

func TestGenerateCounts(t *testing.T) {
	g := NewGenerator(nil)
	assert.Empty(t, g.Generate(0))
	assert.Len(t, g.Generate(1), 1)
	assert.Len(t, g.Generate(30), 30)
}

func TestGenerateKeywordsDistinct(t *testing.T) {
	g := NewGenerator(rand.NewPCG(3, 4))
	for _, topic := range g.Generate(12) {
		seen := map[string]bool{}
		for _, k := range topic.Keywords {
			assert.False(t, seen[k])
			seen[k] = true
		}
	}
}
