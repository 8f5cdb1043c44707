package listening

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"

	"membitpulse/internal/domain/trend"
)

func TestComputeSentimentEmpty(t *testing.T) {
	assert.Equal(t, trend.SentimentBreakdown{}, ComputeSentiment(nil))
	assert.Equal(t, trend.SentimentBreakdown{}, ComputeSentiment([]trend.Topic{}))
}

func TestComputeSentimentDeadband(t *testing.T) {
	topics := []trend.Topic{
		{Sentiment: 0.5},
		{Sentiment: 0.1},
		{Sentiment: -0.1},
		{Sentiment: -0.11},
	}
	got := ComputeSentiment(topics)
	assert.Equal(t, trend.SentimentBreakdown{Positive: 25, Neutral: 50, Negative: 25}, got)
}

func TestComputeSentimentRoundsIndependently(t *testing.T) {
	topics := []trend.Topic{{Sentiment: 1}, {Sentiment: 0}, {Sentiment: -1}}
	got := ComputeSentiment(topics)
	assert.Equal(t, trend.SentimentBreakdown{Positive: 33, Neutral: 33, Negative: 33}, got)
}

func TestComputeCPIEmpty(t *testing.T) {
	got := ComputeCPI(nil)
	// volume log10(10)/5 = 0.2, growth normalize(0) = 10/160, sentiment 0.5
	assert.Equal(t, 19, got.CPI)
	assert.Zero(t, got.TotalMentions)
	assert.Zero(t, got.AvgGrowth)
	assert.Zero(t, got.AvgSentiment)
}

func TestComputeCPIKnownValue(t *testing.T) {
	topics := []trend.Topic{
		{Mentions: 60000, Growth24h: 150, Sentiment: 1},
		{Mentions: 40000, Growth24h: 150, Sentiment: 1},
	}
	got := ComputeCPI(topics)
	assert.Equal(t, 100, got.CPI)
	assert.EqualValues(t, 100000, got.TotalMentions)
	assert.Equal(t, 150.0, got.AvgGrowth)
	assert.Equal(t, 1.0, got.AvgSentiment)
}

func TestComputeCPIBounded(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 500; i++ {
		n := rng.IntN(20)
		topics := make([]trend.Topic, n)
		for j := range topics {
			topics[j] = trend.Topic{
				Mentions:  rng.Int64N(10_000_000),
				Growth24h: rng.Float64()*2000 - 1000,
				Sentiment: rng.Float64()*6 - 3,
			}
		}
		got := ComputeCPI(topics).CPI
		assert.GreaterOrEqual(t, got, 0)
		assert.LessOrEqual(t, got, 100)
	}
}

func TestComputeCPIMonotonicInMentions(t *testing.T) {
	prev := -1
	for _, mentions := range []int64{0, 5, 10, 100, 999, 5_000, 50_000, 100_000, 1_000_000} {
		got := ComputeCPI([]trend.Topic{{Mentions: mentions, Growth24h: 20, Sentiment: 0.2}}).CPI
		assert.GreaterOrEqual(t, got, prev, "mentions=%d", mentions)
		prev = got
	}
}

func TestSummarize(t *testing.T) {
	resp := Summarize(nil, trend.SourceMock, 99)
	assert.NotNil(t, resp.Topics)
	assert.EqualValues(t, 99, resp.TS)
	assert.Equal(t, trend.SourceMock, resp.Source)
}
