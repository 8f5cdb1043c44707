package listening

import (
	"math"

	"membitpulse/internal/domain/trend"
)

// Sentiment deadband: topics within ±sentimentDeadband count as neutral.
const sentimentDeadband = 0.1

// CPI weights
const (
	cpiVolumeWeight    = 0.6
	cpiGrowthWeight    = 0.3
	cpiSentimentWeight = 0.1
)

// ComputeSentiment buckets topics by sentiment sign and reports each bucket as
// a rounded percentage of the topic count.
func ComputeSentiment(topics []trend.Topic) trend.SentimentBreakdown {
	var positive, neutral, negative int
	for _, t := range topics {
		switch {
		case t.Sentiment > sentimentDeadband:
			positive++
		case t.Sentiment < -sentimentDeadband:
			negative++
		default:
			neutral++
		}
	}

	total := float64(max(1, len(topics)))
	return trend.SentimentBreakdown{
		Positive: percent(positive, total),
		Neutral:  percent(neutral, total),
		Negative: percent(negative, total),
	}
}

// ComputeCPI derives the Chaos/Pulse Index from the topic aggregates. Volume is
// log-scaled and saturates around 100k mentions, growth is normalized over
// -10..150 and sentiment is rescaled from [-1,1] to [0,1].
func ComputeCPI(topics []trend.Topic) trend.CPI {
	var totalMentions int64
	var sumGrowth, sumSentiment float64
	for _, t := range topics {
		totalMentions += t.Mentions
		sumGrowth += t.Growth24h
		sumSentiment += t.Sentiment
	}

	n := float64(max(1, len(topics)))
	avgGrowth := sumGrowth / n
	avgSentiment := sumSentiment / n

	volumeScore := math.Min(1, math.Log10(math.Max(10, float64(totalMentions)))/5)
	growthScore := trend.Clamp(trend.Normalize(avgGrowth, -10, 150), 0, 1)
	sentimentScore := (avgSentiment + 1) / 2

	score := math.Round((cpiVolumeWeight*volumeScore + cpiGrowthWeight*growthScore + cpiSentimentWeight*sentimentScore) * 100)

	return trend.CPI{
		CPI:           trend.ClampInt(int(score), 0, 100),
		TotalMentions: totalMentions,
		AvgGrowth:     trend.Round2(avgGrowth),
		AvgSentiment:  trend.Round2(avgSentiment),
	}
}

// Summarize wraps topics into a full trends response
func Summarize(topics []trend.Topic, source string, ts int64) trend.Response {
	if topics == nil {
		topics = []trend.Topic{}
	}
	return trend.Response{
		Topics:    topics,
		Sentiment: ComputeSentiment(topics),
		CPI:       ComputeCPI(topics),
		TS:        ts,
		Source:    source,
	}
}

func percent(count int, total float64) int {
	return int(math.Round(float64(count) / total * 100))
}
