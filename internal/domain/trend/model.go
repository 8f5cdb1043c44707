package trend

// Source values reported on Response so the dashboard can label where the
// topics came from.
const (
	SourceMCP   = "mcp"
	SourceAPI   = "api"
	SourceCache = "cache"
	SourceMock  = "mock"
)

// Topic represents one trending subject
type Topic struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Mentions   int64    `json:"mentions"`
	Growth24h  float64  `json:"growth24h"`
	Sentiment  float64  `json:"sentiment"`
	Keywords   []string `json:"keywords"`
	Spark      []int    `json:"spark"`
	ViralScore int      `json:"viralScore"`
}

// SentimentBreakdown holds the share of positive, neutral and negative topics
// as integer percentages. The three values are rounded independently and need
// not add up to exactly 100.
type SentimentBreakdown struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// CPI is the composite Chaos/Pulse Index together with the aggregates it was
// derived from.
type CPI struct {
	CPI           int     `json:"cpi"`
	TotalMentions int64   `json:"totalMentions"`
	AvgGrowth     float64 `json:"avgGrowth"`
	AvgSentiment  float64 `json:"avgSentiment"`
}

// Response is the payload of GET /api/membit/trends
type Response struct {
	Topics    []Topic            `json:"topics"`
	Sentiment SentimentBreakdown `json:"sentiment"`
	CPI       CPI                `json:"cpi"`
	TS        int64              `json:"ts"`
	Source    string             `json:"source"`
}
