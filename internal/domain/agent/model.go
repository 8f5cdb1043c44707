package agent

// Actions a verdict may recommend. Verdicts coming from the LLM may carry any
// other string.
const (
	ActionAmplify = "Amplify"
	ActionMonitor = "Monitor"
	ActionIgnore  = "Ignore"
)

// Verdict is the structured viral-potential answer for one topic
type Verdict struct {
	Score       int      `json:"score"`
	Rationale   []string `json:"rationale"`
	Action      string   `json:"action"`
	Explanation string   `json:"explanation"`
}

// RunResult is the body of a successful /api/agent/run response. Data holds
// either a Verdict or the best-effort parsed LLM object.
type RunResult struct {
	OK           bool   `json:"ok"`
	RunID        string `json:"runId"`
	TS           int64  `json:"ts"`
	Topic        string `json:"topic"`
	Data         any    `json:"data"`
	Raw          string `json:"raw,omitempty"`
	Posts        any    `json:"posts"`
	Clusters     any    `json:"clusters"`
	MCP          any    `json:"mcp"`
	FlowiseUsed  bool   `json:"flowise_used"`
	FlowiseError string `json:"flowise_error,omitempty"`
}

// ActionForScore thresholds a score into a recommended action
func ActionForScore(score int) string {
	switch {
	case score > 70:
		return ActionAmplify
	case score > 45:
		return ActionMonitor
	default:
		return ActionIgnore
	}
}
