// internal/server/handlers/agent.go

package handlers

import (
	"context"
	"net/http"

	agentDomain "membitpulse/internal/domain/agent"
)

// AgentRunner runs one analysis
type AgentRunner interface {
	Run(ctx context.Context, topic string) agentDomain.RunResult
}

type runRequest struct {
	Query string `json:"query"`
}

// AgentHandler handles analysis runs
type AgentHandler struct {
	runner AgentRunner
}

// NewAgentHandler creates a new agent handler
func NewAgentHandler(runner AgentRunner) *AgentHandler {
	return &AgentHandler{runner: runner}
}

// Run analyzes the requested topic. Upstream failures are reported inside a
// 200 response; only an unreadable request is an error.
func (h *AgentHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
		return
	}

	respondWithJSON(w, http.StatusOK, h.runner.Run(r.Context(), req.Query))
}
