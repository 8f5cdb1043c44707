// internal/service/chat/proxy.go

package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"membitpulse/internal/adapter/flowise"
	"membitpulse/internal/adapter/upstream"
)

// ErrEmptyQuestion is returned when a request carries no question text
var ErrEmptyQuestion = errors.New("question is required")

// Keys a question may arrive under, in lookup order
var questionKeys = []string{"question", "input", "message", "query"}

// Predictor is the chat provider
type Predictor interface {
	Configured() bool
	Status() (urlConfigured, keyConfigured, chatflowConfigured bool)
	Predict(ctx context.Context, question string, meta any) (*upstream.Reply, error)
}

// Reply is the normalized chat answer
type Reply struct {
	OK        bool     `json:"ok"`
	Text      string   `json:"text"`
	Raw       any      `json:"raw"`
	ChatID    string   `json:"chatId,omitempty"`
	FollowUps []string `json:"followUps"`
}

// Status reports which chat settings are present
type Status struct {
	OK                   bool `json:"ok"`
	URLConfigured        bool `json:"urlConfigured"`
	KeyConfigured        bool `json:"keyConfigured"`
	ChatflowIDConfigured bool `json:"chatflowIdConfigured"`
}

// Proxy forwards free-form questions to the chat provider
type Proxy struct {
	predictor Predictor
}

// NewProxy creates a new chat proxy
func NewProxy(predictor Predictor) *Proxy {
	return &Proxy{predictor: predictor}
}

// Question pulls the question text out of a request body
func Question(body map[string]any) string {
	for _, k := range questionKeys {
		if s, ok := body[k].(string); ok {
			return s
		}
	}
	return ""
}

// Ask forwards the request body to the provider. Errors are
// flowise.ErrNotConfigured, ErrEmptyQuestion, *upstream.StatusError or a
// transport failure.
func (p *Proxy) Ask(ctx context.Context, body map[string]any) (*Reply, error) {
	if !p.predictor.Configured() {
		return nil, flowise.ErrNotConfigured
	}

	question := Question(body)
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	var meta any
	if m, ok := body["meta"]; ok && m != nil {
		meta = m
	}

	reply, err := p.predictor.Predict(ctx, question, meta)
	if err != nil {
		slog.Warn("[ChatProxy] chat request failed", "error", err)
		return nil, err
	}

	answer := flowise.ParseAnswer(reply.Body)
	return &Reply{
		OK:        true,
		Text:      answer.Text,
		Raw:       answer.Raw,
		ChatID:    answer.ChatID,
		FollowUps: answer.FollowUps,
	}, nil
}

// Status reports configuration as booleans only
func (p *Proxy) Status() Status {
	url, key, flow := p.predictor.Status()
	return Status{OK: true, URLConfigured: url, KeyConfigured: key, ChatflowIDConfigured: flow}
}
