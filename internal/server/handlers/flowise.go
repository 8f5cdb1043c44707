// internal/server/handlers/flowise.go

package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"membitpulse/internal/adapter/flowise"
	"membitpulse/internal/adapter/upstream"
	"membitpulse/internal/service/chat"
)

// ChatProxy forwards chat questions
type ChatProxy interface {
	Ask(ctx context.Context, body map[string]any) (*chat.Reply, error)
	Status() chat.Status
}

// FlowiseHandler handles chat proxy requests
type FlowiseHandler struct {
	proxy ChatProxy
}

// NewFlowiseHandler creates a new Flowise handler
func NewFlowiseHandler(proxy ChatProxy) *FlowiseHandler {
	return &FlowiseHandler{proxy: proxy}
}

// Chat forwards one question and normalizes the reply
func (h *FlowiseHandler) Chat(w http.ResponseWriter, r *http.Request) {
	// a missing upstream URL is reported before the body is looked at
	if !h.proxy.Status().URLConfigured {
		respondWithError(w, http.StatusInternalServerError, flowise.ErrNotConfigured.Error(), nil)
		return
	}

	body := map[string]any{}
	if err := decodeBody(r, &body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	reply, err := h.proxy.Ask(r.Context(), body)
	if err != nil {
		var se *upstream.StatusError
		switch {
		case errors.Is(err, flowise.ErrNotConfigured):
			respondWithError(w, http.StatusInternalServerError, err.Error(), nil)
		case errors.Is(err, chat.ErrEmptyQuestion):
			respondWithError(w, http.StatusBadRequest, err.Error(), nil)
		case errors.As(err, &se):
			respondWithError(w, se.Status, fmt.Sprintf("Flowise error %d: %s", se.Status, se.Body), nil)
		default:
			respondWithError(w, http.StatusBadGateway, err.Error(), err)
		}
		return
	}

	respondWithJSON(w, http.StatusOK, reply)
}

// Config reports which chat settings are present, never their values
func (h *FlowiseHandler) Config(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.proxy.Status())
}
