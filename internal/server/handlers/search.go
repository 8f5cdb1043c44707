// internal/server/handlers/search.go

package handlers

import (
	"context"
	"errors"
	"net/http"

	"membitpulse/internal/adapter/membit"
	"membitpulse/internal/adapter/upstream"
)

// Searcher proxies the provider's search endpoints
type Searcher interface {
	SearchPosts(ctx context.Context, query string, limit int) (any, error)
	SearchClusters(ctx context.Context, query string, limit int) (any, error)
}

type searchRequest struct {
	Query string `json:"query" validate:"required"`
	Limit int    `json:"limit" default:"10" validate:"gte=1,lte=100"`
}

// SearchHandler handles search passthrough requests
type SearchHandler struct {
	searcher Searcher
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searcher Searcher) *SearchHandler {
	return &SearchHandler{searcher: searcher}
}

// SearchPosts proxies a post search
func (h *SearchHandler) SearchPosts(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, h.searcher.SearchPosts)
}

// SearchClusters proxies a cluster search
func (h *SearchHandler) SearchClusters(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, h.searcher.SearchClusters)
}

func (h *SearchHandler) search(w http.ResponseWriter, r *http.Request, call func(context.Context, string, int) (any, error)) {
	var req searchRequest
	if err := readAndValidate(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	payload, err := call(r.Context(), req.Query, req.Limit)
	if err != nil {
		var se *upstream.StatusError
		switch {
		case errors.Is(err, membit.ErrNotConfigured):
			// a missing key is a state the UI renders, not a server fault
			respondWithError(w, http.StatusOK, err.Error(), nil)
		case errors.As(err, &se):
			respondWithError(w, se.Status, se.Error(), nil)
		default:
			respondWithError(w, http.StatusBadGateway, err.Error(), err)
		}
		return
	}

	if text, ok := payload.(string); ok {
		respondWithText(w, http.StatusOK, text)
		return
	}
	respondWithJSON(w, http.StatusOK, payload)
}
