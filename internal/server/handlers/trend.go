// internal/server/handlers/trend.go

package handlers

import (
	"net/http"

	"membitpulse/internal/domain/trend"
)

// TrendHandler handles trend-related HTTP requests
type TrendHandler struct {
	detector trend.Detector
}

// NewTrendHandler creates a new trend handler
func NewTrendHandler(detector trend.Detector) *TrendHandler {
	return &TrendHandler{
		detector: detector,
	}
}

// GetTrends returns the current trend snapshot. The detector always answers,
// falling back to synthetic data, so this never fails.
func (h *TrendHandler) GetTrends(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.detector.GetTrends(r.Context()))
}
