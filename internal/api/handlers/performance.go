package handlers

import (
	"net/http"
	"strconv"

	"github.com/adaptiverag/metagraph/internal/config"
	"github.com/adaptiverag/metagraph/internal/service"
)

const (
	defaultFailureLimit = 20
	defaultTopEdgeLimit = 20
)

type PerformanceHandler struct {
	tracker    *service.Tracker
	reweighter *service.Reweighter
}

func NewPerformanceHandler(tracker *service.Tracker, reweighter *service.Reweighter) *PerformanceHandler {
	return &PerformanceHandler{tracker: tracker, reweighter: reweighter}
}

func queryInt(r *http.Request, name string, fallback int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

// Summary handles GET /v1/performance/summary
func (h *PerformanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", config.TimeWindowDays())
	writeJSON(w, http.StatusOK, h.tracker.PerformanceSummary(days))
}

// Failures handles GET /v1/performance/failures
func (h *PerformanceHandler) Failures(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultFailureLimit)
	days := queryInt(r, "days", config.TimeWindowDays())

	failed := h.tracker.FailedRetrievals(limit, days)
	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(failed),
		"failures": failed,
	})
}

// TopEdges handles GET /v1/edge-weights/top
func (h *PerformanceHandler) TopEdges(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultTopEdgeLimit)

	edges := h.reweighter.TopEdges(limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(edges),
		"edges": edges,
	})
}

// ReweightStats handles GET /v1/edge-weights/stats
func (h *PerformanceHandler) ReweightStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.reweighter.Stats())
}
