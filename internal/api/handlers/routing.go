package handlers

import (
	"net/http"

	"github.com/adaptiverag/metagraph/internal/service"
)

type RoutingHandler struct {
	router *service.Router
}

func NewRoutingHandler(router *service.Router) *RoutingHandler {
	return &RoutingHandler{router: router}
}

// Recommendations handles GET /v1/routing/recommendations
func (h *RoutingHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	recs := h.router.Recommendations()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":           len(recs),
		"recommendations": recs,
	})
}

// Stats handles GET /v1/routing/stats
func (h *RoutingHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.router.Stats())
}
