package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/adaptiverag/metagraph/internal/service"
)

type QueryHandler struct {
	orchestrator *service.Orchestrator
}

func NewQueryHandler(orchestrator *service.Orchestrator) *QueryHandler {
	return &QueryHandler{orchestrator: orchestrator}
}

type processQueryRequest struct {
	Query string `json:"query"`
}

// Process handles POST /v1/query
func (h *QueryHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req processQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.orchestrator.ProcessQuery(r.Context(), req.Query)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyQuery):
			writeError(w, http.StatusBadRequest, "query is required")
		case errors.Is(err, service.ErrNoExecutor):
			writeError(w, http.StatusServiceUnavailable, "no executor available for the selected method")
		default:
			writeError(w, http.StatusInternalServerError, "failed to process query")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Status handles GET /v1/status
func (h *QueryHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.orchestrator.Status())
}
