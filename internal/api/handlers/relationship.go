package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/adaptiverag/metagraph/internal/service"
	"github.com/google/uuid"
)

type RelationshipHandler struct {
	svc *service.Discovery
}

func NewRelationshipHandler(svc *service.Discovery) *RelationshipHandler {
	return &RelationshipHandler{svc: svc}
}

// Pending handles GET /v1/relationships/pending
func (h *RelationshipHandler) Pending(w http.ResponseWriter, r *http.Request) {
	pending := h.svc.Pending()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":         len(pending),
		"relationships": pending,
	})
}

type relationshipIDsRequest struct {
	IDs []string `json:"ids"`
}

func parseRelationshipIDs(w http.ResponseWriter, r *http.Request) ([]uuid.UUID, bool) {
	var req relationshipIDsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids is required")
		return nil, false
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, idStr := range req.IDs {
		id, err := uuid.Parse(idStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid relationship id: "+idStr)
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

// Approve handles POST /v1/relationships/approve
func (h *RelationshipHandler) Approve(w http.ResponseWriter, r *http.Request) {
	ids, ok := parseRelationshipIDs(w, r)
	if !ok {
		return
	}

	approved := h.svc.Approve(r.Context(), ids)
	writeJSON(w, http.StatusOK, map[string]any{
		"requested": len(ids),
		"approved":  approved,
	})
}

// Reject handles POST /v1/relationships/reject
func (h *RelationshipHandler) Reject(w http.ResponseWriter, r *http.Request) {
	ids, ok := parseRelationshipIDs(w, r)
	if !ok {
		return
	}

	rejected := h.svc.Reject(ids)
	writeJSON(w, http.StatusOK, map[string]any{
		"requested": len(ids),
		"rejected":  rejected,
	})
}

// HighConfidence handles GET /v1/relationships/high-confidence
func (h *RelationshipHandler) HighConfidence(w http.ResponseWriter, r *http.Request) {
	threshold := service.DefaultHighConfidenceThreshold
	if t := r.URL.Query().Get("threshold"); t != "" {
		parsed, err := strconv.ParseFloat(t, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			writeError(w, http.StatusBadRequest, "threshold must be a number in [0, 1]")
			return
		}
		threshold = parsed
	}

	relationships := h.svc.HighConfidence(threshold)
	writeJSON(w, http.StatusOK, map[string]any{
		"threshold":     threshold,
		"count":         len(relationships),
		"relationships": relationships,
	})
}

type autoActivateRequest struct {
	Threshold float64 `json:"threshold,omitempty"`
}

// AutoActivate handles POST /v1/relationships/auto-activate
func (h *RelationshipHandler) AutoActivate(w http.ResponseWriter, r *http.Request) {
	var req autoActivateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	activated := h.svc.AutoActivate(r.Context(), req.Threshold)
	writeJSON(w, http.StatusOK, map[string]any{
		"activated": activated,
	})
}

// Stats handles GET /v1/relationships/stats
func (h *RelationshipHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Stats())
}
