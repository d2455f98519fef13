package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/adaptiverag/metagraph/internal/service"
	"go.uber.org/zap"
)

type OutcomeHandler struct {
	tracker *service.Tracker
	logger  *zap.Logger
}

func NewOutcomeHandler(tracker *service.Tracker, logger *zap.Logger) *OutcomeHandler {
	return &OutcomeHandler{tracker: tracker, logger: logger}
}

// Export handles POST /v1/outcomes/export. With a path in the body the
// snapshot is written server-side; without one it streams back to the caller.
func (h *OutcomeHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if req.Path != "" {
		if err := h.tracker.ExportToFile(req.Path); err != nil {
			h.logger.Error("outcome export failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to export outcomes")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "exported", "path": req.Path})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := h.tracker.Export(w); err != nil {
		h.logger.Error("outcome export failed", zap.Error(err))
	}
}

// Import handles POST /v1/outcomes/import
func (h *OutcomeHandler) Import(w http.ResponseWriter, r *http.Request) {
	imported, err := h.tracker.Import(r.Body)
	if err != nil {
		h.logger.Error("outcome import failed", zap.Error(err))
		writeError(w, http.StatusBadRequest, "invalid outcome snapshot")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "imported",
		"imported": imported,
	})
}
