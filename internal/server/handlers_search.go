package server

import (
	"net/http"

	"github.com/heroarc/heroarc/internal/ctxutil"
	"github.com/heroarc/heroarc/internal/model"
)

// HandleSimilarSearch handles POST /v1/search/similar.
func (h *Handlers) HandleSimilarSearch(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	var req model.SimilarSearchRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}
	if req.Limit > maxQueryLimit {
		req.Limit = maxQueryLimit
	}

	results, err := h.searchSvc.Similar(r.Context(), workspaceID, req.Query, req.Limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"results": results,
		"total":   len(results),
	})
}
