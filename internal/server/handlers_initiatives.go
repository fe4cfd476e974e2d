package server

import (
	"net/http"

	"github.com/heroarc/heroarc/internal/ctxutil"
	"github.com/heroarc/heroarc/internal/model"
)

// HandleCreateInitiative handles POST /v1/initiatives.
func (h *Handlers) HandleCreateInitiative(w http.ResponseWriter, r *http.Request) {
	claims := ctxutil.ClaimsFromContext(r.Context())

	var req model.CreateInitiativeRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	in, err := h.initiativeSvc.Create(r.Context(), claims.WorkspaceID, claims.UserID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, in)
}

// HandleListInitiatives handles GET /v1/initiatives.
// Optional query params: status, limit, offset.
func (h *Handlers) HandleListInitiatives(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	var status *model.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		st := model.Status(raw)
		status = &st
	}
	limit := queryLimit(r, 50)
	offset := queryOffset(r)

	items, err := h.initiativeSvc.List(r.Context(), workspaceID, status, limit+1, offset)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}
	writeJSON(w, r, http.StatusOK, model.ListResponse{
		Data:    items,
		HasMore: hasMore,
		Limit:   limit,
		Offset:  offset,
	})
}

// HandleGetInitiative handles GET /v1/initiatives/{id}.
func (h *Handlers) HandleGetInitiative(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	in, err := h.initiativeSvc.Get(r.Context(), workspaceID, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, in)
}

// HandleUpdateInitiative handles PATCH /v1/initiatives/{id}.
func (h *Handlers) HandleUpdateInitiative(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	var req model.UpdateInitiativeRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	in, err := h.initiativeSvc.Update(r.Context(), workspaceID, id, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, in)
}

// HandleMoveInitiative handles POST /v1/initiatives/{id}/move.
func (h *Handlers) HandleMoveInitiative(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	var req model.MoveRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	in, err := h.initiativeSvc.Move(r.Context(), workspaceID, id, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, in)
}

// HandleDeleteInitiative handles DELETE /v1/initiatives/{id}.
func (h *Handlers) HandleDeleteInitiative(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	if err := h.initiativeSvc.Delete(r.Context(), workspaceID, id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
