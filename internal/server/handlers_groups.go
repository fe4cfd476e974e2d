package server

import (
	"net/http"

	"github.com/heroarc/heroarc/internal/ctxutil"
	"github.com/heroarc/heroarc/internal/model"
)

// HandleCreateGroup handles POST /v1/groups.
func (h *Handlers) HandleCreateGroup(w http.ResponseWriter, r *http.Request) {
	claims := ctxutil.ClaimsFromContext(r.Context())

	var req model.CreateGroupRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	g, err := h.groupSvc.Create(r.Context(), claims.WorkspaceID, claims.UserID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, g)
}

// HandleListGroups handles GET /v1/groups.
func (h *Handlers) HandleListGroups(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	items, err := h.groupSvc.List(r.Context(), workspaceID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

// HandleGetGroup handles GET /v1/groups/{id}.
func (h *Handlers) HandleGetGroup(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	g, err := h.groupSvc.Get(r.Context(), workspaceID, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, g)
}

// HandleUpdateGroup handles PATCH /v1/groups/{id}.
func (h *Handlers) HandleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	var req model.UpdateGroupRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	g, err := h.groupSvc.Update(r.Context(), workspaceID, id, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, g)
}

// HandleDeleteGroup handles DELETE /v1/groups/{id}.
func (h *Handlers) HandleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	if err := h.groupSvc.Delete(r.Context(), workspaceID, id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Group membership ---
//
// Membership routes carry the entity type in the path
// (/v1/groups/{group_id}/initiatives/{id} and .../tasks/{id}) so the same
// handlers serve both kinds; the service rejects members whose type doesn't
// match the group's kind.

// handleAddGroupMember handles PUT /v1/groups/{group_id}/{initiatives,tasks}/{id}.
func (h *Handlers) handleAddGroupMember(entityType model.EntityType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

		groupID, err := pathUUID(r, "group_id")
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
			return
		}
		entityID, err := pathUUID(r, "id")
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
			return
		}

		// Body is optional: bare PUT appends at the tail.
		req := model.AddGroupMemberRequest{}
		if r.ContentLength != 0 {
			if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
				handleDecodeError(w, r, err)
				return
			}
		}

		if err := h.groupSvc.AddMember(r.Context(), workspaceID, groupID, entityType, entityID, req.After, req.Before); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleMoveGroupMember handles POST /v1/groups/{group_id}/{initiatives,tasks}/{id}/move.
func (h *Handlers) handleMoveGroupMember(entityType model.EntityType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

		groupID, err := pathUUID(r, "group_id")
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
			return
		}
		entityID, err := pathUUID(r, "id")
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
			return
		}

		var req model.GroupMoveRequest
		if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
			handleDecodeError(w, r, err)
			return
		}

		if err := h.groupSvc.MoveMember(r.Context(), workspaceID, groupID, entityType, entityID, req.After, req.Before); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleRemoveGroupMember handles DELETE /v1/groups/{group_id}/{initiatives,tasks}/{id}.
func (h *Handlers) handleRemoveGroupMember(entityType model.EntityType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

		groupID, err := pathUUID(r, "group_id")
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
			return
		}
		entityID, err := pathUUID(r, "id")
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
			return
		}

		removed, err := h.groupSvc.RemoveMember(r.Context(), workspaceID, groupID, entityType, entityID)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		if !removed {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "entity is not a member of this group")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// --- Boards ---

// HandleStatusBoard handles GET /v1/board/{entity_type}.
func (h *Handlers) HandleStatusBoard(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	entityType := model.EntityType(r.PathValue("entity_type"))
	board, err := h.boardSvc.Status(r.Context(), workspaceID, entityType)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, board)
}

// HandleGroupBoard handles GET /v1/groups/{id}/board.
func (h *Handlers) HandleGroupBoard(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	groupID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	board, err := h.boardSvc.Group(r.Context(), workspaceID, groupID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, board)
}
