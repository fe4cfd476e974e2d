package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/heroarc/heroarc/internal/ctxutil"
	"github.com/heroarc/heroarc/internal/model"
)

// HandleCreateTask handles POST /v1/tasks.
func (h *Handlers) HandleCreateTask(w http.ResponseWriter, r *http.Request) {
	claims := ctxutil.ClaimsFromContext(r.Context())

	var req model.CreateTaskRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	t, err := h.taskSvc.Create(r.Context(), claims.WorkspaceID, claims.UserID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, t)
}

// HandleListTasks handles GET /v1/tasks.
// Optional query params: status, initiative_id, limit, offset.
func (h *Handlers) HandleListTasks(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	var status *model.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		st := model.Status(raw)
		status = &st
	}
	var initiativeID *uuid.UUID
	if raw := r.URL.Query().Get("initiative_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid initiative_id")
			return
		}
		initiativeID = &id
	}
	limit := queryLimit(r, 50)
	offset := queryOffset(r)

	items, err := h.taskSvc.List(r.Context(), workspaceID, status, initiativeID, limit+1, offset)
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

// HandleGetTask handles GET /v1/tasks/{id}.
func (h *Handlers) HandleGetTask(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	t, err := h.taskSvc.Get(r.Context(), workspaceID, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, t)
}

// HandleUpdateTask handles PATCH /v1/tasks/{id}.
//
// An explicit `"initiative_id": null` detaches the task from its initiative;
// omitting the field leaves the link untouched. Pointer fields can't tell
// those apart after decoding, so the raw body is checked for key presence.
func (h *Handlers) HandleUpdateTask(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxRequestBodyBytes))
	if err != nil {
		handleDecodeError(w, r, err)
		return
	}

	var req model.UpdateTaskRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput,
			"invalid request body: "+err.Error())
		return
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput,
			"invalid request body: "+err.Error())
		return
	}
	_, initiativePresent := fields["initiative_id"]
	detachInitiative := initiativePresent && req.InitiativeID == nil

	t, err := h.taskSvc.Update(r.Context(), workspaceID, id, req, detachInitiative)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, t)
}

// HandleMoveTask handles POST /v1/tasks/{id}/move.
func (h *Handlers) HandleMoveTask(w http.ResponseWriter, r *http.Request) {
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

	t, err := h.taskSvc.Move(r.Context(), workspaceID, id, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, t)
}

// HandleDeleteTask handles DELETE /v1/tasks/{id}.
func (h *Handlers) HandleDeleteTask(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	if err := h.taskSvc.Delete(r.Context(), workspaceID, id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Checklist ---

// HandleListChecklist handles GET /v1/tasks/{id}/checklist.
func (h *Handlers) HandleListChecklist(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	taskID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	items, err := h.taskSvc.Checklist(r.Context(), workspaceID, taskID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

// HandleAddChecklistItem handles POST /v1/tasks/{id}/checklist.
func (h *Handlers) HandleAddChecklistItem(w http.ResponseWriter, r *http.Request) {
	claims := ctxutil.ClaimsFromContext(r.Context())

	taskID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	var req model.CreateChecklistItemRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	item, err := h.taskSvc.AddChecklistItem(r.Context(), claims.WorkspaceID, claims.UserID, taskID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, item)
}

// HandleUpdateChecklistItem handles PATCH /v1/checklist/{item_id}.
func (h *Handlers) HandleUpdateChecklistItem(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	itemID, err := pathUUID(r, "item_id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	var req model.UpdateChecklistItemRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	item, err := h.taskSvc.UpdateChecklistItem(r.Context(), workspaceID, itemID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, item)
}

// HandleMoveChecklistItem handles POST /v1/checklist/{item_id}/move.
func (h *Handlers) HandleMoveChecklistItem(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	itemID, err := pathUUID(r, "item_id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	var req model.GroupMoveRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	item, err := h.taskSvc.MoveChecklistItem(r.Context(), workspaceID, itemID, req.After, req.Before)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, item)
}

// HandleDeleteChecklistItem handles DELETE /v1/checklist/{item_id}.
func (h *Handlers) HandleDeleteChecklistItem(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	itemID, err := pathUUID(r, "item_id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	if err := h.taskSvc.DeleteChecklistItem(r.Context(), workspaceID, itemID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
