package server

import (
	"net/http"

	"github.com/heroarc/heroarc/internal/ctxutil"
	"github.com/heroarc/heroarc/internal/model"
)

// HandleUploadAttachment handles POST /v1/tasks/{id}/attachments.
// Expects a multipart form with a single "file" part.
func (h *Handlers) HandleUploadAttachment(w http.ResponseWriter, r *http.Request) {
	if !h.attachmentSvc.Enabled() {
		writeError(w, r, http.StatusServiceUnavailable, model.ErrCodeInternalError,
			"attachments unavailable: object storage not configured")
		return
	}

	claims := ctxutil.ClaimsFromContext(r.Context())

	taskID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	// Attachments get their own size limit; the JSON body cap is far too
	// small for file uploads.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxAttachmentBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput,
			"multipart form with a \"file\" part is required")
		return
	}
	defer file.Close()

	att, err := h.attachmentSvc.Upload(r.Context(),
		claims.WorkspaceID, claims.UserID, taskID,
		header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, att)
}

// HandleListAttachments handles GET /v1/tasks/{id}/attachments.
func (h *Handlers) HandleListAttachments(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	taskID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	items, err := h.attachmentSvc.ListForTask(r.Context(), workspaceID, taskID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

// HandleGetAttachment handles GET /v1/attachments/{id}.
func (h *Handlers) HandleGetAttachment(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	att, err := h.attachmentSvc.Get(r.Context(), workspaceID, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, att)
}

// HandleDownloadAttachment handles GET /v1/attachments/{id}/download.
// Returns a short-lived presigned URL rather than proxying bytes.
func (h *Handlers) HandleDownloadAttachment(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	url, err := h.attachmentSvc.DownloadURL(r.Context(), workspaceID, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"url": url})
}

// HandleDeleteAttachment handles DELETE /v1/attachments/{id}.
func (h *Handlers) HandleDeleteAttachment(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	if err := h.attachmentSvc.Delete(r.Context(), workspaceID, id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
