package server

import (
	"net/http"

	"github.com/heroarc/heroarc/internal/ctxutil"
	"github.com/heroarc/heroarc/internal/model"
)

// HandleCreateHero handles POST /v1/heroes.
func (h *Handlers) HandleCreateHero(w http.ResponseWriter, r *http.Request) {
	claims := ctxutil.ClaimsFromContext(r.Context())

	var req model.CreateHeroRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	hero, err := h.narrativeSvc.CreateHero(r.Context(), claims.WorkspaceID, claims.UserID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, hero)
}

// HandleListHeroes handles GET /v1/heroes.
func (h *Handlers) HandleListHeroes(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	heroes, err := h.narrativeSvc.ListHeroes(r.Context(), workspaceID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, heroes)
}

// HandleGetHero handles GET /v1/heroes/{id}.
func (h *Handlers) HandleGetHero(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	hero, err := h.narrativeSvc.GetHero(r.Context(), workspaceID, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, hero)
}

// HandleUpdateHero handles PATCH /v1/heroes/{id}.
func (h *Handlers) HandleUpdateHero(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	var req model.UpdateHeroRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	hero, err := h.narrativeSvc.UpdateHero(r.Context(), workspaceID, id, req.Name, req.Archetype, req.Backstory)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, hero)
}

// HandleDeleteHero handles DELETE /v1/heroes/{id}.
func (h *Handlers) HandleDeleteHero(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	if err := h.narrativeSvc.DeleteHero(r.Context(), workspaceID, id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCreateVillain handles POST /v1/villains.
func (h *Handlers) HandleCreateVillain(w http.ResponseWriter, r *http.Request) {
	claims := ctxutil.ClaimsFromContext(r.Context())

	var req model.CreateVillainRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	v, err := h.narrativeSvc.CreateVillain(r.Context(), claims.WorkspaceID, claims.UserID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, v)
}

// HandleListVillains handles GET /v1/villains.
func (h *Handlers) HandleListVillains(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	villains, err := h.narrativeSvc.ListVillains(r.Context(), workspaceID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, villains)
}

// HandleGetVillain handles GET /v1/villains/{id}.
func (h *Handlers) HandleGetVillain(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	v, err := h.narrativeSvc.GetVillain(r.Context(), workspaceID, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, v)
}

// HandleUpdateVillain handles PATCH /v1/villains/{id}.
func (h *Handlers) HandleUpdateVillain(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	var req model.UpdateVillainRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	v, err := h.narrativeSvc.UpdateVillain(r.Context(), workspaceID, id, req.Name, req.Menace, req.Defeated)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, v)
}

// HandleDeleteVillain handles DELETE /v1/villains/{id}.
func (h *Handlers) HandleDeleteVillain(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	if err := h.narrativeSvc.DeleteVillain(r.Context(), workspaceID, id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCreateConflict handles POST /v1/conflicts.
func (h *Handlers) HandleCreateConflict(w http.ResponseWriter, r *http.Request) {
	claims := ctxutil.ClaimsFromContext(r.Context())

	var req model.CreateConflictRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	c, err := h.narrativeSvc.CreateConflict(r.Context(), claims.WorkspaceID, claims.UserID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, c)
}

// HandleListConflicts handles GET /v1/conflicts. Optional query param: status.
func (h *Handlers) HandleListConflicts(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	var status *model.ConflictStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st := model.ConflictStatus(raw)
		status = &st
	}

	conflicts, err := h.narrativeSvc.ListConflicts(r.Context(), workspaceID, status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, conflicts)
}

// HandleGetConflict handles GET /v1/conflicts/{id}.
func (h *Handlers) HandleGetConflict(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	c, err := h.narrativeSvc.GetConflict(r.Context(), workspaceID, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, c)
}

// HandleUpdateConflict handles PATCH /v1/conflicts/{id}.
func (h *Handlers) HandleUpdateConflict(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	var req model.UpdateConflictRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	c, err := h.narrativeSvc.UpdateConflict(r.Context(), workspaceID, id, req.Stakes, req.Status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, c)
}

// HandleDeleteConflict handles DELETE /v1/conflicts/{id}.
func (h *Handlers) HandleDeleteConflict(w http.ResponseWriter, r *http.Request) {
	workspaceID := ctxutil.WorkspaceIDFromContext(r.Context())

	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	if err := h.narrativeSvc.DeleteConflict(r.Context(), workspaceID, id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
