package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/archetype-pal/lightbox-backend/internal/api/respond"
	"github.com/archetype-pal/lightbox-backend/internal/model"
	"github.com/archetype-pal/lightbox-backend/internal/state"
)

// WorkspaceHandler provides HTTP transport for workspace operations.
type WorkspaceHandler struct {
	core *state.Core
}

func NewWorkspaceHandler(core *state.Core) *WorkspaceHandler {
	return &WorkspaceHandler{core: core}
}

// CreateWorkspace POST /api/workspaces
func (h *WorkspaceHandler) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	id, err := h.core.CreateWorkspace(r.Context(), req.Name)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, map[string]string{"workspaceId": id})
}

// ListWorkspaces GET /api/workspaces
func (h *WorkspaceHandler) ListWorkspaces(w http.ResponseWriter, r *http.Request) {
	wss := h.core.Workspaces()
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"workspaces":         wss,
		"count":              len(wss),
		"currentWorkspaceId": h.core.CurrentWorkspaceID(),
	})
}

// GetWorkspaceImages GET /api/workspaces/{workspaceId}/images
func (h *WorkspaceHandler) GetWorkspaceImages(w http.ResponseWriter, r *http.Request) {
	workspaceID := mux.Vars(r)["workspaceId"]
	imgs := h.core.WorkspaceImages(workspaceID)
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"images": imgs, "count": len(imgs)})
}

// ActivateWorkspace PUT /api/workspaces/{workspaceId}/activate
func (h *WorkspaceHandler) ActivateWorkspace(w http.ResponseWriter, r *http.Request) {
	workspaceID := mux.Vars(r)["workspaceId"]
	if err := h.core.SetCurrentWorkspace(workspaceID); err != nil {
		respond.WriteNotFound(w, "workspace not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteWorkspace DELETE /api/workspaces/{workspaceId}
func (h *WorkspaceHandler) DeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	workspaceID := mux.Vars(r)["workspaceId"]
	if err := h.core.DeleteWorkspace(r.Context(), workspaceID); err != nil {
		writeCoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeCoreError maps domain errors to HTTP status codes.
func writeCoreError(w http.ResponseWriter, err error) {
	switch {
	case model.IsValidationError(err):
		respond.WriteBadRequest(w, err.Error())
	case model.IsEnvironmentError(err):
		respond.WriteError(w, http.StatusServiceUnavailable, err.Error())
	case model.IsConflictError(err):
		respond.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrNotFound):
		respond.WriteNotFound(w, err.Error())
	default:
		respond.WriteInternalError(w, err.Error())
	}
}
