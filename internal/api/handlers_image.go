package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/archetype-pal/lightbox-backend/internal/api/respond"
	"github.com/archetype-pal/lightbox-backend/internal/model"
	"github.com/archetype-pal/lightbox-backend/internal/state"
)

// ImageHandler provides HTTP transport for image loading, placement and
// the transient viewer state (selection, zoom, overlay flags).
type ImageHandler struct {
	core *state.Core
}

func NewImageHandler(core *state.Core) *ImageHandler {
	return &ImageHandler{core: core}
}

// GetState GET /api/state
func (h *ImageHandler) GetState(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, h.core.Snapshot())
}

// LoadImages POST /api/images
// Accepts a batch of source items; they are applied strictly in order.
func (h *ImageHandler) LoadImages(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []model.SourceItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if len(req.Items) == 0 {
		respond.WriteBadRequest(w, "items is required")
		return
	}
	ids, err := h.core.LoadImages(r.Context(), req.Items)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, map[string]interface{}{"imageIds": ids, "count": len(ids)})
}

// UpdateImage PATCH /api/images/{imageId}
func (h *ImageHandler) UpdateImage(w http.ResponseWriter, r *http.Request) {
	imageID := mux.Vars(r)["imageId"]
	var upd model.ImageUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := h.core.UpdateImage(r.Context(), imageID, upd); err != nil {
		writeCoreError(w, err)
		return
	}
	img, ok := h.core.Image(imageID)
	if !ok {
		// unknown id is a no-op update; report that rather than 404
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respond.WriteJSON(w, http.StatusOK, img)
}

// RemoveImage DELETE /api/images/{imageId}
func (h *ImageHandler) RemoveImage(w http.ResponseWriter, r *http.Request) {
	imageID := mux.Vars(r)["imageId"]
	if err := h.core.RemoveImage(r.Context(), imageID); err != nil {
		writeCoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SelectImage POST /api/images/{imageId}/select
func (h *ImageHandler) SelectImage(w http.ResponseWriter, r *http.Request) {
	h.core.SelectImage(mux.Vars(r)["imageId"])
	w.WriteHeader(http.StatusNoContent)
}

// DeselectImage DELETE /api/images/{imageId}/select
func (h *ImageHandler) DeselectImage(w http.ResponseWriter, r *http.Request) {
	h.core.DeselectImage(mux.Vars(r)["imageId"])
	w.WriteHeader(http.StatusNoContent)
}

// SelectAll POST /api/selection/all
func (h *ImageHandler) SelectAll(w http.ResponseWriter, r *http.Request) {
	h.core.SelectAll()
	w.WriteHeader(http.StatusNoContent)
}

// DeselectAll DELETE /api/selection
func (h *ImageHandler) DeselectAll(w http.ResponseWriter, r *http.Request) {
	h.core.DeselectAll()
	w.WriteHeader(http.StatusNoContent)
}

// UpdateViewer PUT /api/viewer
// Partial update of the transient viewer settings.
func (h *ImageHandler) UpdateViewer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Zoom            *float64 `json:"zoom,omitempty"`
		ShowAnnotations *bool    `json:"showAnnotations,omitempty"`
		ShowGrid        *bool    `json:"showGrid,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if req.Zoom != nil {
		h.core.SetZoom(*req.Zoom)
	}
	if req.ShowAnnotations != nil {
		h.core.SetShowAnnotations(*req.ShowAnnotations)
	}
	if req.ShowGrid != nil {
		h.core.SetShowGrid(*req.ShowGrid)
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveHistory POST /api/history
func (h *ImageHandler) SaveHistory(w http.ResponseWriter, r *http.Request) {
	h.core.SaveHistory()
	w.WriteHeader(http.StatusNoContent)
}

// Undo POST /api/history/undo
func (h *ImageHandler) Undo(w http.ResponseWriter, r *http.Request) {
	h.core.Undo()
	respond.WriteJSON(w, http.StatusOK, h.core.Snapshot())
}

// Redo POST /api/history/redo
func (h *ImageHandler) Redo(w http.ResponseWriter, r *http.Request) {
	h.core.Redo()
	respond.WriteJSON(w, http.StatusOK, h.core.Snapshot())
}
