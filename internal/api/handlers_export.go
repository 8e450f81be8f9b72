package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/archetype-pal/lightbox-backend/internal/api/respond"
	"github.com/archetype-pal/lightbox-backend/internal/export"
)

// maxImportBytes caps import uploads at 32 MiB.
const maxImportBytes = 32 << 20

// ExportHandler provides HTTP transport for exports and imports of the
// current workspace.
type ExportHandler struct {
	exporter *export.Exporter
}

func NewExportHandler(exporter *export.Exporter) *ExportHandler {
	return &ExportHandler{exporter: exporter}
}

// ExportJSON GET /api/export/json
func (h *ExportHandler) ExportJSON(w http.ResponseWriter, r *http.Request) {
	data, err := h.exporter.JSON(r.Context())
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeAttachment(w, data, "application/json", "lightbox-export.json")
}

// ExportTEI GET /api/export/tei
func (h *ExportHandler) ExportTEI(w http.ResponseWriter, r *http.Request) {
	data, err := h.exporter.TEI(r.Context())
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeAttachment(w, data, "application/xml", "lightbox-export.xml")
}

// ExportPDF GET /api/export/pdf
func (h *ExportHandler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	data, err := h.exporter.PDF(r.Context())
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeAttachment(w, data, "application/pdf", "lightbox-export.pdf")
}

// ExportRaster GET /api/export/raster
func (h *ExportHandler) ExportRaster(w http.ResponseWriter, r *http.Request) {
	data, filename, err := h.exporter.Raster(r.Context())
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeAttachment(w, data, "application/octet-stream", filename)
}

// Import POST /api/import?filename=...
// The body is the raw export file; the filename extension selects the
// import format.
func (h *ExportHandler) Import(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("filename")
	if filename == "" {
		respond.WriteBadRequest(w, "filename query parameter is required")
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		respond.WriteBadRequest(w, "failed to read request body")
		return
	}
	workspaceID, err := h.exporter.Import(r.Context(), filename, data)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, map[string]string{"workspaceId": workspaceID})
}

func writeAttachment(w http.ResponseWriter, data []byte, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
