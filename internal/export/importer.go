package export

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/archetype-pal/lightbox-backend/internal/model"
)

// Import dispatches a file to the matching parser by its extension.
// Unsupported extensions are rejected with a clear, user-facing
// validation error; there is no best-effort parse of unknown formats.
func (e *Exporter) Import(ctx context.Context, filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return e.ImportJSON(ctx, data)
	case ".xml", ".tei":
		return e.ImportTEI(ctx, data)
	default:
		return "", model.NewValidationError("file",
			"unsupported import format: expected a .json or .xml (TEI) export file")
	}
}
