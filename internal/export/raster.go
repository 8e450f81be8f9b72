package export

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/archetype-pal/lightbox-backend/internal/model"
)

// Raster exports the first image of the current workspace as its raw
// bytes, lossless for that one image. Exporting only the first image is
// a documented limitation of this format, not a general batch export.
func (e *Exporter) Raster(ctx context.Context) ([]byte, string, error) {
	_, images, err := e.currentWorkspace()
	if err != nil {
		return nil, "", err
	}
	if len(images) == 0 {
		return nil, "", model.NewValidationError("workspace", "workspace has no images to export")
	}

	first := images[0]
	for _, img := range images {
		if img.Position.ZIndex < first.Position.ZIndex {
			first = img
		}
	}

	data, imgType, err := e.fetchImage(ctx, first.ImageURL)
	if err != nil {
		return nil, "", fmt.Errorf("raster export: %w", err)
	}
	return data, rasterFilename(first, imgType), nil
}

func rasterFilename(img model.Image, imgType string) string {
	base := img.Metadata["shelfmark"]
	if base == "" {
		base = img.ID
	}
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	ext := "." + strings.ToLower(imgType)
	if ext == ".jpg" {
		ext = ".jpeg"
	}
	return path.Clean(base + ext)
}
