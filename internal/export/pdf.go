package export

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/go-pdf/fpdf"
)

// PDF exports one page per image, each embedded as a bitmap fetched
// from its URL with a shelfmark/locus caption. A failed fetch skips
// that image and continues; one bad image must not abort the document.
func (e *Exporter) PDF(ctx context.Context) ([]byte, error) {
	_, images, err := e.currentWorkspace()
	if err != nil {
		return nil, err
	}

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 11)
	embedded := 0
	for i, img := range images {
		data, imgType, err := e.fetchImage(ctx, img.ImageURL)
		if err != nil {
			e.log.Warn().Err(err).Str("image", img.ID).Str("url", img.ImageURL).Msg("skipping image in PDF export")
			continue
		}

		doc.AddPage()
		name := fmt.Sprintf("img-%d", i)
		opts := fpdf.ImageOptions{ImageType: imgType, ReadDpi: true}
		doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
		// fit within the page body, leaving room for the caption line
		doc.ImageOptions(name, 15, 20, 180, 0, false, opts, 0, "")

		if caption := describe(img); caption != "" {
			doc.SetXY(15, 280)
			doc.CellFormat(180, 8, caption, "", 0, "C", false, 0, "")
		}
		embedded++
	}
	if err := doc.Error(); err != nil {
		return nil, err
	}
	if embedded == 0 && len(images) > 0 {
		return nil, fmt.Errorf("pdf export: no image could be fetched")
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fetchImage downloads image bytes and classifies them for embedding.
func (e *Exporter) fetchImage(ctx context.Context, url string) ([]byte, string, error) {
	resp, err := e.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, "", err
	}
	if resp.IsError() {
		return nil, "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode())
	}
	body := resp.Body()
	switch http.DetectContentType(body) {
	case "image/jpeg":
		return body, "JPG", nil
	case "image/png":
		return body, "PNG", nil
	case "image/gif":
		return body, "GIF", nil
	default:
		return nil, "", fmt.Errorf("fetch %s: unsupported image format", url)
	}
}
