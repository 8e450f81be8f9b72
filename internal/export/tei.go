package export

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/google/uuid"

	"github.com/archetype-pal/lightbox-backend/internal/model"
)

// TEI export is documented-lossy: each image becomes one surface with a
// graphic pointing at its URL and a desc built from shelfmark/locus;
// annotations become zone/note children. Metadata beyond shelfmark and
// locus and the transform state are dropped.

type teiDocument struct {
	XMLName   xml.Name     `xml:"TEI"`
	Namespace string       `xml:"xmlns,attr"`
	Facsimile teiFacsimile `xml:"facsimile"`
}

type teiFacsimile struct {
	Surfaces []teiSurface `xml:"surface"`
}

type teiSurface struct {
	Graphic teiGraphic `xml:"graphic"`
	Desc    string     `xml:"desc"`
	Zones   []teiZone  `xml:"zone,omitempty"`
}

type teiGraphic struct {
	URL string `xml:"url,attr"`
}

type teiZone struct {
	Graphic *teiGraphic `xml:"graphic,omitempty"`
	Note    string      `xml:"note,omitempty"`
}

const teiNamespace = "http://www.tei-c.org/ns/1.0"

// TEI exports the current workspace as a TEI facsimile document.
func (e *Exporter) TEI(ctx context.Context) ([]byte, error) {
	_, images, err := e.currentWorkspace()
	if err != nil {
		return nil, err
	}

	doc := teiDocument{Namespace: teiNamespace}
	for _, img := range images {
		surface := teiSurface{
			Graphic: teiGraphic{URL: img.ImageURL},
			Desc:    describe(img),
		}
		anns, err := e.st.Annotations().ListByImage(ctx, img.ID)
		if err != nil {
			return nil, fmt.Errorf("list annotations for %s: %w", img.ID, err)
		}
		for _, a := range anns {
			surface.Zones = append(surface.Zones, teiZone{Note: string(a.Body)})
		}
		doc.Facsimile.Surfaces = append(doc.Facsimile.Surfaces, surface)
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

// ImportTEI recovers URL and description from a TEI facsimile into a
// fresh workspace. Imported images get default transform and placement;
// everything else the document may carry is ignored.
func (e *Exporter) ImportTEI(ctx context.Context, data []byte) (string, error) {
	var doc teiDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", model.NewValidationError("file", fmt.Sprintf("not a TEI document: %v", err))
	}
	if len(doc.Facsimile.Surfaces) == 0 {
		return "", model.NewValidationError("file", "TEI document has no facsimile surfaces")
	}

	ws := model.Workspace{ID: uuid.New().String(), Name: "Imported TEI"}
	images := make([]model.Image, 0, len(doc.Facsimile.Surfaces))
	for i, surface := range doc.Facsimile.Surfaces {
		img := model.Image{
			ID:          uuid.New().String(),
			Type:        model.ItemImage,
			ImageURL:    surface.Graphic.URL,
			WorkspaceID: ws.ID,
			Position:    model.Position{ZIndex: i + 1},
			Transform:   model.DefaultTransform(),
		}
		if surface.Desc != "" {
			img.Metadata = map[string]string{"description": surface.Desc}
		}
		ws.ImageIDs = append(ws.ImageIDs, img.ID)
		images = append(images, img)
	}

	if err := e.core.AdoptWorkspace(ctx, ws, images); err != nil {
		return "", err
	}
	e.log.Info().Str("workspace", ws.ID).Int("images", len(images)).Msg("TEI import complete")
	return ws.ID, nil
}

func describe(img model.Image) string {
	desc := img.Metadata["shelfmark"]
	if locus := img.Metadata["locus"]; locus != "" {
		if desc != "" {
			desc += ", "
		}
		desc += locus
	}
	return desc
}
