package export

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archetype-pal/lightbox-backend/internal/iiif"
	"github.com/archetype-pal/lightbox-backend/internal/model"
	"github.com/archetype-pal/lightbox-backend/internal/state"
	"github.com/archetype-pal/lightbox-backend/internal/store"
	"github.com/archetype-pal/lightbox-backend/internal/store/sqlite"
)

type fixture struct {
	st       store.Store
	core     *state.Core
	exporter *Exporter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	st, err := sqlite.NewWithDB(db)
	require.NoError(t, err)
	core := state.New(st, iiif.NewResolver(), zerolog.Nop())
	require.NoError(t, core.Initialize(context.Background()))
	return &fixture{st: st, core: core, exporter: New(st, core, zerolog.Nop())}
}

func (f *fixture) loadImages(t *testing.T, urls ...string) []string {
	t.Helper()
	items := make([]model.SourceItem, 0, len(urls))
	for i, u := range urls {
		items = append(items, model.SourceItem{
			ID:        int64(i + 1),
			Type:      model.ItemImage,
			Shelfmark: "MS " + string(rune('A'+i)),
			Locus:     "f. 1r",
			ImageIIIF: u,
		})
	}
	ids, err := f.core.LoadImages(context.Background(), items)
	require.NoError(t, err)
	return ids
}

func TestJSONRoundTripIsLossless(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ids := f.loadImages(t,
		"https://iiif.example.org/a/info.json",
		"https://iiif.example.org/b/info.json",
		"https://iiif.example.org/c/info.json",
	)
	body := []byte(`{"motivation":"commenting","value":"faded initial"}`)
	_, err := f.st.Annotations().Put(ctx, &model.Annotation{ID: "ann-1", ImageID: ids[0], Body: body})
	require.NoError(t, err)

	// nudge one image off defaults so the trip has something to lose
	tr := model.Transform{Opacity: 0.4, Brightness: 120, Contrast: 80, Rotation: 90, FlipX: true}
	require.NoError(t, f.core.UpdateImage(ctx, ids[1], model.ImageUpdate{Transform: &tr}))

	data, err := f.exporter.JSON(ctx)
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, Version, doc.Version)
	require.Len(t, doc.Images, 3)

	wsID, err := f.exporter.ImportJSON(ctx, data)
	require.NoError(t, err)
	assert.NotEqual(t, doc.Workspace.ID, wsID)

	imported := f.core.WorkspaceImages(wsID)
	require.Len(t, imported, 3)

	byOriginal := map[int64]model.Image{}
	for _, img := range imported {
		assert.NotContains(t, ids, img.ID)
		byOriginal[img.OriginalID] = img
	}
	assert.Equal(t, tr, byOriginal[2].Transform)
	assert.Equal(t, "MS A", byOriginal[1].Metadata["shelfmark"])
	assert.Equal(t, "f. 1r", byOriginal[1].Metadata["locus"])

	anns, err := f.st.Annotations().ListByImage(ctx, byOriginal[1].ID)
	require.NoError(t, err)
	require.Len(t, anns, 1)
	assert.JSONEq(t, string(body), string(anns[0].Body))
}

func TestJSONExportWithoutWorkspaceFails(t *testing.T) {
	f := newFixture(t)
	_, err := f.exporter.JSON(context.Background())
	assert.True(t, model.IsValidationError(err))
}

func TestTEIExportShape(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ids := f.loadImages(t, "https://iiif.example.org/a/info.json")
	_, err := f.st.Annotations().Put(ctx, &model.Annotation{ID: "ann-1", ImageID: ids[0], Body: []byte("marginal note")})
	require.NoError(t, err)

	data, err := f.exporter.TEI(ctx)
	require.NoError(t, err)

	out := string(data)
	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, teiNamespace)
	assert.Contains(t, out, "<surface>")
	assert.Contains(t, out, "MS A, f. 1r")
	assert.Contains(t, out, "marginal note")
}

func TestTEIRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.loadImages(t, "https://iiif.example.org/a/info.json", "https://iiif.example.org/b/info.json")
	data, err := f.exporter.TEI(ctx)
	require.NoError(t, err)

	wsID, err := f.exporter.ImportTEI(ctx, data)
	require.NoError(t, err)

	imported := f.core.WorkspaceImages(wsID)
	require.Len(t, imported, 2)
	for _, img := range imported {
		assert.Equal(t, model.DefaultTransform(), img.Transform)
		assert.Contains(t, img.ImageURL, "default.jpg")
		assert.NotEmpty(t, img.Metadata["description"])
	}
}

func TestImportDispatchRejectsUnknownExtension(t *testing.T) {
	f := newFixture(t)
	_, err := f.exporter.Import(context.Background(), "notes.txt", []byte("hello"))
	require.True(t, model.IsValidationError(err))
	assert.Contains(t, err.Error(), "unsupported import format")
}

func TestImportJSONRejectsGarbage(t *testing.T) {
	f := newFixture(t)
	_, err := f.exporter.Import(context.Background(), "export.json", []byte("{not json"))
	assert.True(t, model.IsValidationError(err))
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPDFExportEmbedsFetchedImages(t *testing.T) {
	data := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "broken") {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	f := newFixture(t)
	ctx := context.Background()

	// LoadImage derives the fetch URL from the info.json prefix, so the
	// test server answers both the good and broken paths
	f.loadImages(t, srv.URL+"/good/info.json", srv.URL+"/broken/info.json")

	out, err := f.exporter.PDF(ctx)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFExportFailsWhenNothingFetches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := newFixture(t)
	f.loadImages(t, srv.URL+"/a/info.json")
	_, err := f.exporter.PDF(context.Background())
	assert.Error(t, err)
}

func TestRasterExportsLowestZIndexVerbatim(t *testing.T) {
	data := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	f := newFixture(t)
	ctx := context.Background()
	ids := f.loadImages(t, srv.URL+"/a/info.json", srv.URL+"/b/info.json")

	// push the second image underneath the first
	pos := model.Position{X: 0, Y: 0, ZIndex: 0}
	require.NoError(t, f.core.UpdateImage(ctx, ids[1], model.ImageUpdate{Position: &pos}))

	out, filename, err := f.exporter.Raster(ctx)
	require.NoError(t, err)
	assert.Equal(t, data, out)
	assert.Equal(t, "MS_B.png", filename)
}

func TestRasterExportEmptyWorkspaceFails(t *testing.T) {
	f := newFixture(t)
	_, err := f.core.CreateWorkspace(context.Background(), "empty")
	require.NoError(t, err)
	_, _, rerr := f.exporter.Raster(context.Background())
	assert.True(t, model.IsValidationError(rerr))
}
