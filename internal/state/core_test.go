package state

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archetype-pal/lightbox-backend/internal/iiif"
	"github.com/archetype-pal/lightbox-backend/internal/model"
	"github.com/archetype-pal/lightbox-backend/internal/store"
	"github.com/archetype-pal/lightbox-backend/internal/store/sqlite"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	db, err := sqlite.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	st, err := sqlite.NewWithDB(db)
	require.NoError(t, err)
	return st
}

func newTestCore(t *testing.T) (*Core, store.Store) {
	t.Helper()
	st := newTestStore(t)
	c := New(st, iiif.NewResolver(), zerolog.Nop())
	require.NoError(t, c.Initialize(context.Background()))
	return c, st
}

func imageItem(id int64) model.SourceItem {
	return model.SourceItem{
		ID:        id,
		Type:      model.ItemImage,
		Shelfmark: fmt.Sprintf("Cotton MS %d", id),
		ImageIIIF: "https://iiif.example.org/images/ms1/info.json",
	}
}

func TestCreateWorkspaceDefaultName(t *testing.T) {
	c, st := newTestCore(t)
	ctx := context.Background()

	id, err := c.CreateWorkspace(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, id, c.CurrentWorkspaceID())

	ws, err := st.Workspaces().Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Workspace 1", ws.Name)

	id2, err := c.CreateWorkspace(ctx, "")
	require.NoError(t, err)
	ws2, err := st.Workspaces().Get(ctx, id2)
	require.NoError(t, err)
	assert.Equal(t, "Workspace 2", ws2.Name)
	assert.Equal(t, id2, c.CurrentWorkspaceID())
}

func TestLoadImageDefaults(t *testing.T) {
	c, st := newTestCore(t)
	ctx := context.Background()

	id, err := c.LoadImage(ctx, imageItem(7))
	require.NoError(t, err)

	img, ok := c.Image(id)
	require.True(t, ok)
	assert.Equal(t, int64(7), img.OriginalID)
	assert.Equal(t, model.ItemImage, img.Type)
	assert.Equal(t, model.DefaultTransform(), img.Transform)
	assert.Equal(t, 1, img.Position.ZIndex)
	assert.Equal(t, "Cotton MS 7", img.Metadata["shelfmark"])
	assert.Contains(t, img.ImageURL, "/full/full/0/default.jpg")
	assert.Contains(t, img.ThumbnailURL, "/full/!250,250/0/default.jpg")

	// loading with no active workspace auto-created one
	wsID := c.CurrentWorkspaceID()
	require.NotEmpty(t, wsID)
	ws, err := st.Workspaces().Get(ctx, wsID)
	require.NoError(t, err)
	assert.Equal(t, []string{id}, ws.ImageIDs)

	// persisted before reflected
	stored, err := st.Images().Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, img.ImageURL, stored.ImageURL)
}

func TestLoadImagesSequentialZIndexes(t *testing.T) {
	// The second item's info.json responds slowly; ordering must not care.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "slow") {
			time.Sleep(150 * time.Millisecond)
		}
		fmt.Fprint(w, `{"width":1000,"height":800}`)
	}))
	defer srv.Close()

	c, st := newTestCore(t)
	ctx := context.Background()

	items := []model.SourceItem{
		{ID: 1, Type: model.ItemGraph, Shelfmark: "A", ImageIIIF: srv.URL + "/a/info.json", Coordinates: polygon(0, 0, 100, 100)},
		{ID: 2, Type: model.ItemGraph, Shelfmark: "B", ImageIIIF: srv.URL + "/slow/info.json", Coordinates: polygon(0, 0, 100, 100)},
		{ID: 3, Type: model.ItemGraph, Shelfmark: "C", ImageIIIF: srv.URL + "/c/info.json", Coordinates: polygon(0, 0, 100, 100)},
	}
	ids, err := c.LoadImages(ctx, items)
	require.NoError(t, err)
	require.Len(t, ids, 3)

	for i, id := range ids {
		img, ok := c.Image(id)
		require.True(t, ok)
		assert.Equal(t, items[i].ID, img.OriginalID)
		assert.Equal(t, i+1, img.Position.ZIndex)
	}

	imgs, err := st.Images().ListByWorkspace(ctx, c.CurrentWorkspaceID())
	require.NoError(t, err)
	assert.Len(t, imgs, 3)
}

func polygon(x, y, x2, y2 float64) string {
	return fmt.Sprintf(`{"type":"Polygon","coordinates":[[[%g,%g],[%g,%g],[%g,%g],[%g,%g]]]}`,
		x, y, x2, y, x2, y2, x, y2)
}

func TestRemoveImageCascades(t *testing.T) {
	c, st := newTestCore(t)
	ctx := context.Background()

	id, err := c.LoadImage(ctx, imageItem(1))
	require.NoError(t, err)

	ann, err := st.Annotations().Put(ctx, &model.Annotation{ID: "ann-1", ImageID: id, Body: []byte(`{"motivation":"commenting"}`)})
	require.NoError(t, err)
	reg, err := st.Regions().Put(ctx, &model.Region{ID: "reg-1", ImageID: id, WorkspaceID: c.CurrentWorkspaceID(), Title: "initial", Coordinates: model.Rect{Width: 10, Height: 10}})
	require.NoError(t, err)

	require.NoError(t, c.RemoveImage(ctx, id))

	_, ok := c.Image(id)
	assert.False(t, ok)
	_, err = st.Images().Get(ctx, id)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = st.Annotations().Get(ctx, ann.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = st.Regions().Get(ctx, reg.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	ws, err := st.Workspaces().Get(ctx, c.CurrentWorkspaceID())
	require.NoError(t, err)
	assert.Empty(t, ws.ImageIDs)
}

func TestRemoveImageUnknownIDIsNoop(t *testing.T) {
	c, _ := newTestCore(t)
	require.NoError(t, c.RemoveImage(context.Background(), "nope"))
}

func TestDeleteWorkspaceClearsMemory(t *testing.T) {
	c, st := newTestCore(t)
	ctx := context.Background()

	id, err := c.LoadImage(ctx, imageItem(1))
	require.NoError(t, err)
	wsID := c.CurrentWorkspaceID()
	c.SelectImage(id)

	require.NoError(t, c.DeleteWorkspace(ctx, wsID))

	assert.Empty(t, c.CurrentWorkspaceID())
	_, ok := c.Image(id)
	assert.False(t, ok)
	assert.Empty(t, c.Snapshot().SelectedImageIDs)
	_, err = st.Images().Get(ctx, id)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUpdateImagePartialMerge(t *testing.T) {
	c, st := newTestCore(t)
	ctx := context.Background()

	id, err := c.LoadImage(ctx, imageItem(1))
	require.NoError(t, err)
	before, _ := c.Image(id)

	pos := model.Position{X: 10, Y: 20, ZIndex: 5}
	require.NoError(t, c.UpdateImage(ctx, id, model.ImageUpdate{Position: &pos}))

	img, _ := c.Image(id)
	assert.Equal(t, pos, img.Position)
	assert.Equal(t, before.Size, img.Size)
	assert.Equal(t, before.ImageURL, img.ImageURL)

	stored, err := st.Images().Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, pos, stored.Position)
}

func TestUpdateImageNormalizesTransform(t *testing.T) {
	c, _ := newTestCore(t)
	ctx := context.Background()

	id, err := c.LoadImage(ctx, imageItem(1))
	require.NoError(t, err)

	tr := model.Transform{Opacity: 0.5, Brightness: 150, Contrast: 80, Rotation: 370}
	require.NoError(t, c.UpdateImage(ctx, id, model.ImageUpdate{Transform: &tr}))

	img, _ := c.Image(id)
	assert.InDelta(t, 10, img.Transform.Rotation, 0.0001)

	bad := model.Transform{Opacity: 2, Brightness: 100, Contrast: 100}
	err = c.UpdateImage(ctx, id, model.ImageUpdate{Transform: &bad})
	assert.True(t, model.IsValidationError(err))
}

func TestUpdateImageUnknownIDIsNoop(t *testing.T) {
	c, _ := newTestCore(t)
	pos := model.Position{X: 1}
	require.NoError(t, c.UpdateImage(context.Background(), "stale", model.ImageUpdate{Position: &pos}))
}

func TestSelectionAndViewerFlags(t *testing.T) {
	c, _ := newTestCore(t)
	ctx := context.Background()

	a, err := c.LoadImage(ctx, imageItem(1))
	require.NoError(t, err)
	b, err := c.LoadImage(ctx, imageItem(2))
	require.NoError(t, err)

	c.SelectImage(a)
	assert.ElementsMatch(t, []string{a}, c.Snapshot().SelectedImageIDs)

	c.SelectAll()
	assert.ElementsMatch(t, []string{a, b}, c.Snapshot().SelectedImageIDs)

	c.DeselectImage(a)
	assert.ElementsMatch(t, []string{b}, c.Snapshot().SelectedImageIDs)

	c.DeselectAll()
	assert.Empty(t, c.Snapshot().SelectedImageIDs)

	c.SetZoom(1.5)
	c.SetShowGrid(true)
	c.SetShowAnnotations(false)
	v := c.Snapshot()
	assert.Equal(t, 1.5, v.Zoom)
	assert.True(t, v.ShowGrid)
	assert.False(t, v.ShowAnnotations)
}

func TestSelectImageUnknownIDIgnored(t *testing.T) {
	c, _ := newTestCore(t)
	c.SelectImage("missing")
	assert.Empty(t, c.Snapshot().SelectedImageIDs)
}

func TestInitializeReloadsPersistedState(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	c1 := New(st, iiif.NewResolver(), zerolog.Nop())
	require.NoError(t, c1.Initialize(ctx))
	id, err := c1.LoadImage(ctx, imageItem(9))
	require.NoError(t, err)
	wsID := c1.CurrentWorkspaceID()

	c2 := New(st, iiif.NewResolver(), zerolog.Nop())
	require.NoError(t, c2.Initialize(ctx))
	assert.Equal(t, wsID, c2.CurrentWorkspaceID())
	img, ok := c2.Image(id)
	require.True(t, ok)
	assert.Equal(t, int64(9), img.OriginalID)
}

func TestLoadSessionRestoresAndOverwrites(t *testing.T) {
	c, st := newTestCore(t)
	ctx := context.Background()

	id, err := c.LoadImage(ctx, imageItem(1))
	require.NoError(t, err)
	wsID := c.CurrentWorkspaceID()
	img, _ := c.Image(id)
	ws := c.Workspaces()[0]

	sess, err := st.Sessions().Put(ctx, &model.Session{
		ID:         "sess-1",
		Name:       "checkpoint",
		Workspaces: []model.Workspace{ws},
		Images:     []model.Image{img},
	})
	require.NoError(t, err)

	// diverge live state, then restore
	require.NoError(t, c.RemoveImage(ctx, id))
	require.NoError(t, c.LoadSession(ctx, sess.ID))

	assert.Equal(t, wsID, c.CurrentWorkspaceID())
	restored, ok := c.Image(id)
	require.True(t, ok)
	assert.Equal(t, img.ImageURL, restored.ImageURL)

	stored, err := st.Images().Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, img.ImageURL, stored.ImageURL)
}

func TestLoadSessionMissingSurfacesError(t *testing.T) {
	c, _ := newTestCore(t)
	err := c.LoadSession(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNotFound))
	assert.NotEmpty(t, c.Snapshot().Error)
}

func TestSubscribeReceivesBroadcasts(t *testing.T) {
	c, _ := newTestCore(t)
	ch, cancel := c.Subscribe()
	defer cancel()

	_, err := c.CreateWorkspace(context.Background(), "subscribed")
	require.NoError(t, err)

	select {
	case v := <-ch:
		assert.NotEmpty(t, v.CurrentWorkspaceID)
	case <-time.After(time.Second):
		t.Fatal("no view broadcast received")
	}
}
