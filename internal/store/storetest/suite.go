package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/archetype-pal/lightbox-backend/internal/model"
	"github.com/archetype-pal/lightbox-backend/internal/store"
)

// Run exercises a compliance suite against a store.Store implementation.
// Implementations should provide a clean, isolated store from makeStore.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	// Workspaces
	ws, err := s.Workspaces().Put(ctx, &model.Workspace{ID: uuid.New().String(), Name: "Workspace 1"})
	if err != nil {
		t.Fatalf("PutWorkspace: %v", err)
	}
	if got, err := s.Workspaces().Get(ctx, ws.ID); err != nil || got.Name != "Workspace 1" {
		t.Fatalf("GetWorkspace: got=%v err=%v", got, err)
	}
	if lst, err := s.Workspaces().List(ctx); err != nil || len(lst) != 1 {
		t.Fatalf("ListWorkspaces: n=%d err=%v", len(lst), err)
	}

	// Clean miss is ErrNotFound, not a driver error.
	if _, err := s.Workspaces().Get(ctx, "nope"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetWorkspace miss: want ErrNotFound, got %v", err)
	}

	// Images
	img := &model.Image{
		ID:          uuid.New().String(),
		OriginalID:  7,
		Type:        model.ItemImage,
		ImageURL:    "https://iiif.example/7/full/full/0/default.jpg",
		Metadata:    map[string]string{"shelfmark": "MS 7"},
		WorkspaceID: ws.ID,
		Position:    model.Position{X: 10, Y: 20, ZIndex: 1},
		Size:        model.Size{Width: 300, Height: 400},
		Transform:   model.DefaultTransform(),
	}
	if _, err := s.Images().Put(ctx, img); err != nil {
		t.Fatalf("PutImage: %v", err)
	}
	got, err := s.Images().Get(ctx, img.ID)
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if got.Metadata["shelfmark"] != "MS 7" || got.Transform.Brightness != 100 {
		t.Fatalf("GetImage: round-trip mismatch: %+v", got)
	}
	if lst, err := s.Images().ListByWorkspace(ctx, ws.ID); err != nil || len(lst) != 1 {
		t.Fatalf("ListByWorkspace: n=%d err=%v", len(lst), err)
	}

	// Put is an upsert by id.
	img.ThumbnailURL = "https://iiif.example/7/full/!250,250/0/default.jpg"
	if _, err := s.Images().Put(ctx, img); err != nil {
		t.Fatalf("Upsert image: %v", err)
	}
	if got, _ := s.Images().Get(ctx, img.ID); got.ThumbnailURL == "" {
		t.Fatalf("Upsert image: thumbnail not updated")
	}
	if lst, _ := s.Images().ListByWorkspace(ctx, ws.ID); len(lst) != 1 {
		t.Fatalf("Upsert image: duplicate row, n=%d", len(lst))
	}

	// Annotations and regions under the image
	ann := &model.Annotation{ID: uuid.New().String(), ImageID: img.ID, Body: []byte(`{"type":"Annotation"}`)}
	if _, err := s.Annotations().Put(ctx, ann); err != nil {
		t.Fatalf("PutAnnotation: %v", err)
	}
	if lst, err := s.Annotations().ListByImage(ctx, img.ID); err != nil || len(lst) != 1 {
		t.Fatalf("ListAnnotations: n=%d err=%v", len(lst), err)
	}
	reg := &model.Region{
		ID:          uuid.New().String(),
		ImageID:     img.ID,
		WorkspaceID: ws.ID,
		Title:       "initial a",
		Coordinates: model.Rect{X: 5, Y: 5, Width: 40, Height: 30},
		ImageData:   "data:image/png;base64,AAAA",
	}
	if _, err := s.Regions().Put(ctx, reg); err != nil {
		t.Fatalf("PutRegion: %v", err)
	}
	if lst, err := s.Regions().ListByWorkspace(ctx, ws.ID); err != nil || len(lst) != 1 {
		t.Fatalf("ListRegionsByWorkspace: n=%d err=%v", len(lst), err)
	}

	// Image delete cascades to annotations and regions.
	if err := s.Images().Delete(ctx, img.ID); err != nil {
		t.Fatalf("DeleteImage: %v", err)
	}
	if _, err := s.Images().Get(ctx, img.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("image survived delete: %v", err)
	}
	if _, err := s.Annotations().Get(ctx, ann.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("annotation survived image delete: %v", err)
	}
	if _, err := s.Regions().Get(ctx, reg.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("region survived image delete: %v", err)
	}

	// Workspace delete cascades through images to their dependents.
	img2 := &model.Image{ID: uuid.New().String(), OriginalID: 8, Type: model.ItemImage, WorkspaceID: ws.ID, Transform: model.DefaultTransform()}
	if _, err := s.Images().Put(ctx, img2); err != nil {
		t.Fatalf("PutImage 2: %v", err)
	}
	ann2 := &model.Annotation{ID: uuid.New().String(), ImageID: img2.ID, Body: []byte(`{}`)}
	if _, err := s.Annotations().Put(ctx, ann2); err != nil {
		t.Fatalf("PutAnnotation 2: %v", err)
	}
	if err := s.Workspaces().Delete(ctx, ws.ID); err != nil {
		t.Fatalf("DeleteWorkspace: %v", err)
	}
	if _, err := s.Images().Get(ctx, img2.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("image survived workspace delete: %v", err)
	}
	if _, err := s.Annotations().Get(ctx, ann2.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("annotation survived workspace delete: %v", err)
	}

	// Sessions list newest-updated first.
	old := &model.Session{ID: uuid.New().String(), Name: "older"}
	if _, err := s.Sessions().Put(ctx, old); err != nil {
		t.Fatalf("PutSession: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	newer := &model.Session{ID: uuid.New().String(), Name: "newer"}
	if _, err := s.Sessions().Put(ctx, newer); err != nil {
		t.Fatalf("PutSession: %v", err)
	}
	lst, err := s.Sessions().List(ctx)
	if err != nil || len(lst) != 2 {
		t.Fatalf("ListSessions: n=%d err=%v", len(lst), err)
	}
	if lst[0].Name != "newer" {
		t.Fatalf("ListSessions: want newest first, got %q", lst[0].Name)
	}
	if err := s.Sessions().Delete(ctx, old.ID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := s.Sessions().Get(ctx, old.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("session survived delete: %v", err)
	}
}
