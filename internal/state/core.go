// Package state holds the in-memory authority for the active editing
// session. Every mutation flows through the Core so that subscribed
// views stay in sync and the durable store is updated as part of the
// same call. Mutators persist first and reflect in memory second, under
// the lock, so a read never observes reflected-but-unpersisted state.
package state

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/archetype-pal/lightbox-backend/internal/iiif"
	"github.com/archetype-pal/lightbox-backend/internal/model"
	"github.com/archetype-pal/lightbox-backend/internal/store"
)

// default on-canvas display size for a freshly loaded image
var defaultSize = model.Size{Width: 300, Height: 400}

// Core is the reactive state container. Construct with New and
// initialize once before serving reads.
type Core struct {
	mu  sync.Mutex
	st  store.Store
	res *iiif.Resolver
	log zerolog.Logger
	rng *rand.Rand

	currentWorkspaceID string
	workspaces         []model.Workspace
	images             map[string]model.Image
	selected           map[string]struct{}
	zoom               float64
	showAnnotations    bool
	showGrid           bool
	undoStack          []snapshot
	redoStack          []snapshot
	isLoading          bool
	lastErr            error

	subs      map[int]chan View
	nextSubID int
}

// New wires a core over an injected store and resolver. The store is a
// required dependency; environment detection happens when it is
// constructed, not here.
func New(st store.Store, res *iiif.Resolver, log zerolog.Logger) *Core {
	return &Core{
		st:              st,
		res:             res,
		log:             log,
		rng:             rand.New(rand.NewSource(rand.Int63())),
		images:          make(map[string]model.Image),
		selected:        make(map[string]struct{}),
		zoom:            1,
		showAnnotations: true,
		subs:            make(map[int]chan View),
	}
}

// Initialize loads all workspaces and their images from the store and
// selects the first workspace found, if any. Failures are captured into
// the error state (so a UI can render a retry screen) and also returned.
func (c *Core) Initialize(ctx context.Context) error {
	c.mu.Lock()
	c.isLoading = true
	c.lastErr = nil
	c.broadcast()
	c.mu.Unlock()

	wss, err := c.st.Workspaces().List(ctx)
	if err != nil {
		return c.fail(fmt.Errorf("load workspaces: %w", err))
	}
	images := make(map[string]model.Image)
	for _, ws := range wss {
		imgs, err := c.st.Images().ListByWorkspace(ctx, ws.ID)
		if err != nil {
			return c.fail(fmt.Errorf("load images for workspace %s: %w", ws.ID, err))
		}
		for _, img := range imgs {
			images[img.ID] = *img
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.workspaces = c.workspaces[:0]
	for _, ws := range wss {
		c.workspaces = append(c.workspaces, *ws)
	}
	c.images = images
	c.currentWorkspaceID = ""
	if len(c.workspaces) > 0 {
		c.currentWorkspaceID = c.workspaces[0].ID
	}
	c.isLoading = false
	c.broadcast()
	return nil
}

func (c *Core) fail(err error) error {
	c.log.Error().Err(err).Msg("state core operation failed")
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isLoading = false
	c.lastErr = err
	c.broadcast()
	return err
}

// Err returns the captured failure from the last failed operation.
func (c *Core) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// CurrentWorkspaceID returns the active workspace id, or "" when none.
func (c *Core) CurrentWorkspaceID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentWorkspaceID
}

// --- Workspaces ---

// CreateWorkspace appends a new workspace, makes it current and
// persists it. A history snapshot is pushed before the mutation so Undo
// reverts to the pre-creation state. The default name is "Workspace N"
// with N one past the current count.
func (c *Core) CreateWorkspace(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.createWorkspaceLocked(ctx, name)
}

func (c *Core) createWorkspaceLocked(ctx context.Context, name string) (string, error) {
	if name == "" {
		name = fmt.Sprintf("Workspace %d", len(c.workspaces)+1)
	}
	c.saveHistoryLocked()

	ws := model.Workspace{ID: uuid.New().String(), Name: name, ImageIDs: []string{}}
	stored, err := c.st.Workspaces().Put(ctx, &ws)
	if err != nil {
		return "", err
	}
	c.workspaces = append(c.workspaces, *stored)
	c.currentWorkspaceID = stored.ID
	c.broadcast()
	return stored.ID, nil
}

// DeleteWorkspace cascades the store deletion (images, annotations,
// regions, then the workspace) and drops the matching in-memory
// entries. Deleting the current workspace leaves no workspace selected;
// callers decide what to activate next.
func (c *Core) DeleteWorkspace(ctx context.Context, workspaceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.st.Workspaces().Delete(ctx, workspaceID); err != nil {
		return err
	}
	for i, ws := range c.workspaces {
		if ws.ID == workspaceID {
			c.workspaces = append(c.workspaces[:i], c.workspaces[i+1:]...)
			break
		}
	}
	for id, img := range c.images {
		if img.WorkspaceID == workspaceID {
			delete(c.images, id)
			delete(c.selected, id)
		}
	}
	if c.currentWorkspaceID == workspaceID {
		c.currentWorkspaceID = ""
	}
	c.broadcast()
	return nil
}

// Workspaces returns copies of the loaded workspaces.
func (c *Core) Workspaces() []model.Workspace {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneWorkspaces(c.workspaces)
}

// WorkspaceImages returns copies of the images owned by a workspace.
func (c *Core) WorkspaceImages(workspaceID string) []model.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []model.Image
	for _, img := range c.images {
		if img.WorkspaceID == workspaceID {
			out = append(out, img)
		}
	}
	return out
}

// Image returns a copy of one image by id.
func (c *Core) Image(imageID string) (model.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	img, ok := c.images[imageID]
	return img, ok
}

// --- Images ---

// LoadImage resolves a source item into a placed image in the current
// workspace (auto-creating one when none is active), persists both the
// image and the updated workspace, and reflects the result in memory.
// Graph items with region coordinates go through bounded resolution;
// everything else takes the synchronous whole-image path.
func (c *Core) LoadImage(ctx context.Context, item model.SourceItem) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadImageLocked(ctx, item)
}

// LoadImages loads items strictly one at a time. The shared current
// workspace pointer and the z-index counter are read-modify-write
// state, so sequential application is the ordering guarantee here, not
// locking granularity: ids come back in item order with gapless
// z-indexes regardless of per-item resolution latency.
func (c *Core) LoadImages(ctx context.Context, items []model.SourceItem) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(items))
	for _, item := range items {
		id, err := c.loadImageLocked(ctx, item)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *Core) loadImageLocked(ctx context.Context, item model.SourceItem) (string, error) {
	var imageURL, thumbURL string
	if item.Type == model.ItemGraph {
		coords, _ := iiif.BoundsFromGeoJSON(item.Coordinates)
		var err error
		imageURL, err = c.res.BoundedImageURL(ctx, item.ImageIIIF, coords, iiif.Options{})
		if err != nil {
			return "", err
		}
		thumbURL, err = c.res.BoundedImageURL(ctx, item.ImageIIIF, coords, iiif.Options{Thumbnail: true})
		if err != nil {
			return "", err
		}
	} else {
		imageURL = iiif.WholeImageURL(item.ImageIIIF, iiif.Options{})
		thumbURL = iiif.WholeImageURL(item.ImageIIIF, iiif.Options{Thumbnail: true})
	}

	if c.currentWorkspaceID == "" {
		if _, err := c.createWorkspaceLocked(ctx, ""); err != nil {
			return "", err
		}
	}
	wsIdx := c.workspaceIndex(c.currentWorkspaceID)
	if wsIdx < 0 {
		return "", model.ErrNotFound
	}

	img := model.Image{
		ID:           uuid.New().String(),
		OriginalID:   item.ID,
		Type:         item.Type,
		ImageURL:     imageURL,
		ThumbnailURL: thumbURL,
		Metadata:     item.MetadataBag(),
		WorkspaceID:  c.currentWorkspaceID,
		Position: model.Position{
			X:      50 + c.rng.Float64()*400,
			Y:      50 + c.rng.Float64()*300,
			ZIndex: len(c.images) + 1,
		},
		Size:      defaultSize,
		Transform: model.DefaultTransform(),
	}

	stored, err := c.st.Images().Put(ctx, &img)
	if err != nil {
		return "", err
	}
	ws := c.workspaces[wsIdx]
	ws.ImageIDs = append(append([]string(nil), ws.ImageIDs...), stored.ID)
	storedWS, err := c.st.Workspaces().Put(ctx, &ws)
	if err != nil {
		return "", err
	}

	c.workspaces[wsIdx] = *storedWS
	c.images[stored.ID] = *stored
	c.broadcast()
	return stored.ID, nil
}

func (c *Core) workspaceIndex(id string) int {
	for i, ws := range c.workspaces {
		if ws.ID == id {
			return i
		}
	}
	return -1
}

// RemoveImage pushes a history snapshot, cascades the store deletion
// (image plus its annotations and regions) and removes the image from
// memory and from its workspace's id list.
func (c *Core) RemoveImage(ctx context.Context, imageID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	img, ok := c.images[imageID]
	if !ok {
		return nil
	}
	c.saveHistoryLocked()

	if err := c.st.Images().Delete(ctx, imageID); err != nil {
		return err
	}
	if idx := c.workspaceIndex(img.WorkspaceID); idx >= 0 {
		ws := c.workspaces[idx]
		kept := make([]string, 0, len(ws.ImageIDs))
		for _, id := range ws.ImageIDs {
			if id != imageID {
				kept = append(kept, id)
			}
		}
		ws.ImageIDs = kept
		stored, err := c.st.Workspaces().Put(ctx, &ws)
		if err != nil {
			return err
		}
		c.workspaces[idx] = *stored
	}
	delete(c.images, imageID)
	delete(c.selected, imageID)
	c.broadcast()
	return nil
}

// UpdateImage merges a partial update into an image, persists and
// reflects it. A missing id is a silent no-op: the UI cannot produce
// stale ids for active images under normal operation. No history
// snapshot is taken; see SaveHistory.
func (c *Core) UpdateImage(ctx context.Context, imageID string, upd model.ImageUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	img, ok := c.images[imageID]
	if !ok {
		return nil
	}
	if upd.ImageURL != nil {
		img.ImageURL = *upd.ImageURL
	}
	if upd.ThumbnailURL != nil {
		img.ThumbnailURL = *upd.ThumbnailURL
	}
	if upd.Metadata != nil {
		if img.Metadata == nil {
			img.Metadata = make(map[string]string, len(upd.Metadata))
		}
		for k, v := range upd.Metadata {
			img.Metadata[k] = v
		}
	}
	if upd.Position != nil {
		img.Position = *upd.Position
	}
	if upd.Size != nil {
		img.Size = *upd.Size
	}
	if upd.Transform != nil {
		if err := upd.Transform.Validate(); err != nil {
			return err
		}
		img.Transform = upd.Transform.Normalize()
	}

	stored, err := c.st.Images().Put(ctx, &img)
	if err != nil {
		return err
	}
	c.images[imageID] = *stored
	c.broadcast()
	return nil
}

// --- Selection and viewer flags (transient; no persistence, no history) ---

// SelectImage adds an image to the selection set.
func (c *Core) SelectImage(imageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.images[imageID]; !ok {
		return
	}
	c.selected[imageID] = struct{}{}
	c.broadcast()
}

// DeselectImage removes an image from the selection set.
func (c *Core) DeselectImage(imageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.selected, imageID)
	c.broadcast()
}

// SelectAll selects every image in the current workspace.
func (c *Core) SelectAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, img := range c.images {
		if img.WorkspaceID == c.currentWorkspaceID {
			c.selected[id] = struct{}{}
		}
	}
	c.broadcast()
}

// DeselectAll clears the selection set.
func (c *Core) DeselectAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = make(map[string]struct{})
	c.broadcast()
}

// SetZoom sets the viewer zoom factor.
func (c *Core) SetZoom(zoom float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zoom = zoom
	c.broadcast()
}

// SetShowAnnotations toggles annotation visibility.
func (c *Core) SetShowAnnotations(show bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showAnnotations = show
	c.broadcast()
}

// SetShowGrid toggles the alignment grid.
func (c *Core) SetShowGrid(show bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showGrid = show
	c.broadcast()
}

// SetCurrentWorkspace switches the active workspace.
func (c *Core) SetCurrentWorkspace(workspaceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.workspaceIndex(workspaceID) < 0 {
		return model.ErrNotFound
	}
	c.currentWorkspaceID = workspaceID
	c.broadcast()
	return nil
}

// AdoptWorkspace persists an externally built workspace and its images
// (an import result) and reflects them in memory, making the workspace
// current. No history snapshot is taken: the import pipeline bypasses
// undo history.
func (c *Core) AdoptWorkspace(ctx context.Context, ws model.Workspace, images []model.Image) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	storedWS, err := c.st.Workspaces().Put(ctx, &ws)
	if err != nil {
		return err
	}
	stored := make([]model.Image, 0, len(images))
	for i := range images {
		img, err := c.st.Images().Put(ctx, &images[i])
		if err != nil {
			return err
		}
		stored = append(stored, *img)
	}
	c.workspaces = append(c.workspaces, *storedWS)
	for _, img := range stored {
		c.images[img.ID] = img
	}
	c.currentWorkspaceID = storedWS.ID
	c.broadcast()
	return nil
}

// --- Sessions ---

// LoadSession replaces live state wholesale from a stored session and
// overwrites the store's workspace and image records with the session's
// copies. This is a destructive merge into persistent storage: colliding
// ids are clobbered, which callers must be aware of. The in-memory swap
// is all-or-nothing; a failed store write leaves memory untouched.
// A missing session surfaces through the error state field.
func (c *Core) LoadSession(ctx context.Context, sessionID string) error {
	sess, err := c.st.Sessions().Get(ctx, sessionID)
	if err != nil {
		return c.fail(fmt.Errorf("load session %s: %w", sessionID, err))
	}

	for i := range sess.Workspaces {
		if _, err := c.st.Workspaces().Put(ctx, &sess.Workspaces[i]); err != nil {
			return c.fail(fmt.Errorf("restore workspace %s: %w", sess.Workspaces[i].ID, err))
		}
	}
	for i := range sess.Images {
		if _, err := c.st.Images().Put(ctx, &sess.Images[i]); err != nil {
			return c.fail(fmt.Errorf("restore image %s: %w", sess.Images[i].ID, err))
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.workspaces = cloneWorkspaces(sess.Workspaces)
	images := make(map[string]model.Image, len(sess.Images))
	for _, img := range sess.Images {
		images[img.ID] = img
	}
	c.images = images
	c.selected = make(map[string]struct{})
	c.currentWorkspaceID = ""
	if len(c.workspaces) > 0 {
		c.currentWorkspaceID = c.workspaces[0].ID
	}
	c.lastErr = nil
	c.broadcast()
	return nil
}
