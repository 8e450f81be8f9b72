package state

import "github.com/archetype-pal/lightbox-backend/internal/model"

// View is an immutable snapshot of the core handed to subscribers and
// API reads. Maps and slices are fresh copies; mutating a View never
// touches live state.
type View struct {
	CurrentWorkspaceID string                 `json:"currentWorkspaceId"`
	Workspaces         []model.Workspace      `json:"workspaces"`
	Images             map[string]model.Image `json:"images"`
	SelectedImageIDs   []string               `json:"selectedImageIds"`
	Zoom               float64                `json:"zoom"`
	ShowAnnotations    bool                   `json:"showAnnotations"`
	ShowGrid           bool                   `json:"showGrid"`
	CanUndo            bool                   `json:"canUndo"`
	CanRedo            bool                   `json:"canRedo"`
	IsLoading          bool                   `json:"isLoading"`
	Error              string                 `json:"error,omitempty"`
}

// view builds a View from live state. Callers must hold c.mu.
func (c *Core) view() View {
	v := View{
		CurrentWorkspaceID: c.currentWorkspaceID,
		Workspaces:         cloneWorkspaces(c.workspaces),
		Images:             cloneImages(c.images),
		Zoom:               c.zoom,
		ShowAnnotations:    c.showAnnotations,
		ShowGrid:           c.showGrid,
		CanUndo:            len(c.undoStack) > 0,
		CanRedo:            len(c.redoStack) > 0,
		IsLoading:          c.isLoading,
	}
	for id := range c.selected {
		v.SelectedImageIDs = append(v.SelectedImageIDs, id)
	}
	if c.lastErr != nil {
		v.Error = c.lastErr.Error()
	}
	return v
}

// Subscribe registers a listener for state broadcasts. Every mutation
// publishes a View; slow consumers miss intermediate views rather than
// blocking a mutator. The returned cancel func releases the channel.
func (c *Core) Subscribe() (<-chan View, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSubID
	c.nextSubID++
	ch := make(chan View, 8)
	c.subs[id] = ch
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// broadcast publishes the current view without blocking. Callers must
// hold c.mu.
func (c *Core) broadcast() {
	if len(c.subs) == 0 {
		return
	}
	v := c.view()
	for _, ch := range c.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

// Snapshot returns the current view.
func (c *Core) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view()
}

func cloneWorkspaces(in []model.Workspace) []model.Workspace {
	out := make([]model.Workspace, len(in))
	for i, w := range in {
		out[i] = w
		out[i].ImageIDs = append([]string(nil), w.ImageIDs...)
	}
	return out
}

func cloneImages(in map[string]model.Image) map[string]model.Image {
	out := make(map[string]model.Image, len(in))
	for id, img := range in {
		c := img
		if img.Metadata != nil {
			c.Metadata = make(map[string]string, len(img.Metadata))
			for k, v := range img.Metadata {
				c.Metadata[k] = v
			}
		}
		out[id] = c
	}
	return out
}
