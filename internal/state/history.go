package state

import "github.com/archetype-pal/lightbox-backend/internal/model"

// maxHistory bounds retained undo snapshots; the oldest entries are
// dropped first once the cap is reached.
const maxHistory = 50

// snapshot is a deep copy of the undoable portion of state: workspaces
// and images. Selection, viewer flags and the history itself are
// transient and never captured.
type snapshot struct {
	workspaces []model.Workspace
	images     map[string]model.Image
}

func (c *Core) capture() snapshot {
	return snapshot{
		workspaces: cloneWorkspaces(c.workspaces),
		images:     cloneImages(c.images),
	}
}

func (c *Core) restore(s snapshot) {
	c.workspaces = cloneWorkspaces(s.workspaces)
	c.images = cloneImages(s.images)
}

// SaveHistory pushes a deep snapshot of {workspaces, images} onto the
// undo stack. Any redoable "future" is discarded (a new mutation after
// an undo forks history), and the stack is capped at maxHistory entries
// with FIFO eviction.
//
// UpdateImage deliberately never calls this: it runs on every
// intermediate value of a slider drag, and snapshotting each call would
// flood history. The transform-adjustment UI calls SaveHistory once per
// gesture instead.
func (c *Core) SaveHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saveHistoryLocked()
}

func (c *Core) saveHistoryLocked() {
	c.redoStack = nil
	c.undoStack = append(c.undoStack, c.capture())
	if len(c.undoStack) > maxHistory {
		c.undoStack = c.undoStack[len(c.undoStack)-maxHistory:]
	}
}

// Undo restores the most recent history snapshot, saving the live state
// for Redo. A no-op at the history boundary. Moving through history is
// not itself a historical event: neither Undo nor Redo pushes an undo
// entry, and neither touches the durable store.
func (c *Core) Undo() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.undoStack) == 0 {
		return
	}
	c.redoStack = append(c.redoStack, c.capture())
	last := c.undoStack[len(c.undoStack)-1]
	c.undoStack = c.undoStack[:len(c.undoStack)-1]
	c.restore(last)
	c.broadcast()
}

// Redo reverses the most recent Undo. A no-op when there is no future.
func (c *Core) Redo() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.redoStack) == 0 {
		return
	}
	c.undoStack = append(c.undoStack, c.capture())
	next := c.redoStack[len(c.redoStack)-1]
	c.redoStack = c.redoStack[:len(c.redoStack)-1]
	c.restore(next)
	c.broadcast()
}

// HistoryLen reports retained undo entries, for tests and diagnostics.
func (c *Core) HistoryLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.undoStack)
}
