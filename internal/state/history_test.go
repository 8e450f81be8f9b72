package state

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archetype-pal/lightbox-backend/internal/model"
)

func TestUndoRedoInverse(t *testing.T) {
	c, _ := newTestCore(t)
	ctx := context.Background()

	id, err := c.LoadImage(ctx, imageItem(1))
	require.NoError(t, err)
	require.NoError(t, c.RemoveImage(ctx, id))

	_, ok := c.Image(id)
	require.False(t, ok)

	c.Undo()
	restored, ok := c.Image(id)
	require.True(t, ok)
	assert.Equal(t, int64(1), restored.OriginalID)
	assert.True(t, c.Snapshot().CanRedo)

	c.Redo()
	_, ok = c.Image(id)
	assert.False(t, ok)

	// round trip again: undo/redo stay inverses
	c.Undo()
	_, ok = c.Image(id)
	assert.True(t, ok)
}

func TestUndoDoesNotTouchStore(t *testing.T) {
	c, st := newTestCore(t)
	ctx := context.Background()

	id, err := c.LoadImage(ctx, imageItem(1))
	require.NoError(t, err)
	require.NoError(t, c.RemoveImage(ctx, id))

	c.Undo()

	// memory has the image back, the store does not
	_, ok := c.Image(id)
	require.True(t, ok)
	_, err = st.Images().Get(ctx, id)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUndoAtBoundaryIsNoop(t *testing.T) {
	c, _ := newTestCore(t)
	c.Undo()
	c.Redo()
	assert.False(t, c.Snapshot().CanUndo)
	assert.False(t, c.Snapshot().CanRedo)
}

func TestNewMutationDiscardsRedo(t *testing.T) {
	c, _ := newTestCore(t)
	ctx := context.Background()

	_, err := c.CreateWorkspace(ctx, "one")
	require.NoError(t, err)
	_, err = c.CreateWorkspace(ctx, "two")
	require.NoError(t, err)

	c.Undo()
	require.True(t, c.Snapshot().CanRedo)

	_, err = c.CreateWorkspace(ctx, "fork")
	require.NoError(t, err)
	assert.False(t, c.Snapshot().CanRedo)
	c.Redo() // no-op
	names := []string{}
	for _, ws := range c.Workspaces() {
		names = append(names, ws.Name)
	}
	assert.Contains(t, names, "fork")
	assert.NotContains(t, names, "two")
}

func TestHistoryCapEvictsOldest(t *testing.T) {
	c, _ := newTestCore(t)
	ctx := context.Background()

	for i := 0; i < maxHistory+10; i++ {
		_, err := c.CreateWorkspace(ctx, fmt.Sprintf("ws-%d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, maxHistory, c.HistoryLen())

	// drain the stack; undo beyond the cap is a boundary no-op
	for i := 0; i < maxHistory+10; i++ {
		c.Undo()
	}
	assert.Equal(t, 0, c.HistoryLen())
	// the oldest 10 snapshots were evicted, so 10 workspaces survive undo
	assert.Len(t, c.Workspaces(), 10)
}

func TestSaveHistoryManualCheckpoint(t *testing.T) {
	c, _ := newTestCore(t)
	ctx := context.Background()

	id, err := c.LoadImage(ctx, imageItem(1))
	require.NoError(t, err)

	// UpdateImage never snapshots on its own; a gesture checkpoints first
	c.SaveHistory()
	tr := model.Transform{Opacity: 0.3, Brightness: 100, Contrast: 100}
	require.NoError(t, c.UpdateImage(ctx, id, model.ImageUpdate{Transform: &tr}))

	c.Undo()
	img, ok := c.Image(id)
	require.True(t, ok)
	assert.Equal(t, model.DefaultTransform(), img.Transform)
}
