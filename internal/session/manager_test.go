package session

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archetype-pal/lightbox-backend/internal/iiif"
	"github.com/archetype-pal/lightbox-backend/internal/model"
	"github.com/archetype-pal/lightbox-backend/internal/state"
	"github.com/archetype-pal/lightbox-backend/internal/store"
	"github.com/archetype-pal/lightbox-backend/internal/store/sqlite"
)

func newTestManager(t *testing.T) (*Manager, *state.Core, store.Store) {
	t.Helper()
	db, err := sqlite.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	st, err := sqlite.NewWithDB(db)
	require.NoError(t, err)
	core := state.New(st, iiif.NewResolver(), zerolog.Nop())
	require.NoError(t, core.Initialize(context.Background()))
	return NewManager(st, core, zerolog.Nop()), core, st
}

func loadOne(t *testing.T, core *state.Core, id int64) string {
	t.Helper()
	imgID, err := core.LoadImage(context.Background(), model.SourceItem{
		ID:        id,
		Type:      model.ItemImage,
		Shelfmark: "MS X",
		ImageIIIF: "https://iiif.example.org/x/info.json",
	})
	require.NoError(t, err)
	return imgID
}

func TestSaveRequiresNameAndWorkspace(t *testing.T) {
	m, core, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Save(ctx, "")
	assert.True(t, model.IsValidationError(err))

	_, err = m.Save(ctx, "no workspace yet")
	assert.True(t, model.IsValidationError(err))

	loadOne(t, core, 1)
	sess, err := m.Save(ctx, "checkpoint")
	require.NoError(t, err)
	assert.Equal(t, "checkpoint", sess.Name)
	require.Len(t, sess.Workspaces, 1)
	assert.Len(t, sess.Images, 1)
}

func TestSaveTwiceCreatesTwoSessions(t *testing.T) {
	m, core, _ := newTestManager(t)
	ctx := context.Background()
	loadOne(t, core, 1)

	s1, err := m.Save(ctx, "same name")
	require.NoError(t, err)
	s2, err := m.Save(ctx, "same name")
	require.NoError(t, err)
	assert.NotEqual(t, s1.ID, s2.ID)

	sessions, err := m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestListNewestFirst(t *testing.T) {
	m, core, _ := newTestManager(t)
	ctx := context.Background()
	loadOne(t, core, 1)

	first, err := m.Save(ctx, "first")
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	second, err := m.Save(ctx, "second")
	require.NoError(t, err)

	sessions, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, second.ID, sessions[0].ID)
	assert.Equal(t, first.ID, sessions[1].ID)
}

func TestLoadRestoresSavedState(t *testing.T) {
	m, core, _ := newTestManager(t)
	ctx := context.Background()
	imgID := loadOne(t, core, 1)

	sess, err := m.Save(ctx, "before removal")
	require.NoError(t, err)

	require.NoError(t, core.RemoveImage(ctx, imgID))
	_, ok := core.Image(imgID)
	require.False(t, ok)

	require.NoError(t, m.Load(ctx, sess.ID))
	_, ok = core.Image(imgID)
	assert.True(t, ok)
}

func TestDeleteLeavesLiveStateAlone(t *testing.T) {
	m, core, _ := newTestManager(t)
	ctx := context.Background()
	imgID := loadOne(t, core, 1)

	sess, err := m.Save(ctx, "doomed")
	require.NoError(t, err)
	require.NoError(t, m.Delete(ctx, sess.ID))

	sessions, err := m.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
	_, ok := core.Image(imgID)
	assert.True(t, ok)
}
