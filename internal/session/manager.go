// Package session manages named, timestamped snapshots of a workspace
// and its images. Sessions are opaque blobs from the manager's point of
// view: no merge or diff logic, just save, list, load, delete.
package session

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/archetype-pal/lightbox-backend/internal/model"
	"github.com/archetype-pal/lightbox-backend/internal/state"
	"github.com/archetype-pal/lightbox-backend/internal/store"
)

// Manager orchestrates session records over the store and state core.
type Manager struct {
	st   store.Store
	core *state.Core
	log  zerolog.Logger
}

// NewManager wires a manager.
func NewManager(st store.Store, core *state.Core, log zerolog.Logger) *Manager {
	return &Manager{st: st, core: core, log: log}
}

// Save snapshots the current workspace and its images into a new
// session record. This always creates a fresh id; saving twice under
// the same name produces two sessions, never an update.
func (m *Manager) Save(ctx context.Context, name string) (*model.Session, error) {
	if name == "" {
		return nil, model.NewValidationError("name", "session name is required")
	}
	wsID := m.core.CurrentWorkspaceID()
	if wsID == "" {
		return nil, model.NewValidationError("workspace", "no active workspace to save")
	}

	var wss []model.Workspace
	for _, ws := range m.core.Workspaces() {
		if ws.ID == wsID {
			wss = append(wss, ws)
		}
	}
	images := m.core.WorkspaceImages(wsID)

	sess := &model.Session{
		ID:         uuid.New().String(),
		Name:       name,
		Workspaces: wss,
		Images:     images,
	}
	stored, err := m.st.Sessions().Put(ctx, sess)
	if err != nil {
		return nil, err
	}
	m.log.Info().Str("session", stored.ID).Str("name", name).Int("images", len(images)).Msg("session saved")
	return stored, nil
}

// List returns all saved sessions, newest-updated first.
func (m *Manager) List(ctx context.Context) ([]*model.Session, error) {
	return m.st.Sessions().List(ctx)
}

// Load delegates to the state core's destructive session restore.
func (m *Manager) Load(ctx context.Context, sessionID string) error {
	return m.core.LoadSession(ctx, sessionID)
}

// Delete removes a saved session. Live state is unaffected.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.st.Sessions().Delete(ctx, sessionID)
}
