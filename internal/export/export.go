// Package export serializes the current workspace into external
// formats and parses select formats back into new workspaces. Every
// export builds its complete output in memory before any file-save
// action, so a failure never leaves a partial download behind.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/archetype-pal/lightbox-backend/internal/model"
	"github.com/archetype-pal/lightbox-backend/internal/state"
	"github.com/archetype-pal/lightbox-backend/internal/store"
)

// Version tags the JSON export format.
const Version = "1.0"

// Exporter reads the state core and the store directly, bypassing undo
// history. Failures surface to the caller as one-shot errors, not
// through the core's error state.
type Exporter struct {
	st     store.Store
	core   *state.Core
	client *resty.Client
	log    zerolog.Logger
}

// New wires an exporter.
func New(st store.Store, core *state.Core, log zerolog.Logger) *Exporter {
	return &Exporter{
		st:     st,
		core:   core,
		client: resty.New().SetTimeout(60 * time.Second),
		log:    log,
	}
}

// WorkspaceRef identifies the exported workspace in a JSON document.
type WorkspaceRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ImageRecord is one exported image with its resolved annotations.
type ImageRecord struct {
	ID           string            `json:"id"`
	OriginalID   int64             `json:"originalId"`
	Type         model.ItemType    `json:"type"`
	ImageURL     string            `json:"imageUrl"`
	ThumbnailURL string            `json:"thumbnailUrl"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Position     model.Position    `json:"position"`
	Size         model.Size        `json:"size"`
	Transform    model.Transform   `json:"transform"`
	Annotations  []json.RawMessage `json:"annotations"`
}

// Document is the lossless JSON export wrapper.
type Document struct {
	Workspace  *WorkspaceRef `json:"workspace"`
	Images     []ImageRecord `json:"images"`
	ExportedAt string        `json:"exportedAt"`
	Version    string        `json:"version"`
}

// currentWorkspace resolves the active workspace and its images, the
// shared starting point of every export format.
func (e *Exporter) currentWorkspace() (*model.Workspace, []model.Image, error) {
	wsID := e.core.CurrentWorkspaceID()
	if wsID == "" {
		return nil, nil, model.NewValidationError("workspace", "no active workspace to export")
	}
	for _, ws := range e.core.Workspaces() {
		if ws.ID == wsID {
			return &ws, e.core.WorkspaceImages(wsID), nil
		}
	}
	return nil, nil, model.ErrNotFound
}

// JSON exports the current workspace's images and their annotations.
// The round trip through ImportJSON is lossless for everything the data
// model tracks.
func (e *Exporter) JSON(ctx context.Context) ([]byte, error) {
	ws, images, err := e.currentWorkspace()
	if err != nil {
		return nil, err
	}

	doc := Document{
		Workspace:  &WorkspaceRef{ID: ws.ID, Name: ws.Name},
		Images:     make([]ImageRecord, 0, len(images)),
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    Version,
	}
	for _, img := range images {
		anns, err := e.st.Annotations().ListByImage(ctx, img.ID)
		if err != nil {
			return nil, fmt.Errorf("list annotations for %s: %w", img.ID, err)
		}
		rec := ImageRecord{
			ID:           img.ID,
			OriginalID:   img.OriginalID,
			Type:         img.Type,
			ImageURL:     img.ImageURL,
			ThumbnailURL: img.ThumbnailURL,
			Metadata:     img.Metadata,
			Position:     img.Position,
			Size:         img.Size,
			Transform:    img.Transform,
			Annotations:  make([]json.RawMessage, 0, len(anns)),
		}
		for _, a := range anns {
			rec.Annotations = append(rec.Annotations, json.RawMessage(a.Body))
		}
		doc.Images = append(doc.Images, rec)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// ImportJSON parses a JSON export into a fresh workspace with fresh
// ids, preserving metadata, placement, transforms and annotation
// payloads.
func (e *Exporter) ImportJSON(ctx context.Context, data []byte) (string, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", model.NewValidationError("file", fmt.Sprintf("not a lightbox JSON export: %v", err))
	}

	name := "Imported workspace"
	if doc.Workspace != nil && doc.Workspace.Name != "" {
		name = doc.Workspace.Name
	}
	ws := model.Workspace{ID: uuid.New().String(), Name: name}

	images := make([]model.Image, 0, len(doc.Images))
	anns := make([]model.Annotation, 0)
	for _, rec := range doc.Images {
		img := model.Image{
			ID:           uuid.New().String(),
			OriginalID:   rec.OriginalID,
			Type:         rec.Type,
			ImageURL:     rec.ImageURL,
			ThumbnailURL: rec.ThumbnailURL,
			Metadata:     rec.Metadata,
			WorkspaceID:  ws.ID,
			Position:     rec.Position,
			Size:         rec.Size,
			Transform:    rec.Transform,
		}
		ws.ImageIDs = append(ws.ImageIDs, img.ID)
		images = append(images, img)
		for _, body := range rec.Annotations {
			anns = append(anns, model.Annotation{ID: uuid.New().String(), ImageID: img.ID, Body: body})
		}
	}

	if err := e.core.AdoptWorkspace(ctx, ws, images); err != nil {
		return "", err
	}
	for i := range anns {
		if _, err := e.st.Annotations().Put(ctx, &anns[i]); err != nil {
			return "", err
		}
	}
	e.log.Info().Str("workspace", ws.ID).Int("images", len(images)).Int("annotations", len(anns)).Msg("JSON import complete")
	return ws.ID, nil
}
