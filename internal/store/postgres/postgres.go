package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/archetype-pal/lightbox-backend/internal/model"
	"github.com/archetype-pal/lightbox-backend/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies
// connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, model.NewEnvironmentError("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// New opens a connection, ensures the schema and returns a store over it.
func New(dsn string) (store.Store, error) {
	db, err := Open(dsn)
	if err != nil {
		return nil, err
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewWithDB(db), nil
}

// NewWithDB constructs a native Postgres store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Workspaces() store.Workspaces   { return &workspaces{db: s.db} }
func (s *pgStore) Images() store.Images           { return &images{db: s.db} }
func (s *pgStore) Annotations() store.Annotations { return &annotations{db: s.db} }
func (s *pgStore) Regions() store.Regions         { return &regions{db: s.db} }
func (s *pgStore) Sessions() store.Sessions       { return &sessions{db: s.db} }

// HealthPing implements health.HealthPinger for Postgres-backed store.
func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// EnsureSchema creates the record tables if they do not exist. Shared
// deployments normally run migrations instead; this keeps single-binary
// setups self-contained.
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS workspaces (
            workspace_id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            image_ids JSONB NOT NULL,
            creation_time TIMESTAMPTZ NOT NULL,
            last_update_time TIMESTAMPTZ NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS images (
            image_id TEXT PRIMARY KEY,
            original_id BIGINT NOT NULL,
            item_type TEXT NOT NULL,
            image_url TEXT NOT NULL,
            thumbnail_url TEXT NOT NULL,
            metadata JSONB,
            workspace_id TEXT NOT NULL,
            position JSONB NOT NULL,
            size JSONB NOT NULL,
            transform JSONB NOT NULL,
            creation_time TIMESTAMPTZ NOT NULL,
            last_update_time TIMESTAMPTZ NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS images_workspace_id_idx ON images(workspace_id)`,
		`CREATE TABLE IF NOT EXISTS annotations (
            annotation_id TEXT PRIMARY KEY,
            image_id TEXT NOT NULL,
            body JSONB NOT NULL,
            creation_time TIMESTAMPTZ NOT NULL,
            last_update_time TIMESTAMPTZ NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS annotations_image_id_idx ON annotations(image_id)`,
		`CREATE TABLE IF NOT EXISTS regions (
            region_id TEXT PRIMARY KEY,
            image_id TEXT NOT NULL,
            workspace_id TEXT NOT NULL,
            title TEXT NOT NULL,
            coordinates JSONB NOT NULL,
            image_data TEXT NOT NULL,
            metadata JSONB,
            creation_time TIMESTAMPTZ NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS regions_image_id_idx ON regions(image_id)`,
		`CREATE INDEX IF NOT EXISTS regions_workspace_id_idx ON regions(workspace_id)`,
		`CREATE TABLE IF NOT EXISTS sessions (
            session_id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            workspaces JSONB NOT NULL,
            images JSONB NOT NULL,
            creation_time TIMESTAMPTZ NOT NULL,
            last_update_time TIMESTAMPTZ NOT NULL
        )`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}

// --- Workspaces ---

type workspaces struct{ db *sql.DB }

func (w *workspaces) Put(ctx context.Context, m *model.Workspace) (*model.Workspace, error) {
	now := time.Now().UTC()
	out := *m
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	out.UpdatedAt = now
	ids, _ := json.Marshal(out.ImageIDs)
	_, err := w.db.ExecContext(ctx, `
        INSERT INTO workspaces (workspace_id, name, image_ids, creation_time, last_update_time)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (workspace_id) DO UPDATE SET name=EXCLUDED.name, image_ids=EXCLUDED.image_ids, last_update_time=EXCLUDED.last_update_time
    `, out.ID, out.Name, ids, out.CreatedAt, out.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (w *workspaces) Get(ctx context.Context, workspaceID string) (*model.Workspace, error) {
	var m model.Workspace
	m.ID = workspaceID
	var ids []byte
	row := w.db.QueryRowContext(ctx, `SELECT name, image_ids, creation_time, last_update_time FROM workspaces WHERE workspace_id=$1`, workspaceID)
	if err := row.Scan(&m.Name, &ids, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	_ = json.Unmarshal(ids, &m.ImageIDs)
	return &m, nil
}

func (w *workspaces) List(ctx context.Context) ([]*model.Workspace, error) {
	rows, err := w.db.QueryContext(ctx, `SELECT workspace_id, name, image_ids, creation_time, last_update_time FROM workspaces ORDER BY creation_time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Workspace
	for rows.Next() {
		var m model.Workspace
		var ids []byte
		if err := rows.Scan(&m.ID, &m.Name, &ids, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(ids, &m.ImageIDs)
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (w *workspaces) Delete(ctx context.Context, workspaceID string) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	steps := []string{
		`DELETE FROM annotations WHERE image_id IN (SELECT image_id FROM images WHERE workspace_id=$1)`,
		`DELETE FROM regions WHERE image_id IN (SELECT image_id FROM images WHERE workspace_id=$1)`,
		`DELETE FROM images WHERE workspace_id=$1`,
		`DELETE FROM workspaces WHERE workspace_id=$1`,
	}
	for _, q := range steps {
		if _, err := tx.ExecContext(ctx, q, workspaceID); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// --- Images ---

type images struct{ db *sql.DB }

func (i *images) Put(ctx context.Context, m *model.Image) (*model.Image, error) {
	now := time.Now().UTC()
	out := *m
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	out.UpdatedAt = now
	meta, _ := json.Marshal(out.Metadata)
	pos, _ := json.Marshal(out.Position)
	size, _ := json.Marshal(out.Size)
	tr, _ := json.Marshal(out.Transform)
	_, err := i.db.ExecContext(ctx, `
        INSERT INTO images (image_id, original_id, item_type, image_url, thumbnail_url, metadata, workspace_id, position, size, transform, creation_time, last_update_time)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        ON CONFLICT (image_id) DO UPDATE SET
            image_url=EXCLUDED.image_url, thumbnail_url=EXCLUDED.thumbnail_url, metadata=EXCLUDED.metadata,
            workspace_id=EXCLUDED.workspace_id, position=EXCLUDED.position, size=EXCLUDED.size,
            transform=EXCLUDED.transform, last_update_time=EXCLUDED.last_update_time
    `, out.ID, out.OriginalID, string(out.Type), out.ImageURL, out.ThumbnailURL, meta, out.WorkspaceID, pos, size, tr, out.CreatedAt, out.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (i *images) Get(ctx context.Context, imageID string) (*model.Image, error) {
	row := i.db.QueryRowContext(ctx, `SELECT image_id, original_id, item_type, image_url, thumbnail_url, metadata, workspace_id, position, size, transform, creation_time, last_update_time FROM images WHERE image_id=$1`, imageID)
	img, err := scanImage(row)
	if err != nil {
		return nil, notFound(err)
	}
	return img, nil
}

func (i *images) ListByWorkspace(ctx context.Context, workspaceID string) ([]*model.Image, error) {
	rows, err := i.db.QueryContext(ctx, `SELECT image_id, original_id, item_type, image_url, thumbnail_url, metadata, workspace_id, position, size, transform, creation_time, last_update_time FROM images WHERE workspace_id=$1`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

func (i *images) Delete(ctx context.Context, imageID string) error {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, q := range []string{
		`DELETE FROM annotations WHERE image_id=$1`,
		`DELETE FROM regions WHERE image_id=$1`,
		`DELETE FROM images WHERE image_id=$1`,
	} {
		if _, err := tx.ExecContext(ctx, q, imageID); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImage(row rowScanner) (*model.Image, error) {
	var m model.Image
	var meta, pos, size, tr []byte
	var typ string
	if err := row.Scan(&m.ID, &m.OriginalID, &typ, &m.ImageURL, &m.ThumbnailURL, &meta, &m.WorkspaceID, &pos, &size, &tr, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Type = model.ItemType(typ)
	_ = json.Unmarshal(meta, &m.Metadata)
	_ = json.Unmarshal(pos, &m.Position)
	_ = json.Unmarshal(size, &m.Size)
	_ = json.Unmarshal(tr, &m.Transform)
	return &m, nil
}

// --- Annotations ---

type annotations struct{ db *sql.DB }

func (a *annotations) Put(ctx context.Context, m *model.Annotation) (*model.Annotation, error) {
	now := time.Now().UTC()
	out := *m
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	out.UpdatedAt = now
	_, err := a.db.ExecContext(ctx, `
        INSERT INTO annotations (annotation_id, image_id, body, creation_time, last_update_time)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (annotation_id) DO UPDATE SET image_id=EXCLUDED.image_id, body=EXCLUDED.body, last_update_time=EXCLUDED.last_update_time
    `, out.ID, out.ImageID, out.Body, out.CreatedAt, out.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *annotations) Get(ctx context.Context, annotationID string) (*model.Annotation, error) {
	var m model.Annotation
	m.ID = annotationID
	row := a.db.QueryRowContext(ctx, `SELECT image_id, body, creation_time, last_update_time FROM annotations WHERE annotation_id=$1`, annotationID)
	if err := row.Scan(&m.ImageID, &m.Body, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (a *annotations) ListByImage(ctx context.Context, imageID string) ([]*model.Annotation, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT annotation_id, body, creation_time, last_update_time FROM annotations WHERE image_id=$1`, imageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Annotation
	for rows.Next() {
		var m model.Annotation
		m.ImageID = imageID
		if err := rows.Scan(&m.ID, &m.Body, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (a *annotations) Delete(ctx context.Context, annotationID string) error {
	_, err := a.db.ExecContext(ctx, `DELETE FROM annotations WHERE annotation_id=$1`, annotationID)
	return err
}

// --- Regions ---

type regions struct{ db *sql.DB }

func (r *regions) Put(ctx context.Context, m *model.Region) (*model.Region, error) {
	now := time.Now().UTC()
	out := *m
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	coords, _ := json.Marshal(out.Coordinates)
	meta, _ := json.Marshal(out.Metadata)
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO regions (region_id, image_id, workspace_id, title, coordinates, image_data, metadata, creation_time)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (region_id) DO UPDATE SET image_id=EXCLUDED.image_id, workspace_id=EXCLUDED.workspace_id,
            title=EXCLUDED.title, coordinates=EXCLUDED.coordinates, image_data=EXCLUDED.image_data, metadata=EXCLUDED.metadata
    `, out.ID, out.ImageID, out.WorkspaceID, out.Title, coords, out.ImageData, meta, out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *regions) Get(ctx context.Context, regionID string) (*model.Region, error) {
	var m model.Region
	m.ID = regionID
	var coords, meta []byte
	row := r.db.QueryRowContext(ctx, `SELECT image_id, workspace_id, title, coordinates, image_data, metadata, creation_time FROM regions WHERE region_id=$1`, regionID)
	if err := row.Scan(&m.ImageID, &m.WorkspaceID, &m.Title, &coords, &m.ImageData, &meta, &m.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	_ = json.Unmarshal(coords, &m.Coordinates)
	_ = json.Unmarshal(meta, &m.Metadata)
	return &m, nil
}

func (r *regions) ListByImage(ctx context.Context, imageID string) ([]*model.Region, error) {
	return r.list(ctx, `image_id`, imageID)
}

func (r *regions) ListByWorkspace(ctx context.Context, workspaceID string) ([]*model.Region, error) {
	return r.list(ctx, `workspace_id`, workspaceID)
}

func (r *regions) list(ctx context.Context, col, val string) ([]*model.Region, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT region_id, image_id, workspace_id, title, coordinates, image_data, metadata, creation_time FROM regions WHERE `+col+`=$1`, val)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Region
	for rows.Next() {
		var m model.Region
		var coords, meta []byte
		if err := rows.Scan(&m.ID, &m.ImageID, &m.WorkspaceID, &m.Title, &coords, &m.ImageData, &meta, &m.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(coords, &m.Coordinates)
		_ = json.Unmarshal(meta, &m.Metadata)
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (r *regions) Delete(ctx context.Context, regionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM regions WHERE region_id=$1`, regionID)
	return err
}

// --- Sessions ---

type sessions struct{ db *sql.DB }

func (s *sessions) Put(ctx context.Context, m *model.Session) (*model.Session, error) {
	now := time.Now().UTC()
	out := *m
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	out.UpdatedAt = now
	wss, _ := json.Marshal(out.Workspaces)
	imgs, _ := json.Marshal(out.Images)
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO sessions (session_id, name, workspaces, images, creation_time, last_update_time)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (session_id) DO UPDATE SET name=EXCLUDED.name, workspaces=EXCLUDED.workspaces, images=EXCLUDED.images, last_update_time=EXCLUDED.last_update_time
    `, out.ID, out.Name, wss, imgs, out.CreatedAt, out.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *sessions) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	var m model.Session
	m.ID = sessionID
	var wss, imgs []byte
	row := s.db.QueryRowContext(ctx, `SELECT name, workspaces, images, creation_time, last_update_time FROM sessions WHERE session_id=$1`, sessionID)
	if err := row.Scan(&m.Name, &wss, &imgs, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	_ = json.Unmarshal(wss, &m.Workspaces)
	_ = json.Unmarshal(imgs, &m.Images)
	return &m, nil
}

func (s *sessions) List(ctx context.Context) ([]*model.Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT session_id, name, workspaces, images, creation_time, last_update_time FROM sessions ORDER BY last_update_time DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Session
	for rows.Next() {
		var m model.Session
		var wss, imgs []byte
		if err := rows.Scan(&m.ID, &m.Name, &wss, &imgs, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(wss, &m.Workspaces)
		_ = json.Unmarshal(imgs, &m.Images)
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (s *sessions) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id=$1`, sessionID)
	return err
}
