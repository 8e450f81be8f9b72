package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/archetype-pal/lightbox-backend/internal/model"
	"github.com/archetype-pal/lightbox-backend/internal/store"
)

// New opens (or creates) a SQLite database file, applies the schema and
// returns a store over it.
func New(path string) (store.Store, error) {
	if path == "" {
		return nil, model.NewEnvironmentError("no sqlite path configured")
	}
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	return NewWithDB(db)
}

// NewWithDB wires a store over an existing connection (used by the
// factory and by tests).
func NewWithDB(db *sql.DB) (store.Store, error) {
	if err := EnsureSchema(db); err != nil {
		return nil, err
	}
	return &sqliteStore{db: db}, nil
}

type sqliteStore struct{ db *sql.DB }

func (s *sqliteStore) Workspaces() store.Workspaces   { return &workspaces{db: s.db} }
func (s *sqliteStore) Images() store.Images           { return &images{db: s.db} }
func (s *sqliteStore) Annotations() store.Annotations { return &annotations{db: s.db} }
func (s *sqliteStore) Regions() store.Regions         { return &regions{db: s.db} }
func (s *sqliteStore) Sessions() store.Sessions       { return &sessions{db: s.db} }

// HealthPing implements health.HealthPinger.
func (s *sqliteStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
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
	_, err := w.db.ExecContext(ctx, `INSERT INTO Workspaces (WorkspaceId, Name, ImageIds, CreationTime, LastUpdateTime)
        VALUES (?,?,?,?,?)
        ON CONFLICT(WorkspaceId) DO UPDATE SET Name=excluded.Name, ImageIds=excluded.ImageIds, LastUpdateTime=excluded.LastUpdateTime`,
		out.ID, out.Name, string(ids), out.CreatedAt, out.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (w *workspaces) Get(ctx context.Context, workspaceID string) (*model.Workspace, error) {
	row := w.db.QueryRowContext(ctx, `SELECT Name, ImageIds, CreationTime, LastUpdateTime FROM Workspaces WHERE WorkspaceId=?`, workspaceID)
	var m model.Workspace
	m.ID = workspaceID
	var ids string
	if err := row.Scan(&m.Name, &ids, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	_ = json.Unmarshal([]byte(ids), &m.ImageIDs)
	return &m, nil
}

func (w *workspaces) List(ctx context.Context) ([]*model.Workspace, error) {
	rows, err := w.db.QueryContext(ctx, `SELECT WorkspaceId, Name, ImageIds, CreationTime, LastUpdateTime FROM Workspaces ORDER BY CreationTime`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Workspace
	for rows.Next() {
		var m model.Workspace
		var ids string
		if err := rows.Scan(&m.ID, &m.Name, &ids, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(ids), &m.ImageIDs)
		out = append(out, &m)
	}
	return out, rows.Err()
}

// Delete removes the workspace and everything it owns: images first,
// then annotations and regions referencing those images, in a single
// transaction so a mid-cascade failure leaves no orphans.
func (w *workspaces) Delete(ctx context.Context, workspaceID string) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	steps := []string{
		`DELETE FROM Annotations WHERE ImageId IN (SELECT ImageId FROM Images WHERE WorkspaceId=?)`,
		`DELETE FROM Regions WHERE ImageId IN (SELECT ImageId FROM Images WHERE WorkspaceId=?)`,
		`DELETE FROM Images WHERE WorkspaceId=?`,
		`DELETE FROM Workspaces WHERE WorkspaceId=?`,
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
	_, err := i.db.ExecContext(ctx, `INSERT INTO Images (
        ImageId, OriginalId, ItemType, ImageUrl, ThumbnailUrl, Metadata, WorkspaceId, Position, Size, Transform, CreationTime, LastUpdateTime)
        VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
        ON CONFLICT(ImageId) DO UPDATE SET
            ImageUrl=excluded.ImageUrl, ThumbnailUrl=excluded.ThumbnailUrl, Metadata=excluded.Metadata,
            WorkspaceId=excluded.WorkspaceId, Position=excluded.Position, Size=excluded.Size,
            Transform=excluded.Transform, LastUpdateTime=excluded.LastUpdateTime`,
		out.ID, out.OriginalID, string(out.Type), out.ImageURL, out.ThumbnailURL, string(meta),
		out.WorkspaceID, string(pos), string(size), string(tr), out.CreatedAt, out.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (i *images) Get(ctx context.Context, imageID string) (*model.Image, error) {
	row := i.db.QueryRowContext(ctx, `SELECT ImageId, OriginalId, ItemType, ImageUrl, ThumbnailUrl, Metadata, WorkspaceId, Position, Size, Transform, CreationTime, LastUpdateTime FROM Images WHERE ImageId=?`, imageID)
	img, err := scanImage(row)
	if err != nil {
		return nil, notFound(err)
	}
	return img, nil
}

func (i *images) ListByWorkspace(ctx context.Context, workspaceID string) ([]*model.Image, error) {
	rows, err := i.db.QueryContext(ctx, `SELECT ImageId, OriginalId, ItemType, ImageUrl, ThumbnailUrl, Metadata, WorkspaceId, Position, Size, Transform, CreationTime, LastUpdateTime FROM Images WHERE WorkspaceId=?`, workspaceID)
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

// Delete removes the image and cascades to its annotations and regions.
func (i *images) Delete(ctx context.Context, imageID string) error {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, q := range []string{
		`DELETE FROM Annotations WHERE ImageId=?`,
		`DELETE FROM Regions WHERE ImageId=?`,
		`DELETE FROM Images WHERE ImageId=?`,
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
	var meta, pos, size, tr sql.NullString
	var typ string
	if err := row.Scan(&m.ID, &m.OriginalID, &typ, &m.ImageURL, &m.ThumbnailURL, &meta, &m.WorkspaceID, &pos, &size, &tr, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Type = model.ItemType(typ)
	_ = json.Unmarshal([]byte(meta.String), &m.Metadata)
	_ = json.Unmarshal([]byte(pos.String), &m.Position)
	_ = json.Unmarshal([]byte(size.String), &m.Size)
	_ = json.Unmarshal([]byte(tr.String), &m.Transform)
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
	_, err := a.db.ExecContext(ctx, `INSERT INTO Annotations (AnnotationId, ImageId, Body, CreationTime, LastUpdateTime)
        VALUES (?,?,?,?,?)
        ON CONFLICT(AnnotationId) DO UPDATE SET ImageId=excluded.ImageId, Body=excluded.Body, LastUpdateTime=excluded.LastUpdateTime`,
		out.ID, out.ImageID, string(out.Body), out.CreatedAt, out.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *annotations) Get(ctx context.Context, annotationID string) (*model.Annotation, error) {
	row := a.db.QueryRowContext(ctx, `SELECT ImageId, Body, CreationTime, LastUpdateTime FROM Annotations WHERE AnnotationId=?`, annotationID)
	var m model.Annotation
	m.ID = annotationID
	var body string
	if err := row.Scan(&m.ImageID, &body, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	m.Body = []byte(body)
	return &m, nil
}

func (a *annotations) ListByImage(ctx context.Context, imageID string) ([]*model.Annotation, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT AnnotationId, Body, CreationTime, LastUpdateTime FROM Annotations WHERE ImageId=?`, imageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Annotation
	for rows.Next() {
		var m model.Annotation
		m.ImageID = imageID
		var body string
		if err := rows.Scan(&m.ID, &body, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		m.Body = []byte(body)
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (a *annotations) Delete(ctx context.Context, annotationID string) error {
	_, err := a.db.ExecContext(ctx, `DELETE FROM Annotations WHERE AnnotationId=?`, annotationID)
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
	_, err := r.db.ExecContext(ctx, `INSERT INTO Regions (RegionId, ImageId, WorkspaceId, Title, Coordinates, ImageData, Metadata, CreationTime)
        VALUES (?,?,?,?,?,?,?,?)
        ON CONFLICT(RegionId) DO UPDATE SET ImageId=excluded.ImageId, WorkspaceId=excluded.WorkspaceId,
            Title=excluded.Title, Coordinates=excluded.Coordinates, ImageData=excluded.ImageData, Metadata=excluded.Metadata`,
		out.ID, out.ImageID, out.WorkspaceID, out.Title, string(coords), out.ImageData, string(meta), out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *regions) Get(ctx context.Context, regionID string) (*model.Region, error) {
	row := r.db.QueryRowContext(ctx, `SELECT ImageId, WorkspaceId, Title, Coordinates, ImageData, Metadata, CreationTime FROM Regions WHERE RegionId=?`, regionID)
	var m model.Region
	m.ID = regionID
	var coords string
	var meta sql.NullString
	if err := row.Scan(&m.ImageID, &m.WorkspaceID, &m.Title, &coords, &m.ImageData, &meta, &m.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	_ = json.Unmarshal([]byte(coords), &m.Coordinates)
	_ = json.Unmarshal([]byte(meta.String), &m.Metadata)
	return &m, nil
}

func (r *regions) ListByImage(ctx context.Context, imageID string) ([]*model.Region, error) {
	return r.list(ctx, `ImageId`, imageID)
}

func (r *regions) ListByWorkspace(ctx context.Context, workspaceID string) ([]*model.Region, error) {
	return r.list(ctx, `WorkspaceId`, workspaceID)
}

func (r *regions) list(ctx context.Context, col, val string) ([]*model.Region, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT RegionId, ImageId, WorkspaceId, Title, Coordinates, ImageData, Metadata, CreationTime FROM Regions WHERE `+col+`=?`, val)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Region
	for rows.Next() {
		var m model.Region
		var coords string
		var meta sql.NullString
		if err := rows.Scan(&m.ID, &m.ImageID, &m.WorkspaceID, &m.Title, &coords, &m.ImageData, &meta, &m.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(coords), &m.Coordinates)
		_ = json.Unmarshal([]byte(meta.String), &m.Metadata)
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (r *regions) Delete(ctx context.Context, regionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM Regions WHERE RegionId=?`, regionID)
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
	_, err := s.db.ExecContext(ctx, `INSERT INTO Sessions (SessionId, Name, Workspaces, Images, CreationTime, LastUpdateTime)
        VALUES (?,?,?,?,?,?)
        ON CONFLICT(SessionId) DO UPDATE SET Name=excluded.Name, Workspaces=excluded.Workspaces, Images=excluded.Images, LastUpdateTime=excluded.LastUpdateTime`,
		out.ID, out.Name, string(wss), string(imgs), out.CreatedAt, out.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *sessions) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT Name, Workspaces, Images, CreationTime, LastUpdateTime FROM Sessions WHERE SessionId=?`, sessionID)
	var m model.Session
	m.ID = sessionID
	var wss, imgs string
	if err := row.Scan(&m.Name, &wss, &imgs, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	_ = json.Unmarshal([]byte(wss), &m.Workspaces)
	_ = json.Unmarshal([]byte(imgs), &m.Images)
	return &m, nil
}

func (s *sessions) List(ctx context.Context) ([]*model.Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT SessionId, Name, Workspaces, Images, CreationTime, LastUpdateTime FROM Sessions ORDER BY LastUpdateTime DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Session
	for rows.Next() {
		var m model.Session
		var wss, imgs string
		if err := rows.Scan(&m.ID, &m.Name, &wss, &imgs, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(wss), &m.Workspaces)
		_ = json.Unmarshal([]byte(imgs), &m.Images)
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (s *sessions) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM Sessions WHERE SessionId=?`, sessionID)
	return err
}
