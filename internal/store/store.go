package store

import (
	"context"

	"github.com/archetype-pal/lightbox-backend/internal/model"
)

// Store exposes persistence operations required by the state core, the
// session manager and the export pipeline.
// Implementations live under internal/store/<driver>/ (e.g., sqlite, postgres).
type Store interface {
	Workspaces() Workspaces
	Images() Images
	Annotations() Annotations
	Regions() Regions
	Sessions() Sessions
}

// Workspaces persists workspace records keyed by id.
// Delete cascades: images owned by the workspace are removed first,
// together with their annotations and regions, in a single transaction.
type Workspaces interface {
	Put(ctx context.Context, w *model.Workspace) (*model.Workspace, error)
	Get(ctx context.Context, workspaceID string) (*model.Workspace, error)
	List(ctx context.Context) ([]*model.Workspace, error)
	Delete(ctx context.Context, workspaceID string) error
}

// Images persists image records keyed by id with a secondary index on
// the owning workspace. Delete cascades to annotations and regions
// referencing the image.
type Images interface {
	Put(ctx context.Context, img *model.Image) (*model.Image, error)
	Get(ctx context.Context, imageID string) (*model.Image, error)
	ListByWorkspace(ctx context.Context, workspaceID string) ([]*model.Image, error)
	Delete(ctx context.Context, imageID string) error
}

// Annotations persists opaque annotation payloads keyed by id with a
// secondary index on the owning image.
type Annotations interface {
	Put(ctx context.Context, a *model.Annotation) (*model.Annotation, error)
	Get(ctx context.Context, annotationID string) (*model.Annotation, error)
	ListByImage(ctx context.Context, imageID string) ([]*model.Annotation, error)
	Delete(ctx context.Context, annotationID string) error
}

// Regions persists crop regions keyed by id, indexed by both the owning
// image and the denormalized workspace.
type Regions interface {
	Put(ctx context.Context, r *model.Region) (*model.Region, error)
	Get(ctx context.Context, regionID string) (*model.Region, error)
	ListByImage(ctx context.Context, imageID string) ([]*model.Region, error)
	ListByWorkspace(ctx context.Context, workspaceID string) ([]*model.Region, error)
	Delete(ctx context.Context, regionID string) error
}

// Sessions persists named snapshots. List returns newest-updated first.
type Sessions interface {
	Put(ctx context.Context, s *model.Session) (*model.Session, error)
	Get(ctx context.Context, sessionID string) (*model.Session, error)
	List(ctx context.Context) ([]*model.Session, error)
	Delete(ctx context.Context, sessionID string) error
}
