package model

import "time"

// ItemType distinguishes the two kinds of source items the remote
// archive can hand us: a whole manuscript image or an annotated graph
// (a glyph cut out of an image by region coordinates).
type ItemType string

const (
	ItemImage ItemType = "image"
	ItemGraph ItemType = "graph"
)

// Position places an image on the workspace canvas.
type Position struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	ZIndex int     `json:"zIndex"`
}

// Size is the on-canvas display size, independent of the source pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Transform holds the per-image display adjustments. All fields are
// mutable independently of the source image data.
type Transform struct {
	Opacity    float64 `json:"opacity"`
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Rotation   float64 `json:"rotation"`
	FlipX      bool    `json:"flipX"`
	FlipY      bool    `json:"flipY"`
	Grayscale  bool    `json:"grayscale"`
}

// DefaultTransform returns the neutral transform applied to every
// freshly loaded image.
func DefaultTransform() Transform {
	return Transform{Opacity: 1, Brightness: 100, Contrast: 100}
}

// Image is a placed, transformed instance of a source image or graph
// inside a workspace. ID is a local identifier, distinct from the
// numeric OriginalID assigned by the remote archive.
type Image struct {
	ID           string            `json:"id"`
	OriginalID   int64             `json:"originalId"`
	Type         ItemType          `json:"type"`
	ImageURL     string            `json:"imageUrl"`
	ThumbnailURL string            `json:"thumbnailUrl"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	WorkspaceID  string            `json:"workspaceId"`
	Position     Position          `json:"position"`
	Size         Size              `json:"size"`
	Transform    Transform         `json:"transform"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// Workspace is a named container of images. ImageIDs mirrors the
// membership recorded on each image's WorkspaceID; every mutation keeps
// the two consistent.
type Workspace struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ImageIDs  []string  `json:"images"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Session is a named point-in-time snapshot of workspaces and images,
// decoupled from live state and from the undo/redo history. The copies
// are deep: a session shares no ownership with live records.
type Session struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Workspaces []Workspace `json:"workspaces"`
	Images     []Image     `json:"images"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// Annotation attaches an opaque web-annotation payload to exactly one
// image. The engine stores and round-trips the payload without
// interpreting it.
type Annotation struct {
	ID        string    `json:"id"`
	ImageID   string    `json:"imageId"`
	Body      []byte    `json:"annotation"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Rect is a pixel rectangle. For regions the coordinate space is the
// cropping UI's, not necessarily the source image's native pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Region is a user-defined crop of one image with its own captured
// bitmap. WorkspaceID is denormalized from the owning image for query
// convenience and must stay consistent with it.
type Region struct {
	ID          string            `json:"id"`
	ImageID     string            `json:"imageId"`
	WorkspaceID string            `json:"workspaceId"`
	Title       string            `json:"title"`
	Coordinates Rect              `json:"coordinates"`
	ImageData   string            `json:"imageData"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// ImageUpdate carries a partial update for Image. Nil fields are left
// untouched by the merge.
type ImageUpdate struct {
	ImageURL     *string           `json:"imageUrl,omitempty"`
	ThumbnailURL *string           `json:"thumbnailUrl,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Position     *Position         `json:"position,omitempty"`
	Size         *Size             `json:"size,omitempty"`
	Transform    *Transform        `json:"transform,omitempty"`
}

// SourceItem is the shape the remote archive hands the engine for
// loading: an image list item, graph list item or collection item. The
// engine depends only on this shape, not on how it was fetched.
type SourceItem struct {
	ID             int64    `json:"id"`
	Type           ItemType `json:"type"`
	Shelfmark      string   `json:"shelfmark"`
	Locus          string   `json:"locus,omitempty"`
	RepositoryName string   `json:"repository_name,omitempty"`
	RepositoryCity string   `json:"repository_city,omitempty"`
	Date           string   `json:"date,omitempty"`
	ImageIIIF      string   `json:"image_iiif"`
	Coordinates    string   `json:"coordinates,omitempty"`
}

// Metadata assembles the open metadata bag for an image created from a
// source item. Empty fields are omitted so the bag round-trips cleanly.
func (it SourceItem) MetadataBag() map[string]string {
	m := map[string]string{"shelfmark": it.Shelfmark}
	if it.Locus != "" {
		m["locus"] = it.Locus
	}
	if it.RepositoryName != "" {
		m["repository_name"] = it.RepositoryName
	}
	if it.RepositoryCity != "" {
		m["repository_city"] = it.RepositoryCity
	}
	if it.Date != "" {
		m["date"] = it.Date
	}
	return m
}
