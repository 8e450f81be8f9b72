package sqlite

import "database/sql"

// EnsureSchema creates the five record tables and their secondary
// indexes if they do not exist.
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS Workspaces (
            WorkspaceId TEXT PRIMARY KEY,
            Name TEXT NOT NULL,
            ImageIds TEXT NOT NULL,
            CreationTime TIMESTAMP NOT NULL,
            LastUpdateTime TIMESTAMP NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS Images (
            ImageId TEXT PRIMARY KEY,
            OriginalId INTEGER NOT NULL,
            ItemType TEXT NOT NULL,
            ImageUrl TEXT NOT NULL,
            ThumbnailUrl TEXT NOT NULL,
            Metadata TEXT,
            WorkspaceId TEXT NOT NULL,
            Position TEXT NOT NULL,
            Size TEXT NOT NULL,
            Transform TEXT NOT NULL,
            CreationTime TIMESTAMP NOT NULL,
            LastUpdateTime TIMESTAMP NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS Images_WorkspaceId_Idx ON Images(WorkspaceId);`,
		`CREATE TABLE IF NOT EXISTS Annotations (
            AnnotationId TEXT PRIMARY KEY,
            ImageId TEXT NOT NULL,
            Body TEXT NOT NULL,
            CreationTime TIMESTAMP NOT NULL,
            LastUpdateTime TIMESTAMP NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS Annotations_ImageId_Idx ON Annotations(ImageId);`,
		`CREATE TABLE IF NOT EXISTS Regions (
            RegionId TEXT PRIMARY KEY,
            ImageId TEXT NOT NULL,
            WorkspaceId TEXT NOT NULL,
            Title TEXT NOT NULL,
            Coordinates TEXT NOT NULL,
            ImageData TEXT NOT NULL,
            Metadata TEXT,
            CreationTime TIMESTAMP NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS Regions_ImageId_Idx ON Regions(ImageId);`,
		`CREATE INDEX IF NOT EXISTS Regions_WorkspaceId_Idx ON Regions(WorkspaceId);`,
		`CREATE TABLE IF NOT EXISTS Sessions (
            SessionId TEXT PRIMARY KEY,
            Name TEXT NOT NULL,
            Workspaces TEXT NOT NULL,
            Images TEXT NOT NULL,
            CreationTime TIMESTAMP NOT NULL,
            LastUpdateTime TIMESTAMP NOT NULL
        );`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
