package postgres

import (
	"os"
	"testing"

	"github.com/archetype-pal/lightbox-backend/internal/store"
	"github.com/archetype-pal/lightbox-backend/internal/store/storetest"
)

func makePGStore(t *testing.T) store.Store {
	t.Helper()
	dsn := os.Getenv("LIGHTBOX_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LIGHTBOX_POSTGRES_DSN not set; skipping postgres store integration test")
	}
	db, err := Open(dsn)
	if err != nil {
		t.Fatalf("postgres open: %v", err)
	}
	if err := EnsureSchema(db); err != nil {
		t.Fatalf("postgres schema: %v", err)
	}
	return NewWithDB(db)
}

func TestPostgresStore_Compliance(t *testing.T) {
	storetest.Run(t, makePGStore)
}
