package sqlite

import (
	"testing"

	"github.com/archetype-pal/lightbox-backend/internal/store"
	"github.com/archetype-pal/lightbox-backend/internal/store/storetest"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	s, err := NewWithDB(db)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	return s
}

func TestSqliteStoreCompliance(t *testing.T) {
	storetest.Run(t, newTestStore)
}

func TestNewRequiresPath(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatalf("expected environment error for empty path")
	}
}
