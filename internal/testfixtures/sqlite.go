package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Fernatzoc/skynet-next/internal/persistence"
	"github.com/Fernatzoc/skynet-next/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary, migrated
// SQLite database for integration-style persistence tests.
type SQLiteHarness struct {
	Storage       *sqlite.Storage
	Sessions      persistence.SessionRepository
	Markers       persistence.CompletionMarkerRepository
	StatusChanges persistence.StatusChangeRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens a database file under tb.TempDir and applies the
// embedded migrations. Close is also registered with tb.Cleanup.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "skynet.db")
	storage, err := sqlite.Open(path)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	if err := storage.Migrate(context.Background(), nil); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage:       storage,
		Sessions:      storage,
		Markers:       storage,
		StatusChanges: storage,
		cleanup: func() {
			_ = storage.Close()
		},
	}
	tb.Cleanup(harness.Close)
	return harness
}
