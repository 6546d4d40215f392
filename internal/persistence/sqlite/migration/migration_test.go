package migration

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"testing/fstest"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := NewConnectionManager(InMemoryTestSQLiteConfig()).GetConnection()
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"001_create_notes.sql": {Data: []byte(`-- Description: create notes
CREATE TABLE notes (
	id INTEGER PRIMARY KEY,
	body TEXT NOT NULL DEFAULT 'a;b'
);
-- trailing comment
CREATE INDEX idx_notes_body ON notes(body);
`)},
		"002_add_author.sql": {Data: []byte("ALTER TABLE notes ADD COLUMN author TEXT;")},
		"README.md":          {Data: []byte("ignored")},
	}
}

func TestFileScanner_ScanMigrations(t *testing.T) {
	t.Parallel()

	migrations, err := NewFileScanner(testMigrations()).ScanMigrations()
	if err != nil {
		t.Fatalf("ScanMigrations returned error: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != "001" || migrations[0].Description != "create notes" {
		t.Fatalf("unexpected first migration %+v", migrations[0])
	}
	if migrations[1].Description != "add author" {
		t.Fatalf("expected filename description, got %q", migrations[1].Description)
	}
	if len(migrations[0].Checksum) != 64 {
		t.Fatalf("expected hex checksum, got %q", migrations[0].Checksum)
	}
}

func TestFileScanner_Rejects(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		files fstest.MapFS
		want  error
	}{
		"bad name":  {files: fstest.MapFS{"init.sql": {Data: []byte("SELECT 1;")}}, want: ErrInvalidMigrationFile},
		"duplicate": {files: fstest.MapFS{"1_a.sql": {Data: []byte("SELECT 1;")}, "001_b.sql": {Data: []byte("SELECT 1;")}}, want: ErrDuplicateVersion},
		"empty":     {files: fstest.MapFS{"001_empty.sql": {Data: []byte("-- nothing\n")}}, want: ErrInvalidMigrationFile},
	}
	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := NewFileScanner(tc.files).ScanMigrations(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestSplitStatements(t *testing.T) {
	t.Parallel()

	got := splitStatements("-- header\nINSERT INTO t VALUES ('x;y');\n\nSELECT 1;\n-- end\n")
	if len(got) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(got), got)
	}
	if got[0] != "INSERT INTO t VALUES ('x;y')" {
		t.Fatalf("unexpected first statement %q", got[0])
	}
}

func TestManager_RunMigrations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	files := testMigrations()
	manager := NewManager(NewFileScanner(files), NewSQLiteExecutor(db), nil)

	if err := manager.RunMigrations(ctx); err != nil {
		t.Fatalf("RunMigrations returned error: %v", err)
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO notes (body, author) VALUES ('hola', 'ana')"); err != nil {
		t.Fatalf("expected migrated schema, got %v", err)
	}

	status, err := manager.Status(ctx)
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.CurrentVersion != "002" || status.PendingCount != 0 || len(status.AppliedMigrations) != 2 {
		t.Fatalf("unexpected status %+v", status)
	}

	// A second run is a no-op.
	if err := manager.RunMigrations(ctx); err != nil {
		t.Fatalf("second RunMigrations returned error: %v", err)
	}

	files["002_add_author.sql"] = &fstest.MapFile{Data: []byte("ALTER TABLE notes ADD COLUMN editor TEXT;")}
	if err := manager.RunMigrations(ctx); !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected checksum mismatch, got %v", err)
	}
}

func TestManager_FailedMigrationIsNotRecorded(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	files := fstest.MapFS{
		"001_ok.sql":     {Data: []byte("CREATE TABLE a (id INTEGER);")},
		"002_broken.sql": {Data: []byte("CREATE TABLE b (id INTEGER);\nINSERT INTO missing VALUES (1);")},
	}
	manager := NewManager(NewFileScanner(files), NewSQLiteExecutor(db), nil)

	err := manager.RunMigrations(ctx)
	if !errors.Is(err, ErrMigrationFailed) {
		t.Fatalf("expected migration failure, got %v", err)
	}

	status, err := manager.Status(ctx)
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.CurrentVersion != "001" || status.PendingCount != 1 {
		t.Fatalf("expected only the first migration applied, got %+v", status)
	}
	var name string
	if err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE name = 'b'").Scan(&name); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected rolled back table, got %q (%v)", name, err)
	}
}

func TestConnectionManager_ValidateConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultSQLiteConfig("file:test.db")
	cfg.JournalMode = "FAST"
	if err := NewConnectionManager(cfg).ValidateConfig(); err == nil {
		t.Fatalf("expected invalid journal mode to be rejected")
	}
	if err := NewConnectionManager(SQLiteConfig{}).ValidateConfig(); err == nil {
		t.Fatalf("expected empty DSN to be rejected")
	}
}

func TestDatabaseDir(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		":memory:":                               "",
		"file:skynet.db?_pragma=foreign_keys(1)": "",
		"file:/var/lib/skynet/skynet.db":         "/var/lib/skynet",
		"data/skynet.db":                         "data",
	}
	for dsn, want := range cases {
		if got := databaseDir(dsn); got != want {
			t.Fatalf("databaseDir(%q): expected %q, got %q", dsn, want, got)
		}
	}
}
