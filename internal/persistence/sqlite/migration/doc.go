// Package migration applies versioned SQL migrations to SQLite databases.
//
// Migrations are read from an fs.FS (usually an embed.FS compiled into the
// binary) and must be named {version}_{description}.sql, for example
// "001_sessions.sql". Applied versions are tracked in the schema_migrations
// table together with the checksum of the file that was executed, so an
// edited migration is reported instead of silently skipped.
//
// Example usage:
//
//	manager := NewManager(NewFileScanner(migrations), NewSQLiteExecutor(db), logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return fmt.Errorf("migrate: %w", err)
//	}
package migration
