package sqlite

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/Fernatzoc/skynet-next/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Migrations exposes the schema migrations compiled into the binary.
func Migrations() fs.FS {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		panic(fmt.Sprintf("sqlite: embedded migrations: %v", err))
	}
	return sub
}

// Storage bundles the SQLite repositories behind one connection pool.
type Storage struct {
	pool *ConnectionPool

	*SessionRepository
	*CompletionMarkerRepository
	*StatusChangeRepository
}

// Open connects to the database described by dsn using the default
// connection settings.
func Open(dsn string) (*Storage, error) {
	return OpenWithConfig(migration.DefaultSQLiteConfig(dsn))
}

// OpenWithConfig connects using an explicit SQLite configuration.
func OpenWithConfig(config migration.SQLiteConfig) (*Storage, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	return &Storage{
		pool:                       pool,
		SessionRepository:          NewSessionRepository(pool),
		CompletionMarkerRepository: NewCompletionMarkerRepository(pool),
		StatusChangeRepository:     NewStatusChangeRepository(pool),
	}, nil
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending schema migrations.
func (s *Storage) Migrate(ctx context.Context, logger *slog.Logger) error {
	manager := migration.NewManager(migration.NewFileScanner(Migrations()), migration.NewSQLiteExecutor(s.pool.DB()), logger)
	return manager.RunMigrations(ctx)
}
